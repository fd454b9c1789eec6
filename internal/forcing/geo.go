package forcing

import (
	"errors"
	"math"
)

// REarth is the spherical earth radius, in metres.
const REarth = 6371000.0

const degToRad = math.Pi / 180

// ErrNegativeStep is returned by TraceBack for a negative time step.
var ErrNegativeStep = errors.New("forcing: back-trace requires a non-negative time step")

// HaversineDist returns the great-circle distance in metres between two
// points given in radians.
func HaversineDist(lat1, lon1, lat2, lon2 float64) float64 {
	sinLat := math.Sin((lat2 - lat1) / 2)
	sinLon := math.Sin((lon2 - lon1) / 2)
	haver := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return REarth * 2 * math.Atan2(math.Sqrt(haver), math.Sqrt(1-haver))
}

// BearingAngle returns the direction of the great circle from point 1 to
// point 2, measured counterclockwise from due east, in radians. Combined
// with HaversineDist it projects grid points onto a local tangent plane:
// x = dist*cos(angle), y = dist*sin(angle).
func BearingAngle(lat1, lon1, lat2, lon2 float64) float64 {
	dlon := lon2 - lon1
	return math.Atan2(
		math.Cos(lat1)*math.Sin(lat2)-math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon),
		math.Sin(dlon)*math.Cos(lat2),
	)
}

// TraceBack returns the position an air parcel occupied dt seconds earlier,
// assuming it travelled with constant velocity (u, v) along a great circle.
// Positions are in degrees, velocities in m/s.
func TraceBack(lat, lon, u, v, dt float64) (prevLat, prevLon float64, err error) {
	if dt < 0 {
		return 0, 0, ErrNegativeStep
	}
	// Heading measured clockwise from north, pointing upstream.
	theta := mod2Pi(math.Atan2(v, u)) - math.Pi/2
	arc := math.Hypot(u, v) * dt / REarth
	latR := lat * degToRad
	lonR := lon * degToRad
	prevLatR := math.Asin(math.Sin(latR)*math.Cos(arc) +
		math.Cos(latR)*math.Sin(arc)*math.Cos(theta))
	prevLonR := lonR + math.Atan2(
		math.Sin(theta)*math.Sin(arc)*math.Cos(latR),
		math.Cos(arc)-math.Sin(latR)*math.Sin(prevLatR),
	)
	return prevLatR / degToRad, prevLonR / degToRad, nil
}

// mod2Pi wraps an angle onto [0, 2*pi).
func mod2Pi(x float64) float64 {
	m := math.Mod(x, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	return m
}

// CosTransition ramps from 1 to 0 with a half cosine as value moves from
// start to end. Values before start map to 1, values past end to 0.
func CosTransition(value, start, end float64) float64 {
	n := (value - start) / (end - start)
	switch {
	case n < 0:
		return 1
	case n > 1:
		return 0
	default:
		return 0.5 + 0.5*math.Cos(n*math.Pi)
	}
}
