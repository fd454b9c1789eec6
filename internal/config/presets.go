package config

import "sort"

// Presets are ready-made configurations for known campaign domains.
var Presets = map[string]*Config{
	"eurec4a-circle": {
		Output: "eurec4a_circle.nc",
		Domain: DomainConfig{LatMin: 11.3, LatMax: 15.3, LonMin: -59.717, LonMax: -55.717},
		Heights: HeightsConfig{
			Start: 0, Stop: 10000, Step: 40,
		},
		Forcing: ForcingConfig{
			Lat: 13.3, Lon: -57.717,
			Strategy:  "both",
			Mask:      "ocean",
			Variables: []string{"u", "v", "p_f", "theta"},
			UTraj:     -6, VTraj: 0,
		},
		Trajectory: TrajectoryConfig{
			Lat: 13.3, Lon: -57.717,
			Start: 30, Steps: 3, Iterations: 10,
		},
	},
	"barbados-wide": {
		Output: "barbados_wide.nc",
		Domain: DomainConfig{LatMin: 8, LatMax: 18, LonMin: -62, LonMax: -52},
		Heights: HeightsConfig{
			Start: 0, Stop: 15000, Step: 100,
		},
		Forcing: ForcingConfig{
			Lat: 13.3, Lon: -57.717,
			Strategy:  "regression",
			Mask:      "ocean",
			Variables: []string{"u", "v", "p_f", "theta"},
		},
		Trajectory: TrajectoryConfig{
			Lat: 13.3, Lon: -57.717,
			Start: 30, Steps: 3, Iterations: 10,
		},
	},
	"boundary-layer": {
		Output: "boundary_layer.nc",
		Domain: DomainConfig{LatMin: 11.3, LatMax: 15.3, LonMin: -59.717, LonMax: -55.717},
		Heights: HeightsConfig{
			Start: 0, Stop: 3000, Step: 10,
		},
		Forcing: ForcingConfig{
			Lat: 13.3, Lon: -57.717,
			Strategy:  "both",
			Mask:      "ocean",
			Variables: []string{"u", "v", "p_f", "theta", "q"},
			UTraj:     -6, VTraj: 0,
		},
		Trajectory: TrajectoryConfig{
			Lat: 13.3, Lon: -57.717,
			Start: 30, Steps: 3, Iterations: 10,
		},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
