// Package forcing derives the large-scale forcing diagnostics fed to
// single-column and limited-area models: box means, horizontal gradients,
// advective tendencies, and the great-circle back-tracing used to follow
// an air mass between analysis times.
//
// All geodesy assumes a spherical earth of radius REarth.
package forcing
