package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// earthRadius is the mean Earth radius in meters (IUGG R1).
const earthRadius = 6371008.8

// Projection converts between WGS-84 lon/lat degrees and the working planar
// reference: a spherical Lambert azimuthal equal-area projection centered on
// a fixed origin. Equal-area is the property the credited-area arithmetic
// depends on; distortion stays negligible at the extent of a single project
// region. Forward and Inverse satisfy the orb.Projection signature.
type Projection struct {
	lon0    float64 // radians
	sinLat0 float64
	cosLat0 float64
}

// NewProjection creates a projection centered at the given origin, in degrees.
func NewProjection(originLon, originLat float64) *Projection {
	lat0 := originLat * math.Pi / 180
	return &Projection{
		lon0:    originLon * math.Pi / 180,
		sinLat0: math.Sin(lat0),
		cosLat0: math.Cos(lat0),
	}
}

// Forward maps a lon/lat point (degrees) to working x/y (meters).
func (p *Projection) Forward(pt orb.Point) orb.Point {
	lon := pt[0] * math.Pi / 180
	lat := pt[1] * math.Pi / 180

	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	cosDLon := math.Cos(lon - p.lon0)
	sinDLon := math.Sin(lon - p.lon0)

	denom := 1 + p.sinLat0*sinLat + p.cosLat0*cosLat*cosDLon
	if denom <= 0 {
		// Antipode of the origin; projection is undefined there. Clamp so a
		// pathological input degrades instead of producing Inf coordinates.
		denom = math.SmallestNonzeroFloat64
	}
	k := math.Sqrt(2 / denom)

	x := earthRadius * k * cosLat * sinDLon
	y := earthRadius * k * (p.cosLat0*sinLat - p.sinLat0*cosLat*cosDLon)
	return orb.Point{x, y}
}

// Inverse maps a working x/y point (meters) back to lon/lat degrees.
func (p *Projection) Inverse(pt orb.Point) orb.Point {
	x, y := pt[0], pt[1]
	rho := math.Hypot(x, y)
	if rho == 0 {
		return orb.Point{p.lon0 * 180 / math.Pi, math.Asin(p.sinLat0) * 180 / math.Pi}
	}

	c := 2 * math.Asin(rho/(2*earthRadius))
	sinC, cosC := math.Sin(c), math.Cos(c)

	lat := math.Asin(cosC*p.sinLat0 + y*sinC*p.cosLat0/rho)
	lon := p.lon0 + math.Atan2(x*sinC, rho*p.cosLat0*cosC-y*p.sinLat0*sinC)

	return orb.Point{lon * 180 / math.Pi, lat * 180 / math.Pi}
}
