package domain_test

import (
	"testing"

	"github.com/Angellovem/biocredits-calc/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjection_OriginMapsToZero(t *testing.T) {
	proj := domain.NewProjection(-77.0, 0.7)

	pt := proj.Forward(orb.Point{-77.0, 0.7})
	assert.InDelta(t, 0, pt[0], 1e-9)
	assert.InDelta(t, 0, pt[1], 1e-9)
}

func TestProjection_Roundtrip(t *testing.T) {
	proj := domain.NewProjection(-77.0, 0.7)

	for _, in := range []orb.Point{
		{-77.0, 0.7},
		{-76.95, 0.72},
		{-77.3, 0.4},
		{-76.5, 1.1},
	} {
		out := proj.Inverse(proj.Forward(in))
		assert.InDelta(t, in[0], out[0], 1e-9, "lon roundtrip for %v", in)
		assert.InDelta(t, in[1], out[1], 1e-9, "lat roundtrip for %v", in)
	}
}

func TestProjection_Deterministic(t *testing.T) {
	a := domain.NewProjection(-77.0, 0.7)
	b := domain.NewProjection(-77.0, 0.7)

	in := orb.Point{-76.98, 0.71}
	require.Equal(t, a.Forward(in), b.Forward(in))
}

func TestProjection_LocalDistancesNearOrigin(t *testing.T) {
	proj := domain.NewProjection(-77.0, 0.7)

	// One degree of latitude is ~111.2 km on the sphere; near the projection
	// origin the planar distance must agree closely.
	a := proj.Forward(orb.Point{-77.0, 0.7})
	b := proj.Forward(orb.Point{-77.0, 1.7})

	dist := b[1] - a[1]
	assert.InEpsilon(t, 111194.9, dist, 0.001)
}
