package domain

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrNegligibleArea reports a buffer whose clipped area fell below the
// configured negligible-area threshold. The observation contributes no
// geometry, but its (plot, day) group is still emitted by the aggregator.
var ErrNegligibleArea = errors.New("buffered area below negligible threshold")

// minCircleSegments bounds the discretization error of the coarsest allowed
// circle approximation.
const minCircleSegments = 8

// Bufferer expands point observations into positional-uncertainty disks.
type Bufferer struct {
	params Params
}

func NewBufferer(params Params) *Bufferer {
	return &Bufferer{params: params}
}

// Buffer produces the observation's accuracy disk clipped to its plot.
// The radius must be positive and finite; otherwise InvalidAccuracyError.
func (b *Bufferer) Buffer(obs Observation, plot Plot) (BufferedObservation, error) {
	if !validRadius(obs.Radius) {
		return BufferedObservation{}, &InvalidAccuracyError{ObservationID: obs.ID, Radius: obs.Radius}
	}

	radius := obs.Radius
	if b.params.UseConfidenceFactor && obs.Score > 0 {
		radius *= obs.Score
	}
	if !validRadius(radius) {
		return BufferedObservation{}, &InvalidAccuracyError{ObservationID: obs.ID, Radius: radius}
	}

	disk := circle(obs.Point, radius, b.params.CircleSegments)

	clipped, err := intersectGeoms(orb.MultiPolygon{disk}, plot.Boundary)
	if err != nil {
		return BufferedObservation{}, &GeometryError{FeatureID: obs.ID, Reason: "clipping buffer to plot", Err: err}
	}

	area := planar.Area(clipped)
	if area < b.params.NegligibleArea {
		return BufferedObservation{}, ErrNegligibleArea
	}

	return BufferedObservation{
		Observation: obs,
		Disk:        clipped,
		Area:        area,
	}, nil
}

func validRadius(r float64) bool {
	return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}

// circle approximates a disk of the given radius as a closed ring with at
// least minCircleSegments segments.
func circle(center orb.Point, radius float64, segments int) orb.Polygon {
	if segments < minCircleSegments {
		segments = minCircleSegments
	}
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		ring = append(ring, orb.Point{
			center[0] + radius*math.Cos(angle),
			center[1] + radius*math.Sin(angle),
		})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}
