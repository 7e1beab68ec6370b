package domain

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Matcher associates observation points with plots. Containment wins; when
// no plot contains the point, the nearest plot within the tolerance distance
// is used. Ties resolve by smallest plot area, then lexicographically
// smallest plot id — never by input order.
type Matcher struct {
	tolerance float64
}

func NewMatcher(tolerance float64) *Matcher {
	return &Matcher{tolerance: tolerance}
}

// Match returns the id of the plot the point belongs to, or false when the
// point is outside every plot and beyond tolerance.
func (m *Matcher) Match(pt orb.Point, plots []Plot) (string, bool) {
	var best *Plot
	for i := range plots {
		if !planar.MultiPolygonContains(plots[i].Boundary, pt) {
			continue
		}
		if best == nil || lessPlot(&plots[i], best) {
			best = &plots[i]
		}
	}
	if best != nil {
		return best.ID, true
	}

	if m.tolerance <= 0 {
		return "", false
	}
	return m.nearestWithin(pt, plots)
}

func (m *Matcher) nearestWithin(pt orb.Point, plots []Plot) (string, bool) {
	var (
		best     *Plot
		bestDist float64
	)
	for i := range plots {
		d := planar.DistanceFrom(plots[i].Boundary, pt)
		if d > m.tolerance {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && lessPlot(&plots[i], best)) {
			best = &plots[i]
			bestDist = d
		}
	}
	if best == nil {
		return "", false
	}
	return best.ID, true
}

// lessPlot orders plots for tie-breaking: smaller area first, then smaller id.
func lessPlot(a, b *Plot) bool {
	if a.Area != b.Area {
		return a.Area < b.Area
	}
	return a.ID < b.ID
}
