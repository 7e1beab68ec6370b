package domain

import (
	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
)

// Conversions between orb multipolygons and the coordinate slices the
// polygol clipping library operates on. Rings are closed on the way out of
// polygol because orb containment and area treat the last point as implicit.

func toGeom(mp orb.MultiPolygon) polygol.Geom {
	g := make(polygol.Geom, 0, len(mp))
	for _, poly := range mp {
		rings := make([][][]float64, 0, len(poly))
		for _, ring := range poly {
			pts := make([][]float64, 0, len(ring))
			for _, pt := range ring {
				pts = append(pts, []float64{pt[0], pt[1]})
			}
			rings = append(rings, pts)
		}
		g = append(g, rings)
	}
	return g
}

func fromGeom(g polygol.Geom) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(g))
	for _, rings := range g {
		poly := make(orb.Polygon, 0, len(rings))
		for _, pts := range rings {
			ring := make(orb.Ring, 0, len(pts)+1)
			for _, pt := range pts {
				if len(pt) < 2 {
					continue
				}
				ring = append(ring, orb.Point{pt[0], pt[1]})
			}
			ring = closeRing(ring)
			if len(ring) >= 4 {
				poly = append(poly, ring)
			}
		}
		if len(poly) > 0 {
			mp = append(mp, poly)
		}
	}
	return mp
}

// closeRing appends the first point when the ring is not explicitly closed.
func closeRing(ring orb.Ring) orb.Ring {
	if len(ring) < 3 {
		return ring
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// asMultiPolygon coerces polygonal geometry into a multipolygon.
// Non-polygonal geometry returns false.
func asMultiPolygon(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}, true
	case orb.MultiPolygon:
		return v, true
	default:
		return nil, false
	}
}

// unionGeoms merges any number of multipolygons in a single clipping pass.
// A single pass keeps the result independent of input order, which the daily
// aggregation invariants require.
func unionGeoms(mps []orb.MultiPolygon) (orb.MultiPolygon, error) {
	nonEmpty := make([]polygol.Geom, 0, len(mps))
	for _, mp := range mps {
		if len(mp) > 0 {
			nonEmpty = append(nonEmpty, toGeom(mp))
		}
	}
	if len(nonEmpty) == 0 {
		return orb.MultiPolygon{}, nil
	}
	out, err := polygol.Union(nonEmpty[0], nonEmpty[1:]...)
	if err != nil {
		return nil, err
	}
	return fromGeom(out), nil
}

// intersectGeoms clips a against b.
func intersectGeoms(a, b orb.MultiPolygon) (orb.MultiPolygon, error) {
	if len(a) == 0 || len(b) == 0 {
		return orb.MultiPolygon{}, nil
	}
	out, err := polygol.Intersection(toGeom(a), toGeom(b))
	if err != nil {
		return nil, err
	}
	return fromGeom(out), nil
}
