package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// Source reference identifiers the normalizer resolves. Anything else is a
// ReferenceMismatchError; adapters are responsible for declaring the
// reference of the shapes they deliver.
const (
	RefWGS84   = "EPSG:4326" // lon/lat degrees
	RefWorking = "local"     // already in the working planar reference
)

// Normalizer reprojects and validates input shapes into the working planar
// reference. It is a pure transform: identical input and reference always
// produce identical output.
type Normalizer struct {
	proj *Projection
}

func NewNormalizer(proj *Projection) *Normalizer {
	return &Normalizer{proj: proj}
}

// NormalizePlot reprojects a raw plot boundary, validates it, and attempts a
// re-noding repair when the polygon is degenerate. Unrepairable boundaries
// fail with a GeometryError naming the plot.
func (n *Normalizer) NormalizePlot(raw RawPlot) (Plot, error) {
	geom, err := n.reproject(raw.ID, raw.Boundary, raw.SourceRef)
	if err != nil {
		return Plot{}, err
	}

	mp, ok := asMultiPolygon(geom)
	if !ok {
		return Plot{}, &GeometryError{FeatureID: raw.ID, Reason: "boundary is not polygonal"}
	}
	mp = closeRings(mp)

	// Every boundary goes through the re-noding self-union. A crossing whose
	// lobes wind the same way keeps a positive net signed area, so net area
	// alone cannot tell a valid ring from a self-intersecting one; the union
	// resolves the crossing either way and is a no-op on valid input.
	mp, err = repairMultiPolygon(mp)
	if err != nil {
		return Plot{}, &GeometryError{FeatureID: raw.ID, Reason: "unrepairable boundary", Err: err}
	}

	area := planar.Area(mp)
	if len(mp) == 0 || area <= 0 {
		return Plot{}, &GeometryError{FeatureID: raw.ID, Reason: "boundary has no area"}
	}

	return Plot{
		ID:            raw.ID,
		Boundary:      mp,
		Area:          area,
		POD:           raw.POD,
		ProjectID:     raw.ProjectID,
		CertifierID:   raw.CertifierID,
		CertifiedArea: raw.CertifiedArea,
	}, nil
}

// NormalizeObservation reprojects a raw observation point into the working
// reference and truncates its timestamp to a calendar day. Accuracy is
// validated later by the bufferer, not here, so an unmatched bad-radius
// observation is still reportable as unmatched.
func (n *Normalizer) NormalizeObservation(raw RawObservation) (Observation, error) {
	geom, err := n.reproject(raw.ID, raw.Point, raw.SourceRef)
	if err != nil {
		return Observation{}, err
	}
	pt, ok := geom.(orb.Point)
	if !ok {
		return Observation{}, &GeometryError{FeatureID: raw.ID, Reason: "location is not a point"}
	}
	if math.IsNaN(pt[0]) || math.IsNaN(pt[1]) || math.IsInf(pt[0], 0) || math.IsInf(pt[1], 0) {
		return Observation{}, &GeometryError{FeatureID: raw.ID, Reason: "location is not finite"}
	}

	return Observation{
		ID:          raw.ID,
		Point:       pt,
		Day:         DateOf(raw.Date),
		Radius:      raw.Radius,
		Score:       raw.Score,
		CertifierID: raw.CertifierID,
		CommonName:  raw.CommonName,
		LatinName:   raw.LatinName,
		ExternalRef: raw.ExternalRef,
	}, nil
}

func (n *Normalizer) reproject(featureID string, g orb.Geometry, sourceRef string) (orb.Geometry, error) {
	switch sourceRef {
	case RefWGS84:
		return project.Geometry(orb.Clone(g), n.proj.Forward), nil
	case RefWorking:
		return orb.Clone(g), nil
	default:
		return nil, &ReferenceMismatchError{FeatureID: featureID, SourceRef: sourceRef}
	}
}

func closeRings(mp orb.MultiPolygon) orb.MultiPolygon {
	for i, poly := range mp {
		for j, ring := range poly {
			mp[i][j] = closeRing(ring)
		}
	}
	return mp
}

// validMultiPolygon checks the structural invariants a repaired boundary
// must hold: at least one polygon, every ring closed with at least four
// points, positive area.
func validMultiPolygon(mp orb.MultiPolygon) bool {
	if len(mp) == 0 {
		return false
	}
	for _, poly := range mp {
		if len(poly) == 0 {
			return false
		}
		for _, ring := range poly {
			if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
				return false
			}
		}
	}
	return planar.Area(mp) > 0
}

// repairMultiPolygon re-nodes a degenerate multipolygon by unioning it with
// itself, the vector-clipping analogue of a buffer-by-zero fix. Rings that
// survive with no area are gone afterwards.
func repairMultiPolygon(mp orb.MultiPolygon) (orb.MultiPolygon, error) {
	repaired, err := unionGeoms([]orb.MultiPolygon{mp})
	if err != nil {
		return nil, err
	}
	if !validMultiPolygon(repaired) {
		return nil, &GeometryError{Reason: "no valid area after repair"}
	}
	return repaired, nil
}
