package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Angellovem/biocredits-calc/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNormalizer() *domain.Normalizer {
	return domain.NewNormalizer(domain.NewProjection(-77.0, 0.7))
}

func TestNormalizePlot_WGS84Square(t *testing.T) {
	n := testNormalizer()

	// Roughly 1.11 km × 1.11 km square near the projection origin.
	raw := domain.RawPlot{
		ID:        "plot-1",
		SourceRef: domain.RefWGS84,
		Boundary: orb.Polygon{{
			{-77.00, 0.70},
			{-76.99, 0.70},
			{-76.99, 0.71},
			{-77.00, 0.71},
			{-77.00, 0.70},
		}},
		ProjectID:     "PROJECT-A",
		CertifierID:   "cert-1",
		CertifiedArea: 123.0,
	}

	plot, err := n.NormalizePlot(raw)
	require.NoError(t, err)

	assert.Equal(t, "plot-1", plot.ID)
	assert.Equal(t, "PROJECT-A", plot.ProjectID)
	assert.Equal(t, "cert-1", plot.CertifierID)
	// 0.01° × 0.01° near the equator ≈ 1111.9 m squared.
	assert.InEpsilon(t, 1111.949*1111.949, plot.Area, 0.001)
	assert.Len(t, plot.Boundary, 1)
}

func TestNormalizePlot_AlreadyLocal(t *testing.T) {
	n := testNormalizer()

	raw := domain.RawPlot{
		ID:        "plot-local",
		SourceRef: domain.RefWorking,
		Boundary:  orb.Polygon{squareRing(0, 0, 100)},
	}

	plot, err := n.NormalizePlot(raw)
	require.NoError(t, err)
	assert.InEpsilon(t, 10000.0, plot.Area, 1e-9)
}

func TestNormalizePlot_UnknownReference(t *testing.T) {
	n := testNormalizer()

	_, err := n.NormalizePlot(domain.RawPlot{
		ID:        "plot-bad-ref",
		SourceRef: "EPSG:3857",
		Boundary:  orb.Polygon{squareRing(0, 0, 100)},
	})

	var refErr *domain.ReferenceMismatchError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "plot-bad-ref", refErr.FeatureID)
	assert.Equal(t, "EPSG:3857", refErr.SourceRef)
}

func TestNormalizePlot_MissingReference(t *testing.T) {
	n := testNormalizer()

	_, err := n.NormalizePlot(domain.RawPlot{
		ID:       "plot-no-ref",
		Boundary: orb.Polygon{squareRing(0, 0, 100)},
	})

	var refErr *domain.ReferenceMismatchError
	require.ErrorAs(t, err, &refErr)
}

func TestNormalizePlot_NonPolygonal(t *testing.T) {
	n := testNormalizer()

	_, err := n.NormalizePlot(domain.RawPlot{
		ID:        "plot-line",
		SourceRef: domain.RefWorking,
		Boundary:  orb.LineString{{0, 0}, {100, 100}},
	})

	var geomErr *domain.GeometryError
	require.ErrorAs(t, err, &geomErr)
	assert.Equal(t, "plot-line", geomErr.FeatureID)
}

func TestNormalizePlot_RepairsBowtie(t *testing.T) {
	n := testNormalizer()

	// Self-intersecting "bowtie": the crossing is re-noded into two lobes.
	raw := domain.RawPlot{
		ID:        "plot-bowtie",
		SourceRef: domain.RefWorking,
		Boundary: orb.Polygon{{
			{0, 0},
			{100, 100},
			{100, 0},
			{0, 100},
			{0, 0},
		}},
	}

	plot, err := n.NormalizePlot(raw)
	require.NoError(t, err)
	// Two triangular lobes of 2500 m² each survive the re-noding.
	assert.Greater(t, plot.Area, 0.0)
	assert.LessOrEqual(t, plot.Area, 10000.0)
}

func TestNormalizePlot_RepairsAsymmetricBowtie(t *testing.T) {
	n := testNormalizer()

	// The lobes of this crossing wind the same way, so the net signed area
	// (2500 m²) stays positive and understates the covered 4166.67 m².
	raw := domain.RawPlot{
		ID:        "plot-bowtie-skew",
		SourceRef: domain.RefWorking,
		Boundary: orb.Polygon{{
			{0, 0},
			{100, 100},
			{100, 0},
			{0, 50},
			{0, 0},
		}},
	}

	plot, err := n.NormalizePlot(raw)
	require.NoError(t, err)
	// Lobes of 833.33 m² and 3333.33 m² after the crossing is re-noded.
	assert.InDelta(t, 4166.67, plot.Area, 0.1)
}

func TestNormalizePlot_EmptyBoundary(t *testing.T) {
	n := testNormalizer()

	_, err := n.NormalizePlot(domain.RawPlot{
		ID:        "plot-empty",
		SourceRef: domain.RefWorking,
		Boundary:  orb.Polygon{},
	})

	var geomErr *domain.GeometryError
	require.ErrorAs(t, err, &geomErr)
}

func TestNormalizePlot_Deterministic(t *testing.T) {
	n := testNormalizer()
	raw := domain.RawPlot{
		ID:        "plot-1",
		SourceRef: domain.RefWGS84,
		Boundary: orb.Polygon{{
			{-77.00, 0.70}, {-76.99, 0.70}, {-76.99, 0.71}, {-77.00, 0.71}, {-77.00, 0.70},
		}},
	}

	a, err := n.NormalizePlot(raw)
	require.NoError(t, err)
	b, err := n.NormalizePlot(raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeObservation(t *testing.T) {
	n := testNormalizer()

	obs, err := n.NormalizeObservation(domain.RawObservation{
		ID:          "eco-1",
		Point:       orb.Point{-77.0, 0.7},
		SourceRef:   domain.RefWGS84,
		Date:        time.Date(2024, time.March, 5, 16, 45, 12, 0, time.UTC),
		Radius:      25,
		Score:       0.9,
		CertifierID: "cert-1",
		LatinName:   "Panthera onca",
	})
	require.NoError(t, err)

	assert.Equal(t, "eco-1", obs.ID)
	assert.Equal(t, "2024-03-05", obs.Day.String())
	assert.InDelta(t, 0, obs.Point[0], 1e-9)
	assert.InDelta(t, 0, obs.Point[1], 1e-9)
	assert.Equal(t, 25.0, obs.Radius)
	assert.Empty(t, obs.PlotID, "plot assignment happens in matching, not normalization")
}

func TestNormalizeObservation_UnknownReference(t *testing.T) {
	n := testNormalizer()

	_, err := n.NormalizeObservation(domain.RawObservation{
		ID:        "eco-2",
		Point:     orb.Point{-77.0, 0.7},
		SourceRef: "UTM18S",
		Date:      testDay,
	})

	var refErr *domain.ReferenceMismatchError
	require.True(t, errors.As(err, &refErr))
}
