package postgres

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Angellovem/biocredits-calc/internal/domain"
)

func TestToRawPlot(t *testing.T) {
	rec := plotRecord{
		PlotID:          "PLT-1",
		Boundary:        []byte(`{"type":"Polygon","coordinates":[[[-77,0.7],[-76.999,0.7],[-76.999,0.701],[-77,0.701],[-77,0.7]]]}`),
		CRS:             "EPSG:4326",
		POD:             "POD-7",
		ProjectID:       "PRJ-1",
		CertifierID:     "cert-1",
		CertifiedAreaHa: 12.5,
	}

	raw, err := toRawPlot(rec)
	require.NoError(t, err)

	assert.Equal(t, "PLT-1", raw.ID)
	assert.Equal(t, "EPSG:4326", raw.SourceRef)
	assert.Equal(t, "POD-7", raw.POD)
	assert.Equal(t, "PRJ-1", raw.ProjectID)
	assert.Equal(t, "cert-1", raw.CertifierID)
	assert.Equal(t, 12.5, raw.CertifiedArea)

	poly, ok := raw.Boundary.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly[0], 5)
}

func TestToRawPlot_DefaultsCRS(t *testing.T) {
	rec := plotRecord{
		PlotID:   "PLT-2",
		Boundary: []byte(`{"type":"Point","coordinates":[-77,0.7]}`),
	}
	raw, err := toRawPlot(rec)
	require.NoError(t, err)
	assert.Equal(t, domain.RefWGS84, raw.SourceRef)
}

func TestToRawPlot_BadBoundary(t *testing.T) {
	for name, boundary := range map[string][]byte{
		"missing": nil,
		"garbage": []byte("not geojson"),
	} {
		t.Run(name, func(t *testing.T) {
			raw, err := toRawPlot(plotRecord{PlotID: "PLT-3", Boundary: boundary})
			require.Error(t, err)
			assert.Equal(t, "PLT-3", raw.ID, "identity survives for error reporting")
			assert.Nil(t, raw.Boundary)
		})
	}
}

func TestToRawObservation(t *testing.T) {
	at := time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)
	rec := observationRecord{
		EcoID:       "OBS-1",
		Lat:         0.7005,
		Long:        -76.9995,
		EcoDate:     at,
		Radius:      25,
		Score:       0.9,
		NameCommon:  "Jaguar",
		NameLatin:   "Panthera onca",
		CertifierID: "cert-1",
		INaturalist: "201558713",
	}

	raw := toRawObservation(rec)

	assert.Equal(t, "OBS-1", raw.ID)
	assert.Equal(t, orb.Point{-76.9995, 0.7005}, raw.Point)
	assert.Equal(t, domain.RefWGS84, raw.SourceRef)
	assert.Equal(t, at, raw.Date)
	assert.Equal(t, 25.0, raw.Radius)
	assert.Equal(t, 0.9, raw.Score)
	assert.Equal(t, "Panthera onca", raw.LatinName)
	assert.Equal(t, "201558713", raw.ExternalRef)
}

func TestFromDailyUnion(t *testing.T) {
	du := domain.DailyUnion{
		PlotID:       "PLT-1",
		Day:          domain.Date{Year: 2024, Month: 3, Day: 15},
		Covered:      orb.MultiPolygon{{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}},
		Area:         100,
		Observations: 2,
	}

	rec, err := fromDailyUnion(du)
	require.NoError(t, err)

	assert.Equal(t, "PLT-1", rec.PlotID)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), rec.Day)
	assert.Equal(t, 100.0, rec.AreaM2)
	assert.Equal(t, 2, rec.Observations)
	assert.Contains(t, string(rec.Covered), `"MultiPolygon"`)
}

func TestFromCreditScore(t *testing.T) {
	computed := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	s := domain.CreditScore{
		PlotID:         "PLT-1",
		ProjectID:      "PRJ-1",
		CertifierID:    "cert-1",
		CreditedArea:   2431.5,
		WeightedCredit: 3039.375,
		Days:           4,
		From:           domain.Date{Year: 2024, Month: 1, Day: 1},
		To:             domain.Date{Year: 2024, Month: 1, Day: 4},
		RunID:          "run-1",
		ComputedAt:     computed,
	}

	rec := fromCreditScore(s)

	assert.Equal(t, "PLT-1", rec.PlotID)
	assert.Equal(t, 2431.5, rec.CreditedAreaM2)
	assert.Equal(t, 3039.375, rec.WeightedCredit)
	assert.Equal(t, 4, rec.Days)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), rec.FromDay)
	assert.Equal(t, time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC), rec.ToDay)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, computed, rec.ComputedAt)
}
