// Package fixture reads and writes the JSON fixture files under data/mock.
// The field names mirror the registry export format so fixtures can be
// swapped for real exports.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/Angellovem/biocredits-calc/internal/domain"
)

// Plot is one land plot feature as stored in plots.json.
type Plot struct {
	PlotID          string            `json:"plot_id"`
	CRS             string            `json:"crs"`
	POD             string            `json:"pod"`
	ProjectID       string            `json:"project_id"`
	CertifierID     string            `json:"certifier_id"`
	CertifiedAreaHa float64           `json:"certified_area_ha"`
	Boundary        *geojson.Geometry `json:"boundary"`
}

// Observation is one sighting record as stored in observations.json.
type Observation struct {
	EcoID       string    `json:"eco_id"`
	Lat         float64   `json:"lat"`
	Long        float64   `json:"long"`
	EcoDate     time.Time `json:"eco_date"`
	Radius      float64   `json:"radius"`
	Score       float64   `json:"score"`
	NameCommon  string    `json:"name_common"`
	NameLatin   string    `json:"name_latin"`
	CertifierID string    `json:"certifier_id"`
	INaturalist string    `json:"inaturalist"`
}

// Raw converts the fixture record into the engine's input type.
func (p Plot) Raw() domain.RawPlot {
	raw := domain.RawPlot{
		ID:            p.PlotID,
		SourceRef:     p.CRS,
		POD:           p.POD,
		ProjectID:     p.ProjectID,
		CertifierID:   p.CertifierID,
		CertifiedArea: p.CertifiedAreaHa,
	}
	if raw.SourceRef == "" {
		raw.SourceRef = domain.RefWGS84
	}
	if p.Boundary != nil {
		raw.Boundary = p.Boundary.Geometry()
	}
	return raw
}

// Raw converts the fixture record into the engine's input type.
func (o Observation) Raw() domain.RawObservation {
	return domain.RawObservation{
		ID:          o.EcoID,
		Point:       [2]float64{o.Long, o.Lat},
		SourceRef:   domain.RefWGS84,
		Date:        o.EcoDate,
		Radius:      o.Radius,
		Score:       o.Score,
		CommonName:  o.NameCommon,
		LatinName:   o.NameLatin,
		CertifierID: o.CertifierID,
		ExternalRef: o.INaturalist,
	}
}

// LoadPlots reads plots.json from dir.
func LoadPlots(dir string) ([]Plot, error) {
	var plots []Plot
	if err := readJSON(filepath.Join(dir, "plots.json"), &plots); err != nil {
		return nil, err
	}
	return plots, nil
}

// LoadObservations reads observations.json from dir.
func LoadObservations(dir string) ([]Observation, error) {
	var observations []Observation
	if err := readJSON(filepath.Join(dir, "observations.json"), &observations); err != nil {
		return nil, err
	}
	return observations, nil
}

// WritePlots writes plots.json into dir.
func WritePlots(dir string, plots []Plot) error {
	return writeJSON(filepath.Join(dir, "plots.json"), plots)
}

// WriteObservations writes observations.json into dir.
func WriteObservations(dir string, observations []Observation) error {
	return writeJSON(filepath.Join(dir, "observations.json"), observations)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
