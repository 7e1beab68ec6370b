package fixture

import (
	"context"
	"time"

	"github.com/Angellovem/biocredits-calc/internal/domain"
)

// Source serves fixture files as a pipeline backend. It applies the same
// row filters the database sources do: a positive accuracy radius, a
// positive certifier score, and an observation date inside the window.
type Source struct {
	plots        []Plot
	observations []Observation
}

// NewSource loads both fixture files from dir.
func NewSource(dir string) (*Source, error) {
	plots, err := LoadPlots(dir)
	if err != nil {
		return nil, err
	}
	observations, err := LoadObservations(dir)
	if err != nil {
		return nil, err
	}
	return &Source{plots: plots, observations: observations}, nil
}

func (s *Source) FetchPlots(_ context.Context) ([]domain.RawPlot, error) {
	raws := make([]domain.RawPlot, 0, len(s.plots))
	for _, p := range s.plots {
		raws = append(raws, p.Raw())
	}
	return raws, nil
}

func (s *Source) FetchObservations(_ context.Context, since time.Time) ([]domain.RawObservation, error) {
	raws := make([]domain.RawObservation, 0, len(s.observations))
	for _, o := range s.observations {
		if o.Radius <= 0 || o.Score <= 0 || o.EcoDate.Before(since) {
			continue
		}
		raws = append(raws, o.Raw())
	}
	return raws, nil
}
