// Command genmock generates mock land plot and observation fixtures for the
// scoring test suites. Output is deterministic for a given seed so fixture
// diffs stay reviewable.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -plots 2 -observations 8 -seed 7
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Angellovem/biocredits-calc/internal/fixture"
)

var baseDate = time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)

var species = []struct {
	common string
	latin  string
}{
	{"Jaguar", "Panthera onca"},
	{"Harpy eagle", "Harpia harpyja"},
	{"Giant otter", "Pteronura brasiliensis"},
	{"Woolly monkey", "Lagothrix lagothricha"},
	{"Blue-headed parrot", "Pionus menstruus"},
	{"Tapir", "Tapirus terrestris"},
	{"Spectacled bear", "Tremarctos ornatus"},
	{"Capuchin", "Cebus albifrons"},
}

var certifiers = []string{"cert-andes", "cert-selva"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "output directory for fixture files")
	plotCount := flag.Int("plots", 2, "number of land plots")
	obsCount := flag.Int("observations", 8, "number of observations")
	seed := flag.Int64("seed", 7, "random seed")
	originLon := flag.Float64("origin-lon", -77.0, "region center longitude")
	originLat := flag.Float64("origin-lat", 0.7, "region center latitude")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	plots := makePlots(rng, *plotCount, *originLon, *originLat)
	observations := makeObservations(rng, *obsCount, plots)

	if err := fixture.WritePlots(*out, plots); err != nil {
		return fmt.Errorf("write plots: %w", err)
	}
	if err := fixture.WriteObservations(*out, observations); err != nil {
		return fmt.Errorf("write observations: %w", err)
	}

	log.Printf("wrote %d plots and %d observations to %s", len(plots), len(observations), *out)
	return nil
}

// makePlots lays square plots of roughly 111 m a side on a sparse grid
// around the region center.
func makePlots(rng *rand.Rand, count int, originLon, originLat float64) []fixture.Plot {
	const side = 0.001 // ~111 m at the equator

	plots := make([]fixture.Plot, 0, count)
	for i := range count {
		minLon := originLon + float64(i)*5*side + rng.Float64()*side
		minLat := originLat + rng.Float64()*side

		ring := orb.Ring{
			{minLon, minLat},
			{minLon + side, minLat},
			{minLon + side, minLat + side},
			{minLon, minLat + side},
			{minLon, minLat},
		}
		plots = append(plots, fixture.Plot{
			PlotID:          fmt.Sprintf("PLT-RN-%03d", i+1),
			CRS:             "EPSG:4326",
			POD:             "POD-RIONEGRO-7",
			ProjectID:       "PRJ-RIONEGRO",
			CertifierID:     certifiers[i%len(certifiers)],
			CertifiedAreaHa: 1.23,
			Boundary:        geojson.NewGeometry(orb.Polygon{ring}),
		})
	}
	return plots
}

// makeObservations drops most sightings inside plots across a few days and
// mixes in the edge cases the pipeline must survive: a far-away point, a
// zero accuracy radius, and a record older than the lookback window.
func makeObservations(rng *rand.Rand, count int, plots []fixture.Plot) []fixture.Observation {
	observations := make([]fixture.Observation, 0, count)
	for i := range count {
		plot := plots[rng.Intn(len(plots))]
		bound := plot.Boundary.Geometry().Bound()

		lon := bound.Min[0] + rng.Float64()*(bound.Max[0]-bound.Min[0])
		lat := bound.Min[1] + rng.Float64()*(bound.Max[1]-bound.Min[1])
		at := baseDate.AddDate(0, 0, rng.Intn(3)).Add(time.Duration(rng.Intn(10)) * time.Hour)
		radius := 10 + rng.Float64()*30

		switch {
		case i == count-3:
			// outside every plot
			lon += 1.0
		case i == count-2:
			radius = 0
		case i == count-1:
			at = at.AddDate(-15, 0, 0)
		}

		sp := species[i%len(species)]
		observations = append(observations, fixture.Observation{
			EcoID:       fmt.Sprintf("OBS-%04d", i+1),
			Lat:         lat,
			Long:        lon,
			EcoDate:     at,
			Radius:      radius,
			Score:       0.6 + rng.Float64()*0.4,
			NameCommon:  sp.common,
			NameLatin:   sp.latin,
			CertifierID: plot.CertifierID,
			INaturalist: fmt.Sprintf("%d", 201500000+rng.Intn(100000)),
		})
	}
	return observations
}
