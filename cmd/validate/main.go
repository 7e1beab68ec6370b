// Command validate runs the scoring engine over the mock fixtures and checks
// the numeric guarantees the engine makes: deduplication, plot clipping,
// order independence, determinism, and score additivity.
//
// Usage:
//
//	go run ./cmd/validate -fixtures data/mock
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/Angellovem/biocredits-calc/internal/config"
	"github.com/Angellovem/biocredits-calc/internal/domain"
	"github.com/Angellovem/biocredits-calc/internal/fixture"
	"github.com/Angellovem/biocredits-calc/internal/observability"
	"github.com/Angellovem/biocredits-calc/internal/pipeline"
)

const epsilon = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// nullSink discards results; validation inspects the run result directly.
type nullSink struct{}

func (nullSink) StoreDailyUnions(context.Context, []domain.DailyUnion) error { return nil }
func (nullSink) StoreScores(context.Context, []domain.CreditScore) error     { return nil }
func (nullSink) ClearResults(context.Context) error                          { return nil }

func main() {
	fixtures := flag.String("fixtures", "data/mock", "directory containing fixture files")
	flag.Parse()

	if code := run(*fixtures); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	// Freeze the clock so the lookback window cuts the fixtures the same
	// way on every invocation.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Biocredit Scoring Validation ===")
	fmt.Println()

	src, err := fixture.NewSource(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixtures: %v\n", err)
		return 1
	}

	cfg := &config.Config{
		Workers:             2,
		LookbackYears:       10,
		CircleSegments:      32,
		NegligibleAreaM2:    1e-6,
		ProjectionOriginLon: -77.0,
		ProjectionOriginLat: 0.7,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	runPipeline := func() (*pipeline.Result, error) {
		p := pipeline.New(cfg, src, src, nullSink{}, nil, logger, observability.NewMetricsForTesting())
		return p.Run(context.Background())
	}

	first, err := runPipeline()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: scoring run: %v\n", err)
		return 1
	}
	second, err := runPipeline()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: scoring rerun: %v\n", err)
		return 1
	}

	plots := normalizedPlots(cfg, src)

	phases := []*phase{
		validateRunShape(first),
		validateUnionBounds(first, plots, cfg),
		validateDeterminism(first, second),
		validateScoreAdditivity(first, plots, cfg),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Run: %d plots, %d observations, %d unmatched, %d groups, %d scores\n",
		first.Plots, first.Observations, first.Unmatched, len(first.Unions), len(first.Scores))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("%3d. %s\n", i+1, e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

// normalizedPlots rebuilds the normalized plot set the pipeline works with,
// for the invariant checks that need plot areas and boundaries.
func normalizedPlots(cfg *config.Config, src *fixture.Source) map[string]domain.Plot {
	proj := domain.NewProjection(cfg.ProjectionOriginLon, cfg.ProjectionOriginLat)
	normalizer := domain.NewNormalizer(proj)

	raws, _ := src.FetchPlots(context.Background())
	plots := make(map[string]domain.Plot, len(raws))
	for _, raw := range raws {
		plot, err := normalizer.NormalizePlot(raw)
		if err != nil {
			continue
		}
		plots[plot.ID] = plot
	}
	return plots
}

func validateRunShape(res *pipeline.Result) *phase {
	p := &phase{name: "run shape"}

	if len(res.GroupErrs) > 0 {
		p.errorf("expected no group failures, got %d", len(res.GroupErrs))
	}
	if len(res.ScoreErrs) > 0 {
		p.errorf("expected no score failures, got %d", len(res.ScoreErrs))
	}
	for key, du := range res.Unions {
		if du.PlotID != key.PlotID || du.Day != key.Day {
			p.errorf("union %s carries mismatched identity %s/%s", key, du.PlotID, du.Day)
		}
		if du.Area < 0 || math.IsNaN(du.Area) || math.IsInf(du.Area, 0) {
			p.errorf("union %s has invalid area %g", key, du.Area)
		}
	}
	for plotID, s := range res.Scores {
		if s.PlotID != plotID {
			p.errorf("score map key %s carries plot %s", plotID, s.PlotID)
		}
		if s.Days == 0 {
			p.errorf("score %s covers zero days", plotID)
		}
		if s.To.Before(s.From) {
			p.errorf("score %s window runs backwards: %s after %s", plotID, s.From, s.To)
		}
	}
	return p
}

// validateUnionBounds checks that every daily union is clipped to its plot
// and never exceeds the sum of its members, and that regrouping the member
// disks in a different order reproduces the same area.
func validateUnionBounds(res *pipeline.Result, plots map[string]domain.Plot, cfg *config.Config) *phase {
	p := &phase{name: "union bounds and order independence"}

	params := domain.DefaultParams()
	params.CircleSegments = cfg.CircleSegments
	params.NegligibleArea = cfg.NegligibleAreaM2

	for key, du := range res.Unions {
		plot, ok := plots[key.PlotID]
		if !ok {
			p.errorf("union %s references unknown plot", key)
			continue
		}
		if du.Area > plot.Area*(1+epsilon) {
			p.errorf("union %s area %.6f exceeds plot area %.6f", key, du.Area, plot.Area)
		}
		if du.Observations > 0 {
			covered := planar.Area(du.Covered)
			if math.Abs(covered-du.Area) > plot.Area*1e-6 && du.Area != plot.Area {
				p.errorf("union %s stored area %.6f disagrees with geometry area %.6f", key, du.Area, covered)
			}
		}
	}

	// Rebuild one group per plot with shuffled member order and compare.
	rng := rand.New(rand.NewSource(1))
	for key, du := range res.Unions {
		if du.Observations < 2 {
			continue
		}
		plot := plots[key.PlotID]
		members := resampleMembers(du)
		if members == nil {
			continue
		}
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

		shuffled, err := domain.UnionGroup(key, members, plot, params)
		if err != nil {
			p.errorf("shuffled union %s failed: %v", key, err)
			continue
		}
		if relDiff(shuffled.Area, du.Area) > 1e-9 {
			p.errorf("union %s depends on member order: %.9f vs %.9f", key, du.Area, shuffled.Area)
		}
	}
	return p
}

// resampleMembers reconstructs per-member disks from the union's covered
// geometry. Single polygons of the covered multipolygon stand in for the
// original members; good enough to exercise order independence.
func resampleMembers(du domain.DailyUnion) []domain.BufferedObservation {
	if len(du.Covered) < 2 {
		return nil
	}
	members := make([]domain.BufferedObservation, 0, len(du.Covered))
	for _, poly := range du.Covered {
		members = append(members, domain.BufferedObservation{
			Disk: orb.MultiPolygon{poly},
			Area: planar.Area(poly),
		})
	}
	return members
}

func validateDeterminism(first, second *pipeline.Result) *phase {
	p := &phase{name: "recompute determinism"}

	if len(first.Unions) != len(second.Unions) {
		p.errorf("union counts differ: %d vs %d", len(first.Unions), len(second.Unions))
	}
	for key, du := range first.Unions {
		other, ok := second.Unions[key]
		if !ok {
			p.errorf("union %s missing from rerun", key)
			continue
		}
		if du.Area != other.Area {
			p.errorf("union %s area drifted: %.12f vs %.12f", key, du.Area, other.Area)
		}
	}
	for plotID, s := range first.Scores {
		other, ok := second.Scores[plotID]
		if !ok {
			p.errorf("score %s missing from rerun", plotID)
			continue
		}
		if s.CreditedArea != other.CreditedArea || s.WeightedCredit != other.WeightedCredit {
			p.errorf("score %s drifted between reruns", plotID)
		}
	}
	return p
}

// validateScoreAdditivity splits the unions at the median day and checks
// that per-partition scores merge back to the full result.
func validateScoreAdditivity(res *pipeline.Result, plots map[string]domain.Plot, cfg *config.Config) *phase {
	p := &phase{name: "score additivity over partitions"}

	days := make([]domain.Date, 0, len(res.Unions))
	for key := range res.Unions {
		days = append(days, key.Day)
	}
	if len(days) < 2 {
		return p
	}
	cutoff := days[len(days)/2]

	early := make(map[domain.GroupKey]domain.DailyUnion)
	late := make(map[domain.GroupKey]domain.DailyUnion)
	for key, du := range res.Unions {
		if key.Day.Before(cutoff) {
			early[key] = du
		} else {
			late[key] = du
		}
	}

	weighting := domain.CertifierWeights(plots, cfg.CertifierWeights)
	full, _ := domain.Accumulate(res.Unions, plots, weighting, res.RunID)
	earlyScores, _ := domain.Accumulate(early, plots, weighting, res.RunID)
	lateScores, _ := domain.Accumulate(late, plots, weighting, res.RunID)
	merged := domain.MergeScores(earlyScores, lateScores)

	if len(merged) != len(full) {
		p.errorf("merged partition has %d scores, full run has %d", len(merged), len(full))
	}
	for plotID, want := range full {
		got, ok := merged[plotID]
		if !ok {
			p.errorf("plot %s missing from merged partitions", plotID)
			continue
		}
		if relDiff(got.CreditedArea, want.CreditedArea) > epsilon {
			p.errorf("plot %s credited area not additive: %.9f vs %.9f", plotID, got.CreditedArea, want.CreditedArea)
		}
		if relDiff(got.WeightedCredit, want.WeightedCredit) > epsilon {
			p.errorf("plot %s weighted credit not additive", plotID)
		}
		if got.Days != want.Days {
			p.errorf("plot %s day count not additive: %d vs %d", plotID, got.Days, want.Days)
		}
	}
	return p
}

func relDiff(a, b float64) float64 {
	if a == b {
		return 0
	}
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom == 0 {
		return 0
	}
	return math.Abs(a-b) / denom
}
