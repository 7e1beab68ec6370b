package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Angellovem/biocredits-calc/internal/config"
	"github.com/Angellovem/biocredits-calc/internal/domain"
	"github.com/Angellovem/biocredits-calc/internal/observability"
)

// LandSource fetches land plot features from the registry backend.
type LandSource interface {
	FetchPlots(ctx context.Context) ([]domain.RawPlot, error)
}

// ObservationSource fetches observations recorded since the given time.
type ObservationSource interface {
	FetchObservations(ctx context.Context, since time.Time) ([]domain.RawObservation, error)
}

// ResultSink persists run output.
type ResultSink interface {
	StoreDailyUnions(ctx context.Context, unions []domain.DailyUnion) error
	StoreScores(ctx context.Context, scores []domain.CreditScore) error
	ClearResults(ctx context.Context) error
}

// RunLog records run lifecycle events in the backend's audit log.
type RunLog interface {
	LogEntry(ctx context.Context, event, info string) error
}

// Result summarizes one completed scoring run.
type Result struct {
	RunID        string
	Plots        int
	Observations int
	Unmatched    int
	Unions       map[domain.GroupKey]domain.DailyUnion
	Scores       map[string]domain.CreditScore
	FeatureErrs  []error
	GroupErrs    []domain.GroupError
	ScoreErrs    []domain.ScoreError
	Duration     time.Duration
}

// Pipeline orchestrates one fetch-normalize-match-buffer-union-score cycle.
type Pipeline struct {
	land    LandSource
	obs     ObservationSource
	sink    ResultSink
	runLog  RunLog
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool

	lastMu sync.Mutex
	last   *Result
	lastAt time.Time

	normalizer *domain.Normalizer
	matcher    *domain.Matcher
	bufferer   *domain.Bufferer
	params     domain.Params
	weights    map[string]float64
	lookback   int
	workers    int
	clearFirst bool
}

// New wires a Pipeline from configuration, sources, and a sink. runLog may
// be nil when the backend has no audit log.
func New(cfg *config.Config, land LandSource, obs ObservationSource, sink ResultSink, runLog RunLog, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	params := domain.DefaultParams()
	params.CircleSegments = cfg.CircleSegments
	params.MatchTolerance = cfg.MatchToleranceM
	params.NegligibleArea = cfg.NegligibleAreaM2
	params.UseConfidenceFactor = cfg.UseConfidenceFactor

	proj := domain.NewProjection(cfg.ProjectionOriginLon, cfg.ProjectionOriginLat)

	return &Pipeline{
		land:       land,
		obs:        obs,
		sink:       sink,
		runLog:     runLog,
		logger:     logger,
		metrics:    metrics,
		normalizer: domain.NewNormalizer(proj),
		matcher:    domain.NewMatcher(params.MatchTolerance),
		bufferer:   domain.NewBufferer(params),
		params:     params,
		weights:    cfg.CertifierWeights,
		lookback:   cfg.LookbackYears,
		workers:    cfg.Workers,
		clearFirst: cfg.ClearResultsFirst,
	}
}

// CheckReadiness returns nil once at least one run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no scoring run has completed yet")
	}
	return nil
}

// LastRun returns the most recent completed run and its completion time.
func (p *Pipeline) LastRun() (*Result, time.Time, bool) {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	if p.last == nil {
		return nil, time.Time{}, false
	}
	return p.last, p.lastAt, true
}

// Run executes one complete scoring run and stores the results.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	since := domain.Now().AddDate(-p.lookback, 0, 0)
	logger.Info("scoring run started", "since", since.Format("2006-01-02"), "workers", p.workers)
	p.logEvent(ctx, logger, "run_started", runID)

	plots, observations, res, err := p.extract(ctx, logger, since, runID)
	if err != nil {
		p.logEvent(ctx, logger, "run_failed", err.Error())
		return nil, err
	}

	groups := p.prepare(logger, plots, observations, res)

	res.Unions, res.GroupErrs = p.aggregate(ctx, groups, plots)
	for _, ge := range res.GroupErrs {
		logger.Warn("group union failed", "group", ge.Key.String(), "error", ge.Err)
	}
	p.metrics.GroupErrors.Add(float64(len(res.GroupErrs)))
	p.metrics.GroupsProcessed.Observe(float64(len(res.Unions)))

	weighting := domain.CertifierWeights(plots, p.weights)
	res.Scores, res.ScoreErrs = domain.Accumulate(res.Unions, plots, weighting, runID)
	for _, se := range res.ScoreErrs {
		logger.Warn("score accumulation failed", "plot_id", se.PlotID, "error", se.Err)
	}
	p.metrics.ScoresComputed.Add(float64(len(res.Scores)))
	var credited float64
	for _, s := range res.Scores {
		credited += s.CreditedArea
	}
	p.metrics.LastCreditedArea.Set(credited)

	if err := p.store(ctx, res); err != nil {
		p.logEvent(ctx, logger, "run_failed", err.Error())
		return nil, err
	}

	res.Duration = time.Since(start)
	p.metrics.RunDuration.Observe(res.Duration.Seconds())
	p.ready.Store(true)
	p.lastMu.Lock()
	p.last, p.lastAt = res, time.Now()
	p.lastMu.Unlock()
	p.logEvent(ctx, logger, "run_completed", fmt.Sprintf("%d scores from %d groups", len(res.Scores), len(res.Unions)))
	logger.Info("scoring run completed",
		"plots", res.Plots,
		"observations", res.Observations,
		"unmatched", res.Unmatched,
		"groups", len(res.Unions),
		"scores", len(res.Scores),
		"duration", res.Duration,
	)
	return res, nil
}

// extract fetches and normalizes both inputs. Per-feature geometry failures
// are collected, not fatal; a failed fetch aborts the run.
func (p *Pipeline) extract(ctx context.Context, logger *slog.Logger, since time.Time, runID string) (map[string]domain.Plot, []domain.Observation, *Result, error) {
	res := &Result{RunID: runID}

	rawPlots, err := p.land.FetchPlots(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch plots: %w", err)
	}
	p.metrics.PlotsLoaded.Add(float64(len(rawPlots)))

	plots := make(map[string]domain.Plot, len(rawPlots))
	for _, raw := range rawPlots {
		plot, err := p.normalizer.NormalizePlot(raw)
		if err != nil {
			logger.Warn("plot rejected", "plot_id", raw.ID, "error", err)
			p.metrics.GeometryErrors.Inc()
			res.FeatureErrs = append(res.FeatureErrs, err)
			continue
		}
		plots[plot.ID] = plot
	}
	res.Plots = len(plots)

	rawObs, err := p.obs.FetchObservations(ctx, since)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch observations: %w", err)
	}
	p.metrics.ObservationsLoaded.Add(float64(len(rawObs)))

	observations := make([]domain.Observation, 0, len(rawObs))
	for _, raw := range rawObs {
		obs, err := p.normalizer.NormalizeObservation(raw)
		if err != nil {
			logger.Warn("observation rejected", "observation_id", raw.ID, "error", err)
			p.metrics.GeometryErrors.Inc()
			res.FeatureErrs = append(res.FeatureErrs, err)
			continue
		}
		observations = append(observations, obs)
	}
	res.Observations = len(observations)

	return plots, observations, res, nil
}

// prepare matches and buffers observations, grouping the survivors by
// (plot, day). A matched observation whose disk fails keeps its group key
// alive so the day still yields a zero-area record.
func (p *Pipeline) prepare(logger *slog.Logger, plots map[string]domain.Plot, observations []domain.Observation, res *Result) map[domain.GroupKey][]domain.BufferedObservation {
	plotList := make([]domain.Plot, 0, len(plots))
	for _, plot := range plots {
		plotList = append(plotList, plot)
	}

	groups := make(map[domain.GroupKey][]domain.BufferedObservation)
	for _, obs := range observations {
		plotID, ok := p.matcher.Match(obs.Point, plotList)
		if !ok {
			logger.Debug("observation unmatched", "observation_id", obs.ID)
			p.metrics.UnmatchedTotal.Inc()
			res.Unmatched++
			res.FeatureErrs = append(res.FeatureErrs, &domain.UnmatchedObservationError{ObservationID: obs.ID, Day: obs.Day})
			continue
		}
		obs.PlotID = plotID
		key := domain.GroupKey{PlotID: plotID, Day: obs.Day}

		buffered, err := p.bufferer.Buffer(obs, plots[plotID])
		if err != nil {
			logger.Warn("observation disk dropped", "observation_id", obs.ID, "error", err)
			p.metrics.BufferErrors.Inc()
			res.FeatureErrs = append(res.FeatureErrs, err)
			if _, exists := groups[key]; !exists {
				groups[key] = nil
			}
			continue
		}
		groups[key] = append(groups[key], buffered)
	}
	return groups
}

// aggregate fans UnionGroup out across the worker pool. Group results are
// independent, so parallel order does not affect the output.
func (p *Pipeline) aggregate(ctx context.Context, groups map[domain.GroupKey][]domain.BufferedObservation, plots map[string]domain.Plot) (map[domain.GroupKey]domain.DailyUnion, []domain.GroupError) {
	type item struct {
		key     domain.GroupKey
		members []domain.BufferedObservation
	}

	work := make(chan item)
	unions := make(map[domain.GroupKey]domain.DailyUnion, len(groups))
	var failures []domain.GroupError
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := p.workers
	if workers < 1 {
		workers = 1
	}
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range work {
				groupStart := time.Now()
				plot, ok := plots[it.key.PlotID]
				if !ok {
					mu.Lock()
					failures = append(failures, domain.GroupError{Key: it.key, Err: errors.New("unknown plot")})
					mu.Unlock()
					continue
				}
				du, err := domain.UnionGroup(it.key, it.members, plot, p.params)
				p.metrics.GroupDuration.Observe(time.Since(groupStart).Seconds())

				mu.Lock()
				if err != nil {
					var ge *domain.GroupError
					if errors.As(err, &ge) {
						failures = append(failures, *ge)
					} else {
						failures = append(failures, domain.GroupError{Key: it.key, Err: err})
					}
				} else {
					unions[it.key] = du
				}
				mu.Unlock()
			}
		}()
	}

	for key, members := range groups {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return unions, failures
		case work <- item{key: key, members: members}:
		}
	}
	close(work)
	wg.Wait()
	return unions, failures
}

// store persists daily unions and scores, clearing old results first when
// configured.
func (p *Pipeline) store(ctx context.Context, res *Result) error {
	if p.clearFirst {
		if err := p.sink.ClearResults(ctx); err != nil {
			return fmt.Errorf("clear results: %w", err)
		}
	}

	unions := make([]domain.DailyUnion, 0, len(res.Unions))
	for _, du := range res.Unions {
		unions = append(unions, du)
	}
	if err := p.sink.StoreDailyUnions(ctx, unions); err != nil {
		return fmt.Errorf("store daily unions: %w", err)
	}

	scores := make([]domain.CreditScore, 0, len(res.Scores))
	for _, s := range res.Scores {
		scores = append(scores, s)
	}
	if err := p.sink.StoreScores(ctx, scores); err != nil {
		return fmt.Errorf("store scores: %w", err)
	}
	return nil
}

// logEvent writes to the backend audit log when one is configured. Audit
// failures never fail the run.
func (p *Pipeline) logEvent(ctx context.Context, logger *slog.Logger, event, info string) {
	if p.runLog == nil {
		return
	}
	if err := p.runLog.LogEntry(ctx, event, info); err != nil {
		logger.Warn("audit log entry failed", "event", event, "error", err)
	}
}
