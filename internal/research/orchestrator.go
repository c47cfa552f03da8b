package research

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/festivalops/research-cli/internal/runner"
	"github.com/festivalops/research-cli/internal/scoring"
	"github.com/festivalops/research-cli/internal/validate"
)

// Config tunes one research run.
type Config struct {
	// SearchTaskID and ContentTaskID name the platform tasks used for web
	// search and page content retrieval.
	SearchTaskID  string
	ContentTaskID string

	// MaxRetries is the run-level retry budget consulted when confidence
	// lands below MinConfidence. The run itself is never restarted; the
	// budget only gates whether a retry suggestion is produced.
	MaxRetries int
	// MinConfidence is the overall-confidence floor below which a retry
	// strategy is requested. Zero means the default of 0.3.
	MinConfidence float64
	// TaskMaxRetries overrides the per-task attempt budget. Zero keeps the
	// runner default.
	TaskMaxRetries int

	// ParallelExecution runs the news and calendar phases concurrently.
	ParallelExecution bool

	MaxConnections  int
	MaxNewsArticles int
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.3
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 15
	}
	if c.MaxNewsArticles <= 0 {
		c.MaxNewsArticles = 5
	}
	return c
}

// ProgressFunc observes the state after every mutation. It is called
// synchronously from the orchestrator's own goroutine, so implementations
// must not block and may read the state freely for the duration of the call.
type ProgressFunc func(*ResearchState)

// Orchestrator drives the research pipeline for one festival at a time.
type Orchestrator struct {
	runner     *runner.TaskRunner
	validator  *validate.Service
	cfg        Config
	patterns   *PatternTable
	onProgress ProgressFunc

	state   *ResearchState
	nowFunc func() time.Time
}

// New creates an Orchestrator. validator may be nil; every phase that uses it
// falls back to its heuristic path.
func New(r *runner.TaskRunner, validator *validate.Service, cfg Config) *Orchestrator {
	return &Orchestrator{
		runner:    r,
		validator: validator,
		cfg:       cfg.withDefaults(),
		patterns:  DefaultPatterns(),
		nowFunc:   time.Now,
	}
}

// SetPatterns replaces the built-in company extraction table, typically with
// one loaded via LoadPatterns.
func (o *Orchestrator) SetPatterns(t *PatternTable) {
	if t != nil {
		o.patterns = t
	}
}

// OnProgress registers the progress observer. Must be called before Run.
func (o *Orchestrator) OnProgress(fn ProgressFunc) {
	o.onProgress = fn
}

// State returns the current run's state for introspection, nil before the
// first Run. The state is owned by the goroutine executing Run; read it from
// a progress callback or after Run returns, never concurrently with a
// running pipeline.
func (o *Orchestrator) State() *ResearchState {
	return o.state
}

// Run researches one festival end to end and always returns a state whose
// phase is completed or failed. Individual phase failures degrade to warnings;
// only a panic or a cancelled context fails the run.
func (o *Orchestrator) Run(ctx context.Context, festivalID, festivalName, festivalURL string) (state *ResearchState) {
	now := o.nowFunc()
	state = &ResearchState{
		FestivalID:    festivalID,
		FestivalName:  festivalName,
		FestivalURL:   festivalURL,
		Phase:         PhaseNotStarted,
		StartedAt:     now,
		LastUpdatedAt: now,
		Attempts:      1,
	}
	o.state = state

	log := zap.L().With(
		zap.String("festival_id", festivalID),
		zap.String("festival", festivalName),
	)
	log.Info("research run started")

	defer func() {
		if r := recover(); r != nil {
			log.Error("research run panicked", zap.Any("panic", r))
			o.mutate(func(s *ResearchState) {
				s.Errors = append(s.Errors, Diagnostic{
					Phase:     s.Phase,
					Message:   fmt.Sprintf("internal error: %v", r),
					Timestamp: o.nowFunc(),
				})
				s.Phase = PhaseFailed
			})
		}
	}()

	type step struct {
		phase Phase
		fn    func(context.Context) error
	}
	sequential := []step{
		{PhaseDiscoveringWebsite, o.discoverWebsite},
		{PhaseExtractingCompany, o.extractCompany},
		{PhaseSearchingSocialCompany, o.searchCompanyPage},
		{PhaseSearchingSocialEmployees, o.searchEmployees},
	}
	for _, st := range sequential {
		if err := ctx.Err(); err != nil {
			o.failRun(st.phase, err)
			return state
		}
		o.setPhase(st.phase)
		if err := st.fn(ctx); err != nil {
			o.warn(st.phase, err)
		}
	}

	if err := o.runEnrichment(ctx); err != nil {
		// Only context cancellation escapes the enrichment phases.
		o.failRun(state.Phase, err)
		return state
	}

	o.setPhase(PhaseValidatingResults)
	o.validateResults(ctx)

	o.setPhase(PhaseCompleted)
	log.Info("research run completed",
		zap.Float64("confidence", state.OverallConfidence),
		zap.String("level", state.ConfidenceLevel),
		zap.Int("connections", len(state.Connections)),
	)
	return state
}

// runEnrichment executes the news and calendar phases, concurrently when
// configured. Each phase computes into branch-local values; results are
// applied to the shared state only from this goroutine, so the progress
// observer never sees a torn write.
func (o *Orchestrator) runEnrichment(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !o.cfg.ParallelExecution {
		o.setPhase(PhaseFetchingNews)
		articles, err := o.fetchNews(ctx)
		if err != nil {
			o.warn(PhaseFetchingNews, err)
		}
		o.applyNews(articles)

		o.setPhase(PhaseVerifyingCalendars)
		sources, err := o.verifyCalendars(ctx)
		if err != nil {
			o.warn(PhaseVerifyingCalendars, err)
		}
		o.applyCalendars(sources)
		return ctx.Err()
	}

	o.setPhase(PhaseFetchingNews)
	var (
		articles []NewsArticle
		newsErr  error
		sources  []CalendarSource
		calErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		articles, newsErr = o.fetchNews(gctx)
		return nil
	})
	g.Go(func() error {
		sources, calErr = o.verifyCalendars(gctx)
		return nil
	})
	_ = g.Wait()

	if newsErr != nil {
		o.warn(PhaseFetchingNews, newsErr)
	}
	o.applyNews(articles)
	o.setPhase(PhaseVerifyingCalendars)
	if calErr != nil {
		o.warn(PhaseVerifyingCalendars, calErr)
	}
	o.applyCalendars(sources)
	return ctx.Err()
}

func (o *Orchestrator) applyNews(articles []NewsArticle) {
	if len(articles) == 0 {
		return
	}
	o.mutate(func(s *ResearchState) { s.NewsArticles = articles })
}

func (o *Orchestrator) applyCalendars(sources []CalendarSource) {
	if len(sources) == 0 {
		return
	}
	o.mutate(func(s *ResearchState) { s.CalendarSources = sources })
}

// validateResults computes the final confidence and quality exactly once and
// records a retry suggestion when confidence lands under the floor.
func (o *Orchestrator) validateResults(ctx context.Context) {
	year := o.nowFunc().Year()
	snap := o.state.snapshot(year)
	conf := scoring.ComputeConfidence(snap)
	qual := scoring.ComputeQuality(snap)

	o.mutate(func(s *ResearchState) {
		s.Confidence = &conf
		s.Quality = &qual
		s.OverallConfidence = conf.Overall
		s.ConfidenceLevel = conf.Level
	})

	if conf.Overall >= o.cfg.MinConfidence || o.state.Attempts >= o.cfg.MaxRetries {
		return
	}

	strategy := o.retryStrategy(ctx)
	zap.L().Info("confidence below floor, retry suggested",
		zap.Float64("confidence", conf.Overall),
		zap.Float64("floor", o.cfg.MinConfidence),
		zap.Bool("should_retry", strategy.ShouldRetry),
		zap.Strings("suggestions", strategy.Suggestions),
		zap.String("source", strategy.Source),
	)
	msg := fmt.Sprintf("confidence %.2f below floor %.2f", conf.Overall, o.cfg.MinConfidence)
	if len(strategy.Suggestions) > 0 {
		msg += ": " + strategy.Suggestions[0]
	}
	o.mutate(func(s *ResearchState) {
		s.Warnings = append(s.Warnings, Diagnostic{
			Phase:     PhaseValidatingResults,
			Message:   msg,
			Timestamp: o.nowFunc(),
		})
	})
}

func (o *Orchestrator) retryStrategy(ctx context.Context) validate.RetryStrategy {
	findings := o.state.findingsSummary(o.nowFunc().Year())

	var failedOps []string
	for _, d := range o.state.Warnings {
		failedOps = append(failedOps, fmt.Sprintf("%s: %s", d.Phase, d.Message))
	}
	for _, d := range o.state.Errors {
		failedOps = append(failedOps, fmt.Sprintf("%s: %s", d.Phase, d.Message))
	}

	if o.validator != nil {
		return o.validator.SuggestRetry(ctx, findings, failedOps)
	}
	return validate.HeuristicRetry(findings, failedOps)
}

func (o *Orchestrator) taskOpts() runner.RunOptions {
	return runner.RunOptions{MaxRetries: o.cfg.TaskMaxRetries}
}

// mutate applies fn to the state, stamps the update time, and notifies the
// progress observer. All state writes go through here.
func (o *Orchestrator) mutate(fn func(*ResearchState)) {
	fn(o.state)
	o.state.LastUpdatedAt = o.nowFunc()
	if o.onProgress != nil {
		o.onProgress(o.state)
	}
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mutate(func(s *ResearchState) { s.Phase = p })
	zap.L().Debug("phase transition", zap.String("phase", string(p)))
}

// warn records a phase failure without aborting the run.
func (o *Orchestrator) warn(phase Phase, err error) {
	zap.L().Warn("phase degraded", zap.String("phase", string(phase)), zap.Error(err))
	o.mutate(func(s *ResearchState) {
		s.Warnings = append(s.Warnings, Diagnostic{
			Phase:     phase,
			Message:   err.Error(),
			Timestamp: o.nowFunc(),
		})
	})
}

// failRun records a fatal error and moves the run to failed.
func (o *Orchestrator) failRun(phase Phase, err error) {
	zap.L().Error("research run failed", zap.String("phase", string(phase)), zap.Error(err))
	o.mutate(func(s *ResearchState) {
		s.Errors = append(s.Errors, Diagnostic{
			Phase:     phase,
			Message:   err.Error(),
			Timestamp: o.nowFunc(),
		})
		s.Phase = PhaseFailed
	})
}
