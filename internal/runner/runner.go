// Package runner executes named automation tasks on the remote platform with
// retry, backoff, and a shared circuit breaker in front of every call.
package runner

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/festivalops/research-cli/internal/resilience"
	"github.com/festivalops/research-cli/pkg/apify"
)

// RunOptions tunes a single task execution.
type RunOptions struct {
	// MaxRetries is the total number of attempts (including the first).
	// Zero means the runner default.
	MaxRetries int
}

// TaskResult is the outcome of a resilient task execution. Exactly one of
// Data or Err is meaningful, selected by Success.
type TaskResult struct {
	Success  bool
	Data     []map[string]any
	Err      *resilience.TaskError
	Attempts int
	Duration time.Duration
}

// TaskRunner wraps the raw platform client with the resilience stack. The
// circuit breaker is shared by reference: every runner built on the same
// breaker observes the same memory/billing failure budget.
type TaskRunner struct {
	client  apify.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// New creates a TaskRunner. A nil breaker gets a private one with defaults,
// which is only sensible in tests; production call sites share one breaker
// per process.
func New(client apify.Client, breaker *resilience.CircuitBreaker, retry resilience.RetryConfig) *TaskRunner {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	return &TaskRunner{
		client:  client,
		breaker: breaker,
		retry:   retry,
	}
}

// Breaker exposes the shared circuit breaker for introspection and manual
// reset.
func (r *TaskRunner) Breaker() *resilience.CircuitBreaker {
	return r.breaker
}

// Run executes the named task and collects its dataset items. It never
// returns an error: failures are classified into the result's Err field so
// the orchestrator can degrade per phase instead of aborting.
func (r *TaskRunner) Run(ctx context.Context, taskID string, input map[string]any, opts RunOptions) *TaskResult {
	start := time.Now()

	if err := r.breaker.Allow(); err != nil {
		zap.L().Warn("task blocked by circuit breaker",
			zap.String("task_id", taskID),
			zap.Duration("time_to_reset", r.breaker.TimeToReset()),
		)
		return &TaskResult{
			Err:      &resilience.TaskError{Kind: resilience.KindUnknown, Retryable: false, Err: err},
			Duration: time.Since(start),
		}
	}

	cfg := r.retry
	if opts.MaxRetries > 0 {
		cfg.MaxRetries = opts.MaxRetries
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(taskID)
	}

	items, attempts, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]map[string]any, error) {
		return r.attempt(ctx, taskID, input)
	})

	result := &TaskResult{
		Attempts: attempts,
		Duration: time.Since(start),
	}
	if err != nil {
		result.Err = resilience.AsTaskError(err)
		zap.L().Warn("task run failed",
			zap.String("task_id", taskID),
			zap.String("kind", string(result.Err.Kind)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return result
	}

	r.breaker.RecordSuccess()
	result.Success = true
	result.Data = items
	zap.L().Debug("task run succeeded",
		zap.String("task_id", taskID),
		zap.Int("items", len(items)),
		zap.Int("attempts", attempts),
		zap.Duration("duration", result.Duration),
	)
	return result
}

// attempt performs one dispatch: start the run, check its terminal status,
// fetch the dataset. Every failure path is classified, and breaker-worthy
// failures are recorded immediately so a parallel phase sees them too.
func (r *TaskRunner) attempt(ctx context.Context, taskID string, input map[string]any) ([]map[string]any, error) {
	run, err := r.client.RunTask(ctx, taskID, input)
	if err != nil {
		return nil, r.classify(err)
	}

	if !run.Succeeded() {
		msg := run.StatusMessage
		if msg == "" {
			msg = run.Status
		}
		return nil, r.classify(eris.Errorf("run %s finished with status %s: %s", run.ID, run.Status, msg))
	}

	items, err := r.client.GetDatasetItems(ctx, run.DefaultDatasetID)
	if err != nil {
		return nil, r.classify(err)
	}
	return items, nil
}

func (r *TaskRunner) classify(err error) *resilience.TaskError {
	statusCode := 0
	var apiErr *apify.APIError
	if eris.As(err, &apiErr) {
		statusCode = apiErr.StatusCode
	}

	te := resilience.Classify(err, statusCode)
	if te.BreakerWorthy() {
		r.breaker.RecordFailure()
	}
	return te
}
