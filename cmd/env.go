package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/festivalops/research-cli/internal/research"
	"github.com/festivalops/research-cli/internal/resilience"
	"github.com/festivalops/research-cli/internal/runner"
	"github.com/festivalops/research-cli/internal/store"
	"github.com/festivalops/research-cli/internal/validate"
	anthropicpkg "github.com/festivalops/research-cli/pkg/anthropic"
	"github.com/festivalops/research-cli/pkg/apify"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "research.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newTaskRunner builds the platform client and the resilience stack. One
// runner per process so every research run shares the same circuit breaker.
func newTaskRunner() *runner.TaskRunner {
	client := apify.NewClient(cfg.Apify.Token,
		apify.WithBaseURL(cfg.Apify.BaseURL),
		apify.WithRateLimit(cfg.Apify.RateLimitRPS, 5),
	)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Resilience.BreakerThreshold,
		Cooldown:         time.Duration(cfg.Resilience.BreakerCooldownSec) * time.Second,
		OnStateChange: func(open bool) {
			if open {
				zap.L().Warn("circuit breaker opened")
			} else {
				zap.L().Info("circuit breaker reset")
			}
		},
	})

	retry := resilience.DefaultRetryConfig()
	if cfg.Resilience.TaskMaxRetries > 0 {
		retry.MaxRetries = cfg.Resilience.TaskMaxRetries
	}

	return runner.New(client, breaker, retry)
}

// newValidator builds the AI validation service. Without an API key the
// service runs in degraded mode and every judgment uses its heuristic path.
func newValidator() *validate.Service {
	if cfg.Anthropic.Key == "" {
		zap.L().Info("no anthropic key configured, AI validation disabled")
		return validate.NewService(nil)
	}
	return validate.NewService(
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		validate.WithModel(cfg.Anthropic.Model),
	)
}

func newOrchestrator(r *runner.TaskRunner) (*research.Orchestrator, error) {
	o := research.New(r, newValidator(), research.Config{
		SearchTaskID:      cfg.Apify.SearchTaskID,
		ContentTaskID:     cfg.Apify.ContentTaskID,
		MaxRetries:        cfg.Research.MaxRetries,
		MinConfidence:     cfg.Research.MinConfidence,
		TaskMaxRetries:    cfg.Resilience.TaskMaxRetries,
		ParallelExecution: cfg.Research.ParallelExecution,
		MaxConnections:    cfg.Research.MaxConnections,
		MaxNewsArticles:   cfg.Research.MaxNewsArticles,
	})

	if cfg.Research.PatternsFile != "" {
		table, err := research.LoadPatterns(cfg.Research.PatternsFile)
		if err != nil {
			return nil, eris.Wrap(err, "load patterns file")
		}
		o.SetPatterns(table)
	}
	return o, nil
}
