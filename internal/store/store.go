// Package store persists completed research runs, keyed by festival, in
// SQLite for single-operator use or Postgres for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/festivalops/research-cli/internal/research"
)

// RunRecord is one persisted research run. State carries the full findings;
// the scalar columns exist so listings and filters never need to decode it.
type RunRecord struct {
	ID           string                  `json:"id"`
	FestivalID   string                  `json:"festivalId"`
	FestivalName string                  `json:"festivalName"`
	Phase        research.Phase          `json:"phase"`
	Confidence   float64                 `json:"confidence"`
	Quality      float64                 `json:"quality"`
	State        *research.ResearchState `json:"state,omitempty"`
	CreatedAt    time.Time               `json:"createdAt"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	FestivalID string         `json:"festivalId,omitempty"`
	Phase      research.Phase `json:"phase,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	Offset     int            `json:"offset,omitempty"`
}

// Store defines the persistence interface for research runs.
type Store interface {
	SaveRun(ctx context.Context, state *research.ResearchState) (*RunRecord, error)
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	LatestRun(ctx context.Context, festivalID string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)
	DeleteRuns(ctx context.Context, festivalID string) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

func recordFromState(id string, state *research.ResearchState, createdAt time.Time) *RunRecord {
	rec := &RunRecord{
		ID:           id,
		FestivalID:   state.FestivalID,
		FestivalName: state.FestivalName,
		Phase:        state.Phase,
		Confidence:   state.OverallConfidence,
		State:        state,
		CreatedAt:    createdAt,
	}
	if state.Quality != nil {
		rec.Quality = state.Quality.Overall
	}
	return rec
}
