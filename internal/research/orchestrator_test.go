package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festivalops/research-cli/internal/resilience"
	"github.com/festivalops/research-cli/internal/runner"
	"github.com/festivalops/research-cli/pkg/apify"
)

const (
	testSearchTask  = "test~search"
	testContentTask = "test~content"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeClient scripts the platform: a handler maps (task, input) to dataset
// items, and each successful run gets its own dataset ID.
type fakeClient struct {
	mu       sync.Mutex
	seq      int
	datasets map[string][]map[string]any
	handle   func(taskID string, input map[string]any) ([]map[string]any, error)
}

func (f *fakeClient) RunTask(_ context.Context, taskID string, input map[string]any) (*apify.Run, error) {
	items, err := f.handle(taskID, input)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("ds-%d", f.seq)
	if f.datasets == nil {
		f.datasets = map[string][]map[string]any{}
	}
	f.datasets[id] = items
	return &apify.Run{ID: id, Status: apify.StatusSucceeded, DefaultDatasetID: id}, nil
}

func (f *fakeClient) GetDatasetItems(_ context.Context, datasetID string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.datasets[datasetID]
	if !ok {
		return nil, eris.Errorf("unknown dataset %s", datasetID)
	}
	return items, nil
}

func contentURL(input map[string]any) string {
	urls, _ := input["startUrls"].([]map[string]any)
	if len(urls) == 0 {
		return ""
	}
	u, _ := urls[0]["url"].(string)
	return u
}

// happyHandler scripts a complete successful research run for the fictional
// Orkaan Festival, organized by Orkaan Events B.V.
func happyHandler(taskID string, input map[string]any) ([]map[string]any, error) {
	if taskID == testSearchTask {
		q, _ := input["queries"].(string)
		switch {
		case strings.Contains(q, "official website"):
			return []map[string]any{
				{"url": "https://www.facebook.com/orkaanfestival", "title": "Orkaan Festival - Facebook"},
				{"url": "https://www.orkaanfestival.nl", "title": "Orkaan Festival", "description": "Official site"},
			}, nil
		case strings.Contains(q, "linkedin.com/company"):
			return []map[string]any{
				{
					"url":         "https://www.linkedin.com/company/orkaan-events",
					"title":       "Orkaan Events B.V. | LinkedIn",
					"description": "Festival production company in Amsterdam",
				},
			}, nil
		case strings.Contains(q, "linkedin.com/in") && strings.Contains(q, "Orkaan Events"):
			return []map[string]any{
				{
					"url":         "https://www.linkedin.com/in/jane-doe",
					"title":       "Jane Doe - Director - Orkaan Events B.V. | LinkedIn",
					"description": "Director at Orkaan Events B.V.",
				},
				{
					"url":         "https://www.linkedin.com/in/piet-jansen",
					"title":       "Piet Jansen - Marketing Manager - Orkaan Events | LinkedIn",
					"description": "Werkzaam bij Orkaan Events B.V. sinds 2019",
				},
			}, nil
		case strings.Contains(q, "linkedin.com/in"):
			return []map[string]any{
				{
					"url":         "https://www.linkedin.com/in/anna-smit",
					"title":       "Anna Smit - Festival Crew - Orkaan | LinkedIn",
					"description": "Crew member for Orkaan Festival 2025",
				},
			}, nil
		case strings.Contains(q, "news"):
			return []map[string]any{
				{"url": "https://www.instagram.com/p/abc", "title": "Orkaan on Instagram"},
				{
					"url":         "https://www.musicnews.nl/orkaan-2026",
					"title":       "Orkaan Festival 2026 announces lineup",
					"description": "The festival returns in June 2026",
				},
			}, nil
		}
		return nil, nil
	}

	u := contentURL(input)
	switch {
	case strings.Contains(u, "orkaanfestival.nl/privacy"):
		return []map[string]any{{"text": "Privacyverklaring van Orkaan Events B.V. KvK: 12345678"}}, nil
	case strings.Contains(u, "orkaanfestival.nl/contact"):
		return []map[string]any{{"text": "Contact: Orkaan Events B.V., Amsterdam"}}, nil
	case strings.Contains(u, "orkaanfestival.nl"):
		return []map[string]any{{"text": "Welkom bij Orkaan Festival. Georganiseerd door Orkaan Events B.V. sinds 2015."}}, nil
	case strings.Contains(u, "musicnews.nl"):
		return []map[string]any{{"text": "Orkaan Festival 2026 will take place in June with forty acts."}}, nil
	case strings.Contains(u, "festivalinfo.nl"), strings.Contains(u, "festileaks.com"):
		return []map[string]any{{"text": "Orkaan Festival 2026, 12 juni, Amsterdam"}}, nil
	default:
		// Remaining calendar sites: no listing.
		return []map[string]any{{"text": "Geen resultaten gevonden"}}, nil
	}
}

func newTestOrchestrator(handle func(string, map[string]any) ([]map[string]any, error), parallel bool) *Orchestrator {
	r := runner.New(&fakeClient{handle: handle}, nil, resilience.RetryConfig{MaxRetries: 1})
	o := New(r, nil, Config{
		SearchTaskID:      testSearchTask,
		ContentTaskID:     testContentTask,
		ParallelExecution: parallel,
	})
	o.nowFunc = func() time.Time { return testNow }
	return o
}

func TestRun_FullPipeline(t *testing.T) {
	o := newTestOrchestrator(happyHandler, false)

	var phases []Phase
	o.OnProgress(func(s *ResearchState) {
		if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
			phases = append(phases, s.Phase)
		}
	})

	state := o.Run(context.Background(), "fest-1", "Orkaan Festival", "")

	require.Equal(t, PhaseCompleted, state.Phase)
	assert.Empty(t, state.Errors)
	assert.Empty(t, state.Warnings)

	assert.Equal(t, "https://www.orkaanfestival.nl", state.WebsiteURL)

	require.NotNil(t, state.Company)
	assert.Equal(t, "Orkaan Events B.V.", state.Company.Name)
	assert.Equal(t, "12345678", state.Company.RegistrationNumber)
	assert.Greater(t, state.Company.Confidence, 0.5)

	require.NotNil(t, state.CompanyPage)
	assert.Contains(t, state.CompanyPage.URL, "linkedin.com/company/orkaan-events")
	assert.True(t, state.CompanyPage.Verified)

	require.Len(t, state.Connections, 3)
	first := state.Connections[0]
	assert.Equal(t, "Jane Doe", first.Name)
	assert.Equal(t, RoleDecisionMaker, first.Role)
	assert.True(t, first.EmploymentVerified)
	assert.Equal(t, ViaCompanySearch, first.DiscoveredVia)

	require.Len(t, state.NewsArticles, 1)
	article := state.NewsArticles[0]
	assert.Equal(t, "https://www.musicnews.nl/orkaan-2026", article.URL)
	assert.Equal(t, 2026, article.PublishedYear)
	assert.True(t, article.Relevant)
	assert.NotEmpty(t, article.Summary)

	require.Len(t, state.CalendarSources, 5)
	assert.Equal(t, "festivalinfo.nl", state.CalendarSources[0].Site)
	assert.True(t, state.CalendarSources[0].Found)
	assert.True(t, state.CalendarSources[0].Current)
	assert.False(t, state.CalendarSources[2].Found) // partyflock

	require.NotNil(t, state.Confidence)
	require.NotNil(t, state.Quality)
	assert.Greater(t, state.OverallConfidence, 0.0)
	assert.NotEmpty(t, state.ConfidenceLevel)

	assert.Equal(t, []Phase{
		PhaseDiscoveringWebsite,
		PhaseExtractingCompany,
		PhaseSearchingSocialCompany,
		PhaseSearchingSocialEmployees,
		PhaseFetchingNews,
		PhaseVerifyingCalendars,
		PhaseValidatingResults,
		PhaseCompleted,
	}, phases)
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	seq := newTestOrchestrator(happyHandler, false).
		Run(context.Background(), "fest-1", "Orkaan Festival", "")
	par := newTestOrchestrator(happyHandler, true).
		Run(context.Background(), "fest-1", "Orkaan Festival", "")

	require.Equal(t, PhaseCompleted, seq.Phase)
	require.Equal(t, PhaseCompleted, par.Phase)
	assert.Equal(t, seq.NewsArticles, par.NewsArticles)
	assert.Equal(t, seq.CalendarSources, par.CalendarSources)
	assert.Equal(t, seq.Connections, par.Connections)
	assert.Equal(t, seq.OverallConfidence, par.OverallConfidence)
}

func TestRun_AllTasksFailingStillCompletes(t *testing.T) {
	down := func(string, map[string]any) ([]map[string]any, error) {
		return nil, eris.New("backend down")
	}
	o := newTestOrchestrator(down, false)

	state := o.Run(context.Background(), "fest-1", "Orkaan Festival", "")

	assert.Equal(t, PhaseCompleted, state.Phase)
	assert.Empty(t, state.Errors)
	assert.NotEmpty(t, state.Warnings)

	assert.Empty(t, state.WebsiteURL)
	assert.Nil(t, state.Company)
	assert.Empty(t, state.Connections)

	// Calendar probes degrade per site instead of failing the phase.
	require.Len(t, state.CalendarSources, 5)
	for _, src := range state.CalendarSources {
		assert.False(t, src.Found)
	}

	assert.Zero(t, state.OverallConfidence)
	assert.Equal(t, "low", state.ConfidenceLevel)

	last := state.Warnings[len(state.Warnings)-1]
	assert.Equal(t, PhaseValidatingResults, last.Phase)
	assert.Contains(t, last.Message, "below floor")
}

func TestRun_SeedURLSkipsDiscovery(t *testing.T) {
	var websiteQueries int
	handle := func(taskID string, input map[string]any) ([]map[string]any, error) {
		if taskID == testSearchTask {
			if q, _ := input["queries"].(string); strings.Contains(q, "official website") {
				websiteQueries++
			}
		}
		return happyHandler(taskID, input)
	}
	o := newTestOrchestrator(handle, false)

	state := o.Run(context.Background(), "fest-1", "Orkaan Festival", "https://www.orkaanfestival.nl")

	assert.Equal(t, PhaseCompleted, state.Phase)
	assert.Equal(t, "https://www.orkaanfestival.nl", state.WebsiteURL)
	assert.Zero(t, websiteQueries)
}

func TestRun_CancelledContextFails(t *testing.T) {
	o := newTestOrchestrator(happyHandler, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := o.Run(ctx, "fest-1", "Orkaan Festival", "")

	assert.Equal(t, PhaseFailed, state.Phase)
	assert.NotEmpty(t, state.Errors)
}

func TestRun_PanicRecoversToFailed(t *testing.T) {
	o := newTestOrchestrator(happyHandler, false)

	panicked := false
	o.OnProgress(func(s *ResearchState) {
		if s.Phase == PhaseFetchingNews && !panicked {
			panicked = true
			panic("observer exploded")
		}
	})

	state := o.Run(context.Background(), "fest-1", "Orkaan Festival", "")

	require.Equal(t, PhaseFailed, state.Phase)
	require.NotEmpty(t, state.Errors)
	assert.Contains(t, state.Errors[0].Message, "internal error")
}

func TestState_AccessibleDuringAndAfterRun(t *testing.T) {
	o := newTestOrchestrator(happyHandler, false)
	assert.Nil(t, o.State())

	var seen *ResearchState
	o.OnProgress(func(*ResearchState) { seen = o.State() })

	state := o.Run(context.Background(), "fest-1", "Orkaan Festival", "")

	assert.Same(t, state, o.State())
	assert.Same(t, state, seen)
}

func TestRun_TimestampsAdvanceMonotonically(t *testing.T) {
	tick := testNow
	o := newTestOrchestrator(happyHandler, false)
	o.nowFunc = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	state := o.Run(context.Background(), "fest-1", "Orkaan Festival", "")

	require.Equal(t, PhaseCompleted, state.Phase)
	assert.True(t, state.LastUpdatedAt.After(state.StartedAt))
}
