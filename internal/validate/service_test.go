package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festivalops/research-cli/pkg/anthropic"
)

// mockLLM implements anthropic.Client returning a canned response.
type mockLLM struct {
	text string
	err  error
}

func (m *mockLLM) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: m.text}},
	}, nil
}

func TestValidateCompany_Unavailable(t *testing.T) {
	s := NewService(nil)
	assert.False(t, s.Available())

	got := s.ValidateCompany(context.Background(), "Acme Events BV", "Acme Festival", "")
	assert.False(t, got.IsValid)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, "AI validation unavailable", got.Reasoning)
}

func TestValidateCompany_HappyPath(t *testing.T) {
	s := NewService(&mockLLM{text: `{"isValid": true, "confidence": 0.85, "reasoning": "name matches organizer"}`})

	got := s.ValidateCompany(context.Background(), "Acme Events BV", "Acme Festival", "page text")
	assert.True(t, got.IsValid)
	assert.InDelta(t, 0.85, got.Confidence, 0.001)
}

func TestValidateCompany_FencedJSON(t *testing.T) {
	s := NewService(&mockLLM{text: "```json\n{\"isValid\": true, \"confidence\": 0.7, \"reasoning\": \"ok\"}\n```"})

	got := s.ValidateCompany(context.Background(), "Acme Events BV", "Acme Festival", "")
	assert.True(t, got.IsValid)
	assert.InDelta(t, 0.7, got.Confidence, 0.001)
}

func TestValidateCompany_MalformedJSON(t *testing.T) {
	s := NewService(&mockLLM{text: "I think it's probably valid."})

	got := s.ValidateCompany(context.Background(), "Acme Events BV", "Acme Festival", "")
	assert.False(t, got.IsValid)
	assert.Equal(t, "AI validation unavailable", got.Reasoning)
}

func TestValidateCompany_OutOfRangeConfidence(t *testing.T) {
	s := NewService(&mockLLM{text: `{"isValid": true, "confidence": 7.5, "reasoning": "nope"}`})

	got := s.ValidateCompany(context.Background(), "Acme Events BV", "Acme Festival", "")
	assert.False(t, got.IsValid)
	assert.Zero(t, got.Confidence)
}

func TestValidateCompany_TransportError(t *testing.T) {
	s := NewService(&mockLLM{err: errors.New("overloaded")})

	got := s.ValidateCompany(context.Background(), "Acme Events BV", "Acme Festival", "")
	assert.False(t, got.IsValid)
}

func TestValidatePerson(t *testing.T) {
	s := NewService(&mockLLM{text: `{"isRelevant": true, "confidence": 0.6, "isDecisionMaker": true, "reasoning": "festival director"}`})

	got := s.ValidatePerson(context.Background(), "Jane Doe", "Festival Director", "Acme Festival", "Acme Events BV")
	assert.True(t, got.IsRelevant)
	assert.True(t, got.IsDecisionMaker)
	assert.InDelta(t, 0.6, got.Confidence, 0.001)
}

func TestValidateContent(t *testing.T) {
	s := NewService(&mockLLM{text: `{"isRelevant": true, "confidence": 0.9, "summary": "Festival review.", "reasoning": "about the festival"}`})

	got := s.ValidateContent(context.Background(), "long article text", "Acme Festival")
	assert.True(t, got.IsRelevant)
	assert.Equal(t, "Festival review.", got.Summary)
}

func TestScoreConfidence_AISource(t *testing.T) {
	s := NewService(&mockLLM{text: `{"confidence": 0.55, "reasoning": "partial findings"}`})

	got := s.ScoreConfidence(context.Background(), FindingsSummary{FestivalName: "Acme Festival"})
	assert.Equal(t, "ai", got.Source)
	assert.InDelta(t, 0.55, got.Confidence, 0.001)
}

func TestScoreConfidence_FallsBackToHeuristic(t *testing.T) {
	tests := []struct {
		name string
		llm  anthropic.Client
	}{
		{"no client", nil},
		{"transport error", &mockLLM{err: errors.New("down")}},
		{"garbage output", &mockLLM{text: "forty-two"}},
		{"out of range", &mockLLM{text: `{"confidence": -3, "reasoning": "?"}`}},
	}

	sum := FindingsSummary{
		FestivalName:      "Acme Festival",
		WebsiteFound:      true,
		CompanyFound:      true,
		CompanyConfidence: 0.8,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s *Service
			if tt.llm == nil {
				s = NewService(nil)
			} else {
				s = NewService(tt.llm)
			}
			got := s.ScoreConfidence(context.Background(), sum)
			assert.Equal(t, "heuristic", got.Source)
			assert.Greater(t, got.Confidence, 0.0)
		})
	}
}

func TestSuggestRetry_Heuristic(t *testing.T) {
	s := NewService(nil)

	got := s.SuggestRetry(context.Background(), FindingsSummary{
		FestivalName: "Acme Festival",
		WebsiteFound: true,
	}, []string{"extract_company"})

	assert.Equal(t, "heuristic", got.Source)
	assert.True(t, got.ShouldRetry)
	require.NotEmpty(t, got.Suggestions)
	assert.LessOrEqual(t, len(got.Suggestions), 3)
	// Company extraction is the highest-payoff gap.
	assert.Contains(t, got.Suggestions[0], "company extraction")
}

func TestSuggestRetry_AISource(t *testing.T) {
	s := NewService(&mockLLM{text: `{"shouldRetry": true, "suggestions": ["broaden queries"], "reasoning": "thin results"}`})

	got := s.SuggestRetry(context.Background(), FindingsSummary{}, []string{"search_employees"})
	assert.Equal(t, "ai", got.Source)
	assert.Equal(t, []string{"broaden queries"}, got.Suggestions)
}

func TestHeuristicConfidence_FullFindings(t *testing.T) {
	got := HeuristicConfidence(FindingsSummary{
		WebsiteFound:       true,
		CompanyFound:       true,
		CompanyConfidence:  1.0,
		CompanyPageFound:   true,
		ConnectionCount:    5,
		VerifiedCount:      2,
		DecisionMakerCount: 1,
		NewsCount:          3,
		CalendarCount:      2,
	})
	assert.InDelta(t, 1.0, got.Confidence, 0.001)
}

func TestHeuristicConfidence_Empty(t *testing.T) {
	got := HeuristicConfidence(FindingsSummary{})
	assert.Zero(t, got.Confidence)
	assert.Equal(t, "heuristic", got.Source)
}

func TestHeuristicRetry_NoFailedOps(t *testing.T) {
	got := HeuristicRetry(FindingsSummary{}, nil)
	assert.False(t, got.ShouldRetry)
	assert.NotEmpty(t, got.Suggestions)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", `Sure! {"a":1} Hope that helps.`, `{"a":1}`},
		{"no object", "no json here", "no json here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
