package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/festivalops/research-cli/pkg/anthropic"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024
)

// Service runs structured judgments against the language model.
type Service struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// Option configures the Service.
type Option func(*Service)

// WithModel overrides the judgment model.
func WithModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.model = model
		}
	}
}

// NewService creates a validation service. A nil client puts the service in
// degraded mode: every judgment returns its documented default.
func NewService(client anthropic.Client, opts ...Option) *Service {
	s := &Service{
		client:    client,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Available reports whether a language model is configured.
func (s *Service) Available() bool {
	return s.client != nil
}

const companySystemPrompt = `You validate company-name extractions for festival research.
Given a festival and a candidate organizing company, judge whether the candidate
plausibly organizes that festival. Respond with ONLY a JSON object:
{"isValid": bool, "confidence": 0.0-1.0, "reasoning": "...", "suggestedCorrection": "..."}`

// ValidateCompany judges whether companyName is festivalName's organizer.
// pageContext carries the page text the candidate was extracted from.
func (s *Service) ValidateCompany(ctx context.Context, companyName, festivalName, pageContext string) CompanyValidation {
	if !s.Available() {
		return defaultCompanyValidation()
	}

	user := fmt.Sprintf("Festival: %s\nCandidate company: %s\n\nExtraction context:\n%s",
		festivalName, companyName, truncate(pageContext, 4000))

	var out CompanyValidation
	if !s.judgeInto(ctx, "validate_company", companySystemPrompt, user, &out) {
		return defaultCompanyValidation()
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return defaultCompanyValidation()
	}
	return out
}

const personSystemPrompt = `You validate people discovered during festival organizer research.
Judge whether the person is plausibly involved in organizing the festival and
whether their title indicates decision-making authority. Respond with ONLY a
JSON object:
{"isRelevant": bool, "confidence": 0.0-1.0, "isDecisionMaker": bool, "reasoning": "..."}`

// ValidatePerson judges a candidate connection's relevance.
func (s *Service) ValidatePerson(ctx context.Context, name, title, festivalName, companyName string) PersonValidation {
	if !s.Available() {
		return defaultPersonValidation()
	}

	user := fmt.Sprintf("Festival: %s\nOrganizing company: %s\nPerson: %s\nTitle: %s",
		festivalName, orUnknown(companyName), name, orUnknown(title))

	var out PersonValidation
	if !s.judgeInto(ctx, "validate_person", personSystemPrompt, user, &out) {
		return defaultPersonValidation()
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return defaultPersonValidation()
	}
	return out
}

const contentSystemPrompt = `You validate news content gathered during festival research.
Judge whether the article is genuinely about the festival and summarize it in
one or two sentences. Respond with ONLY a JSON object:
{"isRelevant": bool, "confidence": 0.0-1.0, "summary": "...", "reasoning": "..."}`

// ValidateContent judges article relevance and produces a summary.
func (s *Service) ValidateContent(ctx context.Context, content, festivalName string) ContentValidation {
	if !s.Available() {
		return defaultContentValidation()
	}

	user := fmt.Sprintf("Festival: %s\n\nArticle content:\n%s", festivalName, truncate(content, 6000))

	var out ContentValidation
	if !s.judgeInto(ctx, "validate_content", contentSystemPrompt, user, &out) {
		return defaultContentValidation()
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return defaultContentValidation()
	}
	return out
}

const confidenceSystemPrompt = `You estimate the overall trustworthiness of festival research findings.
Respond with ONLY a JSON object:
{"confidence": 0.0-1.0, "reasoning": "..."}`

// ScoreConfidence asks the model for an overall confidence judgment. When the
// model is unavailable or malformed, the pure heuristic fallback answers
// instead, so the caller always gets a score.
func (s *Service) ScoreConfidence(ctx context.Context, sum FindingsSummary) ConfidenceJudgment {
	if !s.Available() {
		return HeuristicConfidence(sum)
	}

	var out ConfidenceJudgment
	if !s.judgeInto(ctx, "score_confidence", confidenceSystemPrompt, summarize(sum), &out) {
		return HeuristicConfidence(sum)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return HeuristicConfidence(sum)
	}
	out.Source = "ai"
	return out
}

const retrySystemPrompt = `You advise a festival research pipeline on retrying failed operations.
Given the findings summary and the list of failed operations, suggest up to three
concrete retry actions, most promising first. Respond with ONLY a JSON object:
{"shouldRetry": bool, "suggestions": ["..."], "reasoning": "..."}`

// SuggestRetry asks the model for a retry strategy, falling back to the
// offline heuristic.
func (s *Service) SuggestRetry(ctx context.Context, sum FindingsSummary, failedOps []string) RetryStrategy {
	if !s.Available() {
		return HeuristicRetry(sum, failedOps)
	}

	user := summarize(sum) + "\nFailed operations: " + strings.Join(failedOps, ", ")

	var out RetryStrategy
	if !s.judgeInto(ctx, "suggest_retry", retrySystemPrompt, user, &out) {
		return HeuristicRetry(sum, failedOps)
	}
	out.Source = "ai"
	return out
}

// judgeInto sends one prompt pair and decodes the JSON reply into out.
// Any transport, parse, or schema problem yields false; callers substitute
// the documented default.
func (s *Service) judgeInto(ctx context.Context, operation, system, user string, out any) bool {
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		zap.L().Warn("validation judgment failed, using default",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return false
	}
	resp.Usage.Log(s.model, operation)

	text := cleanJSON(resp.Text())
	if text == "" {
		return false
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		zap.L().Warn("validation response was not valid JSON, using default",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return false
	}
	return true
}

func summarize(sum FindingsSummary) string {
	return fmt.Sprintf(
		"Festival: %s\nWebsite found: %t\nCompany found: %t (confidence %.2f)\n"+
			"Company page found: %t\nConnections: %d (%d verified, %d decision-makers)\n"+
			"News articles: %d\nCalendar listings: %d",
		sum.FestivalName, sum.WebsiteFound, sum.CompanyFound, sum.CompanyConfidence,
		sum.CompanyPageFound, sum.ConnectionCount, sum.VerifiedCount, sum.DecisionMakerCount,
		sum.NewsCount, sum.CalendarCount,
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
