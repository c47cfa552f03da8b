package validate

import "fmt"

// HeuristicConfidence computes a confidence judgment from weighted signal
// presence, with no model call. It deliberately mirrors the shape (not the
// formula) of the scoring package: this is the validation service's own
// offline answer to "how much can we trust this".
func HeuristicConfidence(sum FindingsSummary) ConfidenceJudgment {
	score := 0.0
	if sum.WebsiteFound {
		score += 0.15
	}
	if sum.CompanyFound {
		score += 0.20 * clamp01(sum.CompanyConfidence)
		score += 0.10
	}
	if sum.CompanyPageFound {
		score += 0.15
	}
	if sum.ConnectionCount > 0 {
		score += 0.10
	}
	if sum.VerifiedCount > 0 {
		score += 0.10
	}
	if sum.NewsCount > 0 {
		score += 0.10
	}
	if sum.CalendarCount > 0 {
		score += 0.10
	}

	return ConfidenceJudgment{
		Confidence: clamp01(score),
		Reasoning:  fmt.Sprintf("heuristic signal count for %s", sum.FestivalName),
		Source:     "heuristic",
	}
}

// HeuristicRetry derives a retry strategy from which findings are missing.
// Ordered by expected payoff: the organizing company unlocks the most
// downstream phases.
func HeuristicRetry(sum FindingsSummary, failedOps []string) RetryStrategy {
	var suggestions []string
	if !sum.WebsiteFound {
		suggestions = append(suggestions, "retry website discovery with alternative search terms")
	}
	if !sum.CompanyFound {
		suggestions = append(suggestions, "retry company extraction against contact and about pages")
	}
	if !sum.CompanyPageFound {
		suggestions = append(suggestions, "retry company page search using the festival name")
	}
	if sum.VerifiedCount == 0 {
		suggestions = append(suggestions, "retry employee search with broader queries")
	}
	if sum.NewsCount == 0 {
		suggestions = append(suggestions, "retry news search without the year restriction")
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}

	return RetryStrategy{
		ShouldRetry: len(suggestions) > 0 && len(failedOps) > 0,
		Suggestions: suggestions,
		Reasoning:   fmt.Sprintf("%d findings gaps, %d failed operations", len(suggestions), len(failedOps)),
		Source:      "heuristic",
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
