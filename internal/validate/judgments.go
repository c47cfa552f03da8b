// Package validate scores extracted research findings with a language model,
// degrading to documented defaults and pure heuristics when the model is
// unconfigured or misbehaves. No method of this package returns an error:
// "no AI" is a normal operating mode, not a failure.
package validate

// CompanyValidation judges whether an extracted company name really is the
// festival's organizing entity.
type CompanyValidation struct {
	IsValid             bool    `json:"isValid"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
	SuggestedCorrection string  `json:"suggestedCorrection,omitempty"`
}

// Judged reports whether a model actually produced this judgment rather than
// the degraded-mode default.
func (v CompanyValidation) Judged() bool {
	return v.Reasoning != unavailableReason
}

// PersonValidation judges a discovered person's relevance to the festival
// organization.
type PersonValidation struct {
	IsRelevant      bool    `json:"isRelevant"`
	Confidence      float64 `json:"confidence"`
	IsDecisionMaker bool    `json:"isDecisionMaker"`
	Reasoning       string  `json:"reasoning"`
}

// Judged reports whether a model actually produced this judgment. The
// degraded-mode default is not evidence against a person and must not be used
// to filter them out.
func (v PersonValidation) Judged() bool {
	return v.Reasoning != unavailableReason
}

// ContentValidation judges whether fetched article content is about the
// festival and summarizes it.
type ContentValidation struct {
	IsRelevant bool    `json:"isRelevant"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
	Reasoning  string  `json:"reasoning"`
}

// ConfidenceJudgment is an overall trust estimate for a findings summary.
// Source records whether the model or the offline heuristic produced it.
type ConfidenceJudgment struct {
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Source     string  `json:"source"` // "ai" or "heuristic"
}

// RetryStrategy is advice on which research operations are worth re-running.
type RetryStrategy struct {
	ShouldRetry bool     `json:"shouldRetry"`
	Suggestions []string `json:"suggestions"`
	Reasoning   string   `json:"reasoning"`
	Source      string   `json:"source"` // "ai" or "heuristic"
}

// FindingsSummary condenses a research state into the signals the judgment
// and fallback formulas need.
type FindingsSummary struct {
	FestivalName       string
	WebsiteFound       bool
	CompanyFound       bool
	CompanyConfidence  float64
	CompanyPageFound   bool
	ConnectionCount    int
	VerifiedCount      int
	DecisionMakerCount int
	NewsCount          int
	CalendarCount      int
}

const unavailableReason = "AI validation unavailable"

func defaultCompanyValidation() CompanyValidation {
	return CompanyValidation{IsValid: false, Confidence: 0, Reasoning: unavailableReason}
}

func defaultPersonValidation() PersonValidation {
	return PersonValidation{IsRelevant: false, Confidence: 0, Reasoning: unavailableReason}
}

func defaultContentValidation() ContentValidation {
	return ContentValidation{IsRelevant: false, Confidence: 0, Reasoning: unavailableReason}
}
