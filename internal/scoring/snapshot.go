// Package scoring turns accumulated research findings into a 0-100 quality
// score and a 0-1 run confidence. Both are pure functions of a findings
// snapshot: no I/O, no hidden state, and deliberately independent formulas.
// Quality measures how thorough the research process was; confidence measures
// how much a human should trust the result.
package scoring

// Snapshot is the read-only view of a research state the formulas consume.
type Snapshot struct {
	WebsiteFound          bool
	CompanyFound          bool
	CompanyConfidence     float64
	HasRegistrationNumber bool

	CompanyPageFound   bool
	ConnectionCount    int
	VerifiedCount      int
	DecisionMakerCount int
	// SearchConfidence is the average raw confidence of the connection
	// search, before verification bonuses.
	SearchConfidence float64

	NewsCount       int
	RecentNewsCount int

	CalendarsFound  int
	CalendarCurrent bool
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

func cap100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
