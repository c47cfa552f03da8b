package scoring

import "math"

// Quality sub-score weights.
const (
	weightCompany      = 0.25
	weightConnections  = 0.35
	weightCompleteness = 0.25
	weightNews         = 0.15
)

// QualityScore is the 0-100 process-thoroughness score with its sub-scores.
type QualityScore struct {
	Overall      float64 `json:"overall"`
	Company      float64 `json:"company"`
	Connections  float64 `json:"connections"`
	Completeness float64 `json:"completeness"`
	News         float64 `json:"news"`
}

// ComputeQuality scores how thorough the research process was.
func ComputeQuality(s Snapshot) QualityScore {
	q := QualityScore{
		Company:      scoreCompany(s),
		Connections:  scoreConnections(s),
		Completeness: scoreCompleteness(s),
		News:         scoreNews(s),
	}
	q.Overall = round2(q.Company*weightCompany +
		q.Connections*weightConnections +
		q.Completeness*weightCompleteness +
		q.News*weightNews)
	return q
}

// scoreCompany: found flag 40, heuristic confidence 40, registration number 20.
func scoreCompany(s Snapshot) float64 {
	if !s.CompanyFound {
		return 0
	}
	score := 40.0 + clamp01(s.CompanyConfidence)*40.0
	if s.HasRegistrationNumber {
		score += 20.0
	}
	return cap100(score)
}

// scoreConnections: company page, any verified employee, any decision-maker,
// and a graduated per-connection bonus, capped at 100.
func scoreConnections(s Snapshot) float64 {
	score := 0.0
	if s.CompanyPageFound {
		score += 25
	}
	if s.VerifiedCount > 0 {
		score += 25
	}
	if s.DecisionMakerCount > 0 {
		score += 25
	}
	score += math.Min(float64(s.ConnectionCount)*5, 25)
	return cap100(score)
}

// scoreCompleteness: fraction of the six completeness flags present.
func scoreCompleteness(s Snapshot) float64 {
	flags := []bool{
		s.WebsiteFound,
		s.CompanyFound,
		s.CompanyPageFound,
		s.ConnectionCount > 0,
		s.NewsCount > 0,
		s.CalendarsFound > 0,
	}
	present := 0
	for _, f := range flags {
		if f {
			present++
		}
	}
	return float64(present) / float64(len(flags)) * 100
}

// scoreNews: article count bonus capped at 45, recency bonus 25, volume
// bonus 30 for three or more articles.
func scoreNews(s Snapshot) float64 {
	score := math.Min(float64(s.NewsCount)*15, 45)
	if s.RecentNewsCount > 0 {
		score += 25
	}
	if s.NewsCount >= 3 {
		score += 30
	}
	return cap100(score)
}

// Band describes a quality tier.
type Band struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// QualityBand maps an overall quality score to its tier.
func QualityBand(overall float64) Band {
	switch {
	case overall >= 80:
		return Band{
			Name:        "excellent",
			Label:       "Excellent",
			Description: "Research is thorough; findings are ready for outreach.",
		}
	case overall >= 60:
		return Band{
			Name:        "good",
			Label:       "Good",
			Description: "Most findings are present; minor gaps remain.",
		}
	case overall >= 40:
		return Band{
			Name:        "fair",
			Label:       "Fair",
			Description: "Significant gaps; findings need manual review.",
		}
	default:
		return Band{
			Name:        "poor",
			Label:       "Poor",
			Description: "Research produced little usable data; re-run recommended.",
		}
	}
}

// Improvements returns up to three ranked suggestions for closing the most
// valuable findings gaps, in fixed priority order.
func Improvements(s Snapshot) []string {
	type gap struct {
		missing    bool
		suggestion string
	}
	gaps := []gap{
		{!s.CompanyFound, "identify the organizing company from the festival website"},
		{!s.CompanyPageFound, "locate the organizing company's LinkedIn page"},
		{s.VerifiedCount == 0, "find at least one connection with verified employment"},
		{s.DecisionMakerCount == 0, "find a decision-maker contact at the organizing company"},
		{s.NewsCount == 0, "gather recent news coverage of the festival"},
		{s.CalendarsFound == 0, "confirm the festival's presence on calendar listing sites"},
	}

	var out []string
	for _, g := range gaps {
		if !g.missing {
			continue
		}
		out = append(out, g.suggestion)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
