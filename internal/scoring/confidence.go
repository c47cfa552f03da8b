package scoring

// Confidence sub-score weights. Connections dominate because a verified human
// contact is the finding sales actually acts on.
const (
	confWeightCompany     = 0.25
	confWeightConnections = 0.35
	confWeightNews        = 0.15
	confWeightCalendar    = 0.25
)

// Run confidence levels.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Confidence is the 0-1 trust estimate with its sub-confidences.
type Confidence struct {
	Overall     float64 `json:"overall"`
	Company     float64 `json:"company"`
	Connections float64 `json:"connections"`
	News        float64 `json:"news"`
	Calendar    float64 `json:"calendar"`
	Level       string  `json:"level"`
}

// ComputeConfidence estimates how much a human should trust the aggregated
// findings. Computed once per run, from the fully accumulated snapshot.
func ComputeConfidence(s Snapshot) Confidence {
	c := Confidence{
		Company:     companyConfidence(s),
		Connections: connectionConfidence(s),
		News:        newsConfidence(s),
		Calendar:    calendarConfidence(s),
	}
	c.Overall = round2(c.Company*confWeightCompany +
		c.Connections*confWeightConnections +
		c.News*confWeightNews +
		c.Calendar*confWeightCalendar)
	c.Level = ConfidenceLevel(c.Overall)
	return c
}

// ConfidenceLevel maps an overall confidence to its three-value band.
func ConfidenceLevel(overall float64) string {
	switch {
	case overall >= 0.7:
		return LevelHigh
	case overall >= 0.4:
		return LevelMedium
	default:
		return LevelLow
	}
}

func companyConfidence(s Snapshot) float64 {
	if !s.CompanyFound {
		return 0
	}
	return clamp01(s.CompanyConfidence)
}

// connectionConfidence blends the raw search confidence with bonuses for the
// signals that make a connection list trustworthy: verified employment, a
// decision-maker, and a confirmed company page.
func connectionConfidence(s Snapshot) float64 {
	if s.ConnectionCount == 0 && !s.CompanyPageFound {
		return 0
	}
	conf := clamp01(s.SearchConfidence)
	if s.VerifiedCount > 0 {
		conf += 0.2
	}
	if s.DecisionMakerCount > 0 {
		conf += 0.15
	}
	if s.CompanyPageFound {
		conf += 0.1
	}
	return clamp01(conf)
}

func newsConfidence(s Snapshot) float64 {
	return clamp01(float64(s.NewsCount) / 5.0)
}

func calendarConfidence(s Snapshot) float64 {
	conf := float64(s.CalendarsFound) / 5.0
	if s.CalendarCurrent {
		conf += 0.2
	}
	return clamp01(conf)
}
