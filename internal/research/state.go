// Package research implements the self-healing festival research pipeline: a
// fixed sequence of phases that discovers a festival's website, organizing
// company, LinkedIn presence, news coverage, and calendar listings by driving
// the remote automation platform and the validation service, tolerating
// failure in every phase.
package research

import (
	"time"

	"github.com/festivalops/research-cli/internal/scoring"
	"github.com/festivalops/research-cli/internal/validate"
)

// Phase is one named step of the research pipeline.
type Phase string

const (
	PhaseNotStarted               Phase = "not_started"
	PhaseDiscoveringWebsite       Phase = "discovering_website"
	PhaseExtractingCompany        Phase = "extracting_company"
	PhaseSearchingSocialCompany   Phase = "searching_social_company"
	PhaseSearchingSocialEmployees Phase = "searching_social_employees"
	PhaseFetchingNews             Phase = "fetching_news"
	PhaseVerifyingCalendars       Phase = "verifying_calendars"
	PhaseValidatingResults        Phase = "validating_results"
	PhaseCompleted                Phase = "completed"
	PhaseFailed                   Phase = "failed"
)

// Role classifies a connection's seniority from their title.
type Role string

const (
	RoleDecisionMaker Role = "decision_maker"
	RoleManager       Role = "manager"
	RoleTeamMember    Role = "team_member"
	RoleUnknown       Role = "unknown"
)

// rolePriority orders roles for connection ranking.
var rolePriority = map[Role]int{
	RoleDecisionMaker: 0,
	RoleManager:       1,
	RoleTeamMember:    2,
	RoleUnknown:       3,
}

// MatchType classifies how a connection's employment was verified.
type MatchType string

const (
	MatchExplicitEmployment MatchType = "explicit_employment"
	MatchTitleMatch         MatchType = "title_match"
	MatchCompanyMention     MatchType = "company_mention"
	MatchUnverified         MatchType = "unverified"
)

// Provenance records which search pass produced a connection.
type Provenance string

const (
	ViaCompanySearch  Provenance = "company_employee_search"
	ViaFestivalSearch Provenance = "festival_search"
	ViaGeneralSearch  Provenance = "general_search"
)

// EmploymentVerification is the pattern-based employment judgment for one
// connection.
type EmploymentVerification struct {
	MatchType  MatchType `json:"matchType"`
	Confidence float64   `json:"confidence"`
	Evidence   []string  `json:"evidence,omitempty"`
}

// Connection is a candidate person associated with the organizing company or
// the festival. Connections are never mutated after creation; a re-run of the
// employee phase replaces the whole list.
type Connection struct {
	Name               string                     `json:"name"`
	Title              string                     `json:"title,omitempty"`
	ProfileURL         string                     `json:"profileUrl"`
	Company            string                     `json:"company,omitempty"`
	Role               Role                       `json:"role"`
	EmploymentVerified bool                       `json:"employmentVerified"`
	Employment         EmploymentVerification     `json:"employment"`
	DiscoveredVia      Provenance                 `json:"discoveredVia"`
	SearchConfidence   float64                    `json:"searchConfidence"`
	Validation         *validate.PersonValidation `json:"validation,omitempty"`
}

// Company is the discovered organizing entity.
type Company struct {
	Name               string  `json:"name"`
	Confidence         float64 `json:"confidence"`
	RegistrationNumber string  `json:"registrationNumber,omitempty"`
	Validated          bool    `json:"validated"`
	ValidationDetail   string  `json:"validationDetail,omitempty"`
}

// CompanyPage is the organizing company's page on the social network.
type CompanyPage struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Verified    bool   `json:"verified"`
}

// NewsArticle is one piece of discovered coverage.
type NewsArticle struct {
	URL           string  `json:"url"`
	Title         string  `json:"title,omitempty"`
	Summary       string  `json:"summary,omitempty"`
	PublishedYear int     `json:"publishedYear,omitempty"`
	Relevant      bool    `json:"relevant"`
	Confidence    float64 `json:"confidence"`
}

// CalendarSource records the festival's presence on one calendar site.
type CalendarSource struct {
	Site        string `json:"site"`
	URL         string `json:"url"`
	Found       bool   `json:"found"`
	EditionYear int    `json:"editionYear,omitempty"`
	Current     bool   `json:"current"`
}

// Diagnostic is one entry of the append-only error/warning log.
type Diagnostic struct {
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ResearchState is the single mutable record of one research run. It is
// owned exclusively by the orchestrator that created it; never share one
// across concurrent runs.
type ResearchState struct {
	FestivalID   string `json:"festivalId"`
	FestivalName string `json:"festivalName"`
	FestivalURL  string `json:"festivalUrl,omitempty"`

	Phase         Phase     `json:"phase"`
	StartedAt     time.Time `json:"startedAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	Attempts      int       `json:"attempts"`

	WebsiteURL      string           `json:"websiteUrl,omitempty"`
	Company         *Company         `json:"company,omitempty"`
	CompanyPage     *CompanyPage     `json:"companyPage,omitempty"`
	Connections     []Connection     `json:"connections,omitempty"`
	NewsArticles    []NewsArticle    `json:"newsArticles,omitempty"`
	CalendarSources []CalendarSource `json:"calendarSources,omitempty"`

	Errors   []Diagnostic `json:"errors,omitempty"`
	Warnings []Diagnostic `json:"warnings,omitempty"`

	OverallConfidence float64              `json:"overallConfidence"`
	ConfidenceLevel   string               `json:"confidenceLevel,omitempty"`
	Confidence        *scoring.Confidence  `json:"confidence,omitempty"`
	Quality           *scoring.QualityScore `json:"quality,omitempty"`
}

// snapshot projects the accumulated findings into the scoring input.
func (s *ResearchState) snapshot(currentYear int) scoring.Snapshot {
	snap := scoring.Snapshot{
		WebsiteFound:     s.WebsiteURL != "",
		CompanyPageFound: s.CompanyPage != nil,
		ConnectionCount:  len(s.Connections),
		NewsCount:        len(s.NewsArticles),
	}
	if s.Company != nil {
		snap.CompanyFound = true
		snap.CompanyConfidence = s.Company.Confidence
		snap.HasRegistrationNumber = s.Company.RegistrationNumber != ""
	}

	var confSum float64
	for _, c := range s.Connections {
		if c.EmploymentVerified {
			snap.VerifiedCount++
		}
		if c.Role == RoleDecisionMaker {
			snap.DecisionMakerCount++
		}
		confSum += c.SearchConfidence
	}
	if len(s.Connections) > 0 {
		snap.SearchConfidence = confSum / float64(len(s.Connections))
	}

	for _, a := range s.NewsArticles {
		if a.PublishedYear >= currentYear-1 {
			snap.RecentNewsCount++
		}
	}
	for _, c := range s.CalendarSources {
		if c.Found {
			snap.CalendarsFound++
		}
		if c.Current {
			snap.CalendarCurrent = true
		}
	}
	return snap
}

// findingsSummary projects the state into the validation service's input.
func (s *ResearchState) findingsSummary(currentYear int) validate.FindingsSummary {
	snap := s.snapshot(currentYear)
	return validate.FindingsSummary{
		FestivalName:       s.FestivalName,
		WebsiteFound:       snap.WebsiteFound,
		CompanyFound:       snap.CompanyFound,
		CompanyConfidence:  snap.CompanyConfidence,
		CompanyPageFound:   snap.CompanyPageFound,
		ConnectionCount:    snap.ConnectionCount,
		VerifiedCount:      snap.VerifiedCount,
		DecisionMakerCount: snap.DecisionMakerCount,
		NewsCount:          snap.NewsCount,
		CalendarCount:      snap.CalendarsFound,
	}
}
