package research

import (
	"regexp"
	"strings"
)

// Employment verification rules, applied in order; the first match wins.
// Confidence at or above verifiedThreshold marks the connection verified.
const verifiedThreshold = 0.7

type employmentRule struct {
	matchType  MatchType
	confidence float64
	// build compiles the rule against a quoted company name.
	build func(company string) *regexp.Regexp
}

var employmentRules = []employmentRule{
	{
		// "works at Acme", "employee at Acme"
		matchType:  MatchExplicitEmployment,
		confidence: 0.95,
		build: func(c string) *regexp.Regexp {
			return regexp.MustCompile(`(?i)\b(?:works? at|working at|employee (?:at|of)|werkzaam bij|werkt bij)\s+` + c)
		},
	},
	{
		// "Director at Acme", "oprichter van Acme"
		matchType:  MatchTitleMatch,
		confidence: 0.9,
		build: func(c string) *regexp.Regexp {
			return regexp.MustCompile(`(?i)\b(?:director|ceo|founder|co-founder|owner|manager|head|lead|oprichter|directeur|eigenaar|bestuurder)\b[^.\n]{0,40}?\b(?:at|of|@|bij|van)\s+` + c)
		},
	},
	{
		// bare "at Acme" / "bij Acme" with no recognized title
		matchType:  MatchExplicitEmployment,
		confidence: 0.7,
		build: func(c string) *regexp.Regexp {
			return regexp.MustCompile(`(?i)\b(?:at|@|bij)\s+` + c)
		},
	},
	{
		// company named anywhere in the text
		matchType:  MatchCompanyMention,
		confidence: 0.4,
		build: func(c string) *regexp.Regexp {
			return regexp.MustCompile(`(?i)\b` + c)
		},
	},
}

// VerifyEmployment judges whether text (a search snippet plus the person's
// title line) ties the person to company. An empty company always comes back
// unverified.
func VerifyEmployment(text, company string) EmploymentVerification {
	if strings.TrimSpace(company) == "" || strings.TrimSpace(text) == "" {
		return EmploymentVerification{MatchType: MatchUnverified}
	}

	// Match on folded text so "Qurrent Fèsta B.V." still hits "Qurrent Festa".
	quoted := regexp.QuoteMeta(foldName(company))
	folded := foldName(text)

	for _, rule := range employmentRules {
		re := rule.build(quoted)
		if m := re.FindString(folded); m != "" {
			return EmploymentVerification{
				MatchType:  rule.matchType,
				Confidence: rule.confidence,
				Evidence:   []string{strings.TrimSpace(m)},
			}
		}
	}
	return EmploymentVerification{MatchType: MatchUnverified}
}

// Verified reports whether the match is strong enough to count as confirmed
// employment.
func (v EmploymentVerification) Verified() bool {
	return v.Confidence >= verifiedThreshold
}

// Role keyword sets, checked in seniority order. Dutch titles appear alongside
// English because most festival organizers in scope are Dutch.
var (
	decisionMakerKeywords = []string{
		"ceo", "chief executive", "founder", "co-founder", "owner", "director",
		"managing", "oprichter", "eigenaar", "directeur", "bestuurder",
	}
	managerKeywords = []string{
		"manager", "head of", "lead", "coordinator", "producer", "programmer",
		"programmeur", "hoofd",
	}
	teamKeywords = []string{
		"festival", "event", "booking", "marketing", "production", "productie",
		"operations", "artist", "stage", "crew",
	}
)

// ClassifyRole maps a person's title to a seniority bucket.
func ClassifyRole(title string) Role {
	t := foldName(title)
	if t == "" {
		return RoleUnknown
	}
	for _, kw := range decisionMakerKeywords {
		if strings.Contains(t, kw) {
			return RoleDecisionMaker
		}
	}
	for _, kw := range managerKeywords {
		if strings.Contains(t, kw) {
			return RoleManager
		}
	}
	for _, kw := range teamKeywords {
		if strings.Contains(t, kw) {
			return RoleTeamMember
		}
	}
	return RoleUnknown
}
