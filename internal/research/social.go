package research

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	companyPageURLRe = regexp.MustCompile(`(?i)linkedin\.com/company/[^/?#]+`)
	profileURLRe     = regexp.MustCompile(`(?i)linkedin\.com/in/[^/?#]+`)
)

// Search confidence assigned per discovery pass. A hit from a company-scoped
// query is worth more than one that only matched the festival name.
const (
	companySearchConfidence  = 0.6
	festivalSearchConfidence = 0.4
)

// Relevance floors per discovery pass. An AI-judged candidate whose relevance
// confidence does not clear the floor for their provenance is dropped.
const (
	companyProvenanceFloor  = 0.4
	festivalProvenanceFloor = 0.3
)

func provenanceFloor(p Provenance) float64 {
	if p == ViaCompanySearch {
		return companyProvenanceFloor
	}
	return festivalProvenanceFloor
}

// searchCompanyPage finds the organizing company's page on the professional
// network. Queries scoped to the company name come first; a page found via
// the festival name only is recorded unverified.
func (o *Orchestrator) searchCompanyPage(ctx context.Context) error {
	type attempt struct {
		query    string
		verified bool
	}
	var attempts []attempt
	if o.state.Company != nil {
		attempts = append(attempts, attempt{
			query:    `site:linkedin.com/company "` + o.state.Company.Name + `"`,
			verified: true,
		})
	}
	attempts = append(attempts, attempt{
		query:    `site:linkedin.com/company "` + o.state.FestivalName + `"`,
		verified: false,
	})

	for _, a := range attempts {
		results, err := o.runSearch(ctx, a.query, 5)
		if err != nil {
			return err
		}
		for _, r := range results {
			if !companyPageURLRe.MatchString(r.URL) {
				continue
			}
			page := &CompanyPage{
				URL:         r.URL,
				Name:        cleanLinkedInTitle(r.Title),
				Description: r.Snippet,
				Verified:    a.verified,
			}
			o.mutate(func(s *ResearchState) { s.CompanyPage = page })
			return nil
		}
	}
	return eris.New("research: no company page found")
}

// searchEmployees runs two discovery passes over people profiles. The company
// pass requires an employment-rule match in the snippet; the festival pass
// accepts anyone whose profile surfaced for the festival name. Results are
// deduplicated by profile URL, validated, ranked, and truncated.
func (o *Orchestrator) searchEmployees(ctx context.Context) error {
	seen := map[string]bool{}
	var conns []Connection

	companyName := ""
	if o.state.Company != nil {
		companyName = o.state.Company.Name
	}

	if companyName != "" {
		results, err := o.runSearch(ctx, `site:linkedin.com/in "`+companyName+`"`, 20)
		if err != nil {
			o.warn(PhaseSearchingSocialEmployees, err)
		}
		for _, r := range results {
			c, ok := o.connectionFrom(r, companyName, ViaCompanySearch)
			if !ok || seen[c.ProfileURL] {
				continue
			}
			// Company pass keeps only snippet-verified candidates.
			if c.Employment.MatchType == MatchUnverified {
				continue
			}
			seen[c.ProfileURL] = true
			conns = append(conns, c)
		}
	}

	results, err := o.runSearch(ctx, `site:linkedin.com/in "`+o.state.FestivalName+`"`, 20)
	if err != nil {
		if len(conns) == 0 {
			return err
		}
		o.warn(PhaseSearchingSocialEmployees, err)
	}
	for _, r := range results {
		c, ok := o.connectionFrom(r, companyName, ViaFestivalSearch)
		if !ok || seen[c.ProfileURL] {
			continue
		}
		seen[c.ProfileURL] = true
		conns = append(conns, c)
	}

	if len(conns) == 0 {
		return eris.New("research: no connections found")
	}

	kept := conns[:0]
	for i := range conns {
		if o.judgeConnection(ctx, &conns[i]) {
			kept = append(kept, conns[i])
		}
	}
	conns = kept
	if len(conns) == 0 {
		return eris.New("research: no connections cleared validation")
	}

	sort.SliceStable(conns, func(i, j int) bool {
		if conns[i].EmploymentVerified != conns[j].EmploymentVerified {
			return conns[i].EmploymentVerified
		}
		return rolePriority[conns[i].Role] < rolePriority[conns[j].Role]
	})
	if len(conns) > o.cfg.MaxConnections {
		conns = conns[:o.cfg.MaxConnections]
	}

	o.mutate(func(s *ResearchState) { s.Connections = conns })
	return nil
}

// connectionFrom builds a Connection from one search hit. The LinkedIn title
// convention "Name - Title - Company | LinkedIn" supplies name and title.
func (o *Orchestrator) connectionFrom(r SearchResult, companyName string, via Provenance) (Connection, bool) {
	profile := profileURLRe.FindString(r.URL)
	if profile == "" {
		return Connection{}, false
	}

	name, title := splitLinkedInTitle(r.Title)
	if name == "" {
		return Connection{}, false
	}

	c := Connection{
		Name:          name,
		Title:         title,
		ProfileURL:    "https://www." + strings.ToLower(profile),
		Company:       companyName,
		Role:          ClassifyRole(title),
		DiscoveredVia: via,
	}
	if via == ViaCompanySearch {
		c.SearchConfidence = companySearchConfidence
	} else {
		c.SearchConfidence = festivalSearchConfidence
	}

	if companyName != "" {
		c.Employment = VerifyEmployment(r.Snippet+" "+r.Title, companyName)
		c.EmploymentVerified = c.Employment.Verified()
	} else {
		c.Employment = EmploymentVerification{MatchType: MatchUnverified}
	}
	return c, true
}

// judgeConnection applies the AI person judgment and reports whether the
// connection stays in the list. Candidates judged irrelevant, or relevant with
// confidence under their provenance floor, are dropped. Without a model, or
// when the judgment degraded to its default, everyone stays.
func (o *Orchestrator) judgeConnection(ctx context.Context, c *Connection) bool {
	if o.validator == nil || !o.validator.Available() {
		return true
	}
	v := o.validator.ValidatePerson(ctx, c.Name, c.Title, o.state.FestivalName, c.Company)
	if !v.Judged() {
		return true
	}
	c.Validation = &v
	if !v.IsRelevant || v.Confidence < provenanceFloor(c.DiscoveredVia) {
		return false
	}
	c.SearchConfidence = maxf(c.SearchConfidence, v.Confidence)
	if v.IsDecisionMaker && c.Role != RoleDecisionMaker {
		c.Role = RoleDecisionMaker
	}
	return true
}

// splitLinkedInTitle parses "Jane Doe - Festival Director - Acme | LinkedIn".
func splitLinkedInTitle(title string) (name, role string) {
	title = strings.TrimSuffix(strings.TrimSpace(title), "| LinkedIn")
	title = strings.TrimSpace(title)
	parts := strings.SplitN(title, " - ", 3)
	name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		role = strings.TrimSpace(parts[1])
	}
	return name, role
}

func cleanLinkedInTitle(title string) string {
	title = strings.TrimSuffix(strings.TrimSpace(title), "| LinkedIn")
	return strings.TrimSpace(title)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
