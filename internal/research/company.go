package research

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Pages most likely to name the legal entity, best candidates first. Dutch
// sites put the KvK number on the privacy page far more often than on the
// homepage.
var companyPagePaths = []string{"", "/privacy", "/contact", "/about", "/over-ons"}

// maxCompanyPages caps how many candidate paths one extraction pass attempts,
// whether or not the fetches succeed.
const maxCompanyPages = 3

// extractCompany fetches up to maxCompanyPages pages of the festival website,
// tallies extracted company-name candidates, and records the winner with a
// count-derived confidence.
func (o *Orchestrator) extractCompany(ctx context.Context) error {
	if o.state.WebsiteURL == "" {
		return eris.New("research: no website to extract a company from")
	}
	base := strings.TrimRight(o.state.WebsiteURL, "/")

	type tallyEntry struct {
		display string
		count   int
	}
	tally := map[string]*tallyEntry{}
	var regNum string
	var firstPageText string

	fetched := 0
	for _, path := range companyPagePaths[:maxCompanyPages] {
		text, err := o.fetchContent(ctx, base+path)
		if err != nil {
			zap.L().Debug("company page fetch failed",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		fetched++
		if firstPageText == "" {
			firstPageText = text
		}

		for _, c := range o.patterns.Extract(text) {
			key := foldName(c.Name)
			if e, ok := tally[key]; ok {
				e.count++
			} else {
				tally[key] = &tallyEntry{display: c.Name, count: 1}
			}
		}
		if regNum == "" {
			regNum = o.patterns.RegistrationNumber(text)
		}
	}

	if fetched == 0 {
		return eris.Errorf("research: no pages retrievable from %s", base)
	}

	var best *tallyEntry
	for _, e := range tally {
		if best == nil || e.count > best.count {
			best = e
		}
	}
	if best == nil {
		return eris.New("research: no company candidates extracted")
	}

	conf := math.Min(0.3+0.2*float64(best.count), 0.9)
	if regNum != "" {
		conf = math.Min(conf+0.2, 1.0)
	}
	company := &Company{
		Name:               best.display,
		Confidence:         conf,
		RegistrationNumber: regNum,
	}

	if o.validator != nil && o.validator.Available() {
		v := o.validator.ValidateCompany(ctx, company.Name, o.state.FestivalName, firstPageText)
		if v.Judged() {
			company.Validated = v.IsValid
			company.ValidationDetail = v.Reasoning
			if !v.IsValid {
				company.Confidence = math.Min(company.Confidence, 0.3)
				o.warn(PhaseExtractingCompany,
					eris.Errorf("research: AI rejected company candidate %q: %s", company.Name, v.Reasoning))
			}
		}
	}

	o.mutate(func(s *ResearchState) { s.Company = company })
	return nil
}
