package research

import (
	"context"
	"net/url"
	"regexp"

	"github.com/rotisserie/eris"
)

// Domains that can never be a festival's own website. Social networks,
// ticketing platforms, and the calendar sites probed later.
var excludedWebsiteDomains = []string{
	"facebook.com", "instagram.com", "linkedin.com", "twitter.com", "x.com",
	"youtube.com", "tiktok.com", "wikipedia.org",
	"ticketmaster.nl", "ticketmaster.com", "eventbrite.com", "eventbrite.nl",
	"ticketswap.com", "ticketswap.nl", "songkick.com", "bandsintown.com",
	"festivalinfo.nl", "festileaks.com", "partyflock.nl", "eblive.nl",
	"festivalfans.nl",
}

// discoverWebsite resolves the festival's official website. A seed URL on the
// state wins outright; otherwise the first non-excluded search hit does.
func (o *Orchestrator) discoverWebsite(ctx context.Context) error {
	if o.state.FestivalURL != "" {
		o.mutate(func(s *ResearchState) { s.WebsiteURL = s.FestivalURL })
		return nil
	}

	query := `"` + o.state.FestivalName + `" festival official website`
	results, err := o.runSearch(ctx, query, 10)
	if err != nil {
		return err
	}

	for _, r := range results {
		if hostMatchesAny(r.URL, excludedWebsiteDomains) {
			continue
		}
		found := r.URL
		o.mutate(func(s *ResearchState) { s.WebsiteURL = found })
		return nil
	}

	// Search produced nothing usable; one content-retrieval pass against a
	// plain web search page sometimes still surfaces the site.
	return o.discoverWebsiteFallback(ctx)
}

var anyURLRe = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)

func (o *Orchestrator) discoverWebsiteFallback(ctx context.Context) error {
	page := "https://duckduckgo.com/html/?q=" + url.QueryEscape(o.state.FestivalName+" festival")
	text, err := o.fetchContent(ctx, page)
	if err != nil {
		return eris.Wrap(err, "research: website discovery fallback")
	}

	for _, u := range anyURLRe.FindAllString(text, -1) {
		if hostMatchesAny(u, excludedWebsiteDomains) || hostOf(u) == "duckduckgo.com" {
			continue
		}
		found := u
		o.mutate(func(s *ResearchState) { s.WebsiteURL = found })
		return nil
	}
	return eris.Errorf("research: no website found for %s", o.state.FestivalName)
}
