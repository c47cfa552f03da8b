package research

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// calendarSite is one festival listing site and its search URL shape.
type calendarSite struct {
	name      string
	searchURL string // fmt with the escaped festival name appended
}

// The Dutch festival calendar sites probed on every run.
var calendarSites = []calendarSite{
	{"festivalinfo.nl", "https://www.festivalinfo.nl/zoekresultaten/?q="},
	{"festileaks.com", "https://festileaks.com/?s="},
	{"partyflock.nl", "https://partyflock.nl/search?query="},
	{"eblive.nl", "https://www.eblive.nl/zoeken/?q="},
	{"festivalfans.nl", "https://festivalfans.nl/?s="},
}

// calendarProbeLimit bounds concurrent calendar fetches so one phase cannot
// monopolize the platform's rate budget.
const calendarProbeLimit = 2

// verifyCalendars probes each listing site for the festival. A site counts as
// found when the page text literally contains the festival name; the listing
// is current when an edition year at or after the current year appears.
// Results come back in the fixed site order regardless of probe timing.
func (o *Orchestrator) verifyCalendars(ctx context.Context) ([]CalendarSource, error) {
	currentYear := o.nowFunc().Year()
	escaped := url.QueryEscape(o.state.FestivalName)
	folded := foldName(o.state.FestivalName)

	var mu sync.Mutex
	sources := make([]CalendarSource, 0, len(calendarSites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(calendarProbeLimit)
	for _, site := range calendarSites {
		g.Go(func() error {
			src := CalendarSource{
				Site: site.name,
				URL:  site.searchURL + escaped,
			}
			text, err := o.fetchContent(gctx, src.URL)
			if err == nil && foldedContains(text, folded) {
				src.Found = true
				src.EditionYear = yearHint(text)
				src.Current = src.EditionYear >= currentYear
			}
			mu.Lock()
			sources = append(sources, src)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := make(map[string]int, len(calendarSites))
	for i, s := range calendarSites {
		order[s.name] = i
	}
	sort.Slice(sources, func(i, j int) bool {
		return order[sources[i].Site] < order[sources[j].Site]
	})
	return sources, ctx.Err()
}

func foldedContains(text, foldedNeedle string) bool {
	if foldedNeedle == "" {
		return false
	}
	return strings.Contains(foldName(text), foldedNeedle)
}
