package research

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// SearchResult is one organic hit from the web-search task, flattened from
// whichever envelope the scraper emits.
type SearchResult struct {
	URL     string
	Title   string
	Snippet string
}

// runSearch executes the web-search task for one query and flattens the
// results. A failed task surfaces as an error; the phase decides whether that
// degrades or aborts.
func (o *Orchestrator) runSearch(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	input := map[string]any{
		"queries":          query,
		"maxPagesPerQuery": 1,
		"resultsPerPage":   maxResults,
	}
	res := o.runner.Run(ctx, o.cfg.SearchTaskID, input, o.taskOpts())
	if !res.Success {
		return nil, eris.Wrapf(res.Err, "research: search %q", query)
	}
	return parseSearchItems(res.Data), nil
}

// parseSearchItems accepts both shapes the search scraper produces: one item
// per query holding an organicResults array, or one flat item per hit.
func parseSearchItems(items []map[string]any) []SearchResult {
	var out []SearchResult
	for _, item := range items {
		if organic, ok := item["organicResults"].([]any); ok {
			for _, r := range organic {
				m, ok := r.(map[string]any)
				if !ok {
					continue
				}
				if sr := itemToResult(m); sr.URL != "" {
					out = append(out, sr)
				}
			}
			continue
		}
		if sr := itemToResult(item); sr.URL != "" {
			out = append(out, sr)
		}
	}
	return out
}

func itemToResult(m map[string]any) SearchResult {
	return SearchResult{
		URL:     stringField(m, "url", "link"),
		Title:   stringField(m, "title"),
		Snippet: stringField(m, "description", "snippet"),
	}
}

// fetchContent executes the content-retrieval task for one URL and returns
// the extracted page text.
func (o *Orchestrator) fetchContent(ctx context.Context, url string) (string, error) {
	input := map[string]any{
		"startUrls":     []map[string]any{{"url": url}},
		"maxCrawlDepth": 0,
	}
	res := o.runner.Run(ctx, o.cfg.ContentTaskID, input, o.taskOpts())
	if !res.Success {
		return "", eris.Wrapf(res.Err, "research: fetch content %s", url)
	}
	for _, item := range res.Data {
		if text := stringField(item, "text", "markdown", "content"); text != "" {
			return text, nil
		}
	}
	return "", eris.Errorf("research: no text content for %s", url)
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

var urlHostRe = regexp.MustCompile(`^https?://([^/?#]+)`)

// hostOf extracts the lowercased host from a URL, stripping a www prefix.
func hostOf(rawURL string) string {
	m := urlHostRe.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return ""
	}
	host := strings.ToLower(m[1])
	return strings.TrimPrefix(host, "www.")
}

// hostMatchesAny reports whether the URL's host is, or is a subdomain of, any
// of the given domains.
func hostMatchesAny(rawURL string, domains []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
