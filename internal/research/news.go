package research

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Domains whose hits are social chatter, not coverage.
var socialDomains = []string{
	"facebook.com", "instagram.com", "linkedin.com", "twitter.com", "x.com",
	"youtube.com", "tiktok.com", "reddit.com",
}

const rawSummaryLen = 300

// fetchNews searches for recent coverage and returns up to MaxNewsArticles
// articles with fetched content. Computed into a local slice; the caller
// applies it to the state.
func (o *Orchestrator) fetchNews(ctx context.Context) ([]NewsArticle, error) {
	year := o.nowFunc().Year()

	query := fmt.Sprintf(`"%s" festival %d news OR review`, o.state.FestivalName, year)
	if o.state.Company != nil {
		query = fmt.Sprintf(`"%s" "%s" festival %d news OR review`,
			o.state.FestivalName, o.state.Company.Name, year)
	}

	results, err := o.runSearch(ctx, query, 15)
	if err != nil {
		return nil, err
	}

	var articles []NewsArticle
	for _, r := range results {
		if len(articles) >= o.cfg.MaxNewsArticles {
			break
		}
		if hostMatchesAny(r.URL, socialDomains) {
			continue
		}

		article := NewsArticle{
			URL:           r.URL,
			Title:         r.Title,
			PublishedYear: yearHint(r.Title + " " + r.Snippet),
		}

		text, err := o.fetchContent(ctx, r.URL)
		if err != nil {
			zap.L().Debug("article fetch failed, keeping search metadata only",
				zap.String("url", r.URL),
				zap.Error(err),
			)
			article.Summary = r.Snippet
			articles = append(articles, article)
			continue
		}

		if article.PublishedYear == 0 {
			article.PublishedYear = yearHint(text[:min(len(text), 2000)])
		}
		o.summarizeArticle(ctx, &article, text)
		articles = append(articles, article)
	}
	return articles, nil
}

// summarizeArticle fills Summary, Relevant, and Confidence, using the AI
// judgment when available and a raw text prefix otherwise.
func (o *Orchestrator) summarizeArticle(ctx context.Context, a *NewsArticle, text string) {
	if o.validator != nil && o.validator.Available() {
		v := o.validator.ValidateContent(ctx, text, o.state.FestivalName)
		if v.Summary != "" {
			a.Summary = v.Summary
			a.Relevant = v.IsRelevant
			a.Confidence = v.Confidence
			return
		}
	}

	summary := strings.Join(strings.Fields(text), " ")
	if len(summary) > rawSummaryLen {
		summary = summary[:rawSummaryLen] + "…"
	}
	a.Summary = summary
	// Without a judgment, presence in a scoped search is the only relevance
	// signal we have.
	a.Relevant = strings.Contains(foldName(text), foldName(o.state.FestivalName))
	a.Confidence = 0.5
}

var yearRe = regexp.MustCompile(`\b(20\d{2})\b`)

// yearHint extracts the most recent plausible publication year mentioned in
// text, zero when none appears.
func yearHint(text string) int {
	best := 0
	for _, m := range yearRe.FindAllString(text, -1) {
		y, _ := strconv.Atoi(m)
		if y > best {
			best = y
		}
	}
	return best
}
