package analyzer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// ErrInvalidStoreURL marks a competitor URL that is not a smartstore link.
var ErrInvalidStoreURL = errors.New("not a smartstore url")

// maxCompetitorAnalyzed bounds how many top keywords get the full pipeline.
const maxCompetitorAnalyzed = 10

var (
	storeIDPattern   = regexp.MustCompile(`smartstore\.naver\.com/([^/?]+)`)
	titleWordPattern = regexp.MustCompile(`[가-힣a-zA-Z]+`)
)

// KeywordFrequency is one extracted keyword with its occurrence count
// across the competitor's product titles.
type KeywordFrequency struct {
	Keyword   string `json:"keyword"`
	Frequency int    `json:"frequency"`
}

// CompetitorKeyword is a frequency-ranked keyword after the full pipeline.
type CompetitorKeyword struct {
	Keyword      string  `json:"keyword"`
	Frequency    int     `json:"frequency"`
	SearchVolume float64 `json:"search_volume"`
	Competition  float64 `json:"competition"`
	Importance   float64 `json:"importance"`
	Opportunity  float64 `json:"opportunity"`
}

// CompetitorResult is the outcome of one competitor store analysis.
type CompetitorResult struct {
	CompetitorURL    string              `json:"competitor_url"`
	StoreID          string              `json:"store_id"`
	Keywords         []string            `json:"keywords"`
	TopKeywords      []KeywordFrequency  `json:"top_keywords"`
	AnalyzedKeywords []CompetitorKeyword `json:"analyzed_keywords"`
}

// AnalyzeCompetitor scrapes a competitor smartstore's product titles,
// extracts candidate keywords, ranks them by frequency and runs the
// single-keyword pipeline on the top ten. Candidates are analyzed only,
// never persisted.
func (a *Analyzer) AnalyzeCompetitor(ctx context.Context, storeURL string, limit int) (*CompetitorResult, error) {
	if limit <= 0 {
		limit = 20
	}

	match := storeIDPattern.FindStringSubmatch(storeURL)
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStoreURL, storeURL)
	}

	result := &CompetitorResult{CompetitorURL: storeURL, StoreID: match[1]}
	a.log.WithFields(logrus.Fields{"store": result.StoreID, "limit": limit}).Info("competitor analysis started")

	products, err := a.scraper.FetchStoreProducts(ctx, storeURL)
	if err != nil {
		return nil, fmt.Errorf("fetch store products for %q: %w", result.StoreID, err)
	}

	for _, product := range products {
		result.Keywords = append(result.Keywords, titleKeywords(product.Title)...)
	}
	result.TopKeywords = rankByFrequency(result.Keywords, limit)

	for i, top := range result.TopKeywords {
		if i == maxCompetitorAnalyzed {
			break
		}
		res := a.analyzeSingle(ctx, top.Keyword, "", Options{UseAPI: true})
		competition := 0.0
		if res.Record.Competition != nil {
			competition = *res.Record.Competition
		}
		result.AnalyzedKeywords = append(result.AnalyzedKeywords, CompetitorKeyword{
			Keyword:      top.Keyword,
			Frequency:    top.Frequency,
			SearchVolume: res.Record.AvgSearchVolume,
			Competition:  competition,
			Importance:   res.Metrics.Importance,
			Opportunity:  res.Metrics.Opportunity,
		})
	}

	a.log.WithFields(logrus.Fields{
		"store":    result.StoreID,
		"keywords": len(result.Keywords),
		"analyzed": len(result.AnalyzedKeywords),
	}).Info("competitor analysis finished")
	return result, nil
}

// titleKeywords splits a product title into words of at least two
// characters plus each adjacent two-word combination.
func titleKeywords(title string) []string {
	var words []string
	for _, w := range titleWordPattern.FindAllString(title, -1) {
		if utf8.RuneCountInString(w) >= 2 {
			words = append(words, w)
		}
	}
	keywords := make([]string, 0, len(words)*2)
	keywords = append(keywords, words...)
	for i := 0; i+1 < len(words); i++ {
		keywords = append(keywords, words[i]+" "+words[i+1])
	}
	return keywords
}

// rankByFrequency counts occurrences and returns the top keywords by count,
// first-seen order breaking ties.
func rankByFrequency(keywords []string, limit int) []KeywordFrequency {
	counts := make(map[string]int)
	var order []string
	for _, kw := range keywords {
		if counts[kw] == 0 {
			order = append(order, kw)
		}
		counts[kw]++
	}

	ranked := make([]KeywordFrequency, 0, len(order))
	for _, kw := range order {
		ranked = append(ranked, KeywordFrequency{Keyword: kw, Frequency: counts[kw]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Frequency > ranked[j].Frequency
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
