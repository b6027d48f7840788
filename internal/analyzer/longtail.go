package analyzer

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// longtailModifiers are the purchase-intent suffixes appended to related
// keywords when synthesizing longtail candidates.
var longtailModifiers = []string{
	"추천", "구매", "가격", "효과", "후기",
	"비교", "순위", "인기", "최저가", "할인",
}

// LongtailKeyword is one discovered low-competition candidate.
type LongtailKeyword struct {
	Keyword      string  `json:"keyword"`
	SearchVolume float64 `json:"search_volume"`
	Competition  float64 `json:"competition"`
	Importance   float64 `json:"importance"`
	Opportunity  float64 `json:"opportunity"`
}

// FindLongtailKeywords expands a seed keyword into candidates, analyzes each
// one and keeps those with competition at most 50 and average volume of at
// least 10, ordered by opportunity descending. The candidate set is the
// seed's related keywords plus each related keyword combined with a
// purchase-intent modifier, capped at limit.
func (a *Analyzer) FindLongtailKeywords(ctx context.Context, seed, category string, limit int) ([]LongtailKeyword, error) {
	if limit <= 0 {
		limit = 20
	}
	a.log.WithFields(logrus.Fields{"seed": seed, "limit": limit}).Info("longtail discovery started")

	seedRes := a.analyzeSingle(ctx, seed, category, Options{UseAPI: true})
	if seedRes.Failed() {
		a.log.WithField("seed", seed).Warn("seed keyword produced no data")
		return nil, nil
	}

	seen := map[string]bool{seed: true}
	candidates := make([]string, 0, limit)
	add := func(kw string) {
		if len(candidates) < limit && kw != "" && !seen[kw] {
			seen[kw] = true
			candidates = append(candidates, kw)
		}
	}
	for _, term := range seedRes.Record.Related {
		add(term.Keyword)
	}
	base := make([]string, len(candidates))
	copy(base, candidates)
	for _, kw := range base {
		for _, mod := range longtailModifiers {
			add(kw + " " + mod)
		}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []LongtailKeyword
	)
	for _, cand := range candidates {
		wg.Add(1)
		go func(kw string) {
			defer wg.Done()
			res := a.analyzeSingle(ctx, kw, category, Options{UseAPI: true})
			if res.Failed() {
				return
			}
			if !IsLongtail(res.Record.Competition, res.Record.AvgSearchVolume) {
				return
			}
			competition := 100.0
			if res.Record.Competition != nil {
				competition = *res.Record.Competition
			}
			mu.Lock()
			results = append(results, LongtailKeyword{
				Keyword:      kw,
				SearchVolume: res.Record.AvgSearchVolume,
				Competition:  competition,
				Importance:   res.Metrics.Importance,
				Opportunity:  res.Metrics.Opportunity,
			})
			mu.Unlock()
		}(cand)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Opportunity > results[j].Opportunity
	})
	a.log.WithFields(logrus.Fields{"seed": seed, "found": len(results)}).Info("longtail discovery finished")
	return results, nil
}
