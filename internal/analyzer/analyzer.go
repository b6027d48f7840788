package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"keyword-analyzer/internal/sources"
	"keyword-analyzer/internal/storage"
)

// maxFanOut caps how many related keywords one analysis run expands into.
const maxFanOut = 10

// ScrapeClient is the scrape source plus its page-specific entry points:
// the ad-only visit that runs even when the API supplied everything else,
// and the competitor store listing.
type ScrapeClient interface {
	sources.Source
	FetchAds(ctx context.Context, keyword string) ([]sources.AdListing, error)
	FetchStoreProducts(ctx context.Context, storeURL string) ([]sources.StoreProduct, error)
}

// ProgressUpdate is one stage notification for a running analysis.
type ProgressUpdate struct {
	Keyword       string `json:"keyword"`
	Stage         string `json:"stage"`
	Progress      int    `json:"progress"`
	ProductsCount int    `json:"products_count"`
	RelatedCount  int    `json:"related_keywords_count"`
	Error         string `json:"error,omitempty"`
}

// Notifier receives progress updates. Implementations must not block.
type Notifier interface {
	Publish(update ProgressUpdate)
}

// KeywordResult is the outcome for one keyword, kept in memory regardless
// of whether persistence succeeded.
type KeywordResult struct {
	Keyword       string       `json:"keyword"`
	Category      string       `json:"category,omitempty"`
	APISuccess    bool         `json:"api_success"`
	ScrapeSuccess bool         `json:"scrape_success"`
	Record        MergedRecord `json:"data"`
	Metrics       Metrics      `json:"metrics"`
	Duration      float64      `json:"duration_seconds"`
}

// Failed reports a dual-source failure.
func (r *KeywordResult) Failed() bool {
	return !r.APISuccess && !r.ScrapeSuccess
}

// AnalysisResult is the full outcome of one AnalyzeKeyword call, including
// every related keyword expanded at depth greater than one.
type AnalysisResult struct {
	MainKeyword     string                    `json:"main_keyword"`
	Category        string                    `json:"category,omitempty"`
	Keywords        map[string]*KeywordResult `json:"keywords"`
	RelatedKeywords []string                  `json:"related_keywords"`
	TotalKeywords   int                       `json:"total_keywords"`
	Duration        float64                   `json:"duration_seconds"`
}

// Options controls one analysis run.
type Options struct {
	Depth    int
	UseAPI   bool
	MaxPages int
}

// Analyzer orchestrates the hybrid collection pipeline: API first, scrape
// as fallback, merge, score, persist.
type Analyzer struct {
	store    storage.Store
	api      sources.Source
	scraper  ScrapeClient
	notifier Notifier
	log      *logrus.Logger
}

func New(store storage.Store, api sources.Source, scraper ScrapeClient, log *logrus.Logger) *Analyzer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{store: store, api: api, scraper: scraper, log: log}
}

// SetNotifier attaches a progress sink. Safe to leave unset.
func (a *Analyzer) SetNotifier(n Notifier) {
	a.notifier = n
}

func (a *Analyzer) publish(u ProgressUpdate) {
	if a.notifier != nil {
		a.notifier.Publish(u)
	}
}

// AnalyzeKeyword runs the full pipeline for one keyword. With Depth above
// one, up to ten of its related keywords are analyzed concurrently and
// joined before the result is assembled. Scrape calls serialize internally
// on the shared session, so only the API legs overlap in practice.
func (a *Analyzer) AnalyzeKeyword(ctx context.Context, keyword, category string, opts Options) (*AnalysisResult, error) {
	start := time.Now()
	a.log.WithFields(logrus.Fields{"keyword": keyword, "depth": opts.Depth}).Info("starting keyword analysis")

	main := a.analyzeSingle(ctx, keyword, category, opts)

	result := &AnalysisResult{
		MainKeyword: keyword,
		Category:    category,
		Keywords:    map[string]*KeywordResult{keyword: main},
	}
	for _, term := range main.Record.Related {
		result.RelatedKeywords = append(result.RelatedKeywords, term.Keyword)
	}

	if opts.Depth > 1 && len(main.Record.Related) > 0 {
		related := make([]string, 0, maxFanOut)
		for _, term := range main.Record.Related {
			if term.Keyword == keyword {
				continue
			}
			related = append(related, term.Keyword)
			if len(related) == maxFanOut {
				break
			}
		}

		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for _, rel := range related {
			wg.Add(1)
			go func(kw string) {
				defer wg.Done()
				res := a.analyzeSingle(ctx, kw, category, opts)
				mu.Lock()
				result.Keywords[kw] = res
				mu.Unlock()
			}(rel)
		}
		wg.Wait()
	}

	for _, res := range result.Keywords {
		if !res.Failed() {
			a.saveResult(res)
		}
	}

	result.TotalKeywords = len(result.Keywords)
	result.Duration = round2(time.Since(start).Seconds())
	a.log.WithFields(logrus.Fields{
		"keyword":  keyword,
		"keywords": result.TotalKeywords,
		"duration": result.Duration,
	}).Info("keyword analysis finished")
	return result, nil
}

// analyzeSingle runs the per-keyword state machine: try the API, fall back
// to the scrape, merge, score. Every attempt leaves a collection log entry;
// a dual failure still returns a result so batch callers see every keyword.
func (a *Analyzer) analyzeSingle(ctx context.Context, keyword, category string, opts Options) *KeywordResult {
	start := time.Now()
	res := &KeywordResult{Keyword: keyword, Category: category}
	a.publish(ProgressUpdate{Keyword: keyword, Stage: "collecting", Progress: 10})

	var apiRec, scrapeRec *sources.PartialRecord
	fetchOpts := sources.FetchOptions{MaxPages: opts.MaxPages}

	if opts.UseAPI {
		rec, err := a.api.Fetch(ctx, keyword, fetchOpts)
		if err != nil {
			a.log.WithError(err).WithField("keyword", keyword).Warn("api collection failed, falling back to scrape")
		} else {
			apiRec = rec
			res.APISuccess = true
			a.appendLog(keyword, "api", "success", "", rec, start)
		}
	}
	a.publish(ProgressUpdate{Keyword: keyword, Stage: "collecting", Progress: 40})

	if res.APISuccess {
		// The API has no ad endpoint, so ads always come from the page.
		ads, err := a.scraper.FetchAds(ctx, keyword)
		if err != nil {
			a.log.WithError(err).WithField("keyword", keyword).Debug("ad keyword scrape failed")
		} else if len(ads) > 0 {
			scrapeRec = &sources.PartialRecord{Keyword: keyword, AdKeywords: ads}
		}
	} else {
		rec, err := a.scraper.Fetch(ctx, keyword, fetchOpts)
		if err != nil {
			a.log.WithError(err).WithField("keyword", keyword).Error("scrape collection failed")
			a.appendLog(keyword, "both", "failure", err.Error(), nil, start)
		} else {
			scrapeRec = rec
			res.ScrapeSuccess = true
			a.appendLog(keyword, "scrape", "success", "", rec, start)
		}
	}

	a.publish(ProgressUpdate{Keyword: keyword, Stage: "merging", Progress: 70})
	res.Record = Merge(apiRec, scrapeRec)
	res.Record.Keyword = keyword
	res.Record.Category = category
	res.Metrics = Compute(res.Record)
	res.Duration = round2(time.Since(start).Seconds())

	update := ProgressUpdate{
		Keyword:       keyword,
		Stage:         "done",
		Progress:      100,
		ProductsCount: len(res.Record.Products),
		RelatedCount:  len(res.Record.Related),
	}
	if res.Failed() {
		update.Stage = "failed"
		update.Error = "no source produced data"
	}
	a.publish(update)
	return res
}

func (a *Analyzer) appendLog(keyword, source, status, details string, rec *sources.PartialRecord, start time.Time) {
	entry := storage.LogEntry{
		Keyword:  keyword,
		Source:   source,
		Status:   status,
		Details:  details,
		Duration: round2(time.Since(start).Seconds()),
	}
	if rec != nil {
		entry.ProductsCount = len(rec.Products)
		entry.RelatedCount = len(rec.Related)
	}
	if err := a.store.AppendLog(entry); err != nil {
		a.log.WithError(err).Warn("failed to append collection log")
	}
}

// saveResult persists one keyword result. Persistence is best effort; a
// storage error is logged and the in-memory result stays intact.
func (a *Analyzer) saveResult(res *KeywordResult) {
	competition := 0.0
	if res.Record.Competition != nil {
		competition = *res.Record.Competition
	}
	var category *string
	if res.Category != "" {
		category = &res.Category
	}

	id, err := a.store.UpsertKeyword(res.Keyword, category, res.Record.AvgSearchVolume, competition)
	if err != nil {
		a.log.WithError(err).WithField("keyword", res.Keyword).Error("failed to save keyword")
		return
	}
	if err := a.store.UpsertRelatedKeywords(id, res.Record.Related); err != nil {
		a.log.WithError(err).WithField("keyword", res.Keyword).Error("failed to save related keywords")
	}
	if err := a.store.UpsertProducts(id, res.Record.Products); err != nil {
		a.log.WithError(err).WithField("keyword", res.Keyword).Error("failed to save products")
	}
	if err := a.store.UpsertTrendPoints(id, res.Record.TrendSeries); err != nil {
		a.log.WithError(err).WithField("keyword", res.Keyword).Error("failed to save trend points")
	}
	for _, ad := range res.Record.AdKeywords {
		if ad.Title == "" {
			continue
		}
		if err := a.store.UpsertAdKeyword(ad.Title); err != nil {
			a.log.WithError(err).WithField("keyword", res.Keyword).Error("failed to save ad keyword")
		}
	}
}
