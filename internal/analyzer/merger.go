package analyzer

import (
	"keyword-analyzer/internal/sources"
)

// MergedRecord is the single combined record used for scoring and
// persistence after both sources have contributed.
type MergedRecord struct {
	Keyword         string                     `json:"keyword"`
	Category        string                     `json:"category,omitempty"`
	TrendSeries     []sources.TrendObservation `json:"search_volume"`
	AvgSearchVolume float64                    `json:"avg_search_volume"`
	Competition     *float64                   `json:"competition"`
	Related         []sources.RelatedTerm      `json:"related_keywords"`
	Products        []sources.ProductListing   `json:"products"`
	TotalProducts   int                        `json:"total_products"`
	AdKeywords      []sources.AdListing        `json:"ad_keywords"`
}

// Merge combines the two partial records with field-level precedence: for
// every field the API value wins when present and non-empty, otherwise the
// scrape value is taken. Arrays win wholesale, never concatenated, so a
// single source's ranking stays internally consistent. Ad keywords are the
// one exception: the API has no ad endpoint, so they always come from the
// scrape record. Both inputs may be nil; the merge is deterministic and
// independent of which source finished first.
func Merge(api, scrape *sources.PartialRecord) MergedRecord {
	var merged MergedRecord
	if api == nil {
		api = &sources.PartialRecord{}
	}
	if scrape == nil {
		scrape = &sources.PartialRecord{}
	}

	merged.Keyword = api.Keyword
	if merged.Keyword == "" {
		merged.Keyword = scrape.Keyword
	}

	merged.TrendSeries = api.TrendSeries
	if len(merged.TrendSeries) == 0 {
		merged.TrendSeries = scrape.TrendSeries
	}

	merged.AvgSearchVolume = api.AvgSearchVolume
	if merged.AvgSearchVolume == 0 {
		merged.AvgSearchVolume = scrape.AvgSearchVolume
	}

	merged.Competition = api.Competition
	if merged.Competition == nil {
		merged.Competition = scrape.Competition
	}

	merged.Related = api.Related
	if len(merged.Related) == 0 {
		merged.Related = scrape.Related
	}

	merged.Products = api.Products
	if len(merged.Products) == 0 {
		merged.Products = scrape.Products
	}

	merged.TotalProducts = api.TotalProducts
	if merged.TotalProducts == 0 {
		merged.TotalProducts = scrape.TotalProducts
	}

	// Ad data is scrape-only regardless of which source won the rest.
	merged.AdKeywords = scrape.AdKeywords

	return merged
}
