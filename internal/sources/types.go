package sources

import (
	"context"
	"errors"
)

// ErrEmptyResult marks a fetch that completed without yielding any of the
// slices that count towards the success criterion (trend series, related
// keywords, products). The orchestrator falls back to the next source.
var ErrEmptyResult = errors.New("source returned no usable data")

// ErrSessionInit marks a scrape session that could not be started. The error
// is sticky: every scrape attempt in the same run fails immediately.
var ErrSessionInit = errors.New("scrape session initialization failed")

// TrendObservation is one point of a search-volume series. API-sourced points
// carry Ratio (relative search share), scraped points carry Volume; the
// pointer distinguishes the two shapes.
type TrendObservation struct {
	Date        string   `json:"date"`
	Volume      float64  `json:"volume"`
	Ratio       *float64 `json:"ratio,omitempty"`
	PCRatio     *float64 `json:"pc_ratio,omitempty"`
	MobileRatio *float64 `json:"mobile_ratio,omitempty"`
}

// Value returns the comparable magnitude of the observation regardless of
// which source produced it.
func (o TrendObservation) Value() float64 {
	if o.Ratio != nil {
		return *o.Ratio
	}
	return o.Volume
}

// RelatedTerm is a related keyword with its relation strength (0.0-1.0).
type RelatedTerm struct {
	Keyword  string  `json:"keyword"`
	Strength float64 `json:"strength"`
}

// ProductListing is one ranked product; rank is implied by slice position
// but recorded explicitly for persistence.
type ProductListing struct {
	Title       string  `json:"title"`
	Price       int     `json:"price"`
	Brand       string  `json:"brand"`
	Mall        string  `json:"mall"`
	URL         string  `json:"url"`
	ImageURL    string  `json:"image_url"`
	ReviewCount int     `json:"reviews"`
	Rating      float64 `json:"rating"`
	IsAd        bool    `json:"is_ad"`
	Rank        int     `json:"rank"`
}

// StoreProduct is one product listed on a competitor store page.
type StoreProduct struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// AdListing is one advertisement entry scraped from the search page.
type AdListing struct {
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Advertiser  string `json:"advertiser,omitempty"`
	Description string `json:"description,omitempty"`
}

// PartialRecord is one source's possibly-incomplete contribution for one
// keyword. Absent fields stay nil/empty; presence is explicit, never implied
// by zero values alone (Competition is a pointer for that reason).
type PartialRecord struct {
	Keyword         string             `json:"keyword"`
	TrendSeries     []TrendObservation `json:"search_volume"`
	AvgSearchVolume float64            `json:"avg_search_volume"`
	Competition     *float64           `json:"competition"`
	Related         []RelatedTerm      `json:"related_keywords"`
	Products        []ProductListing   `json:"products"`
	TotalProducts   int                `json:"total_products"`
	AdKeywords      []AdListing        `json:"ad_keywords"`
}

// Usable reports whether the record satisfies the source success criterion:
// at least one of the trend series, related keywords or products is present.
func (r *PartialRecord) Usable() bool {
	if r == nil {
		return false
	}
	return len(r.TrendSeries) > 0 || len(r.Related) > 0 || len(r.Products) > 0
}

// FetchOptions tune a single fetch.
type FetchOptions struct {
	// MaxPages bounds scrape pagination; zero means the source default.
	MaxPages int
}

// Source is the uniform contract over the two data sources. A fetch that
// yields nothing usable returns ErrEmptyResult rather than an empty record.
type Source interface {
	Name() string
	Fetch(ctx context.Context, keyword string, opts FetchOptions) (*PartialRecord, error)
}
