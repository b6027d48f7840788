package storage

import (
	"time"

	"keyword-analyzer/internal/models"
	"keyword-analyzer/internal/sources"
)

// RelatedInfo is one related keyword with its relation strength.
type RelatedInfo struct {
	Keyword  string  `json:"keyword"`
	Strength float64 `json:"strength"`
}

// KeywordData is the full stored view of one keyword.
type KeywordData struct {
	ID           uint                 `json:"id"`
	Keyword      string               `json:"keyword"`
	Category     *string              `json:"category"`
	SearchVolume float64              `json:"search_volume"`
	Competition  float64              `json:"competition"`
	Related      []RelatedInfo        `json:"related_keywords"`
	Products     []models.Product     `json:"products"`
	Trends       []models.KeywordTrend `json:"trends"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// CategoryCount is one category with its keyword count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// Stats is the aggregate snapshot served by the stats endpoint.
type Stats struct {
	TotalKeywords  int64                  `json:"total_keywords"`
	TotalProducts  int64                  `json:"total_products"`
	TotalRelated   int64                  `json:"total_related"`
	SuccessRate    float64                `json:"success_rate"`
	TopCategories  []CategoryCount        `json:"top_categories"`
	RecentActivity []models.CollectionLog `json:"recent_activity"`
}

// RankingEntry is one dated rank observation for a product under a keyword.
type RankingEntry struct {
	Date        string `json:"date"`
	Rank        int    `json:"rank"`
	ProductName string `json:"product_name"`
	Brand       string `json:"brand"`
	ProductURL  string `json:"product_url"`
}

// LogEntry records the outcome of one collection attempt.
type LogEntry struct {
	Keyword       string
	Source        string
	Status        string
	Details       string
	ProductsCount int
	RelatedCount  int
	Duration      float64
}

// Store is the persistence contract. Every write is an upsert keyed by the
// natural key of the row, so re-analyzing a keyword refreshes rather than
// duplicates.
type Store interface {
	UpsertKeyword(keyword string, category *string, searchVolume, competition float64) (uint, error)
	UpsertRelatedKeywords(keywordID uint, related []sources.RelatedTerm) error
	UpsertProducts(keywordID uint, products []sources.ProductListing) error
	UpsertTrendPoints(keywordID uint, series []sources.TrendObservation) error
	UpsertAdKeyword(keyword string) error
	AppendLog(entry LogEntry) error

	GetKeyword(keyword string, category *string) (*KeywordData, error)
	GetTopRelated(keywordID uint, limit int) ([]RelatedInfo, error)
	ListKeywords(category string, limit, offset int) ([]models.Keyword, int64, error)
	ListStaleKeywords(olderThan time.Time, limit int) ([]models.Keyword, error)
	IsAdKeyword(keyword string) (bool, error)
	GetStats() (*Stats, error)
	GetRankingHistory(keyword, productURL string, days int) ([]RankingEntry, error)

	PurgeOlderThan(days int) (int64, error)
}
