package models

import (
	"time"
)

// Keyword is the root entity of a collection run. A keyword is unique per
// (keyword, category); category is nullable and acts as a wildcard on lookup.
type Keyword struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Keyword      string    `json:"keyword" gorm:"not null;uniqueIndex:idx_keyword_category"`
	Category     *string   `json:"category" gorm:"uniqueIndex:idx_keyword_category"`
	SearchVolume float64   `json:"search_volume" gorm:"default:0"`
	Competition  float64   `json:"competition" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RelatedKeyword belongs to exactly one owner keyword. Strength is
// last-write-wins on re-collection.
type RelatedKeyword struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	MainKeywordID    uint      `json:"main_keyword_id" gorm:"not null;uniqueIndex:idx_related_owner_text"`
	RelatedKeyword   string    `json:"related_keyword" gorm:"not null;uniqueIndex:idx_related_owner_text"`
	RelationStrength float64   `json:"relation_strength"`
	CreatedAt        time.Time `json:"created_at"`
}

// Product is identified by its URL across time; re-observing the same URL
// updates the row in place, including its current rank.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	KeywordID   uint      `json:"keyword_id" gorm:"not null;index"`
	ProductName string    `json:"product_name" gorm:"not null"`
	Price       int       `json:"price"`
	Brand       string    `json:"brand"`
	MallName    string    `json:"mall_name"`
	ProductURL  string    `json:"product_url" gorm:"uniqueIndex;size:768"`
	ImageURL    string    `json:"image_url"`
	Rank        int       `json:"rank"`
	ReviewCount int       `json:"review_count" gorm:"default:0"`
	Rating      float64   `json:"rating" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeywordRanking is an append-only daily ranking fact. One row per day per
// (keyword, product); today's row is upserted when the pipeline reruns
// same-day, past dates are never rewritten.
type KeywordRanking struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	KeywordID uint      `json:"keyword_id" gorm:"not null;uniqueIndex:idx_ranking_keyword_product_date"`
	ProductID uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_ranking_keyword_product_date"`
	Rank      int       `json:"rank"`
	Date      string    `json:"date" gorm:"size:10;uniqueIndex:idx_ranking_keyword_product_date"`
	CreatedAt time.Time `json:"created_at"`
}

// KeywordTrend is one search-volume observation per (keyword, date).
type KeywordTrend struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	KeywordID    uint      `json:"keyword_id" gorm:"not null;uniqueIndex:idx_trend_keyword_date"`
	Date         string    `json:"date" gorm:"size:10;uniqueIndex:idx_trend_keyword_date"`
	SearchVolume float64   `json:"search_volume"`
	PCRatio      float64   `json:"pc_ratio"`
	MobileRatio  float64   `json:"mobile_ratio"`
	CreatedAt    time.Time `json:"created_at"`
}

// CollectionLog is a write-once audit record of one collection attempt.
// Source is "api", "scrape" or "both" (the latter only for dual failure).
type CollectionLog struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Keyword       string    `json:"keyword" gorm:"index"`
	Source        string    `json:"source"`
	Status        string    `json:"status"`
	Details       string    `json:"details"`
	ProductsCount int       `json:"products_count"`
	RelatedCount  int       `json:"related_count"`
	Duration      float64   `json:"duration_seconds"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}

// AdKeyword flags a keyword as advertisement-associated.
type AdKeyword struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Keyword   string    `json:"keyword" gorm:"uniqueIndex;size:255"`
	AdRank    int       `json:"ad_rank"`
	AdCPC     float64   `json:"ad_cpc"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
