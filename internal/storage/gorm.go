package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"keyword-analyzer/internal/models"
	"keyword-analyzer/internal/sources"
)

// GormStore implements Store on a gorm database handle.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// UpsertKeyword inserts or refreshes a keyword row and returns its id.
// Category is part of the natural key but nullable, so the lookup is a
// select-then-write rather than an ON CONFLICT clause.
func (s *GormStore) UpsertKeyword(keyword string, category *string, searchVolume, competition float64) (uint, error) {
	var existing models.Keyword
	query := s.db.Where("keyword = ?", keyword)
	if category != nil {
		query = query.Where("category = ?", *category)
	} else {
		query = query.Where("category IS NULL")
	}

	err := query.First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"search_volume": searchVolume,
			"competition":   competition,
			"updated_at":    time.Now(),
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return 0, fmt.Errorf("update keyword %q: %w", keyword, err)
		}
		return existing.ID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.Keyword{
			Keyword:      keyword,
			Category:     category,
			SearchVolume: searchVolume,
			Competition:  competition,
		}
		if err := s.db.Create(&row).Error; err != nil {
			return 0, fmt.Errorf("insert keyword %q: %w", keyword, err)
		}
		return row.ID, nil
	default:
		return 0, fmt.Errorf("lookup keyword %q: %w", keyword, err)
	}
}

func (s *GormStore) UpsertRelatedKeywords(keywordID uint, related []sources.RelatedTerm) error {
	if len(related) == 0 {
		return nil
	}
	rows := make([]models.RelatedKeyword, 0, len(related))
	for _, term := range related {
		rows = append(rows, models.RelatedKeyword{
			MainKeywordID:    keywordID,
			RelatedKeyword:   term.Keyword,
			RelationStrength: term.Strength,
		})
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "main_keyword_id"}, {Name: "related_keyword"}},
		DoUpdates: clause.AssignmentColumns([]string{"relation_strength"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert related keywords: %w", err)
	}
	return nil
}

// UpsertProducts refreshes product rows by URL and records today's ranking
// fact for each product. Past dates are never touched.
func (s *GormStore) UpsertProducts(keywordID uint, products []sources.ProductListing) error {
	today := time.Now().Format("2006-01-02")
	for _, p := range products {
		if p.URL == "" {
			continue
		}
		row := models.Product{
			KeywordID:   keywordID,
			ProductName: p.Title,
			Price:       p.Price,
			Brand:       p.Brand,
			MallName:    p.Mall,
			ProductURL:  p.URL,
			ImageURL:    p.ImageURL,
			Rank:        p.Rank,
			ReviewCount: p.ReviewCount,
			Rating:      p.Rating,
		}
		err := s.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_url"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"keyword_id", "product_name", "price", "brand", "mall_name",
				"image_url", "rank", "review_count", "rating", "updated_at",
			}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert product %q: %w", p.URL, err)
		}

		// Create hands back a zero ID when the conflict path fired.
		if row.ID == 0 {
			var saved models.Product
			if err := s.db.Where("product_url = ?", p.URL).First(&saved).Error; err != nil {
				return fmt.Errorf("reload product %q: %w", p.URL, err)
			}
			row.ID = saved.ID
		}

		ranking := models.KeywordRanking{
			KeywordID: keywordID,
			ProductID: row.ID,
			Rank:      p.Rank,
			Date:      today,
		}
		err = s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "keyword_id"}, {Name: "product_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"rank"}),
		}).Create(&ranking).Error
		if err != nil {
			return fmt.Errorf("upsert ranking for %q: %w", p.URL, err)
		}
	}
	return nil
}

func (s *GormStore) UpsertTrendPoints(keywordID uint, series []sources.TrendObservation) error {
	if len(series) == 0 {
		return nil
	}
	rows := make([]models.KeywordTrend, 0, len(series))
	for _, obs := range series {
		row := models.KeywordTrend{
			KeywordID:    keywordID,
			Date:         obs.Date,
			SearchVolume: obs.Value(),
		}
		if obs.PCRatio != nil {
			row.PCRatio = *obs.PCRatio
		}
		if obs.MobileRatio != nil {
			row.MobileRatio = *obs.MobileRatio
		}
		rows = append(rows, row)
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"search_volume", "pc_ratio", "mobile_ratio"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert trend points: %w", err)
	}
	return nil
}

func (s *GormStore) UpsertAdKeyword(keyword string) error {
	row := models.AdKeyword{Keyword: keyword, IsActive: true}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"is_active": true, "updated_at": time.Now()}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert ad keyword %q: %w", keyword, err)
	}
	return nil
}

func (s *GormStore) AppendLog(entry LogEntry) error {
	row := models.CollectionLog{
		Keyword:       entry.Keyword,
		Source:        entry.Source,
		Status:        entry.Status,
		Details:       entry.Details,
		ProductsCount: entry.ProductsCount,
		RelatedCount:  entry.RelatedCount,
		Duration:      entry.Duration,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("append collection log: %w", err)
	}
	return nil
}

// GetKeyword loads one keyword with its related terms, products and trend
// history. A nil category matches any category, most recently updated first.
func (s *GormStore) GetKeyword(keyword string, category *string) (*KeywordData, error) {
	var row models.Keyword
	query := s.db.Where("keyword = ?", keyword)
	if category != nil {
		query = query.Where("category = ?", *category)
	}
	err := query.Order("updated_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup keyword %q: %w", keyword, err)
	}

	data := &KeywordData{
		ID:           row.ID,
		Keyword:      row.Keyword,
		Category:     row.Category,
		SearchVolume: row.SearchVolume,
		Competition:  row.Competition,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}

	related, err := s.GetTopRelated(row.ID, 0)
	if err != nil {
		return nil, err
	}
	data.Related = related

	err = s.db.Where("keyword_id = ?", row.ID).Order("`rank` ASC").Find(&data.Products).Error
	if err != nil {
		return nil, fmt.Errorf("load products for %q: %w", keyword, err)
	}

	err = s.db.Where("keyword_id = ?", row.ID).Order("date ASC").Find(&data.Trends).Error
	if err != nil {
		return nil, fmt.Errorf("load trends for %q: %w", keyword, err)
	}
	return data, nil
}

// GetTopRelated returns related terms ordered by strength. A non-positive
// limit returns all of them.
func (s *GormStore) GetTopRelated(keywordID uint, limit int) ([]RelatedInfo, error) {
	var rows []models.RelatedKeyword
	query := s.db.Where("main_keyword_id = ?", keywordID).Order("relation_strength DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load related keywords: %w", err)
	}
	out := make([]RelatedInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, RelatedInfo{Keyword: r.RelatedKeyword, Strength: r.RelationStrength})
	}
	return out, nil
}

func (s *GormStore) ListKeywords(category string, limit, offset int) ([]models.Keyword, int64, error) {
	query := s.db.Model(&models.Keyword{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count keywords: %w", err)
	}
	var rows []models.Keyword
	err := query.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list keywords: %w", err)
	}
	return rows, total, nil
}

// ListStaleKeywords returns the oldest keywords not refreshed since the
// cutoff, feeding the scheduled recollection job.
func (s *GormStore) ListStaleKeywords(olderThan time.Time, limit int) ([]models.Keyword, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.Keyword
	err := s.db.Where("updated_at < ?", olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list stale keywords: %w", err)
	}
	return rows, nil
}

func (s *GormStore) IsAdKeyword(keyword string) (bool, error) {
	var count int64
	err := s.db.Model(&models.AdKeyword{}).
		Where("keyword = ? AND is_active = ?", keyword, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check ad keyword %q: %w", keyword, err)
	}
	return count > 0, nil
}

// GetStats aggregates totals, the 7-day collection success rate, the top
// categories by keyword count and the ten most recent log entries.
func (s *GormStore) GetStats() (*Stats, error) {
	stats := &Stats{}
	if err := s.db.Model(&models.Keyword{}).Count(&stats.TotalKeywords).Error; err != nil {
		return nil, fmt.Errorf("count keywords: %w", err)
	}
	if err := s.db.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if err := s.db.Model(&models.RelatedKeyword{}).Count(&stats.TotalRelated).Error; err != nil {
		return nil, fmt.Errorf("count related keywords: %w", err)
	}

	since := time.Now().AddDate(0, 0, -7)
	var attempts, successes int64
	err := s.db.Model(&models.CollectionLog{}).
		Where("created_at >= ?", since).
		Count(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("count log entries: %w", err)
	}
	if attempts > 0 {
		err = s.db.Model(&models.CollectionLog{}).
			Where("created_at >= ? AND status = ?", since, "success").
			Count(&successes).Error
		if err != nil {
			return nil, fmt.Errorf("count successful log entries: %w", err)
		}
		stats.SuccessRate = float64(successes) / float64(attempts) * 100
	}

	err = s.db.Model(&models.Keyword{}).
		Select("category, COUNT(*) as count").
		Where("category IS NOT NULL").
		Group("category").
		Order("count DESC").
		Limit(5).
		Scan(&stats.TopCategories).Error
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}

	err = s.db.Order("created_at DESC").Limit(10).Find(&stats.RecentActivity).Error
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return stats, nil
}

// GetRankingHistory returns dated rank observations for a keyword within the
// last N days, optionally narrowed to one product URL.
func (s *GormStore) GetRankingHistory(keyword, productURL string, days int) ([]RankingEntry, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

	query := s.db.Model(&models.KeywordRanking{}).
		Select("keyword_rankings.date, keyword_rankings.rank, products.product_name, products.brand, products.product_url").
		Joins("JOIN products ON products.id = keyword_rankings.product_id").
		Joins("JOIN keywords ON keywords.id = keyword_rankings.keyword_id").
		Where("keywords.keyword = ? AND keyword_rankings.date >= ?", keyword, cutoff)
	if productURL != "" {
		query = query.Where("products.product_url = ?", productURL)
	}

	var entries []RankingEntry
	err := query.Order("keyword_rankings.date ASC, keyword_rankings.rank ASC").Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("ranking history for %q: %w", keyword, err)
	}
	return entries, nil
}

// PurgeOlderThan deletes collection logs and ranking facts older than the
// retention window and reports the number of rows removed.
func (s *GormStore) PurgeOlderThan(days int) (int64, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	logs := s.db.Where("created_at < ?", cutoff).Delete(&models.CollectionLog{})
	if logs.Error != nil {
		return 0, fmt.Errorf("purge collection logs: %w", logs.Error)
	}
	rankings := s.db.Where("created_at < ?", cutoff).Delete(&models.KeywordRanking{})
	if rankings.Error != nil {
		return logs.RowsAffected, fmt.Errorf("purge rankings: %w", rankings.Error)
	}
	return logs.RowsAffected + rankings.RowsAffected, nil
}
