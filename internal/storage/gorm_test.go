package storage

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func keywordRow(id uint, keyword string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "keyword", "category", "search_volume", "competition", "created_at", "updated_at"}).
		AddRow(id, keyword, nil, 80.0, 25.0, now, now)
}

func emptyKeywordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "keyword", "category", "search_volume", "competition", "created_at", "updated_at"})
}

// A second upsert with the same natural key must update the existing row in
// place: exactly one INSERT across both calls, same id back each time.
func TestUpsertKeywordIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM `keywords` WHERE keyword = (.+) AND category IS NULL").
		WillReturnRows(emptyKeywordRows())
	mock.ExpectExec("INSERT INTO `keywords`").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := store.UpsertKeyword("홍삼", nil, 120, 35)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	mock.ExpectQuery("SELECT .* FROM `keywords` WHERE keyword = (.+) AND category IS NULL").
		WillReturnRows(keywordRow(7, "홍삼"))
	mock.ExpectExec("UPDATE `keywords` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err = store.UpsertKeyword("홍삼", nil, 150, 40)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertKeywordMatchesOnCategory(t *testing.T) {
	store, mock := newMockStore(t)
	category := "건강기능식품"

	mock.ExpectQuery("SELECT .* FROM `keywords` WHERE keyword = (.+) AND category = (.+)").
		WillReturnRows(emptyKeywordRows())
	mock.ExpectExec("INSERT INTO `keywords`").
		WillReturnResult(sqlmock.NewResult(3, 1))

	id, err := store.UpsertKeyword("홍삼", &category, 120, 35)
	require.NoError(t, err)
	assert.Equal(t, uint(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAdKeywordUsesConflictClause(t *testing.T) {
	store, mock := newMockStore(t)

	// Re-upserting the same text maps to one INSERT ... ON DUPLICATE KEY
	// UPDATE statement, never a duplicate row.
	mock.ExpectExec("INSERT INTO `ad_keywords` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.UpsertAdKeyword("홍삼 스틱"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
