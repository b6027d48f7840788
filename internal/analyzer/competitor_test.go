package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyword-analyzer/internal/sources"
)

func TestTitleKeywords(t *testing.T) {
	t.Run("WordsAndBigrams", func(t *testing.T) {
		keywords := titleKeywords("유기농 콜라겐 파우더")
		assert.Equal(t, []string{
			"유기농", "콜라겐", "파우더",
			"유기농 콜라겐", "콜라겐 파우더",
		}, keywords)
	})

	t.Run("DropsShortAndNonWordTokens", func(t *testing.T) {
		// 500g splits into digits (dropped) and a one-letter unit (dropped);
		// the single hangul syllable is also below the two-character floor.
		keywords := titleKeywords("홍삼정 500g 숲")
		assert.Equal(t, []string{"홍삼정"}, keywords)
	})

	t.Run("EmptyTitle", func(t *testing.T) {
		assert.Empty(t, titleKeywords(""))
	})
}

func TestRankByFrequency(t *testing.T) {
	ranked := rankByFrequency([]string{"콜라겐", "비타민", "콜라겐", "유산균", "비타민", "콜라겐"}, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, KeywordFrequency{Keyword: "콜라겐", Frequency: 3}, ranked[0])
	assert.Equal(t, KeywordFrequency{Keyword: "비타민", Frequency: 2}, ranked[1])
}

func TestRankByFrequencyTiesKeepFirstSeenOrder(t *testing.T) {
	ranked := rankByFrequency([]string{"둘째", "첫째", "둘째", "첫째"}, 10)
	require.Len(t, ranked, 2)
	assert.Equal(t, "둘째", ranked[0].Keyword)
	assert.Equal(t, "첫째", ranked[1].Keyword)
}

func TestAnalyzeCompetitor(t *testing.T) {
	storeURL := "https://smartstore.naver.com/healthshop"
	store := newFakeStore()
	api := &stubSource{name: "api", records: map[string]*sources.PartialRecord{
		"홍삼정":    longtailRecord("홍삼정", 200, 30),
		"홍삼정 홍삼": longtailRecord("홍삼정 홍삼", 40, 20),
	}}
	scraper := &stubScraper{
		stubSource: stubSource{name: "scrape", records: map[string]*sources.PartialRecord{}},
		storeProducts: map[string][]sources.StoreProduct{
			storeURL: {
				{Title: "홍삼정 홍삼 스틱", URL: "https://smartstore.naver.com/healthshop/products/1"},
				{Title: "홍삼정 에브리타임", URL: "https://smartstore.naver.com/healthshop/products/2"},
			},
		},
	}

	a := New(store, api, scraper, quietLogger())
	result, err := a.AnalyzeCompetitor(context.Background(), storeURL, 3)
	require.NoError(t, err)

	assert.Equal(t, "healthshop", result.StoreID)
	// Title one yields 홍삼정/홍삼/스틱 + two bigrams, title two 홍삼정/에브리타임 + one.
	assert.Len(t, result.Keywords, 8)

	require.Len(t, result.TopKeywords, 3)
	assert.Equal(t, KeywordFrequency{Keyword: "홍삼정", Frequency: 2}, result.TopKeywords[0])

	// Every top keyword gets an analyzed entry, dual failures included.
	require.Len(t, result.AnalyzedKeywords, 3)
	byKeyword := map[string]CompetitorKeyword{}
	for _, ak := range result.AnalyzedKeywords {
		byKeyword[ak.Keyword] = ak
	}
	assert.Equal(t, 200.0, byKeyword["홍삼정"].SearchVolume)
	assert.Equal(t, 30.0, byKeyword["홍삼정"].Competition)
	assert.True(t, byKeyword["홍삼정"].Importance > 0)
	// 홍삼 has no data in either source; it still appears with zeros.
	assert.Equal(t, 0.0, byKeyword["홍삼"].SearchVolume)
	assert.Equal(t, 0.0, byKeyword["홍삼"].Competition)

	// Competitor candidates are analyzed, never persisted.
	assert.Empty(t, store.keywords)
}

func TestAnalyzeCompetitorRejectsForeignURL(t *testing.T) {
	store := newFakeStore()
	scraper := &stubScraper{stubSource: stubSource{name: "scrape"}}

	a := New(store, &stubSource{name: "api"}, scraper, quietLogger())
	_, err := a.AnalyzeCompetitor(context.Background(), "https://example.com/shop", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidStoreURL))
}

func TestAnalyzeCompetitorStoreFetchFailure(t *testing.T) {
	store := newFakeStore()
	scraper := &stubScraper{
		stubSource: stubSource{name: "scrape"},
		storeErr:   errors.New("blocked"),
	}

	a := New(store, &stubSource{name: "api"}, scraper, quietLogger())
	_, err := a.AnalyzeCompetitor(context.Background(), "https://smartstore.naver.com/healthshop", 10)
	assert.Error(t, err)
}
