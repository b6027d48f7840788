package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shoppingPageHTML = `<html><body>
<span class="subFilter_num__x8Gk2">3,456</span>
<div class="relatedTags_relation_srh__YG9s7">
	<a href="#">홍삼 스틱</a>
	<a href="#">홍삼 절편</a>
</div>
<div class="product_item__MDtDF">
	<a class="product_link__TrAac" href="https://shop/1">홍삼 정 240g</a>
	<span class="price_num__S2p_v">35,900원</span>
	<a class="product_mall__hPiEH">공식몰</a>
	<span class="product_brand__a2Xk1">정관장</span>
	<img class="product_image__Ih4sA" src="https://img/1"/>
	<em class="product_num__fsQfH">1,024</em>
	<span class="product_rate__Ee5sV">4.8</span>
</div>
<div class="product_item__MDtDF">
	<span class="ad_ad_stk__dERKk">광고</span>
	<a class="product_link__TrAac" href="https://shop/2">[브랜드] 홍삼 스틱 30포</a>
	<span class="price_num__S2p_v">19,900원</span>
	<a class="product_mall__hPiEH">스마트스토어</a>
</div>
<div class="product_item__MDtDF">
	<a class="product_link__TrAac" href="https://shop/3">가격 없는 상품</a>
</div>
</body></html>`

const trendPageHTML = `<html><body><script>
var searchTrendChart = {"title": "홍삼", "data": [5, 10, 15, 20]};
</script></body></html>`

const adPageHTML = `<html><body><ul>
<li class="ad_section">
	<a class="link_ad" href="https://ad/1">홍삼 최저가</a>
	<a class="url_link">smartstore.naver.com</a>
	<div class="ad_dsc">오늘만 특가</div>
</li>
<li class="ad_section">
	<a class="link_ad"></a>
</li>
</ul></body></html>`

func newScrapeTestServer(t *testing.T, shoppingCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/all", func(w http.ResponseWriter, r *http.Request) {
		if shoppingCalls != nil {
			atomic.AddInt32(shoppingCalls, 1)
		}
		if r.URL.Query().Get("pagingIndex") == "1" {
			fmt.Fprint(w, shoppingPageHTML)
			return
		}
		fmt.Fprint(w, `<html><body></body></html>`)
	})
	mux.HandleFunc("/keyword/trendSearch.naver", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, trendPageHTML)
	})
	mux.HandleFunc("/search.naver", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, adPageHTML)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScrapeSource(srvURL string, maxPages int) *ScrapeSource {
	return NewScrapeSource(ScrapeConfig{
		Timeout:      5 * time.Second,
		Delay:        time.Millisecond,
		MaxPages:     maxPages,
		ShoppingBase: srvURL,
		SearchBase:   srvURL,
		DatalabBase:  srvURL,
	})
}

func TestScrapeSourceFetch(t *testing.T) {
	srv := newScrapeTestServer(t, nil)
	src := newTestScrapeSource(srv.URL, 2)

	rec, err := src.Fetch(context.Background(), "홍삼", FetchOptions{})
	require.NoError(t, err)

	// The third item has no price and is skipped.
	require.Len(t, rec.Products, 2)
	first := rec.Products[0]
	assert.Equal(t, "홍삼 정 240g", first.Title)
	assert.Equal(t, 35900, first.Price)
	assert.Equal(t, "정관장", first.Brand)
	assert.Equal(t, "공식몰", first.Mall)
	assert.Equal(t, 1024, first.ReviewCount)
	assert.Equal(t, 4.8, first.Rating)
	assert.False(t, first.IsAd)
	assert.Equal(t, 1, first.Rank)

	second := rec.Products[1]
	assert.True(t, second.IsAd)
	// No brand element, so it falls back to the bracketed title prefix.
	assert.Equal(t, "브랜드", second.Brand)
	assert.Equal(t, 2, second.Rank)

	assert.Equal(t, 3456, rec.TotalProducts)
	require.Len(t, rec.Related, 2)
	assert.Equal(t, "홍삼 스틱", rec.Related[0].Keyword)

	require.Len(t, rec.TrendSeries, 4)
	assert.Equal(t, 12.5, rec.AvgSearchVolume)
	// Market crowding saturates the derived competition.
	require.NotNil(t, rec.Competition)
	assert.Equal(t, 100.0, *rec.Competition)

	// The anonymous ad entry is dropped.
	require.Len(t, rec.AdKeywords, 1)
	assert.Equal(t, "홍삼 최저가", rec.AdKeywords[0].Title)
	assert.Equal(t, "smartstore.naver.com", rec.AdKeywords[0].Advertiser)
}

func TestScrapeSourcePaginationStopsOnEmptyPage(t *testing.T) {
	var calls int32
	srv := newScrapeTestServer(t, &calls)
	src := newTestScrapeSource(srv.URL, 5)

	rec, err := src.Fetch(context.Background(), "홍삼", FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, rec.Products, 2)

	// Page two came back empty, pages three to five were never requested.
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestScrapeSourceMaxPagesOverride(t *testing.T) {
	var calls int32
	srv := newScrapeTestServer(t, &calls)
	src := newTestScrapeSource(srv.URL, 5)

	_, err := src.Fetch(context.Background(), "홍삼", FetchOptions{MaxPages: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestScrapeSourceFetchAds(t *testing.T) {
	srv := newScrapeTestServer(t, nil)
	src := newTestScrapeSource(srv.URL, 1)

	ads, err := src.FetchAds(context.Background(), "홍삼")
	require.NoError(t, err)
	require.Len(t, ads, 1)
	assert.Equal(t, "홍삼 최저가", ads[0].Title)
	assert.Equal(t, "https://ad/1", ads[0].URL)
}

const storePageHTML = `<html><body><ul>
<li class="prod_item">
	<a class="product_info_area" href="https://store/products/1">
		<div class="product_info_area"><span class="product_name">홍삼정 홍삼 스틱</span></div>
	</a>
</li>
<li class="prod_item">
	<a class="product_info_area" href="https://store/products/2">
		<div class="product_info_area"><span class="product_name">홍삼정 에브리타임</span></div>
	</a>
</li>
<li class="prod_item">
	<div class="product_info_area"><span class="product_name"></span></div>
</li>
</ul></body></html>`

func TestScrapeSourceFetchStoreProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, storePageHTML)
	}))
	t.Cleanup(srv.Close)
	src := newTestScrapeSource(srv.URL, 1)

	products, err := src.FetchStoreProducts(context.Background(), srv.URL+"/healthshop")
	require.NoError(t, err)

	// The untitled listing is skipped.
	require.Len(t, products, 2)
	assert.Equal(t, "홍삼정 홍삼 스틱", products[0].Title)
	assert.Equal(t, "https://store/products/1", products[0].URL)
	assert.Equal(t, "홍삼정 에브리타임", products[1].Title)
}

func TestScrapeSourceFetchStoreProductsCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><ul>")
		for i := 0; i < 15; i++ {
			fmt.Fprintf(w, `<li class="prod_item"><a class="product_info_area" href="https://store/p/%d">`+
				`<div class="product_info_area"><span class="product_name">상품 %d</span></div></a></li>`, i, i)
		}
		fmt.Fprint(w, "</ul></body></html>")
	}))
	t.Cleanup(srv.Close)
	src := newTestScrapeSource(srv.URL, 1)

	products, err := src.FetchStoreProducts(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, products, maxStoreProducts)
}

func TestScrapeSourceEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	src := newTestScrapeSource(srv.URL, 1)

	_, err := src.Fetch(context.Background(), "없는키워드", FetchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyResult))
}

func TestExtractNumber(t *testing.T) {
	assert.Equal(t, 35900, extractNumber("35,900원"))
	assert.Equal(t, 0, extractNumber("가격 문의"))
	assert.Equal(t, 1024, extractNumber(" 1,024 "))
}

func TestBrandFromTitle(t *testing.T) {
	assert.Equal(t, "정관장", brandFromTitle("정관장 홍삼정 에브리타임"))
	assert.Equal(t, "브랜드", brandFromTitle("[브랜드] 홍삼 스틱"))
	assert.Equal(t, "", brandFromTitle("6년근 홍삼"))
}
