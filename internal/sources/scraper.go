package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	defaultShoppingBase = "https://search.shopping.naver.com"
	defaultSearchBase   = "https://search.naver.com"
	defaultDatalabBase  = "https://datalab.naver.com"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
}

// ScrapeConfig tunes the scrape source.
type ScrapeConfig struct {
	Timeout  time.Duration
	Delay    time.Duration
	MaxPages int

	// Base URL overrides, used by tests.
	ShoppingBase string
	SearchBase   string
	DatalabBase  string
}

// ScrapeSource collects the same record shape as the API source from Naver
// result pages. One long-lived HTTP session (cookie jar included) is lazily
// created and reused across calls; all page visits run under a mutex so
// concurrent fan-out keywords never interleave navigation on the shared
// session. Individual page failures degrade to empty slices.
type ScrapeSource struct {
	cfg ScrapeConfig

	mu      sync.Mutex
	session *http.Client
	initErr error
}

func NewScrapeSource(cfg ScrapeConfig) *ScrapeSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 1500 * time.Millisecond
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.ShoppingBase == "" {
		cfg.ShoppingBase = defaultShoppingBase
	}
	if cfg.SearchBase == "" {
		cfg.SearchBase = defaultSearchBase
	}
	if cfg.DatalabBase == "" {
		cfg.DatalabBase = defaultDatalabBase
	}
	return &ScrapeSource{cfg: cfg}
}

func (s *ScrapeSource) Name() string { return "scrape" }

// ensureSession lazily creates the shared session. A failed initialization
// is sticky: every later scrape attempt in this run fails immediately.
func (s *ScrapeSource) ensureSession() (*http.Client, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}
	if s.session != nil {
		return s.session, nil
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		s.initErr = fmt.Errorf("%w: %v", ErrSessionInit, err)
		return nil, s.initErr
	}
	s.session = &http.Client{Timeout: s.cfg.Timeout, Jar: jar}
	return s.session, nil
}

// Fetch performs the three page visits for one keyword: shopping search with
// pagination, the trend page and the ad listing page. Caller-visible failure
// only happens when the session cannot start or nothing usable was scraped.
func (s *ScrapeSource) Fetch(ctx context.Context, keyword string, opts FetchOptions) (*PartialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.ensureSession()
	if err != nil {
		return nil, err
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = s.cfg.MaxPages
	}

	rec := &PartialRecord{Keyword: keyword}

	products, related, total, err := s.crawlShopping(ctx, client, keyword, maxPages)
	if err != nil {
		logrus.WithField("keyword", keyword).Warnf("shopping page scrape failed: %v", err)
	} else {
		rec.Products = products
		rec.Related = related
		rec.TotalProducts = total
	}

	series, err := s.crawlTrend(ctx, client, keyword)
	if err != nil {
		logrus.WithField("keyword", keyword).Warnf("trend page scrape failed: %v", err)
	} else {
		rec.TrendSeries = series
	}

	ads, err := s.crawlAds(ctx, client, keyword)
	if err != nil {
		logrus.WithField("keyword", keyword).Warnf("ad page scrape failed: %v", err)
	} else {
		rec.AdKeywords = ads
	}

	if len(rec.TrendSeries) > 0 {
		sum := 0.0
		for _, obs := range rec.TrendSeries {
			sum += obs.Value()
		}
		rec.AvgSearchVolume = round2(sum / float64(len(rec.TrendSeries)))
	}

	// Scrape has no competition endpoint; derive it from market crowding.
	if rec.AvgSearchVolume > 0 && rec.TotalProducts > 0 {
		competition := round2(math.Min(100, float64(rec.TotalProducts)/(rec.AvgSearchVolume+1)*10))
		rec.Competition = &competition
	}

	if !rec.Usable() {
		return nil, fmt.Errorf("scrape fetch for %q: %w", keyword, ErrEmptyResult)
	}
	return rec, nil
}

// FetchAds runs only the ad listing visit. The API has no ad endpoint, so
// this is invoked even when the API satisfied the primary fetch.
func (s *ScrapeSource) FetchAds(ctx context.Context, keyword string) ([]AdListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.ensureSession()
	if err != nil {
		return nil, err
	}
	return s.crawlAds(ctx, client, keyword)
}

// maxStoreProducts caps how many listings one store visit collects.
const maxStoreProducts = 10

// FetchStoreProducts visits a competitor store page and collects up to ten
// product titles with their URLs. Runs on the shared session like every
// other page visit.
func (s *ScrapeSource) FetchStoreProducts(ctx context.Context, storeURL string) ([]StoreProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.ensureSession()
	if err != nil {
		return nil, err
	}

	doc, err := s.getPage(ctx, client, storeURL)
	if err != nil {
		return nil, err
	}

	var products []StoreProduct
	doc.Find("li.prod_item").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("div.product_info_area span.product_name").First().Text())
		if title == "" {
			return true
		}
		productURL, _ := sel.Find("a.product_info_area").First().Attr("href")
		products = append(products, StoreProduct{Title: title, URL: productURL})
		return len(products) < maxStoreProducts
	})
	return products, nil
}

func (s *ScrapeSource) crawlShopping(ctx context.Context, client *http.Client, keyword string, maxPages int) ([]ProductListing, []RelatedTerm, int, error) {
	var (
		products []ProductListing
		related  []RelatedTerm
		total    int
	)

	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			if err := s.randomSleep(ctx); err != nil {
				return products, related, total, err
			}
		}

		pageURL := fmt.Sprintf("%s/search/all?query=%s&pagingIndex=%d",
			s.cfg.ShoppingBase, url.QueryEscape(keyword), page)
		doc, err := s.getPage(ctx, client, pageURL)
		if err != nil {
			if page == 1 {
				return nil, nil, 0, err
			}
			logrus.Warnf("page %d load failed for %q: %v", page, keyword, err)
			break
		}

		if page == 1 {
			total = extractNumber(doc.Find("span[class^='subFilter_num']").First().Text())
			doc.Find("div[class^='relatedTags_relation_srh'] a").Each(func(_ int, sel *goquery.Selection) {
				text := strings.TrimSpace(sel.Text())
				if text != "" {
					related = append(related, RelatedTerm{Keyword: text, Strength: 1.0})
				}
			})
		}

		items := doc.Find("div[class^='product_item']")
		if items.Length() == 0 {
			// Empty page means pagination ran past the last result page.
			break
		}

		items.Each(func(_ int, sel *goquery.Selection) {
			link := sel.Find("a[class^='product_link']").First()
			title := strings.TrimSpace(link.Text())
			productURL, _ := link.Attr("href")
			price := extractNumber(sel.Find("span[class^='price_num']").First().Text())
			if title == "" || price <= 0 {
				return
			}

			mall := strings.TrimSpace(sel.Find("a[class^='product_mall']").First().Text())
			brand := strings.TrimSpace(sel.Find("span[class^='product_brand']").First().Text())
			if brand == "" {
				brand = brandFromTitle(title)
			}
			image, _ := sel.Find("img[class^='product_image']").First().Attr("src")
			reviews := extractNumber(sel.Find("em[class^='product_num']").First().Text())
			rating, _ := strconv.ParseFloat(strings.TrimSpace(sel.Find("span[class^='product_rate']").First().Text()), 64)
			isAd := sel.Find("span[class^='ad_ad_stk']").Length() > 0

			products = append(products, ProductListing{
				Title:       title,
				Price:       price,
				Brand:       brand,
				Mall:        mall,
				URL:         productURL,
				ImageURL:    image,
				ReviewCount: reviews,
				Rating:      rating,
				IsAd:        isAd,
				Rank:        len(products) + 1,
			})
		})
	}

	return products, related, total, nil
}

var trendDataPattern = regexp.MustCompile(`searchTrendChart\s*=\s*\{[^}]*"data"\s*:\s*(\[[0-9.,\s]*\])`)

func (s *ScrapeSource) crawlTrend(ctx context.Context, client *http.Client, keyword string) ([]TrendObservation, error) {
	pageURL := fmt.Sprintf("%s/keyword/trendSearch.naver?keyword=%s",
		s.cfg.DatalabBase, url.QueryEscape(keyword))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trend page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	// The chart values live in an inline script, not in the DOM.
	var values []float64
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		match := trendDataPattern.FindStringSubmatch(sel.Text())
		if match == nil {
			return true
		}
		if err := json.Unmarshal([]byte(match[1]), &values); err != nil {
			values = nil
		}
		return false
	})

	if len(values) == 0 {
		return nil, nil
	}

	series := make([]TrendObservation, 0, len(values))
	end := time.Now()
	for i, v := range values {
		date := end.AddDate(0, 0, -(len(values) - 1 - i)).Format("2006-01-02")
		series = append(series, TrendObservation{Date: date, Volume: v})
	}
	return series, nil
}

func (s *ScrapeSource) crawlAds(ctx context.Context, client *http.Client, keyword string) ([]AdListing, error) {
	pageURL := fmt.Sprintf("%s/search.naver?query=%s",
		s.cfg.SearchBase, url.QueryEscape(keyword))
	doc, err := s.getPage(ctx, client, pageURL)
	if err != nil {
		return nil, err
	}

	var ads []AdListing
	doc.Find("li.ad_section").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a.link_ad").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		adURL, _ := link.Attr("href")
		ads = append(ads, AdListing{
			Title:       title,
			URL:         adURL,
			Advertiser:  strings.TrimSpace(sel.Find("a.url_link").First().Text()),
			Description: strings.TrimSpace(sel.Find("div.ad_dsc").First().Text()),
		})
	})
	return ads, nil
}

func (s *ScrapeSource) getPage(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// randomSleep waits the base delay plus uniform jitter between page loads.
func (s *ScrapeSource) randomSleep(ctx context.Context) error {
	jitter := time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.Delay + jitter):
		return nil
	}
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

var nonDigits = regexp.MustCompile(`[^\d]`)

func extractNumber(text string) int {
	cleaned := nonDigits.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

var brandPattern = regexp.MustCompile(`^[\[(]?([a-zA-Z가-힣]+)[\])]?\s`)

func brandFromTitle(title string) string {
	match := brandPattern.FindStringSubmatch(title)
	if match == nil {
		return ""
	}
	return match[1]
}
