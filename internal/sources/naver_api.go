package sources

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	defaultOpenAPIBase  = "https://openapi.naver.com"
	defaultSearchAdBase = "https://api.naver.com"
)

// APIConfig carries the credentials and tuning for the Naver API source.
type APIConfig struct {
	ClientID      string
	ClientSecret  string
	CustomerID    string
	AccessLicense string
	Timeout       time.Duration
	MaxRetries    int

	// Base URL overrides, used by tests.
	OpenAPIBase  string
	SearchAdBase string
}

// APISource collects keyword data from three independent Naver endpoints:
// the DataLab trend API, the SearchAd keyword tool and the shopping search
// API. Each sub-call is retried independently and degrades to an empty
// contribution when it keeps failing; only a fetch where every slice came
// back empty counts as a source failure.
type APISource struct {
	client        *resty.Client
	cache         *ResponseCache
	clientID      string
	clientSecret  string
	customerID    string
	accessLicense string
	maxRetries    int
	openAPIBase   string
	searchAdBase  string
}

func NewAPISource(cfg APIConfig, cache *ResponseCache) *APISource {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.OpenAPIBase == "" {
		cfg.OpenAPIBase = defaultOpenAPIBase
	}
	if cfg.SearchAdBase == "" {
		cfg.SearchAdBase = defaultSearchAdBase
	}
	if cache == nil {
		cache = NewResponseCache()
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &APISource{
		client:        client,
		cache:         cache,
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		customerID:    cfg.CustomerID,
		accessLicense: cfg.AccessLicense,
		maxRetries:    cfg.MaxRetries,
		openAPIBase:   cfg.OpenAPIBase,
		searchAdBase:  cfg.SearchAdBase,
	}
}

func (a *APISource) Name() string { return "api" }

// ResetCache drops every memoized response.
func (a *APISource) ResetCache() { a.cache.Reset() }

// Fetch queries the three endpoints for one keyword. Sub-call failures are
// logged and leave their slice empty; the fetch as a whole fails only when
// nothing usable came back at all.
func (a *APISource) Fetch(ctx context.Context, keyword string, _ FetchOptions) (*PartialRecord, error) {
	rec := &PartialRecord{Keyword: keyword}

	series, err := a.datalabTrend(ctx, keyword)
	if err != nil {
		logrus.WithField("keyword", keyword).Warnf("datalab trend unavailable: %v", err)
	} else {
		rec.TrendSeries = series
		if len(series) > 0 {
			sum := 0.0
			for _, obs := range series {
				sum += obs.Value()
			}
			rec.AvgSearchVolume = round2(sum / float64(len(series)))
		}
	}

	competition, related, err := a.keywordTool(ctx, keyword)
	if err != nil {
		logrus.WithField("keyword", keyword).Warnf("keyword tool unavailable: %v", err)
	} else {
		rec.Competition = competition
		rec.Related = related
	}

	products, total, err := a.shoppingSearch(ctx, keyword, 40)
	if err != nil {
		logrus.WithField("keyword", keyword).Warnf("shopping search unavailable: %v", err)
	} else {
		rec.Products = products
		rec.TotalProducts = total
	}

	if !rec.Usable() {
		return nil, fmt.Errorf("api fetch for %q: %w", keyword, ErrEmptyResult)
	}
	return rec, nil
}

type datalabResponse struct {
	Results []struct {
		Data []struct {
			Period string  `json:"period"`
			Ratio  float64 `json:"ratio"`
		} `json:"data"`
	} `json:"results"`
}

func (a *APISource) datalabTrend(ctx context.Context, keyword string) ([]TrendObservation, error) {
	endDate := time.Now().Format("2006-01-02")
	startDate := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	cacheKey := fmt.Sprintf("datalab_trend_%s_%s_%s", keyword, startDate, endDate)

	if cached, ok := a.cache.Get(cacheKey); ok {
		return cached.([]TrendObservation), nil
	}

	body := map[string]any{
		"startDate": startDate,
		"endDate":   endDate,
		"timeUnit":  "date",
		"keywordGroups": []map[string]any{
			{"groupName": keyword, "keywords": []string{keyword}},
		},
	}

	var parsed datalabResponse
	_, err := a.doWithRetry(ctx, "datalab", func(ctx context.Context) (*resty.Response, error) {
		return a.client.R().
			SetContext(ctx).
			SetHeader("X-Naver-Client-Id", a.clientID).
			SetHeader("X-Naver-Client-Secret", a.clientSecret).
			SetBody(body).
			SetResult(&parsed).
			Post(a.openAPIBase + "/v1/datalab/search")
	})
	if err != nil {
		return nil, err
	}

	var series []TrendObservation
	if len(parsed.Results) > 0 {
		for _, point := range parsed.Results[0].Data {
			ratio := point.Ratio
			series = append(series, TrendObservation{Date: point.Period, Ratio: &ratio})
		}
	}

	a.cache.Set(cacheKey, series)
	return series, nil
}

type keywordToolResponse struct {
	KeywordList []struct {
		RelKeyword         string  `json:"relKeyword"`
		MonthlyPcQcCnt     float64 `json:"monthlyPcQcCnt"`
		MonthlyMobileQcCnt float64 `json:"monthlyMobileQcCnt"`
		MonthlyQcCnt       float64 `json:"monthlyQcCnt"`
		CompIdx            float64 `json:"compIdx"`
	} `json:"keywordList"`
}

type keywordToolResult struct {
	Competition *float64
	Related     []RelatedTerm
}

func (a *APISource) keywordTool(ctx context.Context, keyword string) (*float64, []RelatedTerm, error) {
	cacheKey := fmt.Sprintf("search_ad_%s", keyword)
	if cached, ok := a.cache.Get(cacheKey); ok {
		res := cached.(keywordToolResult)
		return res.Competition, res.Related, nil
	}

	var parsed keywordToolResponse
	_, err := a.doWithRetry(ctx, "keywordtool", func(ctx context.Context) (*resty.Response, error) {
		return a.client.R().
			SetContext(ctx).
			SetHeader("X-API-KEY", a.accessLicense).
			SetHeader("X-Customer", a.customerID).
			SetQueryParam("hintKeywords", keyword).
			SetQueryParam("showDetail", "1").
			SetResult(&parsed).
			Get(a.searchAdBase + "/keywordstool")
	})
	if err != nil {
		return nil, nil, err
	}

	var competition *float64
	var related []RelatedTerm
	for _, item := range parsed.KeywordList {
		if item.RelKeyword == keyword {
			comp := item.CompIdx
			competition = &comp
			continue
		}
		if item.RelKeyword == "" {
			continue
		}
		// Relation strength blends monthly search count and ad competition.
		strength := math.Min(1.0, (item.MonthlyQcCnt/10000)*0.7+(item.CompIdx/100)*0.3)
		related = append(related, RelatedTerm{
			Keyword:  item.RelKeyword,
			Strength: round2(strength),
		})
	}

	a.cache.Set(cacheKey, keywordToolResult{Competition: competition, Related: related})
	return competition, related, nil
}

type shoppingResponse struct {
	Total int `json:"total"`
	Items []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Image    string `json:"image"`
		LPrice   string `json:"lprice"`
		Brand    string `json:"brand"`
		MallName string `json:"mallName"`
	} `json:"items"`
}

type shoppingResult struct {
	Products []ProductListing
	Total    int
}

func (a *APISource) shoppingSearch(ctx context.Context, keyword string, display int) ([]ProductListing, int, error) {
	cacheKey := fmt.Sprintf("shopping_%s_%d_1_sim", keyword, display)
	if cached, ok := a.cache.Get(cacheKey); ok {
		res := cached.(shoppingResult)
		return res.Products, res.Total, nil
	}

	var parsed shoppingResponse
	_, err := a.doWithRetry(ctx, "shopping", func(ctx context.Context) (*resty.Response, error) {
		return a.client.R().
			SetContext(ctx).
			SetHeader("X-Naver-Client-Id", a.clientID).
			SetHeader("X-Naver-Client-Secret", a.clientSecret).
			SetQueryParams(map[string]string{
				"query":   keyword,
				"display": strconv.Itoa(display),
				"start":   "1",
				"sort":    "sim",
			}).
			SetResult(&parsed).
			Get(a.openAPIBase + "/v1/search/shop.json")
	})
	if err != nil {
		return nil, 0, err
	}

	products := make([]ProductListing, 0, len(parsed.Items))
	for idx, item := range parsed.Items {
		price, _ := strconv.Atoi(item.LPrice)
		products = append(products, ProductListing{
			Title:    stripBoldTags(item.Title),
			Price:    price,
			Brand:    item.Brand,
			Mall:     item.MallName,
			URL:      item.Link,
			ImageURL: item.Image,
			Rank:     idx + 1,
		})
	}

	a.cache.Set(cacheKey, shoppingResult{Products: products, Total: parsed.Total})
	return products, parsed.Total, nil
}

// doWithRetry runs one sub-call with linearly increasing backoff on timeout
// or non-2xx responses; exhausting the retries fails only this sub-call.
func (a *APISource) doWithRetry(ctx context.Context, name string, call func(ctx context.Context) (*resty.Response, error)) (*resty.Response, error) {
	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		resp, err := call(ctx)
		if err != nil {
			lastErr = err
			logrus.Warnf("%s request failed (attempt %d/%d): %v", name, attempt+1, a.maxRetries, err)
			continue
		}
		if resp.IsSuccess() {
			return resp, nil
		}
		lastErr = fmt.Errorf("%s returned status %d", name, resp.StatusCode())
		logrus.Warnf("%s returned status %d (attempt %d/%d)", name, resp.StatusCode(), attempt+1, a.maxRetries)
	}
	return nil, fmt.Errorf("%s: retries exhausted: %w", name, lastErr)
}

func stripBoldTags(s string) string {
	s = strings.ReplaceAll(s, "<b>", "")
	return strings.ReplaceAll(s, "</b>", "")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
