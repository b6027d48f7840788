package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Naver open API credentials (DataLab, shopping search)
	NaverClientID     string
	NaverClientSecret string

	// Naver SearchAd API credentials (keyword tool)
	NaverCustomerID    string
	NaverAccessLicense string

	// Collection behaviour
	MaxPages        int
	CrawlDelay      time.Duration
	RequestTimeout  time.Duration
	MaxRetries      int
	DataExpiryDays  int
	DefaultCategory string
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "root:password@tcp(127.0.0.1:3306)/keyword_analyzer?charset=utf8mb4&parseTime=True&loc=Local"),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		NaverClientID:     getEnv("NAVER_CLIENT_ID", ""),
		NaverClientSecret: getEnv("NAVER_CLIENT_SECRET", ""),

		NaverCustomerID:    getEnv("NAVER_CUSTOMER_ID", ""),
		NaverAccessLicense: getEnv("NAVER_ACCESS_LICENSE", ""),

		MaxPages:        getIntEnv("MAX_PAGES", 20),
		CrawlDelay:      getDurationEnv("CRAWL_DELAY_MS", 1500*time.Millisecond),
		RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT_MS", 10*time.Second),
		MaxRetries:      getIntEnv("MAX_RETRIES", 3),
		DataExpiryDays:  getIntEnv("DATA_EXPIRY_DAYS", 7),
		DefaultCategory: getEnv("DEFAULT_CATEGORY", "건강기능식품"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getDurationEnv reads a millisecond count from the environment.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
