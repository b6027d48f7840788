package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"keyword-analyzer/internal/analyzer"
	"keyword-analyzer/internal/api"
	"keyword-analyzer/internal/config"
	"keyword-analyzer/internal/database"
	"keyword-analyzer/internal/progress"
	"keyword-analyzer/internal/scheduler"
	"keyword-analyzer/internal/sources"
	"keyword-analyzer/internal/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}

	cfg := config.Load()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.NaverClientID == "" {
		log.Warn("Naver open API credentials not configured, API source will fail over to scraping")
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	store := storage.NewGormStore(db)

	cache := sources.NewResponseCache()
	apiSource := sources.NewAPISource(sources.APIConfig{
		ClientID:      cfg.NaverClientID,
		ClientSecret:  cfg.NaverClientSecret,
		CustomerID:    cfg.NaverCustomerID,
		AccessLicense: cfg.NaverAccessLicense,
		Timeout:       cfg.RequestTimeout,
		MaxRetries:    cfg.MaxRetries,
	}, cache)
	scrapeSource := sources.NewScrapeSource(sources.ScrapeConfig{
		Timeout:  cfg.RequestTimeout,
		Delay:    cfg.CrawlDelay,
		MaxPages: cfg.MaxPages,
	})

	engine := analyzer.New(store, apiSource, scrapeSource, log)
	hub := progress.NewHub(log)
	engine.SetNotifier(hub)

	sched := scheduler.New(store, engine, cfg.DataExpiryDays, log)
	if err := sched.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start retention scheduler")
	}
	defer sched.Stop()

	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.SetupRoutes(r.Group("/api/v1"), store, engine, hub, log)

	log.WithField("port", cfg.Port).Info("keyword analyzer listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}
