package main

import (
	"flag"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"keyword-analyzer/internal/config"
	"keyword-analyzer/internal/database"
	"keyword-analyzer/internal/storage"
)

var days = flag.Int("days", 0, "retention window in days (default: DATA_EXPIRY_DAYS)")

// One-shot retention sweep for cron environments that prefer an external
// scheduler over the in-process one.
func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}
	cfg := config.Load()

	expiry := cfg.DataExpiryDays
	if *days > 0 {
		expiry = *days
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	store := storage.NewGormStore(db)
	removed, err := store.PurgeOlderThan(expiry)
	if err != nil {
		log.WithError(err).Fatal("Retention sweep failed")
	}
	log.WithFields(logrus.Fields{"rows_removed": removed, "expiry_days": expiry}).Info("Retention sweep finished")
}
