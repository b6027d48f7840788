package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"keyword-analyzer/internal/analyzer"
	"keyword-analyzer/internal/models"
)

const (
	// staleAfter is how long a keyword may go without refresh before the
	// recollection job picks it up.
	staleAfter = 24 * time.Hour
	// recollectBatch bounds one recollection run.
	recollectBatch = 20
)

// Store is the slice of the persistence contract the scheduler needs.
type Store interface {
	PurgeOlderThan(days int) (int64, error)
	ListStaleKeywords(olderThan time.Time, limit int) ([]models.Keyword, error)
}

// Recollector re-runs the collection pipeline for one keyword.
type Recollector interface {
	AnalyzeKeyword(ctx context.Context, keyword, category string, opts analyzer.Options) (*analyzer.AnalysisResult, error)
}

// Scheduler runs the daily retention sweep and the daily recollection pass
// that refreshes the stalest stored keywords.
type Scheduler struct {
	cron        *cron.Cron
	store       Store
	recollector Recollector
	expiryDays  int
	log         *logrus.Logger
}

func New(store Store, recollector Recollector, expiryDays int, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		cron:        cron.New(),
		store:       store,
		recollector: recollector,
		expiryDays:  expiryDays,
		log:         log,
	}
}

// Start registers the purge job at 03:00 and the recollection job at 04:00
// daily, then starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 3 * * *", s.runPurge); err != nil {
		return err
	}
	if s.recollector != nil {
		if _, err := s.cron.AddFunc("0 4 * * *", s.runRecollect); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.log.WithField("expiry_days", s.expiryDays).Info("retention scheduler started")
	return nil
}

func (s *Scheduler) runPurge() {
	removed, err := s.store.PurgeOlderThan(s.expiryDays)
	if err != nil {
		s.log.WithError(err).Error("retention sweep failed")
		return
	}
	s.log.WithField("rows_removed", removed).Info("retention sweep finished")
}

// runRecollect refreshes the stalest keywords sequentially. One keyword's
// failure never stops the rest of the batch.
func (s *Scheduler) runRecollect() {
	stale, err := s.store.ListStaleKeywords(time.Now().Add(-staleAfter), recollectBatch)
	if err != nil {
		s.log.WithError(err).Error("stale keyword lookup failed")
		return
	}
	if len(stale) == 0 {
		return
	}

	s.log.WithField("keywords", len(stale)).Info("recollection run started")
	refreshed := 0
	for _, row := range stale {
		category := ""
		if row.Category != nil {
			category = *row.Category
		}
		_, err := s.recollector.AnalyzeKeyword(context.Background(), row.Keyword, category, analyzer.Options{
			Depth:  1,
			UseAPI: true,
		})
		if err != nil {
			s.log.WithError(err).WithField("keyword", row.Keyword).Warn("recollection failed")
			continue
		}
		refreshed++
	}
	s.log.WithField("refreshed", refreshed).Info("recollection run finished")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
