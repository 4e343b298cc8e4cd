package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/azure/brand-mentions-api/internal/config"
	"github.com/azure/brand-mentions-api/internal/ingestion"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Poller fetches new posts from the external sources
type Poller interface {
	PollSources(ctx context.Context) (*ingestion.PollResult, error)
}

// Recounter rebuilds every alert's cached post count
type Recounter interface {
	Recount(ctx context.Context) (int64, error)
}

// Service runs source polling and counter repair on cron schedules
type Service struct {
	config    *config.Config
	poller    Poller
	recounter Recounter
	cron      *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, poller Poller, recounter Recounter) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cron.PrintfLogger(logrus.StandardLogger())

	return &Service{
		config:    cfg,
		poller:    poller,
		recounter: recounter,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the jobs and starts the cron runner. An empty schedule
// disables its job.
func (s *Service) Start() error {
	if s.config.IngestSchedule != "" && s.poller != nil {
		if _, err := s.cron.AddFunc(s.config.IngestSchedule, s.poll); err != nil {
			return fmt.Errorf("invalid ingest schedule %q: %w", s.config.IngestSchedule, err)
		}
	}

	if s.config.RecountSchedule != "" && s.recounter != nil {
		if _, err := s.cron.AddFunc(s.config.RecountSchedule, s.recount); err != nil {
			return fmt.Errorf("invalid recount schedule %q: %w", s.config.RecountSchedule, err)
		}
	}

	s.cron.Start()
	logrus.WithFields(logrus.Fields{
		"ingest_schedule":  s.config.IngestSchedule,
		"recount_schedule": s.config.RecountSchedule,
		"jobs":             len(s.cron.Entries()),
	}).Info("Scheduler started")
	return nil
}

func (s *Service) poll() {
	logrus.Info("Starting scheduled source poll")
	result, err := s.poller.PollSources(s.ctx)
	if err != nil {
		logrus.WithError(err).Error("Scheduled source poll failed")
		return
	}
	logrus.WithFields(logrus.Fields{
		"fetched":    result.Fetched,
		"stored":     result.Stored,
		"duplicates": result.Duplicates,
		"errors":     result.Errors,
		"duration":   result.Duration.String(),
	}).Info("Scheduled source poll completed")
}

func (s *Service) recount() {
	updated, err := s.recounter.Recount(s.ctx)
	if err != nil {
		logrus.WithError(err).Error("Post count repair failed")
		return
	}
	logrus.WithField("alerts", updated).Info("Post counts repaired")
}

// Stop cancels running jobs and waits for them to return.
func (s *Service) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	})
}
