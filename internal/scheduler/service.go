package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/launchwatch/launchcoin-feed/internal/config"
	"github.com/launchwatch/launchcoin-feed/internal/models"
	"github.com/launchwatch/launchcoin-feed/internal/notifications"
	"github.com/launchwatch/launchcoin-feed/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const archivePrefix = "launches-"

// LaunchProvider exposes the cached launches to scheduled jobs
type LaunchProvider interface {
	Snapshot() []models.Record
	GenerateDigest() *models.Digest
}

// Service runs the periodic archive and digest jobs
type Service struct {
	config   *config.Config
	launches LaunchProvider
	storage  storage.StorageInterface
	notifier notifications.NotificationInterface
	cron     *cron.Cron
	now      func() time.Time
}

// NewService creates a new scheduler service. A nil storage disables the
// archive job and a nil notifier disables the digest job.
func NewService(cfg *config.Config, launches LaunchProvider, store storage.StorageInterface, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:   cfg,
		launches: launches,
		storage:  store,
		notifier: notifier,
		cron:     cron.New(cron.WithSeconds()),
		now:      time.Now,
	}
}

// Start registers the enabled jobs and starts the scheduler
func (s *Service) Start() error {
	jobs := 0

	if s.storage != nil {
		_, err := s.cron.AddFunc(s.config.ArchiveSchedule, func() {
			logrus.Info("Starting scheduled snapshot archive")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := s.ArchiveSnapshot(ctx); err != nil {
				logrus.Errorf("Scheduled snapshot archive failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid archive schedule: %w", err)
		}
		jobs++
	}

	if s.notifier != nil {
		_, err := s.cron.AddFunc(s.config.DigestSchedule, func() {
			logrus.Info("Starting scheduled launch digest")
			if err := s.SendDigest(); err != nil {
				logrus.Errorf("Scheduled launch digest failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid digest schedule: %w", err)
		}
		jobs++
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %d jobs", jobs)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}

// ArchiveSnapshot exports the current cache to storage and prunes old archives
func (s *Service) ArchiveSnapshot(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	snapshot := s.launches.Snapshot()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	name := fmt.Sprintf("%s%s.json", archivePrefix, s.now().UTC().Format("2006-01-02-15-04-05"))
	if err := s.storage.Store(ctx, name, data); err != nil {
		return err
	}
	logrus.Infof("Archived %d launches to %s", len(snapshot), name)

	return s.pruneArchives(ctx)
}

func (s *Service) pruneArchives(ctx context.Context) error {
	names, err := s.storage.List(ctx, archivePrefix)
	if err != nil {
		return err
	}
	if len(names) <= s.config.ArchiveRetention {
		return nil
	}

	// Timestamped names sort chronologically
	sort.Strings(names)
	for _, name := range names[:len(names)-s.config.ArchiveRetention] {
		if err := s.storage.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// SendDigest sends a summary of the cached launches
func (s *Service) SendDigest() error {
	if s.notifier == nil {
		return nil
	}

	digest := s.launches.GenerateDigest()
	if digest.TotalLaunches == 0 {
		logrus.Info("No launches cached, skipping digest")
		return nil
	}
	return s.notifier.SendDigest(digest)
}
