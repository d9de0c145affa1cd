package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// dateDirLayout names the per-day directories screen recordings are written to.
const dateDirLayout = "2006-01-02"

// RetentionService periodically removes recording directories older than
// the configured number of days.
type RetentionService struct {
	cron   *cron.Cron
	dir    string
	days   int
	logger *zap.Logger
	now    func() time.Time
}

func NewRetentionService(dir string, days int, logger *zap.Logger) *RetentionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionService{
		cron:   cron.New(cron.WithSeconds()),
		dir:    dir,
		days:   days,
		logger: logger.Named("retention"),
		now:    time.Now,
	}
}

// Start registers the sweep under schedule (six-field cron spec) and starts
// the scheduler. A non-positive retention disables sweeping.
func (s *RetentionService) Start(schedule string) error {
	if s.days <= 0 {
		s.logger.Info("Recording retention disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(); err != nil {
			s.logger.Error("Retention sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retention sweep %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Retention service started",
		zap.Int("entry", int(entryID)),
		zap.String("schedule", schedule),
		zap.Int("days", s.days))
	return nil
}

// Stop waits for a running sweep to finish.
func (s *RetentionService) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep deletes dated directories under the recordings root whose date is
// older than the retention window and returns how many were removed.
// Entries that are not dated directories are left alone.
func (s *RetentionService) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read recordings directory: %w", err)
	}

	now := s.now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, -s.days)

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		day, err := time.ParseInLocation(dateDirLayout, entry.Name(), time.Local)
		if err != nil || !day.Before(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn("Failed to remove expired recordings", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed expired recordings", zap.Int("directories", removed))
	}
	return removed, nil
}
