// Package maintenance runs scheduled housekeeping over the job store.
package maintenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

const defaultStaleMinutes = 60

// Sweeper periodically fails jobs stuck in pending or processing. A job can
// strand when the process dies mid-pipeline or a queue message is poisoned.
type Sweeper struct {
	config      common.MaintenanceConfig
	storage     interfaces.JobStorage
	progress    interfaces.ProgressBus
	logger      arbor.ILogger
	cron        *cron.Cron
	scratchDirs []string
}

func NewSweeper(cfg common.MaintenanceConfig, storage interfaces.JobStorage, progress interfaces.ProgressBus, logger arbor.ILogger, scratchDirs ...string) *Sweeper {
	if cfg.StaleJobMinutes <= 0 {
		cfg.StaleJobMinutes = defaultStaleMinutes
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "*/10 * * * *"
	}
	return &Sweeper{
		config:      cfg,
		storage:     storage,
		progress:    progress,
		logger:      logger,
		cron:        cron.New(),
		scratchDirs: scratchDirs,
	}
}

// Start schedules the sweep and runs one immediately to clear jobs stranded
// by a previous run.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.config.SweepSchedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.config.SweepSchedule, err)
	}
	s.cron.Start()

	go s.Sweep(context.Background())

	s.logger.Info().
		Str("schedule", s.config.SweepSchedule).
		Int("stale_minutes", s.config.StaleJobMinutes).
		Msg("Maintenance sweeper started")
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep fails every job that has sat in a non-terminal state past the stale
// cutoff. Returns the number of jobs failed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	stale, err := s.storage.ListStale(ctx, s.config.StaleJobMinutes)
	if err != nil {
		s.logger.Error().Err(err).Msg("Stale job scan failed")
		return 0
	}

	failed := 0
	for _, job := range stale {
		job.MarkFailed()
		job.AddFlag("stale_timeout")
		if err := s.storage.SaveJob(ctx, job); err != nil {
			s.logger.Error().
				Err(err).
				Str("job_id", job.ID).
				Msg("Failed to fail stale job")
			continue
		}
		s.progress.PublishSync(job.ID, models.ProgressEvent{
			Step:    models.StepError,
			Percent: 0,
			Status:  string(models.JobStatusFailed),
			Message: "Processing timed out",
		})
		s.logger.Warn().
			Str("job_id", job.ID).
			Msg("Stale job marked failed")
		failed++
	}

	if removed := s.cleanScratch(); removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Scratch files cleaned")
	}

	if failed > 0 {
		s.logger.Info().Int("failed", failed).Msg("Maintenance sweep complete")
	}
	return failed
}

// cleanScratch removes scratch files older than the retention window.
// Subdirectories are left in place; only regular files are removed.
func (s *Sweeper) cleanScratch() int {
	if s.config.ScratchRetentionHours <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-time.Duration(s.config.ScratchRetentionHours) * time.Hour)

	removed := 0
	for _, dir := range s.scratchDirs {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				s.logger.Warn().
					Err(err).
					Str("file", entry.Name()).
					Msg("Failed to remove scratch file")
				continue
			}
			removed++
		}
	}
	return removed
}
