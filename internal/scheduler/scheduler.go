package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// NotificationPruner deletes read notifications older than a number of days.
type NotificationPruner interface {
	PruneOld(daysOld int) (int64, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron          *cron.Cron
	pruner        NotificationPruner
	retentionDays int
	logger        *slog.Logger
}

func New(pruner NotificationPruner, retentionDays int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:          cron.New(),
		pruner:        pruner,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start registers the pruning job on schedule (standard cron syntax or descriptors like "@daily").
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.PruneNotifications); err != nil {
		return fmt.Errorf("failed to add notification prune job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", schedule, "retention_days", s.retentionDays)
	return nil
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) PruneNotifications() {
	deleted, err := s.pruner.PruneOld(s.retentionDays)
	if err != nil {
		s.logger.Error("notification prune failed", "error", err)
		return
	}
	s.logger.Info("pruned read notifications", "deleted", deleted)
}
