package jobs

import (
	"context"
	"time"

	"vehirent-backend/internal/config"
	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
)

// Reminder nudges the parties of an unfinished hand-off.
type Reminder interface {
	HandoffReminder(ctx context.Context, ev *domain.HandoffEvent)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	handoffs repository.HandoffRepository
	reminder Reminder
	config   *config.Config
	now      func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(handoffs repository.HandoffRepository, reminder Reminder, cfg *config.Config) *JobRunner {
	return &JobRunner{
		handoffs: handoffs,
		reminder: reminder,
		config:   cfg,
		now:      time.Now,
	}
}

// Config returns the configuration the jobs were built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.RemindStaleHandoffs()
}
