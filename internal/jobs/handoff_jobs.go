package jobs

import (
	"context"
	"time"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
)

const jobTimeout = 5 * time.Minute

// RemindStaleHandoffs reminds both parties of every check-in or check-out left open
// longer than the configured threshold. Events are not expired or modified.
func (jr *JobRunner) RemindStaleHandoffs() {
	jr.runWithRecovery("RemindStaleHandoffs", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		count, err := jr.remindStale(ctx)
		if err != nil {
			logger.Error("Failed to remind stale hand-offs", "reminded", count, "error", err)
			return
		}
		logger.Info("Stale hand-off reminders sent", "count", count)
	})
}

func (jr *JobRunner) remindStale(ctx context.Context) (int, error) {
	cutoff := jr.now().Add(-time.Duration(jr.config.Scheduler.StaleAfterHours) * time.Hour)

	count := 0
	for _, kind := range []domain.HandoffKind{domain.HandoffKindCheckIn, domain.HandoffKindCheckOut} {
		events, err := jr.handoffs.ListOpenStartedBefore(ctx, kind, cutoff)
		if err != nil {
			return count, err
		}
		for i := range events {
			ev := &events[i]
			jr.reminder.HandoffReminder(ctx, ev)
			count++
			logger.WithHandoff(string(kind), ev.ID).Debug("Sent hand-off reminder",
				"stage", domain.DeriveStage(ev).String(),
				"started_at", ev.StartedAt)
		}
	}
	return count, nil
}
