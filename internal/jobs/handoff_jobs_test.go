package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehirent-backend/internal/config"
	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/repository/memory"
)

type recordingReminder struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingReminder) HandoffReminder(ctx context.Context, ev *domain.HandoffEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.ID)
}

func (r *recordingReminder) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.events...)
	sort.Strings(out)
	return out
}

func handoff(kind domain.HandoffKind, reservationID string, startedAt time.Time, status domain.HandoffStatus) *domain.HandoffEvent {
	r := &domain.Reservation{ID: reservationID, VehicleID: "veh-1", RenterID: "renter-1", OwnerID: "owner-1"}
	ev := domain.NewHandoffEvent(kind, r, startedAt)
	ev.Status = status
	return ev
}

func TestJobRunner_RemindStaleHandoffs(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	cfg := &config.Config{Scheduler: config.SchedulerConfig{StaleAfterHours: 6}}

	store := memory.NewStore()
	store.PutHandoff(handoff(domain.HandoffKindCheckIn, "res-old", now.Add(-8*time.Hour), domain.HandoffStatusInProgress))
	store.PutHandoff(handoff(domain.HandoffKindCheckIn, "res-fresh", now.Add(-1*time.Hour), domain.HandoffStatusPending))
	store.PutHandoff(handoff(domain.HandoffKindCheckOut, "res-done", now.Add(-30*time.Hour), domain.HandoffStatusCompleted))
	store.PutHandoff(handoff(domain.HandoffKindCheckOut, "res-late", now.Add(-7*time.Hour), domain.HandoffStatusPending))

	t.Run("RemindsOnlyOpenStaleEvents", func(t *testing.T) {
		reminder := &recordingReminder{}
		jr := NewJobRunner(store.Repositories().Handoffs, reminder, cfg)
		jr.now = func() time.Time { return now }

		count, err := jr.remindStale(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, []string{"res-late_checkout", "res-old_checkin"}, reminder.sent())
	})

	t.Run("EventsAreLeftUntouched", func(t *testing.T) {
		jr := NewJobRunner(store.Repositories().Handoffs, &recordingReminder{}, cfg)
		jr.now = func() time.Time { return now }
		jr.RemindStaleHandoffs()

		ev, err := store.Repositories().Handoffs.GetByID(context.Background(), domain.HandoffKindCheckIn, "res-old_checkin")
		require.NoError(t, err)
		assert.Equal(t, domain.HandoffStatusInProgress, ev.Status)
	})
}

func TestJobRunner_RunWithRecovery(t *testing.T) {
	jr := NewJobRunner(nil, &recordingReminder{}, &config.Config{})

	ran := false
	assert.NotPanics(t, func() {
		jr.runWithRecovery("Boom", func() {
			ran = true
			panic(errors.New("boom"))
		})
	})
	assert.True(t, ran)

	// A nil repository panics inside the job and is recovered.
	assert.NotPanics(t, jr.RemindStaleHandoffs)
}
