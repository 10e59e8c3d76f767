package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehirent-backend/internal/config"
	"vehirent-backend/internal/jobs"
	"vehirent-backend/internal/repository/memory"
	"vehirent-backend/internal/service"
)

func runner(spec string) *jobs.JobRunner {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{RemindStaleHandoffs: spec, StaleAfterHours: 6}}
	repos := memory.NewStore().Repositories()
	announcer := service.NewAnnouncer(repos.Users, service.NewNoopNotifier(), service.NewNoopEmailService())
	return jobs.NewJobRunner(repos.Handoffs, announcer, cfg)
}

func TestNewScheduler(t *testing.T) {
	t.Run("RegistersJobs", func(t *testing.T) {
		s, err := NewScheduler(runner("0 */15 * * * *"))
		require.NoError(t, err)
		assert.Equal(t, 1, s.Entries())

		s.Start()
		s.Stop()
	})

	t.Run("InvalidSpec", func(t *testing.T) {
		_, err := NewScheduler(runner("every tuesday"))
		assert.Error(t, err)
	})

	t.Run("FiveFieldSpecNeedsSeconds", func(t *testing.T) {
		_, err := NewScheduler(runner("0 * * * *"))
		assert.Error(t, err)
	})
}
