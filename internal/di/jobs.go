package di

import (
	"fmt"

	"github.com/holdfast/holdfast/internal/clientdata"
	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/modules/alerts"
	"github.com/holdfast/holdfast/internal/reliability"
	"github.com/holdfast/holdfast/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the scheduler and registers every background job.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	sched.SetMetrics(container.Metrics)
	sched.SetEventEmitter(container.EventManager)

	type entry struct {
		schedule string
		job      scheduler.Job
	}
	entries := []entry{
		{cfg.Schedules.CacheCleanup, clientdata.NewCleanupJob(container.PriceCache, log)},
		{cfg.Schedules.AlertSweep, alerts.NewSweepJob(container.AlertService, cfg.PriceTimeout, log)},
		{"0 0 * * * *", scheduler.NewWALCheckpointJob(log, container.LedgerDB, container.ClientDataDB)},
		{"0 30 4 * * *", scheduler.NewCheckDatabasesJob(log, container.LedgerDB, container.ClientDataDB)},
	}
	if container.BackupService != nil {
		entries = append(entries, entry{cfg.Backup.Schedule, reliability.NewBackupJob(container.BackupService, log)})
	}

	for _, e := range entries {
		if err := sched.AddJob(e.schedule, e.job); err != nil {
			return fmt.Errorf("failed to register job %s: %w", e.job.Name(), err)
		}
	}

	container.Scheduler = sched
	return nil
}
