package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BackupJob uploads a backup and rotates old ones on a schedule
type BackupJob struct {
	service *BackupService
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		timeout: 10 * time.Minute,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Run executes the backup. A failed rotation is logged but does not fail the run.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if _, err := j.service.RotateOldBackups(ctx); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}
