package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/holdfast/holdfast/internal/database"
	"github.com/rs/zerolog"
)

// CheckDatabasesJob pings every database and runs an integrity check
type CheckDatabasesJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewCheckDatabasesJob creates a new CheckDatabasesJob. nil databases are skipped.
func NewCheckDatabasesJob(log zerolog.Logger, databases ...*database.DB) *CheckDatabasesJob {
	return &CheckDatabasesJob{
		databases: databases,
		log:       log.With().Str("job", "check_databases").Logger(),
	}
}

// Name returns the job name
func (j *CheckDatabasesJob) Name() string {
	return "check_databases"
}

// Run executes the check
func (j *CheckDatabasesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var failed []string
	for _, db := range j.databases {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			failed = append(failed, db.Name())
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("unhealthy databases: %v", failed)
	}
	j.log.Debug().Int("checked", len(j.databases)).Msg("Databases healthy")
	return nil
}

// WALCheckpointJob truncates the write-ahead log of every database
type WALCheckpointJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a new WALCheckpointJob. nil databases are skipped.
func NewWALCheckpointJob(log zerolog.Logger, databases ...*database.DB) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints each database. One failure does not stop the others.
func (j *WALCheckpointJob) Run() error {
	var firstErr error
	checked := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		checked++
	}

	j.log.Debug().Int("checkpointed", checked).Msg("WAL checkpoint completed")
	return firstErr
}
