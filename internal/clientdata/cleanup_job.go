package clientdata

import (
	"context"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/rs/zerolog"
)

// CleanupJob removes expired entries from the price cache.
type CleanupJob struct {
	cache   domain.PriceCache
	timeout time.Duration
	log     zerolog.Logger
}

// NewCleanupJob creates a new client data cleanup job.
func NewCleanupJob(cache domain.PriceCache, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		cache:   cache,
		timeout: time.Minute,
		log:     log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run removes all expired entries.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	deleted, err := j.cache.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired client data")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("total_deleted", deleted).
			Msg("Client data cleanup completed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
