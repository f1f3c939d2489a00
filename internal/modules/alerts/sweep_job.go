package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/holdfast/holdfast/internal/session"
	"github.com/rs/zerolog"
)

// SweepJob evaluates alerts on a schedule. It remembers the prices of the
// previous sweep so targets crossed between two sweeps are reported.
type SweepJob struct {
	service *Service
	timeout time.Duration

	mu   sync.Mutex
	last map[string]float64

	log zerolog.Logger
}

// NewSweepJob creates a new alert sweep job
func NewSweepJob(service *Service, priceTimeout time.Duration, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		service: service,
		timeout: priceTimeout,
		last:    make(map[string]float64),
		log:     log.With().Str("job", "alert_sweep").Logger(),
	}
}

// Run evaluates every target once
func (j *SweepJob) Run() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	sc := session.New(j.timeout)
	// scheduled sweeps always want live prices
	sc.ForceRefresh = true
	for sym, p := range j.last {
		sc.PreviousPrices[sym] = p
	}

	ctx, cancel := context.WithTimeout(session.WithContext(context.Background(), sc), 2*time.Minute)
	defer cancel()

	alerts, err := j.service.EvaluateAlerts(ctx, Options{OnlyWithTarget: true})
	if err != nil {
		j.log.Error().Err(err).Msg("Alert sweep failed")
		return err
	}

	reached := 0
	for _, a := range alerts {
		if a.CurrentPrice > 0 {
			j.last[a.Symbol] = a.CurrentPrice
		}
		if a.State == StateReached {
			reached++
		}
	}

	j.log.Debug().Int("evaluated", len(alerts)).Int("reached", reached).Msg("Alert sweep completed")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *SweepJob) Name() string {
	return "alert_sweep"
}
