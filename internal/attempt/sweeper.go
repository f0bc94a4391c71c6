package attempt

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SweepWorker periodically evicts finished and abandoned sessions.
type SweepWorker struct {
	svc      *Service
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweepWorker(svc *Service, interval time.Duration, logger zerolog.Logger) *SweepWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepWorker{
		svc:      svc,
		interval: interval,
		logger:   logger.With().Str("component", "session_sweeper").Logger(),
	}
}

// Run blocks until context cancellation.
func (w *SweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := w.svc.Sweep(ctx); n > 0 {
				w.logger.Info().Int("evicted", n).Int("live", w.svc.Registry().Len()).Msg("sessions swept")
			}
		}
	}
}
