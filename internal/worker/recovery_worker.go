package worker

import (
	"context"
	"time"

	"github.com/examhall/examportal/internal/session"
	"github.com/rs/zerolog"
)

// RecoveryWorker periodically sweeps the progress store and finalizes stale
// sessions whose exam windows have closed. It is the safety net behind
// login-time recovery: it also catches students who simply never log in
// again.
type RecoveryWorker struct {
	deps     session.Deps
	interval time.Duration
	log      zerolog.Logger
}

// NewRecoveryWorker creates a new RecoveryWorker.
func NewRecoveryWorker(deps session.Deps, interval time.Duration, log zerolog.Logger) *RecoveryWorker {
	return &RecoveryWorker{
		deps:     deps,
		interval: interval,
		log:      log.With().Str("component", "recovery_worker").Logger(),
	}
}

// Start runs the sweep loop until the context is cancelled. One sweep runs
// immediately on startup so a restart repairs stale sessions without waiting
// a full interval.
func (w *RecoveryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("RecoveryWorker started")

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("RecoveryWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RecoveryWorker) sweep(ctx context.Context) {
	if n := session.Sweep(ctx, w.deps); n > 0 {
		w.log.Info().Int("recovered", n).Msg("Sweep finalized stale sessions")
	}
}
