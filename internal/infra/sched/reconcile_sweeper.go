package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"coursehub-payments/internal/domain/ports/repository"
	"coursehub-payments/internal/infra/metrics"
	"coursehub-payments/internal/usecase"
)

// ReconcileSweeper periodically scans for stale PENDING rows and re-runs the
// verify-and-settle pipeline for their tokens. This covers checkouts whose
// callback was lost or whose processing crashed mid-flight.
type ReconcileSweeper struct {
	uc         usecase.ReconcileUseCase
	payments   repository.PendingPaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending row must be to retry
	log        *zerolog.Logger
}

func NewReconcileSweeper(uc usecase.ReconcileUseCase, payments repository.PendingPaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *ReconcileSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &ReconcileSweeper{uc: uc, payments: payments, interval: interval, staleAfter: staleAfter, log: logger}
}

func (w *ReconcileSweeper) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *ReconcileSweeper) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("sweeper: list pending failed")
		return
	}

	// Distinct tokens only: sibling rows of one checkout settle together.
	seen := make(map[string]struct{}, len(pending))
	for _, p := range pending {
		if p.CorrelationToken == "" {
			continue
		}
		if _, ok := seen[p.CorrelationToken]; ok {
			continue
		}
		seen[p.CorrelationToken] = struct{}{}

		outcome := w.uc.ReconcileByToken(ctx, p.CorrelationToken)
		metrics.IncReconcile("sweeper", string(outcome.Code))
		w.log.Info().
			Str("payment_id", p.ID).
			Str("outcome", string(outcome.Code)).
			Msg("sweeper: reconciled stale pending")
	}
}
