package repository

import (
	"context"
	"time"

	"coursehub-payments/internal/domain/model"
)

// PendingPaymentRepository persists purchase intents and owns the one-way
// PENDING -> {COMPLETED, FAILED} transition.
type PendingPaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PendingPayment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PendingPayment, error)

	// FindPendingByToken returns every PENDING row whose correlation token
	// equals token, oldest first. An empty slice is not an error.
	FindPendingByToken(ctx context.Context, tx Tx, token string) ([]*model.PendingPayment, error)

	// FindSettledByToken returns already-settled rows for token, so an
	// idempotent replay can be told apart from a genuinely lost record.
	FindSettledByToken(ctx context.Context, tx Tx, token string) ([]*model.PendingPayment, error)

	// MostRecentPending returns the newest PENDING row system-wide, or
	// domain.ErrNotFound. Supports the last-resort token recovery heuristic.
	MostRecentPending(ctx context.Context, tx Tx) (*model.PendingPayment, error)

	// MarkCompletedIfPending transitions the row to COMPLETED only if it is
	// still PENDING, recording the gateway's payment id. Returns false when
	// the row was already settled (a concurrent delivery won the race).
	MarkCompletedIfPending(ctx context.Context, tx Tx, id, gatewayPaymentID string) (bool, error)

	// MarkFailedIfPending transitions the row to FAILED only if still PENDING,
	// preserving the gateway's error classification.
	MarkFailedIfPending(ctx context.Context, tx Tx, id, reason string) (bool, error)

	// ListPendingOlderThan feeds the stale-pending sweeper.
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.PendingPayment, error)
}
