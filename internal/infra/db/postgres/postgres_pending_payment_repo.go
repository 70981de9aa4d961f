package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"coursehub-payments/internal/domain"
	"coursehub-payments/internal/domain/model"
	"coursehub-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.PendingPaymentRepository = (*pendingPaymentRepo)(nil)

type pendingPaymentRepo struct{ pool *pgxpool.Pool }

func NewPendingPaymentRepo(pool *pgxpool.Pool) *pendingPaymentRepo {
	return &pendingPaymentRepo{pool: pool}
}

const paymentColumns = `id, correlation_token, user_id, course_id, subscription_plan, billing_period, status, gateway_payment_id, failure_reason, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.PendingPayment, error) {
	p := &model.PendingPayment{}
	err := row.Scan(
		&p.ID, &p.CorrelationToken, &p.UserID, &p.CourseID, &p.SubscriptionPlan,
		&p.BillingPeriod, &p.Status, &p.GatewayPaymentID, &p.FailureReason,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *pendingPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PendingPayment) error {
	const q = `
INSERT INTO pending_payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  correlation_token=$2, course_id=$4, subscription_plan=$5, billing_period=$6,
  status=$7, gateway_payment_id=$8, failure_reason=$9, updated_at=$11;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		p.ID, p.CorrelationToken, p.UserID, p.CourseID, p.SubscriptionPlan,
		p.BillingPeriod, p.Status, p.GatewayPaymentID, p.FailureReason,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save pending payment: %w", domain.ErrOperationFailed)
	}
	return nil
}

func (r *pendingPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PendingPayment, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + paymentColumns + ` FROM pending_payments WHERE id=$1`
	return scanPayment(ex.QueryRow(ctx, q, id))
}

func (r *pendingPaymentRepo) FindPendingByToken(ctx context.Context, tx repository.Tx, token string) ([]*model.PendingPayment, error) {
	q := `SELECT ` + paymentColumns + ` FROM pending_payments
WHERE correlation_token=$1 AND status='pending' ORDER BY created_at;`
	return r.list(ctx, tx, q, token)
}

func (r *pendingPaymentRepo) FindSettledByToken(ctx context.Context, tx repository.Tx, token string) ([]*model.PendingPayment, error) {
	q := `SELECT ` + paymentColumns + ` FROM pending_payments
WHERE correlation_token=$1 AND status <> 'pending' ORDER BY created_at;`
	return r.list(ctx, tx, q, token)
}

func (r *pendingPaymentRepo) MostRecentPending(ctx context.Context, tx repository.Tx) (*model.PendingPayment, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + paymentColumns + ` FROM pending_payments
WHERE status='pending' ORDER BY created_at DESC LIMIT 1`
	return scanPayment(ex.QueryRow(ctx, q))
}

// MarkCompletedIfPending is the idempotency boundary: the WHERE clause makes
// the transition atomic, so of two concurrent deliveries only one sees a
// row affected.
func (r *pendingPaymentRepo) MarkCompletedIfPending(ctx context.Context, tx repository.Tx, id, gatewayPaymentID string) (bool, error) {
	const q = `UPDATE pending_payments
SET status='completed', gateway_payment_id=$2, updated_at=NOW()
WHERE id=$1 AND status='pending';`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	tag, err := ex.Exec(ctx, q, id, gatewayPaymentID)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", domain.ErrOperationFailed)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pendingPaymentRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id, reason string) (bool, error) {
	const q = `UPDATE pending_payments
SET status='failed', failure_reason=$2, updated_at=NOW()
WHERE id=$1 AND status='pending';`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	tag, err := ex.Exec(ctx, q, id, reason)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", domain.ErrOperationFailed)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pendingPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.PendingPayment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + ` FROM pending_payments
WHERE status='pending' AND created_at < $1 ORDER BY created_at LIMIT $2;`
	return r.list(ctx, tx, q, cutoff, limit)
}

func (r *pendingPaymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PendingPayment, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending payments: %w", domain.ErrOperationFailed)
	}
	defer rows.Close()

	var out []*model.PendingPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
