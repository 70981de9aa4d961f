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
	"coursehub-payments/internal/infra/metrics"
)

// Compile-time check
var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, email, name, subscription_plan, subscription_start_date, subscription_end_date, registered_at
FROM users WHERE id=$1;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	err = ex.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.SubscriptionPlan,
		&u.SubscriptionStartDate, &u.SubscriptionEndDate, &u.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

func (r *userRepo) UpdateSubscription(ctx context.Context, tx repository.Tx, userID, plan string, start, end time.Time) error {
	const q = `UPDATE users
SET subscription_plan=$2, subscription_start_date=$3, subscription_end_date=$4
WHERE id=$1;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, userID, plan, start, end)
	if err != nil {
		return fmt.Errorf("update subscription: %w", domain.ErrOperationFailed)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	metrics.IncEntitlement("subscription")
	return nil
}
