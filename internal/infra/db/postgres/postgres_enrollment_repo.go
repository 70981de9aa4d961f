package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"coursehub-payments/internal/domain"
	"coursehub-payments/internal/domain/model"
	"coursehub-payments/internal/domain/ports/repository"
	"coursehub-payments/internal/infra/metrics"
)

// Compile-time check
var _ repository.EnrollmentRepository = (*enrollmentRepo)(nil)

type enrollmentRepo struct{ pool *pgxpool.Pool }

func NewEnrollmentRepo(pool *pgxpool.Pool) *enrollmentRepo {
	return &enrollmentRepo{pool: pool}
}

func (r *enrollmentRepo) Exists(ctx context.Context, tx repository.Tx, userID, courseID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id=$1 AND course_id=$2);`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := ex.QueryRow(ctx, q, userID, courseID).Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

// Create inserts the enrollment. The unique (user_id, course_id) constraint
// is the second line of defense behind the activator's exists check; a
// violation maps to domain.ErrAlreadyExists.
func (r *enrollmentRepo) Create(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	const q = `INSERT INTO enrollments (id, user_id, course_id, payment_id, created_at)
VALUES ($1,$2,$3,$4,$5);`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, e.ID, e.UserID, e.CourseID, e.PaymentID, e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create enrollment: %w", domain.ErrOperationFailed)
	}
	metrics.IncEntitlement("enrollment")
	return nil
}

func (r *enrollmentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Enrollment, error) {
	const q = `SELECT id, user_id, course_id, payment_id, created_at
FROM enrollments WHERE user_id=$1 ORDER BY created_at;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", domain.ErrOperationFailed)
	}
	defer rows.Close()

	var out []*model.Enrollment
	for rows.Next() {
		e := &model.Enrollment{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.PaymentID, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
