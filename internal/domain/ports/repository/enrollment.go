package repository

import (
	"context"

	"coursehub-payments/internal/domain/model"
)

type EnrollmentRepository interface {
	// Exists reports whether the (userID, courseID) pair already has an
	// enrollment row.
	Exists(ctx context.Context, tx Tx, userID, courseID string) (bool, error)

	// Create inserts the enrollment. A unique-constraint violation is mapped
	// to domain.ErrAlreadyExists so callers can treat it as already enrolled.
	Create(ctx context.Context, tx Tx, e *model.Enrollment) error

	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Enrollment, error)
}
