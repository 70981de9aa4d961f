package model

import (
	"time"

	"coursehub-payments/internal/domain"

	"github.com/google/uuid"
)

// Enrollment grants a user access to one course. At most one row exists per
// (UserID, CourseID) pair; the activator checks before creating and the
// storage layer carries a unique constraint as a second line of defense.
type Enrollment struct {
	ID        string // UUID
	UserID    string // UUID
	CourseID  string
	PaymentID string // PendingPayment that paid for this enrollment
	CreatedAt time.Time
}

func NewEnrollment(userID, courseID, paymentID string) (*Enrollment, error) {
	if userID == "" || courseID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Enrollment{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		PaymentID: paymentID,
		CreatedAt: time.Now(),
	}, nil
}
