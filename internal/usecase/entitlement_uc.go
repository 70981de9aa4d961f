package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"coursehub-payments/internal/domain"
	"coursehub-payments/internal/domain/model"
	"coursehub-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// SubscriptionGrant describes a subscription window that was just written,
// so the caller can notify the user after the surrounding transaction commits.
type SubscriptionGrant struct {
	UserID   string
	Plan     string
	StartsAt time.Time
	EndsAt   time.Time
}

// EntitlementUseCase applies the business effect of a completed payment row:
// a subscription window, a course enrollment, or (defensively) both.
type EntitlementUseCase interface {
	// Activate runs inside the caller's settle transaction. It returns a
	// non-nil grant when a subscription window was written.
	Activate(ctx context.Context, tx repository.Tx, row *model.PendingPayment) (*SubscriptionGrant, error)
}

type entitlementUC struct {
	users       repository.UserRepository
	enrollments repository.EnrollmentRepository
	log         *zerolog.Logger
}

func NewEntitlementUseCase(users repository.UserRepository, enrollments repository.EnrollmentRepository, logger *zerolog.Logger) *entitlementUC {
	return &entitlementUC{users: users, enrollments: enrollments, log: logger}
}

func (u *entitlementUC) Activate(ctx context.Context, tx repository.Tx, row *model.PendingPayment) (*SubscriptionGrant, error) {
	var grant *SubscriptionGrant

	if row.SubscriptionPlan != "" {
		now := time.Now()
		end := row.BillingPeriod.PeriodEnd(now)
		if err := u.users.UpdateSubscription(ctx, tx, row.UserID, row.SubscriptionPlan, now, end); err != nil {
			return nil, err
		}
		grant = &SubscriptionGrant{
			UserID:   row.UserID,
			Plan:     row.SubscriptionPlan,
			StartsAt: now,
			EndsAt:   end,
		}
		u.log.Info().
			Str("user_id", row.UserID).
			Str("plan", row.SubscriptionPlan).
			Time("ends_at", end).
			Msg("subscription activated")
	}

	if row.CourseID != "" {
		if err := u.enroll(ctx, tx, row); err != nil {
			return nil, err
		}
	}

	return grant, nil
}

// enroll creates the (user, course) enrollment if absent. The exists check
// runs inside the settle transaction; a unique-constraint violation from a
// concurrent writer is treated as already enrolled, never as a user-facing
// failure on an otherwise-successful payment.
func (u *entitlementUC) enroll(ctx context.Context, tx repository.Tx, row *model.PendingPayment) error {
	exists, err := u.enrollments.Exists(ctx, tx, row.UserID, row.CourseID)
	if err != nil {
		return err
	}
	if exists {
		u.log.Debug().
			Str("user_id", row.UserID).
			Str("course_id", row.CourseID).
			Msg("enrollment already present, skipping")
		return nil
	}

	e, err := model.NewEnrollment(row.UserID, row.CourseID, row.ID)
	if err != nil {
		return err
	}
	if err := u.enrollments.Create(ctx, tx, e); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	u.log.Info().
		Str("user_id", row.UserID).
		Str("course_id", row.CourseID).
		Msg("enrollment created")
	return nil
}
