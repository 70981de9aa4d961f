package model

import (
	"time"

	"coursehub-payments/internal/domain"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // created at checkout; awaiting gateway confirmation
	PaymentStatusCompleted PaymentStatus = "completed" // verified OK; entitlement granted
	PaymentStatusFailed    PaymentStatus = "failed"    // verified decline or explicit failure
)

type BillingPeriod string

const (
	BillingMonthly    BillingPeriod = "monthly"
	BillingSixMonthly BillingPeriod = "6monthly"
	BillingYearly     BillingPeriod = "yearly"
)

// PeriodEnd computes the subscription window end for an activation happening
// at `from`. Unrecognized periods fall back to one month.
func (b BillingPeriod) PeriodEnd(from time.Time) time.Time {
	switch b {
	case BillingSixMonthly:
		return from.AddDate(0, 6, 0)
	case BillingYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// PendingPayment is a locally stored, not-yet-confirmed purchase intent.
// One checkout session can write several rows (a plan charge plus course
// add-ons) sharing the same CorrelationToken; they are settled together.
//
// Status is terminal once non-pending. The PENDING -> {COMPLETED, FAILED}
// transition happens at most once per row, enforced by a conditional update
// at the storage layer.
type PendingPayment struct {
	ID               string // UUID
	CorrelationToken string // opaque token linking the row to its checkout session
	UserID           string // UUID, immutable owner
	CourseID         string // set when the row is a one-time course purchase
	SubscriptionPlan string // set when the row is a recurring-plan purchase
	BillingPeriod    BillingPeriod
	Status           PaymentStatus
	GatewayPaymentID string // provider payment id, recorded on completion
	FailureReason    string // gateway error code, recorded on failure
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewPendingPayment builds a pending row for one purchase item. Exactly one of
// courseID / plan is set in practice; a row carrying both is tolerated and
// activates both entitlements.
func NewPendingPayment(token, userID, courseID, plan string, period BillingPeriod) (*PendingPayment, error) {
	if token == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if courseID == "" && plan == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PendingPayment{
		ID:               uuid.NewString(),
		CorrelationToken: token,
		UserID:           userID,
		CourseID:         courseID,
		SubscriptionPlan: plan,
		BillingPeriod:    period,
		Status:           PaymentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (p *PendingPayment) IsSettled() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusFailed
}
