//go:build !integration

package model_test

import (
	"errors"
	"testing"
	"time"

	"coursehub-payments/internal/domain"
	"coursehub-payments/internal/domain/model"
)

func TestBillingPeriod_PeriodEnd(t *testing.T) {
	from := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		period model.BillingPeriod
		want   time.Time
	}{
		{"monthly", model.BillingMonthly, time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)},
		{"six monthly", model.BillingSixMonthly, time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)},
		{"yearly", model.BillingYearly, time.Date(2027, 3, 15, 10, 0, 0, 0, time.UTC)},
		{"unrecognized falls back to one month", model.BillingPeriod("weekly"), time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)},
		{"empty falls back to one month", model.BillingPeriod(""), time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.period.PeriodEnd(from)
			if !got.Equal(tc.want) {
				t.Errorf("PeriodEnd(%v) = %v, want %v", from, got, tc.want)
			}
		})
	}
}

func TestNewPendingPayment(t *testing.T) {
	t.Run("should build a pending row for a course purchase", func(t *testing.T) {
		p, err := model.NewPendingPayment("tok-1", "user-1", "course-go", "", "")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if p.Status != model.PaymentStatusPending {
			t.Errorf("expected pending status, got '%s'", p.Status)
		}
		if p.ID == "" {
			t.Error("expected a generated id")
		}
		if p.IsSettled() {
			t.Error("a fresh row must not be settled")
		}
	})

	t.Run("should reject a missing token or user", func(t *testing.T) {
		if _, err := model.NewPendingPayment("", "user-1", "course-go", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for empty token, got %v", err)
		}
		if _, err := model.NewPendingPayment("tok-1", "", "course-go", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for empty user, got %v", err)
		}
	})

	t.Run("should reject a row with neither course nor plan", func(t *testing.T) {
		if _, err := model.NewPendingPayment("tok-1", "user-1", "", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPendingPayment_IsSettled(t *testing.T) {
	p := &model.PendingPayment{Status: model.PaymentStatusCompleted}
	if !p.IsSettled() {
		t.Error("completed row must be settled")
	}
	p.Status = model.PaymentStatusFailed
	if !p.IsSettled() {
		t.Error("failed row must be settled")
	}
	p.Status = model.PaymentStatusPending
	if p.IsSettled() {
		t.Error("pending row must not be settled")
	}
}

func TestUser_HasActiveSubscription(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	t.Run("active window", func(t *testing.T) {
		u := &model.User{ID: "u1", SubscriptionPlan: "PRO", SubscriptionEndDate: &future}
		if !u.HasActiveSubscription(now) {
			t.Error("expected active subscription")
		}
	})

	t.Run("expired window", func(t *testing.T) {
		u := &model.User{ID: "u1", SubscriptionPlan: "PRO", SubscriptionEndDate: &past}
		if u.HasActiveSubscription(now) {
			t.Error("expected expired subscription")
		}
	})

	t.Run("no plan", func(t *testing.T) {
		u := &model.User{ID: "u1", SubscriptionEndDate: &future}
		if u.HasActiveSubscription(now) {
			t.Error("expected inactive without a plan")
		}
	})
}
