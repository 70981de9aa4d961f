package model

import "time"

// User is the marketplace account. The subscription window fields are mutated
// only by the entitlement activator: SubscriptionEndDate is always recomputed
// as "activation time + period", never extended from a prior end date, which
// is why the row-level idempotency on PendingPayment is mandatory.
type User struct {
	ID                    string // UUID
	Email                 string
	Name                  string
	SubscriptionPlan      string
	SubscriptionStartDate *time.Time
	SubscriptionEndDate   *time.Time
	RegisteredAt          time.Time
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// HasActiveSubscription reports whether the user's window covers `at`.
func (u *User) HasActiveSubscription(at time.Time) bool {
	if u == nil || u.SubscriptionPlan == "" || u.SubscriptionEndDate == nil {
		return false
	}
	return u.SubscriptionEndDate.After(at)
}
