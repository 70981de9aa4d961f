package adapter

import (
	"context"
	"time"
)

// Notifier delivers user-facing messages about entitlement changes.
// Delivery is best effort: reconciliation never fails because a notification
// could not be sent.
type Notifier interface {
	SubscriptionStarted(ctx context.Context, email, name, plan string, endsAt time.Time) error
}
