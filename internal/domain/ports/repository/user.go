package repository

import (
	"context"
	"time"

	"coursehub-payments/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)

	// UpdateSubscription overwrites the account's subscription window. Only
	// the entitlement activator calls this.
	UpdateSubscription(ctx context.Context, tx Tx, userID, plan string, start, end time.Time) error
}
