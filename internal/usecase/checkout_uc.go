package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"coursehub-payments/internal/domain"
	"coursehub-payments/internal/domain/model"
	"coursehub-payments/internal/domain/ports/repository"
	"coursehub-payments/internal/infra/logging"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// Checkout is the result of beginning a checkout session: one shared
// correlation token, one pending row per purchased item, and the reference
// the browser carries in a cookie so the token can be recovered later.
type Checkout struct {
	Token       string
	CheckoutRef string
	Rows        []*model.PendingPayment
}

type CheckoutUseCase interface {
	// Begin writes the pending rows for one checkout session (a plan charge
	// and/or course purchases) atomically and stashes the token server-side.
	Begin(ctx context.Context, userID, plan string, period model.BillingPeriod, courseIDs []string) (*Checkout, error)
}

type checkoutUC struct {
	payments repository.PendingPaymentRepository
	stash    repository.TokenStash
	tm       repository.TransactionManager
	stashTTL time.Duration
	log      *zerolog.Logger
}

func NewCheckoutUseCase(payments repository.PendingPaymentRepository, stash repository.TokenStash, tm repository.TransactionManager, stashTTL time.Duration, logger *zerolog.Logger) *checkoutUC {
	if stashTTL <= 0 {
		stashTTL = 30 * time.Minute
	}
	return &checkoutUC{payments: payments, stash: stash, tm: tm, stashTTL: stashTTL, log: logger}
}

func (u *checkoutUC) Begin(ctx context.Context, userID, plan string, period model.BillingPeriod, courseIDs []string) (*Checkout, error) {
	l := logging.With(ctx, u.log)
	defer logging.TraceDuration(l, "CheckoutUC.Begin")()

	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if plan == "" && len(courseIDs) == 0 {
		return nil, domain.ErrInvalidArgument
	}

	token := uuid.NewString()
	ref := uuid.NewString()

	var rows []*model.PendingPayment
	if plan != "" {
		row, err := model.NewPendingPayment(token, userID, "", plan, period)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	for _, courseID := range courseIDs {
		row, err := model.NewPendingPayment(token, userID, courseID, "", "")
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, row := range rows {
			if err := u.payments.Save(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if u.stash != nil {
		if err := u.stash.Put(ctx, ref, token, u.stashTTL); err != nil {
			// Recovery falls back to the weaker heuristics; not fatal.
			l.Warn().Err(err).Msg("token stash write failed")
		}
	}

	l.Info().
		Str("user_id", userID).
		Int("rows", len(rows)).
		Msg("checkout session created")
	return &Checkout{Token: token, CheckoutRef: ref, Rows: rows}, nil
}
