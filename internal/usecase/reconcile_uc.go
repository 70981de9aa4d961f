package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"coursehub-payments/internal/domain/model"
	"coursehub-payments/internal/domain/ports/adapter"
	"coursehub-payments/internal/domain/ports/repository"
	"coursehub-payments/internal/infra/logging"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

type OutcomeCode string

const (
	OutcomeSuccess          OutcomeCode = "success"
	OutcomeAlreadyProcessed OutcomeCode = "already_processed"
	OutcomeTokenMissing     OutcomeCode = "token_missing"
	OutcomePaymentNotFound  OutcomeCode = "payment_not_found"
	OutcomeDeclined         OutcomeCode = "declined"
	OutcomeVerifyError      OutcomeCode = "verify_error"
	OutcomeCallbackError    OutcomeCode = "callback_error"
)

// Outcome is the reconciliation result the responder turns into a redirect.
type Outcome struct {
	Code      OutcomeCode
	ErrorCode string // gateway decline code, set when Code == OutcomeDeclined
	Message   string // gateway's raw failure detail, fallback display text
}

// ReconcileUseCase drives one confirmation delivery end to end: resolve the
// correlation token, verify with the gateway, match the pending rows, settle
// them exactly once, and activate entitlements.
type ReconcileUseCase interface {
	// HandleCallback processes an inbound gateway callback. It never returns
	// an error: every failure mode folds into an Outcome the transport layer
	// renders as a redirect.
	HandleCallback(ctx context.Context, req *CallbackRequest) *Outcome
	// ReconcileByToken runs the verify-and-settle pipeline for a known token.
	// Used by the stale-pending sweeper and the admin API.
	ReconcileByToken(ctx context.Context, token string) *Outcome
}

// Locker serializes concurrent deliveries of the same confirmation. It is a
// best-effort optimization: correctness rests on the conditional status
// update, so a failed acquisition is logged and the pipeline proceeds.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type reconcileUC struct {
	resolver     *TokenResolver
	payments     repository.PendingPaymentRepository
	users        repository.UserRepository
	entitlements EntitlementUseCase
	gateway      adapter.CheckoutGateway
	notifier     adapter.Notifier
	tm           repository.TransactionManager
	locker       Locker // optional
	verifyWait   time.Duration
	dev          bool
	log          *zerolog.Logger
}

func NewReconcileUseCase(
	resolver *TokenResolver,
	payments repository.PendingPaymentRepository,
	users repository.UserRepository,
	entitlements EntitlementUseCase,
	gateway adapter.CheckoutGateway,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	locker Locker,
	verifyTimeout time.Duration,
	dev bool,
	logger *zerolog.Logger,
) *reconcileUC {
	if verifyTimeout <= 0 {
		verifyTimeout = 15 * time.Second
	}
	return &reconcileUC{
		resolver:     resolver,
		payments:     payments,
		users:        users,
		entitlements: entitlements,
		gateway:      gateway,
		notifier:     notifier,
		tm:           tm,
		locker:       locker,
		verifyWait:   verifyTimeout,
		dev:          dev,
		log:          logger,
	}
}

func (u *reconcileUC) HandleCallback(ctx context.Context, req *CallbackRequest) *Outcome {
	defer logging.TraceDuration(u.log, "ReconcileUC.HandleCallback")()

	corr, err := u.resolver.Resolve(ctx, req)
	if err != nil {
		u.log.Warn().Str("method", req.Method).Msg("callback carried no recoverable correlation")
		return &Outcome{Code: OutcomeTokenMissing}
	}
	return u.reconcile(ctx, corr.Key())
}

func (u *reconcileUC) ReconcileByToken(ctx context.Context, token string) *Outcome {
	defer logging.TraceDuration(u.log, "ReconcileUC.ReconcileByToken")()

	if token == "" {
		return &Outcome{Code: OutcomeTokenMissing}
	}
	return u.reconcile(ctx, token)
}

func (u *reconcileUC) reconcile(ctx context.Context, token string) *Outcome {
	if u.locker != nil {
		lockToken, err := u.locker.TryLock(ctx, "reconcile:"+token, 30*time.Second)
		if err != nil {
			// The conditional update still guarantees single settlement.
			u.log.Warn().Err(err).Msg("reconcile lock not acquired, proceeding")
		} else {
			defer func() {
				if err := u.locker.Unlock(ctx, "reconcile:"+token, lockToken); err != nil {
					u.log.Warn().Err(err).Msg("reconcile lock release failed")
				}
			}()
		}
	}

	result, err := u.verify(ctx, token)
	if err != nil {
		u.log.Error().Err(err).Msg("gateway verification failed")
		return &Outcome{Code: OutcomeVerifyError}
	}

	conversationID := result.ConversationID
	if conversationID == "" {
		conversationID = token
	}

	rows, settled, err := u.match(ctx, conversationID, result.BasketID)
	if err != nil {
		u.log.Error().Err(err).Msg("pending payment lookup failed")
		return &Outcome{Code: OutcomeCallbackError}
	}
	if len(rows) == 0 {
		if len(settled) > 0 {
			return u.replay(conversationID, settled)
		}
		u.log.Warn().Str("conversation_id", logging.Redact(conversationID, u.dev)).Msg("no pending rows for verified checkout")
		return &Outcome{Code: OutcomePaymentNotFound}
	}

	grants, err := u.settle(ctx, rows, result)
	if err != nil {
		u.log.Error().Err(err).Str("conversation_id", logging.Redact(conversationID, u.dev)).Msg("settle transaction failed")
		return &Outcome{Code: OutcomeCallbackError}
	}

	if !result.Succeeded {
		code := result.ErrorCode
		if code == "" && result.Fraud {
			code = "fraud"
		}
		u.log.Info().
			Str("conversation_id", logging.Redact(conversationID, u.dev)).
			Str("error_code", code).
			Int("rows", len(rows)).
			Msg("gateway reported failure, rows marked failed")
		return &Outcome{Code: OutcomeDeclined, ErrorCode: code, Message: result.ErrorMessage}
	}

	u.notify(ctx, grants)

	u.log.Info().
		Str("conversation_id", logging.Redact(conversationID, u.dev)).
		Int("rows", len(rows)).
		Msg("checkout reconciled")
	return &Outcome{Code: OutcomeSuccess}
}

// replay answers a redelivery of an already-settled checkout with the same
// outcome the original delivery produced. A completed checkout is confirmed
// positively; a failed one is re-answered as declined with the stored reason,
// never as a success.
func (u *reconcileUC) replay(conversationID string, settled []*model.PendingPayment) *Outcome {
	for _, row := range settled {
		if row.Status == model.PaymentStatusCompleted {
			u.log.Info().Str("conversation_id", logging.Redact(conversationID, u.dev)).Msg("replay of completed checkout")
			return &Outcome{Code: OutcomeAlreadyProcessed}
		}
	}
	code := settled[0].FailureReason
	u.log.Info().
		Str("conversation_id", logging.Redact(conversationID, u.dev)).
		Str("error_code", code).
		Msg("replay of failed checkout")
	return &Outcome{Code: OutcomeDeclined, ErrorCode: code}
}

func (u *reconcileUC) verify(ctx context.Context, token string) (*adapter.VerificationResult, error) {
	vctx, cancel := context.WithTimeout(ctx, u.verifyWait)
	defer cancel()

	return u.gateway.Verify(vctx, token)
}

// match finds the set of PENDING rows belonging to this checkout: first by
// the conversation id, then by the basket id kept for rows written before the
// conversation id became the stored key. When no pending row exists the
// settled rows of the same checkout are returned instead, so a redelivery can
// be answered with the original outcome. Lookup errors propagate; they are
// storage failures, not a missing checkout.
func (u *reconcileUC) match(ctx context.Context, conversationID, basketID string) (pending, settled []*model.PendingPayment, err error) {
	pending, err = u.payments.FindPendingByToken(ctx, repository.NoTX, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if len(pending) == 0 && basketID != "" {
		pending, err = u.payments.FindPendingByToken(ctx, repository.NoTX, basketID)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(pending) > 0 {
		return pending, nil, nil
	}

	settled, err = u.payments.FindSettledByToken(ctx, repository.NoTX, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if len(settled) == 0 && basketID != "" {
		settled, err = u.payments.FindSettledByToken(ctx, repository.NoTX, basketID)
		if err != nil {
			return nil, nil, err
		}
	}
	return nil, settled, nil
}

// settle moves every matched row out of PENDING inside one transaction, so a
// partial failure cannot leave one purchase activated and a sibling stuck.
// Entitlements are activated only for rows this call actually transitioned:
// a row a concurrent delivery already settled is skipped.
func (u *reconcileUC) settle(ctx context.Context, rows []*model.PendingPayment, result *adapter.VerificationResult) ([]*SubscriptionGrant, error) {
	var grants []*SubscriptionGrant

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, row := range rows {
			if !result.Succeeded {
				reason := result.ErrorCode
				if reason == "" {
					reason = "declined"
				}
				if _, err := u.payments.MarkFailedIfPending(ctx, tx, row.ID, reason); err != nil {
					return err
				}
				continue
			}

			ok, err := u.payments.MarkCompletedIfPending(ctx, tx, row.ID, result.PaymentID)
			if err != nil {
				return err
			}
			if !ok {
				u.log.Debug().Str("payment_id", row.ID).Msg("row already settled by concurrent delivery")
				continue
			}
			grant, err := u.entitlements.Activate(ctx, tx, row)
			if err != nil {
				return err
			}
			if grant != nil {
				grants = append(grants, grant)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// notify runs after the settle transaction committed, so a rollback can never
// leave the user with a "subscription started" message for a grant that was
// undone. Delivery failures are logged, never surfaced.
func (u *reconcileUC) notify(ctx context.Context, grants []*SubscriptionGrant) {
	for _, g := range grants {
		user, err := u.users.FindByID(ctx, repository.NoTX, g.UserID)
		if err != nil {
			u.log.Error().Err(err).Str("user_id", g.UserID).Msg("notification skipped, user lookup failed")
			continue
		}
		if err := u.notifier.SubscriptionStarted(ctx, user.Email, user.Name, g.Plan, g.EndsAt); err != nil {
			u.log.Error().Err(err).Str("user_id", g.UserID).Msg("subscription notification failed")
		}
	}
}
