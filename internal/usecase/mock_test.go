//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"coursehub-payments/internal/domain"
	"coursehub-payments/internal/domain/model"
	"coursehub-payments/internal/domain/ports/adapter"
	"coursehub-payments/internal/domain/ports/repository"
	"coursehub-payments/internal/usecase"
)

// =============================
// Repositories
// =============================

// ---- Mock PendingPaymentRepository ----

// MockPaymentRepo is an in-memory PendingPaymentRepository. Every method can
// be overridden with a Func field to script failures or capture arguments.
type MockPaymentRepo struct {
	mu   sync.Mutex
	rows map[string]*model.PendingPayment

	SaveFunc                   func(ctx context.Context, tx repository.Tx, p *model.PendingPayment) error
	FindByIDFunc               func(ctx context.Context, tx repository.Tx, id string) (*model.PendingPayment, error)
	FindPendingByTokenFunc     func(ctx context.Context, tx repository.Tx, token string) ([]*model.PendingPayment, error)
	FindSettledByTokenFunc     func(ctx context.Context, tx repository.Tx, token string) ([]*model.PendingPayment, error)
	MostRecentPendingFunc      func(ctx context.Context, tx repository.Tx) (*model.PendingPayment, error)
	MarkCompletedIfPendingFunc func(ctx context.Context, tx repository.Tx, id, gatewayPaymentID string) (bool, error)
	MarkFailedIfPendingFunc    func(ctx context.Context, tx repository.Tx, id, reason string) (bool, error)
	ListPendingOlderThanFunc   func(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.PendingPayment, error)
}

var _ repository.PendingPaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{rows: make(map[string]*model.PendingPayment)}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PendingPayment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PendingPayment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) FindPendingByToken(ctx context.Context, tx repository.Tx, token string) ([]*model.PendingPayment, error) {
	if m.FindPendingByTokenFunc != nil {
		return m.FindPendingByTokenFunc(ctx, tx, token)
	}
	return m.byToken(token, model.PaymentStatusPending), nil
}

func (m *MockPaymentRepo) FindSettledByToken(ctx context.Context, tx repository.Tx, token string) ([]*model.PendingPayment, error) {
	if m.FindSettledByTokenFunc != nil {
		return m.FindSettledByTokenFunc(ctx, tx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PendingPayment
	for _, p := range m.rows {
		if p.CorrelationToken == token && p.Status != model.PaymentStatusPending {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (m *MockPaymentRepo) MostRecentPending(ctx context.Context, tx repository.Tx) (*model.PendingPayment, error) {
	if m.MostRecentPendingFunc != nil {
		return m.MostRecentPendingFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *model.PendingPayment
	for _, p := range m.rows {
		if p.Status != model.PaymentStatusPending {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (m *MockPaymentRepo) MarkCompletedIfPending(ctx context.Context, tx repository.Tx, id, gatewayPaymentID string) (bool, error) {
	if m.MarkCompletedIfPendingFunc != nil {
		return m.MarkCompletedIfPendingFunc(ctx, tx, id, gatewayPaymentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusCompleted
	p.GatewayPaymentID = gatewayPaymentID
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockPaymentRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id, reason string) (bool, error) {
	if m.MarkFailedIfPendingFunc != nil {
		return m.MarkFailedIfPendingFunc(ctx, tx, id, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.PendingPayment, error) {
	if m.ListPendingOlderThanFunc != nil {
		return m.ListPendingOlderThanFunc(ctx, tx, cutoff, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PendingPayment
	for _, p := range m.rows {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortByCreatedAt(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPaymentRepo) byToken(token string, status model.PaymentStatus) []*model.PendingPayment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PendingPayment
	for _, p := range m.rows {
		if p.CorrelationToken == token && p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortByCreatedAt(out)
	return out
}

func sortByCreatedAt(ps []*model.PendingPayment) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt) })
}

// ---- Mock EnrollmentRepository ----

type MockEnrollmentRepo struct {
	mu      sync.Mutex
	byPair  map[string]*model.Enrollment
	Created []*model.Enrollment

	ExistsFunc func(ctx context.Context, tx repository.Tx, userID, courseID string) (bool, error)
	CreateFunc func(ctx context.Context, tx repository.Tx, e *model.Enrollment) error
}

var _ repository.EnrollmentRepository = (*MockEnrollmentRepo)(nil)

func NewMockEnrollmentRepo() *MockEnrollmentRepo {
	return &MockEnrollmentRepo{byPair: make(map[string]*model.Enrollment)}
}

func pairKey(userID, courseID string) string { return userID + "/" + courseID }

func (m *MockEnrollmentRepo) Exists(ctx context.Context, tx repository.Tx, userID, courseID string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, tx, userID, courseID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byPair[pairKey(userID, courseID)]
	return ok, nil
}

func (m *MockEnrollmentRepo) Create(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(e.UserID, e.CourseID)
	if _, ok := m.byPair[key]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *e
	m.byPair[key] = &cp
	m.Created = append(m.Created, &cp)
	return nil
}

func (m *MockEnrollmentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Enrollment
	for _, e := range m.byPair {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	FindByIDFunc           func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
	UpdateSubscriptionFunc func(ctx context.Context, tx repository.Tx, userID, plan string, start, end time.Time) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: make(map[string]*model.User)}
}

func (m *MockUserRepo) Seed(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) UpdateSubscription(ctx context.Context, tx repository.Tx, userID, plan string, start, end time.Time) error {
	if m.UpdateSubscriptionFunc != nil {
		return m.UpdateSubscriptionFunc(ctx, tx, userID, plan, start, end)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.SubscriptionPlan = plan
	s, e := start, end
	u.SubscriptionStartDate = &s
	u.SubscriptionEndDate = &e
	return nil
}

// ---- Mock TokenStash ----

type MockTokenStash struct {
	mu      sync.Mutex
	entries map[string]string

	PutFunc func(ctx context.Context, checkoutRef, token string, ttl time.Duration) error
	GetFunc func(ctx context.Context, checkoutRef string) (string, error)
}

var _ repository.TokenStash = (*MockTokenStash)(nil)

func NewMockTokenStash() *MockTokenStash {
	return &MockTokenStash{entries: make(map[string]string)}
}

func (m *MockTokenStash) Put(ctx context.Context, checkoutRef, token string, ttl time.Duration) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, checkoutRef, token, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[checkoutRef] = token
	return nil
}

func (m *MockTokenStash) Get(ctx context.Context, checkoutRef string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, checkoutRef)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.entries[checkoutRef]
	if !ok {
		return "", domain.ErrNotFound
	}
	return token, nil
}

// ---- Mock TransactionManager ----

// MockTxManager executes fn inline with a nil tx, matching the repositories'
// non-transactional path. Override WithTxFunc to simulate commit failures.
type MockTxManager struct {
	Calls     int
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.Calls++
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

// ---- Mock CheckoutGateway ----

type MockGateway struct {
	mu     sync.Mutex
	Tokens []string // tokens Verify was called with

	VerifyFunc func(ctx context.Context, token string) (*adapter.VerificationResult, error)
}

var _ adapter.CheckoutGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) Verify(ctx context.Context, token string) (*adapter.VerificationResult, error) {
	m.mu.Lock()
	m.Tokens = append(m.Tokens, token)
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token)
	}
	return &adapter.VerificationResult{Succeeded: true, ConversationID: token, PaymentID: "gw-pay-1"}, nil
}

// ---- Mock Notifier ----

type SentNotification struct {
	Email  string
	Name   string
	Plan   string
	EndsAt time.Time
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentNotification

	SubscriptionStartedFunc func(ctx context.Context, email, name, plan string, endsAt time.Time) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) SubscriptionStarted(ctx context.Context, email, name, plan string, endsAt time.Time) error {
	if m.SubscriptionStartedFunc != nil {
		return m.SubscriptionStartedFunc(ctx, email, name, plan, endsAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentNotification{Email: email, Name: name, Plan: plan, EndsAt: endsAt})
	return nil
}

// ---- Mock Locker ----

type MockLocker struct {
	mu       sync.Mutex
	Locked   []string
	Unlocked []string

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

var _ usecase.Locker = (*MockLocker)(nil)

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Locked = append(m.Locked, key)
	return "lock-token", nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unlocked = append(m.Unlocked, key)
	return nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
