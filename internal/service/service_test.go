package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/internal/repository"
	"github.com/linkmint/linkmint/pkg/queue"
)

// fakeStore is an in-memory txStore.
type fakeStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*domain.Order
	byRef    map[string]uuid.UUID
	articles map[uuid.UUID]*domain.Article
	versions map[uuid.UUID]*domain.ArticleVersion
	jobs     map[uuid.UUID][]repository.JobRecord

	reviewStatuses map[uuid.UUID]domain.ReviewStatus
	selected       map[uuid.UUID]uuid.UUID
	completed      map[uuid.UUID]time.Time
	rescheduled    map[uuid.UUID]time.Time
	cancelledJobs  []string

	createErr error // consumed by the next CreateOrder
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:         make(map[uuid.UUID]*domain.Order),
		byRef:          make(map[string]uuid.UUID),
		articles:       make(map[uuid.UUID]*domain.Article),
		versions:       make(map[uuid.UUID]*domain.ArticleVersion),
		jobs:           make(map[uuid.UUID][]repository.JobRecord),
		reviewStatuses: make(map[uuid.UUID]domain.ReviewStatus),
		selected:       make(map[uuid.UUID]uuid.UUID),
		completed:      make(map[uuid.UUID]time.Time),
		rescheduled:    make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeStore) CreateOrder(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}
	if _, dup := f.byRef[o.PaymentRef]; dup {
		return repository.ErrDuplicatePayment
	}
	copied := *o
	f.orders[o.ID] = &copied
	f.byRef[o.PaymentRef] = o.ID
	return nil
}

func (f *fakeStore) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeStore) GetOrderByPaymentRef(_ context.Context, ref string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byRef[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *f.orders[id]
	return &copied, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	return nil
}

func (f *fakeStore) MarkOrderFailed(_ context.Context, id uuid.UUID, from domain.OrderStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = domain.OrderFailed
	o.FailureReason = reason
	return nil
}

func (f *fakeStore) SetSchedule(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != domain.OrderQualityCheck {
		return repository.ErrStatusConflict
	}
	o.ScheduledPublishAt = &at
	return nil
}

func (f *fakeStore) CompleteOrder(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != domain.OrderAdminReview {
		return repository.ErrStatusConflict
	}
	o.Status = domain.OrderCompleted
	o.PlacementExpiresAt = &expiresAt
	f.completed[id] = expiresAt
	return nil
}

func (f *fakeStore) ActivateSchedule(_ context.Context, id uuid.UUID, at time.Time, jobID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != domain.OrderAdminReview {
		return repository.ErrStatusConflict
	}
	o.Status = domain.OrderCompleted
	o.ScheduledStatus = domain.ScheduledPending
	o.ScheduledPublishAt = &at
	o.ScheduledJobID = &jobID
	return nil
}

func (f *fakeStore) CancelSchedule(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.ScheduledStatus != domain.ScheduledPending {
		return repository.ErrStatusConflict
	}
	o.ScheduledStatus = domain.ScheduledCancelled
	o.ScheduledJobID = nil
	return nil
}

func (f *fakeStore) Reschedule(_ context.Context, id uuid.UUID, at time.Time, jobID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.ScheduledStatus != domain.ScheduledPending {
		return repository.ErrStatusConflict
	}
	o.ScheduledPublishAt = &at
	o.ScheduledJobID = &jobID
	f.rescheduled[id] = at
	return nil
}

func (f *fakeStore) CreateArticle(_ context.Context, a *domain.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *a
	f.articles[a.ID] = &copied
	return nil
}

func (f *fakeStore) GetArticle(_ context.Context, id uuid.UUID) (*domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) GetVersion(_ context.Context, id uuid.UUID) (*domain.ArticleVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) SetVersionReviewStatus(_ context.Context, id uuid.UUID, to domain.ReviewStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewStatuses[id] = to
	return nil
}

func (f *fakeStore) SetSelectedVersion(_ context.Context, articleID, versionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected[articleID] = versionID
	return nil
}

func (f *fakeStore) ListOrderJobs(_ context.Context, orderID uuid.UUID) ([]repository.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[orderID], nil
}

func (f *fakeStore) MarkJobCancelled(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelledJobs = append(f.cancelledJobs, key)
	return nil
}

// fakeSubmitter records orchestrator calls.
type fakeSubmitter struct {
	mu            sync.Mutex
	generations   []uuid.UUID
	integrations  []int // regeneration counters, in order
	publishes     []time.Time
	publishesInTx int
	cancelled     []int64
	cancelledTx   []int64
	canCancel     bool
	nextJobID     int64
	err           error
}

func (f *fakeSubmitter) handle(key string, at time.Time) (*queue.JobHandle, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.nextJobID++
	return &queue.JobHandle{JobID: f.nextJobID, Key: key, ScheduledAt: at}, nil
}

func (f *fakeSubmitter) SubmitGeneration(_ context.Context, order *domain.Order) (*queue.JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generations = append(f.generations, order.ID)
	return f.handle("generate:"+order.ID.String(), time.Now())
}

func (f *fakeSubmitter) SubmitIntegration(_ context.Context, order *domain.Order, regeneration int) (*queue.JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrations = append(f.integrations, regeneration)
	return f.handle("integrate:"+order.ID.String(), time.Now())
}

func (f *fakeSubmitter) SubmitScheduledPublish(_ context.Context, _ *domain.Order, versionID uuid.UUID, fireAt time.Time) (*queue.JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes = append(f.publishes, fireAt)
	return f.handle("scheduled-publish:"+versionID.String(), fireAt)
}

func (f *fakeSubmitter) SubmitScheduledPublishTx(_ context.Context, _ pgx.Tx, _ *domain.Order, versionID uuid.UUID, fireAt time.Time) (*queue.JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes = append(f.publishes, fireAt)
	f.publishesInTx++
	return f.handle("scheduled-publish:"+versionID.String(), fireAt)
}

func (f *fakeSubmitter) CancelPendingPublishTx(_ context.Context, _ pgx.Tx, jobID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.canCancel {
		return false, nil
	}
	f.cancelled = append(f.cancelled, jobID)
	return true, nil
}

func (f *fakeSubmitter) CancelScheduledPublishTx(_ context.Context, _ pgx.Tx, jobID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelledTx = append(f.cancelledTx, jobID)
	return nil
}

// fakeGuard claims each key once.
type fakeGuard struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func (g *fakeGuard) Acquire(_ context.Context, key string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed == nil {
		g.claimed = make(map[string]bool)
	}
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

// fakePublisher records inline publishes.
type fakePublisher struct {
	mu        sync.Mutex
	published []uuid.UUID
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, _, _, versionID uuid.UUID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, versionID)
	return nil
}

func (p *fakePublisher) Unpublish(context.Context, uuid.UUID, uuid.UUID) error { return nil }

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu        sync.Mutex
	failed    []uuid.UUID
	published []uuid.UUID
	cancelled []uuid.UUID
}

func (n *fakeNotifier) OrderFailed(_ context.Context, _ string, order *domain.Order, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, order.ID)
}

func (n *fakeNotifier) Published(_ context.Context, _ string, order *domain.Order, _ time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, order.ID)
}

func (n *fakeNotifier) ScheduleCancelled(_ context.Context, _ string, order *domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, order.ID)
}

// stubTxRunner passes the fake store straight through; there is no real
// transaction in unit tests.
func stubTxRunner(s txStore) TxRunner {
	return func(ctx context.Context, fn func(tx pgx.Tx, s txStore) error) error {
		return fn(nil, s)
	}
}

type testDeps struct {
	store     *fakeStore
	submitter *fakeSubmitter
	guard     *fakeGuard
	publisher *fakePublisher
	notifier  *fakeNotifier
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		store:     newFakeStore(),
		submitter: &fakeSubmitter{},
		guard:     &fakeGuard{},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
	}
	svc := New(
		deps.store,
		stubTxRunner(deps.store),
		deps.submitter,
		deps.guard,
		deps.publisher,
		deps.notifier,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options{},
	)
	return svc, deps
}

var errUnavailable = errors.New("unavailable")
