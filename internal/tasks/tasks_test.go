package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkmint/linkmint/internal/content"
	"github.com/linkmint/linkmint/internal/domain"
)

// fakeStore is an in-memory store tracking the calls processors make.
type fakeStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*domain.Order
	versions map[uuid.UUID]*domain.ArticleVersion
	articles map[uuid.UUID]*domain.Article

	failedReasons   map[uuid.UUID]string
	scheduleFailed  map[uuid.UUID]string
	published       map[uuid.UUID]time.Time
	expired         map[uuid.UUID]time.Time
	reverted        map[uuid.UUID]*uuid.UUID
	selected        map[uuid.UUID]uuid.UUID
	expiredListErr  error
	createdVersions []*domain.ArticleVersion
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:         make(map[uuid.UUID]*domain.Order),
		versions:       make(map[uuid.UUID]*domain.ArticleVersion),
		articles:       make(map[uuid.UUID]*domain.Article),
		failedReasons:  make(map[uuid.UUID]string),
		scheduleFailed: make(map[uuid.UUID]string),
		published:      make(map[uuid.UUID]time.Time),
		expired:        make(map[uuid.UUID]time.Time),
		reverted:       make(map[uuid.UUID]*uuid.UUID),
		selected:       make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeStore) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	copied := *o
	return &copied, nil
}

func (f *fakeStore) MarkOrderFailed(_ context.Context, id uuid.UUID, _ domain.OrderStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedReasons[id] = reason
	if o, ok := f.orders[id]; ok {
		o.Status = domain.OrderFailed
	}
	return nil
}

func (f *fakeStore) SetOrderVersion(_ context.Context, id, versionID uuid.UUID, _ domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return errors.New("order not found")
	}
	o.Status = domain.OrderQualityCheck
	o.CurrentVersionID = &versionID
	return nil
}

func (f *fakeStore) MarkSchedulePublished(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[id] = expiresAt
	if o, ok := f.orders[id]; ok {
		o.ScheduledStatus = domain.ScheduledPublished
	}
	return nil
}

func (f *fakeStore) MarkScheduleFailed(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduleFailed[id] = reason
	return nil
}

func (f *fakeStore) MarkOrderExpired(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired[id] = at
	return nil
}

func (f *fakeStore) ListExpiredPlacements(_ context.Context, now time.Time) ([]*domain.Order, error) {
	if f.expiredListErr != nil {
		return nil, f.expiredListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for _, o := range f.orders {
		if o.Status == domain.OrderCompleted && o.ExpiredAt == nil &&
			o.PlacementExpiresAt != nil && !o.PlacementExpiresAt.After(now) {
			copied := *o
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateVersion(_ context.Context, v *domain.ArticleVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.VersionNumber = len(f.createdVersions) + 1
	f.versions[v.ID] = v
	f.createdVersions = append(f.createdVersions, v)
	return nil
}

func (f *fakeStore) GetVersion(_ context.Context, id uuid.UUID) (*domain.ArticleVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[id]
	if !ok {
		return nil, errors.New("version not found")
	}
	return v, nil
}

func (f *fakeStore) FindPublishedVersion(_ context.Context, articleID uuid.UUID) (*domain.ArticleVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[articleID]
	if !ok {
		return nil, errors.New("article not found")
	}
	if a.SelectedVersionID == nil {
		return nil, domain.ErrNoPublishedVersion
	}
	return f.versions[*a.SelectedVersionID], nil
}

func (f *fakeStore) SetSelectedVersion(_ context.Context, articleID, versionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected[articleID] = versionID
	if a, ok := f.articles[articleID]; ok {
		a.SelectedVersionID = &versionID
		a.Status = domain.ArticlePublished
	}
	return nil
}

func (f *fakeStore) RevertArticle(_ context.Context, articleID uuid.UUID, versionID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reverted[articleID] = versionID
	return nil
}

// fakeGenerator counts calls and returns canned results or errors.
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []content.GenerateParams
	result  *content.GenerationResult
	err     error
	failFor int // fail the first N calls
}

func (g *fakeGenerator) Generate(_ context.Context, params content.GenerateParams) (*content.GenerationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, params)
	if g.err != nil && (g.failFor == 0 || len(g.calls) <= g.failFor) {
		return nil, g.err
	}
	if g.result != nil {
		return g.result, nil
	}
	return &content.GenerationResult{Content: "<p>generated</p>", QCStatus: domain.QCPassed, QCAttempts: 1}, nil
}

// fakePublisher records publish and unpublish calls.
type fakePublisher struct {
	mu          sync.Mutex
	published   []uuid.UUID // version ids
	unpublished []uuid.UUID // article ids
	err         error
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

func (p *fakePublisher) Unpublish(_ context.Context, _, articleID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.unpublished = append(p.unpublished, articleID)
	return nil
}

// fakeNotifier records which notifications fired.
type fakeNotifier struct {
	mu             sync.Mutex
	failed         []uuid.UUID
	readyForReview []uuid.UUID
	published      []uuid.UUID
	expired        []uuid.UUID
}

func (n *fakeNotifier) OrderFailed(_ context.Context, _ string, order *domain.Order, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, order.ID)
}

func (n *fakeNotifier) ReadyForReview(_ context.Context, _ string, order *domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.readyForReview = append(n.readyForReview, order.ID)
}

func (n *fakeNotifier) Published(_ context.Context, _ string, order *domain.Order, _ time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, order.ID)
}

func (n *fakeNotifier) PlacementExpired(_ context.Context, _ string, order *domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, order.ID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
