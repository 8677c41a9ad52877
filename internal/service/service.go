// Package service implements the domain triggers: payment intake, the
// customer's quality-check verdicts, admin review decisions, and schedule
// management. Every trigger validates order state first, persists the
// transition through guarded updates, and only then touches the queue via
// the orchestrator.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/internal/notify"
	"github.com/linkmint/linkmint/internal/orchestrator"
	"github.com/linkmint/linkmint/internal/repository"
	"github.com/linkmint/linkmint/pkg/db"
	"github.com/linkmint/linkmint/pkg/queue"

	"github.com/linkmint/linkmint/internal/content"
)

// defaultPlacementTerm mirrors the pipeline default of one year live.
const defaultPlacementTerm = 365 * 24 * time.Hour

// store is the slice of the repository the service needs.
type store interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByPaymentRef(ctx context.Context, ref string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error
	MarkOrderFailed(ctx context.Context, id uuid.UUID, from domain.OrderStatus, reason string) error
	SetSchedule(ctx context.Context, id uuid.UUID, at time.Time) error
	CompleteOrder(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	ActivateSchedule(ctx context.Context, id uuid.UUID, at time.Time, jobID int64) error
	CancelSchedule(ctx context.Context, id uuid.UUID) error

	CreateArticle(ctx context.Context, a *domain.Article) error
	GetArticle(ctx context.Context, id uuid.UUID) (*domain.Article, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*domain.ArticleVersion, error)
	SetVersionReviewStatus(ctx context.Context, id uuid.UUID, to domain.ReviewStatus) error
	SetSelectedVersion(ctx context.Context, articleID, versionID uuid.UUID) error

	ListOrderJobs(ctx context.Context, orderID uuid.UUID) ([]repository.JobRecord, error)
}

// txStore additionally exposes the mutations the transactional schedule flows
// need.
type txStore interface {
	store
	Reschedule(ctx context.Context, id uuid.UUID, at time.Time, jobID int64) error
	MarkJobCancelled(ctx context.Context, key string) error
}

// TxRunner runs fn inside a database transaction, handing it a store bound
// to that transaction. Tests substitute a runner that passes a fake.
type TxRunner func(ctx context.Context, fn func(tx pgx.Tx, s txStore) error) error

// RepositoryTxRunner is the production TxRunner: a pgx transaction with the
// repository rebound to it.
func RepositoryTxRunner(pool *pgxpool.Pool, repo *repository.Repository) TxRunner {
	return func(ctx context.Context, fn func(tx pgx.Tx, s txStore) error) error {
		return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
			return fn(tx, repo.WithTx(tx))
		})
	}
}

// submitter is the slice of the orchestrator the service needs.
type submitter interface {
	SubmitGeneration(ctx context.Context, order *domain.Order) (*queue.JobHandle, error)
	SubmitIntegration(ctx context.Context, order *domain.Order, regeneration int) (*queue.JobHandle, error)
	SubmitScheduledPublish(ctx context.Context, order *domain.Order, versionID uuid.UUID, fireAt time.Time) (*queue.JobHandle, error)
	SubmitScheduledPublishTx(ctx context.Context, tx pgx.Tx, order *domain.Order, versionID uuid.UUID, fireAt time.Time) (*queue.JobHandle, error)
	CancelPendingPublishTx(ctx context.Context, tx pgx.Tx, jobID int64) (bool, error)
	CancelScheduledPublishTx(ctx context.Context, tx pgx.Tx, jobID int64) error
}

// notifier is the slice of the notification service the triggers need.
type notifier interface {
	OrderFailed(ctx context.Context, email string, order *domain.Order, reason string)
	Published(ctx context.Context, email string, order *domain.Order, expiresAt time.Time)
	ScheduleCancelled(ctx context.Context, email string, order *domain.Order)
}

var (
	_ submitter = (*orchestrator.Orchestrator)(nil)
	_ txStore   = (*repository.Repository)(nil)
	_ notifier  = (*notify.Notifier)(nil)
)

// Service wires the triggers together.
type Service struct {
	store         store
	inTx          TxRunner
	orch          submitter
	guard         idempotencyGuard
	publisher     content.Publisher
	notifier      notifier
	logger        *slog.Logger
	placementTerm time.Duration
}

// Options configures optional service behavior.
type Options struct {
	// PlacementTerm is how long a published placement stays live. Zero means
	// one year.
	PlacementTerm time.Duration
}

// New creates the service.
func New(s store, inTx TxRunner, orch submitter, guard idempotencyGuard, publisher content.Publisher, n notifier, logger *slog.Logger, opts Options) *Service {
	term := opts.PlacementTerm
	if term <= 0 {
		term = defaultPlacementTerm
	}
	return &Service{
		store:         s,
		inTx:          inTx,
		orch:          orch,
		guard:         guard,
		publisher:     publisher,
		notifier:      n,
		logger:        logger,
		placementTerm: term,
	}
}
