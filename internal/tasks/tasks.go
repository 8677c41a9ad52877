// Package tasks holds the queue processors of the pipeline. Each processor
// is a small struct with a Name and a typed Handle method, registered on the
// queue manager via structural typing.
//
// Processors never enqueue follow-up jobs. Every submission goes through the
// orchestrator, driven by a domain trigger (payment, customer action, admin
// decision), which keeps the job graph fully visible in one place.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/internal/notify"
	"github.com/linkmint/linkmint/internal/repository"
)

// defaultPlacementTerm is how long a published placement stays live before
// the expiration sweep takes it down.
const defaultPlacementTerm = 365 * 24 * time.Hour

// store is the slice of the repository the processors need.
type store interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	MarkOrderFailed(ctx context.Context, id uuid.UUID, from domain.OrderStatus, reason string) error
	SetOrderVersion(ctx context.Context, id, versionID uuid.UUID, from domain.OrderStatus) error
	MarkSchedulePublished(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	MarkScheduleFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkOrderExpired(ctx context.Context, id uuid.UUID, at time.Time) error
	ListExpiredPlacements(ctx context.Context, now time.Time) ([]*domain.Order, error)

	CreateVersion(ctx context.Context, v *domain.ArticleVersion) error
	GetVersion(ctx context.Context, id uuid.UUID) (*domain.ArticleVersion, error)
	FindPublishedVersion(ctx context.Context, articleID uuid.UUID) (*domain.ArticleVersion, error)
	SetSelectedVersion(ctx context.Context, articleID, versionID uuid.UUID) error
	RevertArticle(ctx context.Context, articleID uuid.UUID, versionID *uuid.UUID) error
}

// notifier is the slice of the notification service the processors need.
// All methods are best-effort and must not return errors.
type notifier interface {
	OrderFailed(ctx context.Context, email string, order *domain.Order, reason string)
	ReadyForReview(ctx context.Context, email string, order *domain.Order)
	Published(ctx context.Context, email string, order *domain.Order, expiresAt time.Time)
	PlacementExpired(ctx context.Context, email string, order *domain.Order)
}

var (
	_ store    = (*repository.Repository)(nil)
	_ notifier = (*notify.Notifier)(nil)
)

// failOrder records a terminal order failure and tells the customer. Called
// only on a job's final attempt; earlier attempts are retried by the queue
// without touching order state.
func failOrder(ctx context.Context, s store, n notifier, logger *slog.Logger, orderID uuid.UUID, email string, reason string) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		logger.ErrorContext(ctx, "load order for failure", slog.String("order_id", orderID.String()), slog.Any("error", err))
		return
	}
	if err := s.MarkOrderFailed(ctx, orderID, order.Status, reason); err != nil {
		logger.ErrorContext(ctx, "mark order failed", slog.String("order_id", orderID.String()), slog.Any("error", err))
		return
	}
	n.OrderFailed(ctx, email, order, reason)
}
