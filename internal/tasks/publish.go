package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkmint/linkmint/internal/content"
	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/internal/jobs"
	"github.com/linkmint/linkmint/pkg/queue"
)

// PublishVersion executes a scheduled publication when its fire time
// arrives.
type PublishVersion struct {
	store         store
	publisher     content.Publisher
	notifier      notifier
	logger        *slog.Logger
	placementTerm time.Duration
}

// NewPublishVersion creates the publication processor. placementTerm is how
// long the placement stays live; zero means the default of one year.
func NewPublishVersion(s store, p content.Publisher, n notifier, logger *slog.Logger, placementTerm time.Duration) *PublishVersion {
	if placementTerm <= 0 {
		placementTerm = defaultPlacementTerm
	}
	return &PublishVersion{store: s, publisher: p, notifier: n, logger: logger, placementTerm: placementTerm}
}

func (t *PublishVersion) Name() string { return jobs.TaskPublishVersion }

// Handle re-reads the order before doing anything: a schedule cancelled (or
// already published) after this job was enqueued makes the run a silent
// no-op rather than an error. The publish side effect itself is recorded via
// a guarded update, so even a duplicate run cannot double-publish.
func (t *PublishVersion) Handle(ctx context.Context, p jobs.PublishPayload) error {
	order, err := t.store.GetOrder(ctx, p.OrderID)
	if err != nil {
		return t.fail(ctx, p, fmt.Errorf("load order: %w", err))
	}

	if order.ScheduledStatus != domain.ScheduledPending {
		t.logger.InfoContext(ctx, "scheduled publish skipped",
			slog.String("order_id", p.OrderID.String()),
			slog.String("scheduled_status", string(order.ScheduledStatus)),
		)
		return nil
	}

	version, err := t.store.GetVersion(ctx, p.VersionID)
	if err != nil {
		return t.fail(ctx, p, fmt.Errorf("load version: %w", err))
	}

	if err := t.publisher.Publish(ctx, p.DomainID, p.ArticleID, version.ID, version.Content); err != nil {
		return t.fail(ctx, p, fmt.Errorf("publish version: %w", err))
	}

	if err := t.store.SetSelectedVersion(ctx, p.ArticleID, version.ID); err != nil {
		return t.fail(ctx, p, fmt.Errorf("select version: %w", err))
	}

	expiresAt := time.Now().UTC().Add(t.placementTerm)
	if err := t.store.MarkSchedulePublished(ctx, p.OrderID, expiresAt); err != nil {
		return t.fail(ctx, p, fmt.Errorf("record publication: %w", err))
	}

	t.notifier.Published(ctx, order.CustomerEmail, order, expiresAt)

	t.logger.InfoContext(ctx, "scheduled version published",
		slog.String("order_id", p.OrderID.String()),
		slog.String("version_id", version.ID.String()),
	)
	return nil
}

func (t *PublishVersion) fail(ctx context.Context, p jobs.PublishPayload, err error) error {
	if meta, ok := queue.MetaFromContext(ctx); ok && meta.FinalAttempt() {
		if markErr := t.store.MarkScheduleFailed(ctx, p.OrderID, err.Error()); markErr != nil {
			t.logger.ErrorContext(ctx, "mark schedule failed",
				slog.String("order_id", p.OrderID.String()), slog.Any("error", markErr))
		}
	}
	return err
}
