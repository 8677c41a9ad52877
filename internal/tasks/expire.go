package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkmint/linkmint/internal/content"
	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/internal/jobs"
)

// ExpirePlacements is the daily sweep over placements whose guaranteed term
// has ended. Expired backlink integrations are reverted to the version the
// integration was derived from; expired article placements are taken down
// entirely.
type ExpirePlacements struct {
	store     store
	publisher content.Publisher
	notifier  notifier
	logger    *slog.Logger
}

// NewExpirePlacements creates the expiration sweeper.
func NewExpirePlacements(s store, p content.Publisher, n notifier, logger *slog.Logger) *ExpirePlacements {
	return &ExpirePlacements{store: s, publisher: p, notifier: n, logger: logger}
}

func (t *ExpirePlacements) Name() string { return jobs.TaskExpirePlacements }

// Schedule runs the sweep daily at 03:00, off peak.
func (t *ExpirePlacements) Schedule() string { return "0 3 * * *" }

// Handle sweeps all due placements. Failures on one order are logged and
// skipped so a single bad row never blocks the rest; the order stays due and
// the next sweep retries it.
func (t *ExpirePlacements) Handle(ctx context.Context) error {
	now := time.Now().UTC()
	orders, err := t.store.ListExpiredPlacements(ctx, now)
	if err != nil {
		return err
	}

	for _, order := range orders {
		if err := t.expire(ctx, order, now); err != nil {
			t.logger.ErrorContext(ctx, "placement expiration failed",
				slog.String("order_id", order.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		t.notifier.PlacementExpired(ctx, order.CustomerEmail, order)
	}

	t.logger.InfoContext(ctx, "expiration sweep done", slog.Int("expired", len(orders)))
	return nil
}

// expire takes one placement down. Backlink integrations revert the article
// to the base version the integration was derived from; article placements
// have no prior content and are unpublished.
func (t *ExpirePlacements) expire(ctx context.Context, order *domain.Order, now time.Time) error {
	if order.CurrentVersionID != nil {
		version, err := t.store.GetVersion(ctx, *order.CurrentVersionID)
		if err != nil {
			return fmt.Errorf("load version: %w", err)
		}

		if version.Backlink != nil {
			base, err := t.store.GetVersion(ctx, version.Backlink.BaseVersionID)
			if err != nil {
				return fmt.Errorf("load base version: %w", err)
			}
			if err := t.publisher.Publish(ctx, order.DomainID, order.ArticleID, base.ID, base.Content); err != nil {
				return fmt.Errorf("restore base version: %w", err)
			}
			if err := t.store.RevertArticle(ctx, order.ArticleID, &base.ID); err != nil {
				return fmt.Errorf("revert article: %w", err)
			}
			return t.store.MarkOrderExpired(ctx, order.ID, now)
		}
	}

	if err := t.publisher.Unpublish(ctx, order.DomainID, order.ArticleID); err != nil {
		return fmt.Errorf("unpublish article: %w", err)
	}
	if err := t.store.RevertArticle(ctx, order.ArticleID, nil); err != nil {
		return fmt.Errorf("revert article: %w", err)
	}
	return t.store.MarkOrderExpired(ctx, order.ID, now)
}
