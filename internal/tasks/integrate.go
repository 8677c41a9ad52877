package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linkmint/linkmint/internal/content"
	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/internal/jobs"
	"github.com/linkmint/linkmint/pkg/queue"
)

// IntegrateBacklink weaves a customer's backlink into an existing published
// article, producing a new version derived from it.
type IntegrateBacklink struct {
	store     store
	generator content.Generator
	notifier  notifier
	logger    *slog.Logger
}

// NewIntegrateBacklink creates the integration processor.
func NewIntegrateBacklink(s store, g content.Generator, n notifier, logger *slog.Logger) *IntegrateBacklink {
	return &IntegrateBacklink{store: s, generator: g, notifier: n, logger: logger}
}

func (t *IntegrateBacklink) Name() string { return jobs.TaskIntegrateBacklink }

// Handle resolves the integration base at execution time: always the
// article's currently published version, never the customer's previous
// attempt. Regenerations therefore re-derive from the same live content and
// produce independent alternatives, not a chain of edits.
func (t *IntegrateBacklink) Handle(ctx context.Context, p jobs.IntegratePayload) error {
	base, err := t.store.FindPublishedVersion(ctx, p.ArticleID)
	if err != nil {
		return t.fail(ctx, p, fmt.Errorf("resolve integration base: %w", err))
	}

	result, err := t.generator.Generate(ctx, content.GenerateParams{
		Backlink:    &p.Params,
		BaseContent: base.Content,
	})
	if err != nil {
		return t.fail(ctx, p, fmt.Errorf("integrate backlink: %w", err))
	}

	version := &domain.ArticleVersion{
		ID:           uuid.New(),
		ArticleID:    p.ArticleID,
		Content:      result.Content,
		ReviewStatus: domain.ReviewPending,
		QCStatus:     result.QCStatus,
		QCAttempts:   result.QCAttempts,
		Backlink: &domain.BacklinkMeta{
			URL:           p.Params.TargetURL,
			AnchorText:    p.Params.AnchorText,
			BaseVersionID: base.ID,
			Regeneration:  p.Regeneration,
		},
	}
	if err := t.store.CreateVersion(ctx, version); err != nil {
		return t.fail(ctx, p, fmt.Errorf("store version: %w", err))
	}

	if err := t.store.SetOrderVersion(ctx, p.OrderID, version.ID, domain.OrderProcessing); err != nil {
		return t.fail(ctx, p, fmt.Errorf("advance order: %w", err))
	}

	order, err := t.store.GetOrder(ctx, p.OrderID)
	if err == nil {
		t.notifier.ReadyForReview(ctx, p.CustomerEmail, order)
	}

	t.logger.InfoContext(ctx, "backlink integrated",
		slog.String("order_id", p.OrderID.String()),
		slog.String("version_id", version.ID.String()),
		slog.String("base_version_id", base.ID.String()),
		slog.Int("regeneration", p.Regeneration),
	)
	return nil
}

func (t *IntegrateBacklink) fail(ctx context.Context, p jobs.IntegratePayload, err error) error {
	if meta, ok := queue.MetaFromContext(ctx); ok && meta.FinalAttempt() {
		failOrder(ctx, t.store, t.notifier, t.logger, p.OrderID, p.CustomerEmail, err.Error())
	}
	return err
}
