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

// GenerateArticle produces the first version of a new article placement.
type GenerateArticle struct {
	store     store
	generator content.Generator
	notifier  notifier
	logger    *slog.Logger
}

// NewGenerateArticle creates the generation processor.
func NewGenerateArticle(s store, g content.Generator, n notifier, logger *slog.Logger) *GenerateArticle {
	return &GenerateArticle{store: s, generator: g, notifier: n, logger: logger}
}

func (t *GenerateArticle) Name() string { return jobs.TaskGenerateArticle }

// Handle calls the generation service exactly once, stores the result as a
// new immutable version, and moves the order into quality_check. On the
// final failed attempt the order is marked failed; earlier failures are
// returned to the queue for retry with untouched order state.
func (t *GenerateArticle) Handle(ctx context.Context, p jobs.GeneratePayload) error {
	result, err := t.generator.Generate(ctx, content.GenerateParams{Article: &p.Params})
	if err != nil {
		return t.fail(ctx, p, fmt.Errorf("generate article: %w", err))
	}

	version := &domain.ArticleVersion{
		ID:           uuid.New(),
		ArticleID:    p.ArticleID,
		Content:      result.Content,
		ReviewStatus: domain.ReviewPending,
		QCStatus:     result.QCStatus,
		QCAttempts:   result.QCAttempts,
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

	t.logger.InfoContext(ctx, "article generated",
		slog.String("order_id", p.OrderID.String()),
		slog.String("version_id", version.ID.String()),
		slog.String("qc_status", string(version.QCStatus)),
	)
	return nil
}

func (t *GenerateArticle) fail(ctx context.Context, p jobs.GeneratePayload, err error) error {
	if meta, ok := queue.MetaFromContext(ctx); ok && meta.FinalAttempt() {
		failOrder(ctx, t.store, t.notifier, t.logger, p.OrderID, p.CustomerEmail, err.Error())
	}
	return err
}
