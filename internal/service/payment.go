package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"

	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/internal/repository"
)

// PaymentInput is a confirmed payment webhook's payload.
type PaymentInput struct {
	PaymentRef    string
	CustomerEmail string
	DomainID      uuid.UUID
	// ArticleID names the existing article for backlink orders. Ignored for
	// article generation, which creates its own slot.
	ArticleID *uuid.UUID
	Request   domain.OrderRequest
}

// EnqueueFromPayment is the payment trigger: it creates the order (and the
// article slot for generation orders) and submits the first pipeline job.
// Webhook retries are idempotent twice over: a fast Redis claim on the
// payment reference, and the orders table's unique payment_ref underneath
// it. A duplicate returns the already-created order.
func (s *Service) EnqueueFromPayment(ctx context.Context, in PaymentInput) (*domain.Order, error) {
	if err := in.Request.Validate(); err != nil {
		return nil, err
	}
	if in.PaymentRef == "" {
		return nil, fmt.Errorf("%w: payment reference is required", domain.ErrInvalidRequest)
	}

	claimed, err := s.guard.Acquire(ctx, in.PaymentRef)
	if err != nil {
		// Redis being down must not drop paid orders; fall through to the
		// database constraint.
		s.logger.WarnContext(ctx, "payment idempotency guard unavailable", slog.Any("error", err))
	} else if !claimed {
		existing, err := s.store.GetOrderByPaymentRef(ctx, in.PaymentRef)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// Claim held but no order row: an earlier delivery claimed the
		// reference and then failed before committing. Fall through and
		// create; payment_ref uniqueness catches a true duplicate.
	}

	order, err := s.createOrder(ctx, in)
	if errors.Is(err, repository.ErrDuplicatePayment) {
		return s.store.GetOrderByPaymentRef(ctx, in.PaymentRef)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.submitInitialJob(ctx, order); err != nil {
		// The order row is committed; the job key is deterministic, so ops
		// (or a webhook retry) can resubmit without risk of duplication.
		s.logger.ErrorContext(ctx, "initial job submission failed",
			slog.String("order_id", order.ID.String()), slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "order enqueued from payment",
		slog.String("order_id", order.ID.String()),
		slog.String("kind", string(in.Request.Kind)),
	)
	return order, nil
}

func (s *Service) createOrder(ctx context.Context, in PaymentInput) (*domain.Order, error) {
	order := &domain.Order{
		ID:            uuid.New(),
		DomainID:      in.DomainID,
		CustomerEmail: in.CustomerEmail,
		PaymentRef:    in.PaymentRef,
		Request:       in.Request,
		Status:        domain.OrderProcessing,
	}

	switch in.Request.Kind {
	case domain.RequestArticleGeneration:
		order.ArticleID = uuid.New()
	case domain.RequestBacklinkIntegration:
		if in.ArticleID == nil {
			return nil, ErrArticleRequired
		}
		order.ArticleID = *in.ArticleID
	}

	err := s.inTx(ctx, func(tx pgx.Tx, ts txStore) error {
		if in.Request.Kind == domain.RequestArticleGeneration {
			title := strings.TrimSpace(in.Request.Article.Topic)
			article := &domain.Article{
				ID:       order.ArticleID,
				DomainID: in.DomainID,
				Title:    title,
				// The id-derived suffix keeps two orders for the same topic
				// on one domain from colliding on the slug.
				Slug:   slug.Make(title) + "-" + order.ArticleID.String()[:8],
				Status: domain.ArticleAvailable,
			}
			if err := ts.CreateArticle(ctx, article); err != nil {
				return err
			}
		} else {
			// The named article must exist before money is tied to it.
			if _, err := ts.GetArticle(ctx, order.ArticleID); err != nil {
				return err
			}
		}
		return ts.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) submitInitialJob(ctx context.Context, order *domain.Order) (any, error) {
	switch order.Request.Kind {
	case domain.RequestBacklinkIntegration:
		return s.orch.SubmitIntegration(ctx, order, 0)
	default:
		return s.orch.SubmitGeneration(ctx, order)
	}
}
