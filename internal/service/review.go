package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linkmint/linkmint/internal/domain"
)

// Regenerate is the customer's "try again" verdict during quality check. It
// moves the order back to processing and submits a fresh job. Backlink
// regenerations carry an incremented attempt counter and urgent priority;
// the new attempt always derives from the article's live version, never from
// the rejected draft.
func (s *Service) Regenerate(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderQualityCheck {
		return fmt.Errorf("%w: order is %s", ErrOrderNotReviewable, order.Status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, domain.OrderQualityCheck, domain.OrderProcessing); err != nil {
		return err
	}
	order.Status = domain.OrderProcessing

	switch order.Request.Kind {
	case domain.RequestBacklinkIntegration:
		regeneration := 1
		if order.CurrentVersionID != nil {
			if v, err := s.store.GetVersion(ctx, *order.CurrentVersionID); err == nil && v.Backlink != nil {
				regeneration = v.Backlink.Regeneration + 1
			}
		}
		_, err = s.orch.SubmitIntegration(ctx, order, regeneration)
	default:
		_, err = s.orch.SubmitGeneration(ctx, order)
	}
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "regeneration submitted", slog.String("order_id", orderID.String()))
	return nil
}

// SubmitForReview is the customer's "accept" verdict: the order moves to
// admin review. A requested publish time is persisted now but no job is
// submitted; only admin approval turns a wish into a scheduled publication.
func (s *Service) SubmitForReview(ctx context.Context, orderID uuid.UUID, scheduleAt *time.Time) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderQualityCheck {
		return fmt.Errorf("%w: order is %s", ErrOrderNotReviewable, order.Status)
	}
	if order.CurrentVersionID == nil {
		return ErrNoVersion
	}

	if scheduleAt != nil {
		if err := s.store.SetSchedule(ctx, orderID, scheduleAt.UTC()); err != nil {
			return err
		}
	}

	return s.store.UpdateOrderStatus(ctx, orderID, domain.OrderQualityCheck, domain.OrderAdminReview)
}

// Approve is the admin's positive verdict. Orders without a requested publish
// time go live inline, right here in the request; orders with one get a
// scheduled publication job and complete with the scheduled sub-state set.
func (s *Service) Approve(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderAdminReview {
		return fmt.Errorf("%w: order is %s", ErrOrderNotReviewable, order.Status)
	}
	if order.CurrentVersionID == nil {
		return ErrNoVersion
	}
	versionID := *order.CurrentVersionID

	if err := s.store.SetVersionReviewStatus(ctx, versionID, domain.ReviewApproved); err != nil {
		return err
	}

	if order.ScheduledPublishAt == nil {
		return s.publishNow(ctx, order, versionID)
	}

	handle, err := s.orch.SubmitScheduledPublish(ctx, order, versionID, *order.ScheduledPublishAt)
	if err != nil {
		return err
	}
	if err := s.store.ActivateSchedule(ctx, orderID, *order.ScheduledPublishAt, handle.JobID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "publication scheduled",
		slog.String("order_id", orderID.String()),
		slog.Time("publish_at", *order.ScheduledPublishAt),
		slog.Int64("job_id", handle.JobID),
	)
	return nil
}

func (s *Service) publishNow(ctx context.Context, order *domain.Order, versionID uuid.UUID) error {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, order.DomainID, order.ArticleID, versionID, version.Content); err != nil {
		return err
	}
	if err := s.store.SetSelectedVersion(ctx, order.ArticleID, versionID); err != nil {
		return err
	}

	expiresAt := time.Now().UTC().Add(s.placementTerm)
	if err := s.store.CompleteOrder(ctx, order.ID, expiresAt); err != nil {
		return err
	}
	s.notifier.Published(ctx, order.CustomerEmail, order, expiresAt)

	s.logger.InfoContext(ctx, "version published on approval",
		slog.String("order_id", order.ID.String()),
		slog.String("version_id", versionID.String()),
	)
	return nil
}

// Reject is the admin's negative verdict: terminal failure, refund handled
// outside the core.
func (s *Service) Reject(ctx context.Context, orderID uuid.UUID, reason string) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderAdminReview {
		return fmt.Errorf("%w: order is %s", ErrOrderNotReviewable, order.Status)
	}

	if order.CurrentVersionID != nil {
		if err := s.store.SetVersionReviewStatus(ctx, *order.CurrentVersionID, domain.ReviewRejected); err != nil {
			return err
		}
	}
	if err := s.store.MarkOrderFailed(ctx, orderID, domain.OrderAdminReview, reason); err != nil {
		return err
	}
	s.notifier.OrderFailed(ctx, order.CustomerEmail, order, reason)
	return nil
}
