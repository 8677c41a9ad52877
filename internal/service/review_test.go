package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkmint/linkmint/internal/domain"
)

// seedReviewableOrder places a backlink order in quality_check with a drafted
// version.
func seedReviewableOrder(deps *testDeps, status domain.OrderStatus) (*domain.Order, *domain.ArticleVersion) {
	articleID := uuid.New()
	baseID := uuid.New()
	version := &domain.ArticleVersion{
		ID:        uuid.New(),
		ArticleID: articleID,
		Content:   "<p>draft with backlink</p>",
		Backlink:  &domain.BacklinkMeta{URL: "https://example.com", BaseVersionID: baseID, Regeneration: 0},
	}
	deps.store.versions[version.ID] = version
	deps.store.articles[articleID] = &domain.Article{ID: articleID}

	order := &domain.Order{
		ID:               uuid.New(),
		ArticleID:        articleID,
		DomainID:         uuid.New(),
		CustomerEmail:    "customer@example.com",
		Status:           status,
		CurrentVersionID: &version.ID,
		Request: domain.OrderRequest{
			Kind:     domain.RequestBacklinkIntegration,
			Backlink: &domain.BacklinkIntegrationRequest{TargetURL: "https://example.com", AnchorText: "example"},
		},
	}
	deps.store.orders[order.ID] = order
	return order, version
}

func TestRegenerate_IncrementsAttemptCounter(t *testing.T) {
	t.Parallel()

	svc, deps := newTestService(t)
	order, _ := seedReviewableOrder(deps, domain.OrderQualityCheck)

	require.NoError(t, svc.Regenerate(context.Background(), order.ID))

	assert.Equal(t, domain.OrderProcessing, deps.store.orders[order.ID].Status)
	assert.Equal(t, []int{1}, deps.submitter.integrations, "first regeneration carries counter 1")
}

func TestRegenerate_SecondRegenerationIncrementsAgain(t *testing.T) {
	t.Parallel()

	svc, deps := newTestService(t)
	order, version := seedReviewableOrder(deps, domain.OrderQualityCheck)
	version.Backlink.Regeneration = 1

	require.NoError(t, svc.Regenerate(context.Background(), order.ID))
	assert.Equal(t, []int{2}, deps.submitter.integrations)
}

func TestRegenerate_WrongState(t *testing.T) {
	t.Parallel()

	svc, deps := newTestService(t)
	order, _ := seedReviewableOrder(deps, domain.OrderAdminReview)

	err := svc.Regenerate(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrOrderNotReviewable)
	assert.Empty(t, deps.submitter.integrations)
}

func TestSubmitForReview_Immediate(t *testing.T) {
	t.Parallel()

	svc, deps := newTestService(t)
	order, _ := seedReviewableOrder(deps, domain.OrderQualityCheck)

	require.NoError(t, svc.SubmitForReview(context.Background(), order.ID, nil))

	stored := deps.store.orders[order.ID]
	assert.Equal(t, domain.OrderAdminReview, stored.Status)
	assert.Nil(t, stored.ScheduledPublishAt)
}

func TestSubmitForReview_WithSchedule_PersistsButDoesNotEnqueue(t *testing.T) {
	t.Parallel()

	svc, deps := newTestService(t)
	order, _ := seedReviewableOrder(deps, domain.OrderQualityCheck)
	at := time.Now().Add(72 * time.Hour).UTC()

	require.NoError(t, svc.SubmitForReview(context.Background(), order.ID, &at))

	stored := deps.store.orders[order.ID]
	assert.Equal(t, domain.OrderAdminReview, stored.Status)
	require.NotNil(t, stored.ScheduledPublishAt)
	assert.Equal(t, at, *stored.ScheduledPublishAt)
	assert.Empty(t, deps.submitter.publishes, "the job is only submitted on admin approval")
}

func TestApprove_ImmediatePublishesInline(t *testing.T) {
	t.Parallel()

	svc, deps := newTestService(t)
	order, version := seedReviewableOrder(deps, domain.OrderAdminReview)

	require.NoError(t, svc.Approve(context.Background(), order.ID))

	assert.Equal(t, []uuid.UUID{version.ID}, deps.publisher.published)
	assert.Equal(t, version.ID, deps.store.selected[order.ArticleID])
	assert.Equal(t, domain.ReviewApproved, deps.store.reviewStatuses[version.ID])

	stored := deps.store.orders[order.ID]
	assert.Equal(t, domain.OrderCompleted, stored.Status)
	assert.Equal(t, domain.ScheduledNone, stored.ScheduledStatus)
	require.NotNil(t, stored.PlacementExpiresAt)
	assert.WithinDuration(t, time.Now().Add(defaultPlacementTerm), *stored.PlacementExpiresAt, time.Minute)

	assert.Equal(t, []uuid.UUID{order.ID}, deps.notifier.published)
	assert.Empty(t, deps.submitter.publishes, "immediate approval never goes through the queue")
}

func TestApprove_ScheduledSubmitsJob(t *testing.T) {
	t.Parallel()

	svc, deps := newTestService(t)
	order, version := seedReviewableOrder(deps, domain.OrderAdminReview)
	at := time.Now().Add(48 * time.Hour).UTC()
	deps.store.orders[order.ID].ScheduledPublishAt = &at

	require.NoError(t, svc.Approve(context.Background(), order.ID))

	require.Len(t, deps.submitter.publishes, 1)
	assert.Equal(t, at, deps.submitter.publishes[0])
	assert.Empty(t, deps.publisher.published, "nothing goes live before the fire time")

	stored := deps.store.orders[order.ID]
	assert.Equal(t, domain.OrderCompleted, stored.Status)
	assert.Equal(t, domain.ScheduledPending, stored.ScheduledStatus)
	require.NotNil(t, stored.ScheduledJobID)
	assert.Equal(t, domain.ReviewApproved, deps.store.reviewStatuses[version.ID])
}

func TestReject_FailsOrderAndNotifies(t *testing.T) {
	t.Parallel()

	svc, deps := newTestService(t)
	order, version := seedReviewableOrder(deps, domain.OrderAdminReview)

	require.NoError(t, svc.Reject(context.Background(), order.ID, "content policy violation"))

	stored := deps.store.orders[order.ID]
	assert.Equal(t, domain.OrderFailed, stored.Status)
	assert.Equal(t, "content policy violation", stored.FailureReason)
	assert.Equal(t, domain.ReviewRejected, deps.store.reviewStatuses[version.ID])
	assert.Equal(t, []uuid.UUID{order.ID}, deps.notifier.failed)
}
