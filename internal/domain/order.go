package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the main order lifecycle state.
type OrderStatus string

const (
	// OrderProcessing: a generation or integration job is pending or running.
	OrderProcessing OrderStatus = "processing"
	// OrderQualityCheck: content exists and awaits the customer's verdict
	// (accept and submit, or regenerate).
	OrderQualityCheck OrderStatus = "quality_check"
	// OrderAdminReview: the customer submitted; an admin decides.
	OrderAdminReview OrderStatus = "admin_review"
	// OrderCompleted: approved. Publication may still be pending via the
	// scheduled sub-state.
	OrderCompleted OrderStatus = "completed"
	// OrderFailed: terminal. Refunds happen outside the core; the order row
	// is never deleted.
	OrderFailed OrderStatus = "failed"
)

// ScheduledStatus is the publication sub-state tracked independently of the
// order status, so "approved but not yet live" is representable.
type ScheduledStatus string

const (
	ScheduledNone      ScheduledStatus = ""
	ScheduledPending   ScheduledStatus = "scheduled"
	ScheduledPublished ScheduledStatus = "published"
	ScheduledCancelled ScheduledStatus = "cancelled"
	ScheduledFailed    ScheduledStatus = "failed"
)

// orderEdges is the order state machine transition table.
var orderEdges = map[OrderStatus][]OrderStatus{
	OrderProcessing: {OrderQualityCheck, OrderFailed},
	// quality_check -> processing is the regeneration cycle edge; customers
	// may take it an unlimited number of times.
	OrderQualityCheck: {OrderProcessing, OrderAdminReview},
	OrderAdminReview:  {OrderCompleted, OrderFailed},
}

// scheduledEdges is the publication sub-state transition table. A reschedule
// is scheduled -> scheduled.
var scheduledEdges = map[ScheduledStatus][]ScheduledStatus{
	ScheduledNone:    {ScheduledPending},
	ScheduledPending: {ScheduledPending, ScheduledPublished, ScheduledCancelled, ScheduledFailed},
}

// CanTransition reports whether from -> to is an edge of the order state
// machine.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionScheduled reports whether from -> to is an edge of the
// publication sub-state machine.
func CanTransitionScheduled(from, to ScheduledStatus) bool {
	for _, next := range scheduledEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is one customer purchase of either a new article placement or a
// backlink integration.
type Order struct {
	ID            uuid.UUID
	ArticleID     uuid.UUID
	DomainID      uuid.UUID
	CustomerEmail string
	// PaymentRef is the payment gateway's reference, unique per order; it
	// makes webhook retries idempotent.
	PaymentRef string
	Request    OrderRequest
	Status     OrderStatus

	// CurrentVersionID points at the newest version produced for this order,
	// set once content exists.
	CurrentVersionID *uuid.UUID

	// Scheduled publication fields. JobID references the queue store row so
	// reconciliation can find the job after a restart.
	ScheduledStatus    ScheduledStatus
	ScheduledPublishAt *time.Time
	ScheduledJobID     *int64

	FailureReason string

	// Placement term bookkeeping for the expiration sweeper.
	PlacementExpiresAt *time.Time
	ExpiredAt          *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Transition validates and applies a status change in memory. Persistence
// guards the same edge with a conditional UPDATE, so a concurrent trigger
// loses cleanly instead of double-firing.
func (o *Order) Transition(to OrderStatus) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	return nil
}

// TransitionScheduled validates and applies a publication sub-state change
// in memory.
func (o *Order) TransitionScheduled(to ScheduledStatus) error {
	if !CanTransitionScheduled(o.ScheduledStatus, to) {
		return fmt.Errorf("%w: scheduled %q -> %q", ErrInvalidTransition, o.ScheduledStatus, to)
	}
	o.ScheduledStatus = to
	return nil
}

// Terminal reports whether the order can make no further progress.
func (o *Order) Terminal() bool {
	if o.Status == OrderFailed {
		return true
	}
	return o.Status == OrderCompleted && o.ScheduledStatus != ScheduledPending
}
