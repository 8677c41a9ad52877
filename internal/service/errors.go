package service

import "errors"

var (
	// ErrOrderNotReviewable is returned when a customer or admin action does
	// not match the order's current status.
	ErrOrderNotReviewable = errors.New("service: order is not in a reviewable state")

	// ErrNoVersion is returned when an action requires content that does not
	// exist yet.
	ErrNoVersion = errors.New("service: order has no content version")

	// ErrNotScheduled is returned when a schedule action targets an order
	// without a pending scheduled publication.
	ErrNotScheduled = errors.New("service: order has no pending scheduled publication")

	// ErrPublishInFlight is returned when a cancellation arrives after the
	// publication job has started running. The publish will complete; the
	// caller should retract it through a takedown flow instead.
	ErrPublishInFlight = errors.New("service: publication already in flight")

	// ErrArticleRequired is returned when a backlink order does not name the
	// article to integrate into.
	ErrArticleRequired = errors.New("service: backlink orders require an existing article")
)
