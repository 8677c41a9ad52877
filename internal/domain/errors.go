package domain

import "errors"

var (
	// ErrInvalidTransition is returned when an order status change does not
	// correspond to an edge of the state machine.
	ErrInvalidTransition = errors.New("domain: invalid status transition")

	// ErrInvalidRequest is returned when an order request payload fails
	// validation.
	ErrInvalidRequest = errors.New("domain: invalid order request")

	// ErrNoPublishedVersion is returned when a backlink integration is
	// requested for an article that has no published version to integrate
	// into.
	ErrNoPublishedVersion = errors.New("domain: article has no published version")
)
