// Package domain defines the order, article, and version types shared across
// the repository, processors, and triggers, together with the order state
// machine.
//
// The status fields are the authoritative persisted state: they are mutated
// only by job processors and by the two external triggers (customer actions,
// admin actions). All transition legality lives here so callers cannot
// invent edges the state machine does not have.
package domain
