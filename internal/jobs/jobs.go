// Package jobs is the shared vocabulary of the background pipeline: queue
// names, task names, deterministic job keys, priorities, and payload types.
// Both the orchestrator (which submits) and the processors (which handle)
// depend on it, and on nothing else of each other.
package jobs

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linkmint/linkmint/internal/domain"
)

// Queue names. Every queue runs with exactly one worker: jobs of a kind are
// serialized system-wide because the content-generation dependency is
// rate-limited and stateful, and because two concurrent publishes of the
// same article must be impossible. Queues run independently of each other.
const (
	QueueGeneration  = "generation"
	QueueIntegration = "integration"
	QueuePublishing  = "publishing"
	QueueMaintenance = "maintenance"
)

// Task names.
const (
	TaskGenerateArticle   = "generate_article"
	TaskIntegrateBacklink = "integrate_backlink"
	TaskPublishVersion    = "publish_version"
	TaskExpirePlacements  = "expire_placements"
)

// Priorities. Lower numbers are worked first. Regenerations jump the
// integration queue because a customer is actively waiting on a second
// attempt.
const (
	PriorityUrgent  = 1
	PriorityDefault = 2
)

// GenerateKey is the deterministic identity of an order's generation job.
// At most one job with this key is ever pending or running.
func GenerateKey(orderID uuid.UUID) string {
	return "generate:" + orderID.String()
}

// IntegrateKey is the deterministic identity of an order's first integration
// attempt.
func IntegrateKey(orderID uuid.UUID) string {
	return "integrate:" + orderID.String()
}

// RegenerateKey identifies one regeneration attempt. The submission
// timestamp keeps a new attempt from being blocked by a just-completed prior
// one while still scoping the key to the order.
func RegenerateKey(orderID uuid.UUID, submittedAt time.Time) string {
	return fmt.Sprintf("integrate:%s:%d", orderID, submittedAt.UnixMilli())
}

// PublishKey is the deterministic identity of a version's scheduled
// publication. A version can have at most one pending scheduled publish.
func PublishKey(versionID uuid.UUID) string {
	return "scheduled-publish:" + versionID.String()
}

// GeneratePayload is the generation job's arguments.
type GeneratePayload struct {
	OrderID       uuid.UUID                       `json:"order_id"`
	ArticleID     uuid.UUID                       `json:"article_id"`
	DomainID      uuid.UUID                       `json:"domain_id"`
	Params        domain.ArticleGenerationRequest `json:"params"`
	CustomerEmail string                          `json:"customer_email"`
}

// IntegratePayload is the integration job's arguments. Regeneration is the
// attempt counter: 0 for the first integration, incremented per retry.
type IntegratePayload struct {
	OrderID       uuid.UUID                         `json:"order_id"`
	ArticleID     uuid.UUID                         `json:"article_id"`
	Params        domain.BacklinkIntegrationRequest `json:"params"`
	CustomerEmail string                            `json:"customer_email"`
	Regeneration  int                               `json:"regeneration"`
}

// PublishPayload is the scheduled-publish job's arguments.
type PublishPayload struct {
	OrderID   uuid.UUID `json:"order_id"`
	VersionID uuid.UUID `json:"version_id"`
	ArticleID uuid.UUID `json:"article_id"`
	DomainID  uuid.UUID `json:"domain_id"`
}
