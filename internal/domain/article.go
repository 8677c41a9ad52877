package domain

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus reflects the placement's availability on the public site.
type ArticleStatus string

const (
	// ArticleAvailable: the slot exists but nothing customer-facing is live.
	ArticleAvailable ArticleStatus = "available"
	// ArticlePublished: a selected version is live.
	ArticlePublished ArticleStatus = "published"
	// ArticleExpired: the placement term ended and the article was reverted.
	ArticleExpired ArticleStatus = "expired"
)

// Article is the publishable unit: one URL slot on one of our domains. It
// owns zero-or-one selected (published) version.
type Article struct {
	ID       uuid.UUID
	DomainID uuid.UUID
	Title    string
	Slug     string
	Status   ArticleStatus

	// SelectedVersionID is the version currently live on the public site.
	// It is the only valid base for backlink (re)integration.
	SelectedVersionID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReviewStatus is a version's human-review state.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// QCStatus is the automated quality-check verdict on generated content.
type QCStatus string

const (
	QCPassed QCStatus = "passed"
	// QCFlagged: the checks never passed within the generator's attempt
	// budget. The job still succeeds; a human decides what to do with the
	// content.
	QCFlagged QCStatus = "flagged"
)

// BacklinkMeta describes the backlink integrated into a version.
type BacklinkMeta struct {
	URL        string `json:"url"`
	AnchorText string `json:"anchor_text"`
	// BaseVersionID is the published version the integration was derived
	// from: always the article's selected version at submission time, never
	// the customer's previous attempt.
	BaseVersionID uuid.UUID `json:"base_version_id"`
	// Regeneration counts how many times the customer has retried, starting
	// at 0 for the first integration.
	Regeneration int `json:"regeneration"`
}

// ArticleVersion is one immutable content artifact. Regeneration creates a
// new version; nothing ever mutates an existing one.
type ArticleVersion struct {
	ID            uuid.UUID
	ArticleID     uuid.UUID
	VersionNumber int
	Content       string
	ReviewStatus  ReviewStatus
	QCStatus      QCStatus
	QCAttempts    int
	// Backlink is nil for plain article generations.
	Backlink  *BacklinkMeta
	CreatedAt time.Time
}
