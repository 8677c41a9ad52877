package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrPublishFailed is returned when the site publisher rejects a version.
var ErrPublishFailed = errors.New("content: publish failed")

// Publisher pushes a version live on one of our domains, or takes it down.
// Publish must be idempotent: re-publishing an already-live version is a
// no-op on the publisher side.
type Publisher interface {
	Publish(ctx context.Context, domainID, articleID, versionID uuid.UUID, content string) error
	Unpublish(ctx context.Context, domainID, articleID uuid.UUID) error
}

// PublisherConfig configures the HTTP publisher client.
type PublisherConfig struct {
	BaseURL string        `env:"PUBLISHER_BASE_URL,required"`
	APIKey  string        `env:"PUBLISHER_API_KEY,required"`
	Timeout time.Duration `env:"PUBLISHER_TIMEOUT" envDefault:"1m"`
}

// HTTPPublisher calls the site publishing service over HTTP.
type HTTPPublisher struct {
	cfg    PublisherConfig
	client *http.Client
}

// NewHTTPPublisher creates a publisher client.
func NewHTTPPublisher(cfg PublisherConfig) *HTTPPublisher {
	return &HTTPPublisher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type publishRequest struct {
	DomainID  uuid.UUID `json:"domain_id"`
	ArticleID uuid.UUID `json:"article_id"`
	VersionID uuid.UUID `json:"version_id,omitempty"`
	Content   string    `json:"content,omitempty"`
}

// Publish pushes the version live.
func (p *HTTPPublisher) Publish(ctx context.Context, domainID, articleID, versionID uuid.UUID, content string) error {
	return p.post(ctx, "/v1/publish", publishRequest{
		DomainID:  domainID,
		ArticleID: articleID,
		VersionID: versionID,
		Content:   content,
	})
}

// Unpublish takes the article down. Used when an expired placement has no
// base version to revert to.
func (p *HTTPPublisher) Unpublish(ctx context.Context, domainID, articleID uuid.UUID) error {
	return p.post(ctx, "/v1/unpublish", publishRequest{
		DomainID:  domainID,
		ArticleID: articleID,
	})
}

func (p *HTTPPublisher) post(ctx context.Context, path string, in publishRequest) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("content: marshal publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("content: build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("content: call publisher: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: publisher returned %d", ErrPublishFailed, resp.StatusCode)
	}
	return nil
}
