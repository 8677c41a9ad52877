package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/pkg/sanitizer"
)

var (
	// ErrGenerationFailed is returned when the generation service reports a
	// non-retryable failure or malformed output.
	ErrGenerationFailed = errors.New("content: generation failed")
)

// GenerationResult is the outcome of one generation call. The generator runs
// its own internal quality-check loop; QCStatus is flagged when the checks
// never passed within the service's attempt budget. Flagged content is still
// returned and stored for human review.
type GenerationResult struct {
	Content    string
	QCStatus   domain.QCStatus
	QCAttempts int
}

// GenerateParams describes one generation call. Exactly one of Article or
// Backlink is set, mirroring the order's request arm.
type GenerateParams struct {
	Article  *domain.ArticleGenerationRequest
	Backlink *domain.BacklinkIntegrationRequest
	// BaseContent is the published version's content a backlink integration
	// starts from. Empty for plain article generation.
	BaseContent string
}

// Generator produces article content. Implementations must be safe to call
// at most once per job attempt: the retry budget lives in the queue, not
// here.
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) (*GenerationResult, error)
}

// GeneratorConfig configures the HTTP generation client.
type GeneratorConfig struct {
	BaseURL string        `env:"GENERATOR_BASE_URL,required"`
	APIKey  string        `env:"GENERATOR_API_KEY,required"`
	Timeout time.Duration `env:"GENERATOR_TIMEOUT" envDefault:"10m"`
}

// HTTPGenerator calls the generation service over HTTP.
type HTTPGenerator struct {
	cfg    GeneratorConfig
	client *http.Client
}

// NewHTTPGenerator creates a generation client. Generation is slow; the
// client timeout defaults to ten minutes and should stay under the job
// timeout.
func NewHTTPGenerator(cfg GeneratorConfig) *HTTPGenerator {
	return &HTTPGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type generateRequest struct {
	Topic       string `json:"topic,omitempty"`
	Keyword     string `json:"keyword,omitempty"`
	TargetURL   string `json:"target_url,omitempty"`
	AnchorText  string `json:"anchor_text,omitempty"`
	BaseContent string `json:"base_content,omitempty"`
}

type generateResponse struct {
	Content    string `json:"content"`
	QCPassed   bool   `json:"qc_passed"`
	QCAttempts int    `json:"qc_attempts"`
}

// Generate performs one generation call and sanitizes the returned HTML
// before it is stored.
func (g *HTTPGenerator) Generate(ctx context.Context, params GenerateParams) (*GenerationResult, error) {
	req := generateRequest{BaseContent: params.BaseContent}
	switch {
	case params.Article != nil:
		req.Topic = params.Article.Topic
		req.Keyword = params.Article.Keyword
	case params.Backlink != nil:
		req.TargetURL = params.Backlink.TargetURL
		req.AnchorText = params.Backlink.AnchorText
		req.Keyword = params.Backlink.Keyword
	default:
		return nil, fmt.Errorf("%w: empty params", ErrGenerationFailed)
	}

	var resp generateResponse
	if err := g.post(ctx, "/v1/generate", req, &resp); err != nil {
		return nil, err
	}
	if resp.Content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrGenerationFailed)
	}

	qc := domain.QCFlagged
	if resp.QCPassed {
		qc = domain.QCPassed
	}
	return &GenerationResult{
		Content:    sanitizer.SanitizeArticleHTML(resp.Content),
		QCStatus:   qc,
		QCAttempts: resp.QCAttempts,
	}, nil
}

func (g *HTTPGenerator) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("content: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("content: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("content: call generator: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: generator returned %d", ErrGenerationFailed, httpResp.StatusCode)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("content: decode response: %w", err)
	}
	return nil
}
