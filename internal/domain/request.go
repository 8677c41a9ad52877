package domain

import (
	"fmt"
	"strings"
)

// RequestKind discriminates the two kinds of purchase.
type RequestKind string

const (
	// RequestArticleGeneration: a new AI-written article placed on one of
	// our domains.
	RequestArticleGeneration RequestKind = "article_generation"
	// RequestBacklinkIntegration: a backlink woven into an existing
	// published article.
	RequestBacklinkIntegration RequestKind = "backlink_integration"
)

// OrderRequest is the customer's request payload, a tagged union: exactly one
// of Article or Backlink is set, matching Kind. Stored as jsonb on the order.
type OrderRequest struct {
	Kind     RequestKind                 `json:"kind"`
	Article  *ArticleGenerationRequest   `json:"article,omitempty"`
	Backlink *BacklinkIntegrationRequest `json:"backlink,omitempty"`
}

// ArticleGenerationRequest describes a new article to write.
type ArticleGenerationRequest struct {
	Topic     string `json:"topic"`
	Keyword   string `json:"keyword"`
	TargetURL string `json:"target_url"`
	Notes     string `json:"notes,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
}

// BacklinkIntegrationRequest describes a backlink to integrate into an
// existing article.
type BacklinkIntegrationRequest struct {
	TargetURL  string `json:"target_url"`
	AnchorText string `json:"anchor_text"`
	Keyword    string `json:"keyword,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Validate checks the union is well-formed: a known kind, the matching arm
// set, the other arm empty, and required fields present.
func (r OrderRequest) Validate() error {
	switch r.Kind {
	case RequestArticleGeneration:
		if r.Article == nil || r.Backlink != nil {
			return fmt.Errorf("%w: kind %q requires the article arm only", ErrInvalidRequest, r.Kind)
		}
		if strings.TrimSpace(r.Article.Topic) == "" {
			return fmt.Errorf("%w: article topic is required", ErrInvalidRequest)
		}
		return nil
	case RequestBacklinkIntegration:
		if r.Backlink == nil || r.Article != nil {
			return fmt.Errorf("%w: kind %q requires the backlink arm only", ErrInvalidRequest, r.Kind)
		}
		if strings.TrimSpace(r.Backlink.TargetURL) == "" {
			return fmt.Errorf("%w: backlink target URL is required", ErrInvalidRequest)
		}
		if strings.TrimSpace(r.Backlink.AnchorText) == "" {
			return fmt.Errorf("%w: backlink anchor text is required", ErrInvalidRequest)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
}
