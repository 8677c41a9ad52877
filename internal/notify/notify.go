// Package notify sends customer-facing lifecycle emails. Notification
// failures are logged and swallowed: email is best-effort and must never
// fail an order transition or a job.
package notify

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"time"

	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/pkg/mailer"
)

//go:embed templates
var templatesFS embed.FS

// TemplatesFS returns the embedded notification templates rooted so that
// template files sit at the top level and layouts under layouts/, as the
// renderer expects.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err) // embed guarantees the directory exists
	}
	return sub
}

// Notifier sends templated notifications to customers.
type Notifier struct {
	mailer *mailer.Mailer
	logger *slog.Logger
}

// New creates a notifier.
func New(m *mailer.Mailer, logger *slog.Logger) *Notifier {
	return &Notifier{mailer: m, logger: logger}
}

// OrderFailed tells the customer their order could not be fulfilled.
func (n *Notifier) OrderFailed(ctx context.Context, email string, order *domain.Order, reason string) {
	n.send(ctx, email, "order_failed.md", map[string]any{
		"OrderID": order.ID.String(),
		"Reason":  reason,
	})
}

// ReadyForReview tells the customer content is ready for their quality check.
func (n *Notifier) ReadyForReview(ctx context.Context, email string, order *domain.Order) {
	n.send(ctx, email, "ready_for_review.md", map[string]any{
		"OrderID": order.ID.String(),
	})
}

// Published tells the customer their placement is live.
func (n *Notifier) Published(ctx context.Context, email string, order *domain.Order, expiresAt time.Time) {
	n.send(ctx, email, "published.md", map[string]any{
		"OrderID":   order.ID.String(),
		"ExpiresAt": expiresAt.Format("2 January 2006"),
	})
}

// ScheduleCancelled confirms the scheduled publication was cancelled.
func (n *Notifier) ScheduleCancelled(ctx context.Context, email string, order *domain.Order) {
	n.send(ctx, email, "schedule_cancelled.md", map[string]any{
		"OrderID": order.ID.String(),
	})
}

// PlacementExpired tells the customer their placement term ended.
func (n *Notifier) PlacementExpired(ctx context.Context, email string, order *domain.Order) {
	n.send(ctx, email, "placement_expired.md", map[string]any{
		"OrderID": order.ID.String(),
	})
}

func (n *Notifier) send(ctx context.Context, to, template string, data map[string]any) {
	if n == nil || n.mailer == nil || to == "" {
		return
	}
	err := n.mailer.Send(ctx, mailer.SendParams{
		To:       to,
		Template: template,
		Data:     data,
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "notification send failed",
			slog.String("template", template),
			slog.Any("error", err),
		)
	}
}
