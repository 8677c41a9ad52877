package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/linkmint/linkmint/internal/domain"
)

const orderColumns = `id, article_id, domain_id, customer_email, payment_ref, request,
	status, current_version_id, scheduled_status, scheduled_publish_at, scheduled_job_id,
	failure_reason, placement_expires_at, expired_at, created_at, updated_at, completed_at`

// CreateOrder inserts a new order. A duplicate payment reference returns
// ErrDuplicatePayment, which makes payment-webhook retries safe.
func (r *Repository) CreateOrder(ctx context.Context, o *domain.Order) error {
	request, err := json.Marshal(o.Request)
	if err != nil {
		return fmt.Errorf("repository: marshal order request: %w", err)
	}

	query, args, err := psql.Insert("orders").
		Columns("id", "article_id", "domain_id", "customer_email", "payment_ref", "request", "status").
		Values(o.ID, o.ArticleID, o.DomainID, o.CustomerEmail, o.PaymentRef, request, o.Status).
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build insert order: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("repository: insert order: %w", err)
	}
	return nil
}

// GetOrder loads one order by id.
func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query, args, err := psql.Select(orderColumns).From("orders").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: build select order: %w", err)
	}
	return scanOrder(r.db.QueryRow(ctx, query, args...))
}

// GetOrderByPaymentRef loads one order by its payment reference.
func (r *Repository) GetOrderByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	query, args, err := psql.Select(orderColumns).From("orders").Where(sq.Eq{"payment_ref": ref}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: build select order: %w", err)
	}
	return scanOrder(r.db.QueryRow(ctx, query, args...))
}

// UpdateOrderStatus moves an order from one status to another. The update is
// guarded on the current status; ErrStatusConflict means the order was not in
// the expected state (e.g. a concurrent trigger won the race).
func (r *Repository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return r.guardedOrderUpdate(ctx, id, from, sq.Eq{"status": to})
}

// SetOrderVersion records a freshly created version on the order and moves it
// to quality_check in the same statement, so a crash cannot separate the two.
func (r *Repository) SetOrderVersion(ctx context.Context, id, versionID uuid.UUID, from domain.OrderStatus) error {
	if !domain.CanTransition(from, domain.OrderQualityCheck) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, domain.OrderQualityCheck)
	}
	return r.guardedOrderUpdate(ctx, id, from, sq.Eq{
		"status":             domain.OrderQualityCheck,
		"current_version_id": versionID,
	})
}

// MarkOrderFailed records a terminal failure with its reason.
func (r *Repository) MarkOrderFailed(ctx context.Context, id uuid.UUID, from domain.OrderStatus, reason string) error {
	if !domain.CanTransition(from, domain.OrderFailed) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, domain.OrderFailed)
	}
	return r.guardedOrderUpdate(ctx, id, from, sq.Eq{
		"status":         domain.OrderFailed,
		"failure_reason": reason,
	})
}

// SetSchedule persists the customer's requested publish time while the order
// is still in quality_check. The job is only submitted after admin approval.
func (r *Repository) SetSchedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.guardedOrderUpdate(ctx, id, domain.OrderQualityCheck, sq.Eq{
		"scheduled_publish_at": at,
	})
}

// CompleteOrder finishes an immediately-published order: completed status,
// completion timestamp, and the placement expiry for the sweeper.
func (r *Repository) CompleteOrder(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	now := time.Now().UTC()
	return r.guardedOrderUpdate(ctx, id, domain.OrderAdminReview, sq.Eq{
		"status":               domain.OrderCompleted,
		"completed_at":         now,
		"placement_expires_at": expiresAt,
	})
}

// ActivateSchedule finishes a scheduled-approval order: completed status plus
// the scheduled sub-state and the queue store's job id.
func (r *Repository) ActivateSchedule(ctx context.Context, id uuid.UUID, at time.Time, jobID int64) error {
	return r.guardedOrderUpdate(ctx, id, domain.OrderAdminReview, sq.Eq{
		"status":               domain.OrderCompleted,
		"scheduled_status":     domain.ScheduledPending,
		"scheduled_publish_at": at,
		"scheduled_job_id":     jobID,
	})
}

// SetScheduledJobID repoints a scheduled order at a (re)issued queue job.
// Used by startup reconciliation.
func (r *Repository) SetScheduledJobID(ctx context.Context, id uuid.UUID, jobID int64) error {
	return r.guardedScheduleUpdate(ctx, id, sq.Eq{"scheduled_job_id": jobID})
}

// MarkSchedulePublished flips a scheduled order to published. The guard on
// scheduled_status makes the publish side effect recordable exactly once:
// a duplicate or stale job observes ErrStatusConflict and no-ops.
func (r *Repository) MarkSchedulePublished(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	now := time.Now().UTC()
	return r.guardedScheduleUpdate(ctx, id, sq.Eq{
		"scheduled_status":     domain.ScheduledPublished,
		"scheduled_job_id":     nil,
		"completed_at":         now,
		"placement_expires_at": expiresAt,
	})
}

// CancelSchedule flips a scheduled order to cancelled and drops the job
// reference.
func (r *Repository) CancelSchedule(ctx context.Context, id uuid.UUID) error {
	return r.guardedScheduleUpdate(ctx, id, sq.Eq{
		"scheduled_status": domain.ScheduledCancelled,
		"scheduled_job_id": nil,
	})
}

// MarkScheduleFailed records that the publication attempt exhausted its
// retries.
func (r *Repository) MarkScheduleFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.guardedScheduleUpdate(ctx, id, sq.Eq{
		"scheduled_status": domain.ScheduledFailed,
		"scheduled_job_id": nil,
		"failure_reason":   reason,
	})
}

// Reschedule moves a pending schedule to a new fire time and job id.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, at time.Time, jobID int64) error {
	return r.guardedScheduleUpdate(ctx, id, sq.Eq{
		"scheduled_publish_at": at,
		"scheduled_job_id":     jobID,
	})
}

// ScheduledPublish is one persisted scheduled publication, the relational
// projection reconciliation repairs the queue store against.
type ScheduledPublish struct {
	OrderID   uuid.UUID
	VersionID uuid.UUID
	ArticleID uuid.UUID
	DomainID  uuid.UUID
	PublishAt time.Time
	JobID     *int64
}

// ListScheduledPublishes returns every order still awaiting its scheduled
// publication.
func (r *Repository) ListScheduledPublishes(ctx context.Context) ([]ScheduledPublish, error) {
	query, args, err := psql.
		Select("id", "current_version_id", "article_id", "domain_id", "scheduled_publish_at", "scheduled_job_id").
		From("orders").
		Where(sq.Eq{"scheduled_status": domain.ScheduledPending}).
		Where(sq.NotEq{"scheduled_publish_at": nil}).
		Where(sq.NotEq{"current_version_id": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: build list scheduled: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: list scheduled: %w", err)
	}
	defer rows.Close()

	var out []ScheduledPublish
	for rows.Next() {
		var sp ScheduledPublish
		if err := rows.Scan(&sp.OrderID, &sp.VersionID, &sp.ArticleID, &sp.DomainID, &sp.PublishAt, &sp.JobID); err != nil {
			return nil, fmt.Errorf("repository: scan scheduled: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// ListExpiredPlacements returns completed, live orders whose placement term
// has passed and that have not been swept yet.
func (r *Repository) ListExpiredPlacements(ctx context.Context, now time.Time) ([]*domain.Order, error) {
	query, args, err := psql.Select(orderColumns).
		From("orders").
		Where(sq.Eq{"status": domain.OrderCompleted}).
		Where(sq.Eq{"expired_at": nil}).
		Where(sq.LtOrEq{"placement_expires_at": now}).
		Where(sq.Eq{"scheduled_status": []domain.ScheduledStatus{domain.ScheduledNone, domain.ScheduledPublished}}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: build list expired: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: list expired: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrderFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// MarkOrderExpired stamps the sweep time on an order. The expired_at guard
// makes the sweep idempotent.
func (r *Repository) MarkOrderExpired(ctx context.Context, id uuid.UUID, at time.Time) error {
	query, args, err := psql.Update("orders").
		Set("expired_at", at).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "expired_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build mark expired: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: mark expired: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// guardedOrderUpdate applies the set clauses only when the order is in the
// expected status.
func (r *Repository) guardedOrderUpdate(ctx context.Context, id uuid.UUID, from domain.OrderStatus, set sq.Eq) error {
	builder := psql.Update("orders").Set("updated_at", time.Now().UTC())
	for col, val := range set {
		builder = builder.Set(col, val)
	}
	query, args, err := builder.Where(sq.Eq{"id": id, "status": from}).ToSql()
	if err != nil {
		return fmt.Errorf("repository: build order update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// guardedScheduleUpdate applies the set clauses only while the publication
// sub-state is still pending.
func (r *Repository) guardedScheduleUpdate(ctx context.Context, id uuid.UUID, set sq.Eq) error {
	builder := psql.Update("orders").Set("updated_at", time.Now().UTC())
	for col, val := range set {
		builder = builder.Set(col, val)
	}
	query, args, err := builder.
		Where(sq.Eq{"id": id, "scheduled_status": domain.ScheduledPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build schedule update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o, err := scanOrderFromRows(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func scanOrderFromRows(row rowScanner) (*domain.Order, error) {
	var (
		o       domain.Order
		request []byte
	)
	if err := row.Scan(
		&o.ID, &o.ArticleID, &o.DomainID, &o.CustomerEmail, &o.PaymentRef, &request,
		&o.Status, &o.CurrentVersionID, &o.ScheduledStatus, &o.ScheduledPublishAt, &o.ScheduledJobID,
		&o.FailureReason, &o.PlacementExpiresAt, &o.ExpiredAt, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: scan order: %w", err)
	}
	if err := json.Unmarshal(request, &o.Request); err != nil {
		return nil, fmt.Errorf("repository: unmarshal order request: %w", err)
	}
	return &o, nil
}
