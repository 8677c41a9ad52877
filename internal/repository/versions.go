package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/linkmint/linkmint/internal/domain"
)

// CreateVersion inserts a new immutable version and assigns the next version
// number for the article in the same statement, so concurrent creates cannot
// collide. The assigned number is written back into v.
func (r *Repository) CreateVersion(ctx context.Context, v *domain.ArticleVersion) error {
	var backlink []byte
	if v.Backlink != nil {
		var err error
		backlink, err = json.Marshal(v.Backlink)
		if err != nil {
			return fmt.Errorf("repository: marshal backlink meta: %w", err)
		}
	}

	const query = `
		INSERT INTO article_versions (id, article_id, version_number, content, review_status, qc_status, qc_attempts, backlink)
		SELECT $1, $2, COALESCE(MAX(version_number), 0) + 1, $3, $4, $5, $6, $7
		FROM article_versions WHERE article_id = $2
		RETURNING version_number`

	err := r.db.QueryRow(ctx, query,
		v.ID, v.ArticleID, v.Content, v.ReviewStatus, v.QCStatus, v.QCAttempts, backlink,
	).Scan(&v.VersionNumber)
	if err != nil {
		return fmt.Errorf("repository: insert version: %w", err)
	}
	return nil
}

// GetVersion loads one version by id.
func (r *Repository) GetVersion(ctx context.Context, id uuid.UUID) (*domain.ArticleVersion, error) {
	query, args, err := psql.
		Select("id", "article_id", "version_number", "content", "review_status", "qc_status", "qc_attempts", "backlink", "created_at").
		From("article_versions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: build select version: %w", err)
	}

	var (
		v        domain.ArticleVersion
		backlink []byte
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&v.ID, &v.ArticleID, &v.VersionNumber, &v.Content,
		&v.ReviewStatus, &v.QCStatus, &v.QCAttempts, &backlink, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: select version: %w", err)
	}
	if len(backlink) > 0 {
		v.Backlink = &domain.BacklinkMeta{}
		if err := json.Unmarshal(backlink, v.Backlink); err != nil {
			return nil, fmt.Errorf("repository: unmarshal backlink meta: %w", err)
		}
	}
	return &v, nil
}

// SetVersionReviewStatus records the admin verdict on a version. The guard on
// the pending state keeps two admins from deciding the same version twice.
func (r *Repository) SetVersionReviewStatus(ctx context.Context, id uuid.UUID, to domain.ReviewStatus) error {
	query, args, err := psql.Update("article_versions").
		Set("review_status", to).
		Where(sq.Eq{"id": id, "review_status": domain.ReviewPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build review update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: update review status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}
