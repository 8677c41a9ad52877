package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/linkmint/linkmint/internal/domain"
)

const articleColumns = "id, domain_id, title, slug, status, selected_version_id, created_at, updated_at"

// CreateArticle inserts a new article slot.
func (r *Repository) CreateArticle(ctx context.Context, a *domain.Article) error {
	query, args, err := psql.Insert("articles").
		Columns("id", "domain_id", "title", "slug", "status").
		Values(a.ID, a.DomainID, a.Title, a.Slug, a.Status).
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build insert article: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("repository: insert article: %w", err)
	}
	return nil
}

// GetArticle loads one article by id.
func (r *Repository) GetArticle(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	query, args, err := psql.Select(articleColumns).From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: build select article: %w", err)
	}

	var a domain.Article
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.DomainID, &a.Title, &a.Slug, &a.Status, &a.SelectedVersionID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: select article: %w", err)
	}
	return &a, nil
}

// FindPublishedVersion resolves the article's currently selected version, the
// only valid base for a backlink integration. An article with nothing live
// returns domain.ErrNoPublishedVersion.
func (r *Repository) FindPublishedVersion(ctx context.Context, articleID uuid.UUID) (*domain.ArticleVersion, error) {
	a, err := r.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if a.SelectedVersionID == nil {
		return nil, domain.ErrNoPublishedVersion
	}
	return r.GetVersion(ctx, *a.SelectedVersionID)
}

// SetSelectedVersion makes the version live on the article and flips the
// article to published.
func (r *Repository) SetSelectedVersion(ctx context.Context, articleID, versionID uuid.UUID) error {
	query, args, err := psql.Update("articles").
		Set("selected_version_id", versionID).
		Set("status", domain.ArticlePublished).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": articleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build select version update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: set selected version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RevertArticle swaps the live version back to a prior one (nil for none) and
// marks the article expired. Used by the placement sweeper.
func (r *Repository) RevertArticle(ctx context.Context, articleID uuid.UUID, versionID *uuid.UUID) error {
	query, args, err := psql.Update("articles").
		Set("selected_version_id", versionID).
		Set("status", domain.ArticleExpired).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": articleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build revert update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: revert article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
