// Package repository persists orders, articles, versions, and the queue-state
// projection in PostgreSQL.
//
// Status updates are guarded with conditional WHERE clauses on the current
// status, so concurrent triggers race safely: the loser's update matches zero
// rows and surfaces ErrStatusConflict instead of double-firing a transition.
package repository

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("repository: not found")

	// ErrStatusConflict is returned when a guarded status update matched no
	// row: the entity was not in the expected state.
	ErrStatusConflict = errors.New("repository: status conflict")

	// ErrDuplicatePayment is returned when an order with the same payment
	// reference already exists.
	ErrDuplicatePayment = errors.New("repository: duplicate payment reference")
)

// psql builds queries with PostgreSQL placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides data access over a pool or, via WithTx, a transaction.
type Repository struct {
	db dbtx
}

// New creates a repository bound to the connection pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// WithTx returns a repository bound to the transaction. Mutations made
// through it are only visible after the transaction commits.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// isUniqueViolation reports a PostgreSQL unique constraint error (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
