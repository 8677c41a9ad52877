// Package db manages the PostgreSQL connection pool, transactions, and
// schema migrations.
//
// Connect retries with backoff so worker restarts during infrastructure
// hiccups converge instead of crash-looping. WithTx wraps a function in a
// transaction with rollback on error or panic. Migrate applies embedded
// goose migrations.
package db
