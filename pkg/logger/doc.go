// Package logger builds the application's slog loggers.
//
// New returns a JSON logger writing to stdout. NewWithSentry additionally
// fans warnings and errors out to Sentry through a multi-handler; when no
// DSN is configured it degrades to stdout-only, which keeps local
// development configuration-free. NewNope returns a silent logger for use as
// a library default.
package logger
