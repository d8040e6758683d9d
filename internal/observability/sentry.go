// Package observability initializes Sentry error reporting.
package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/config"
)

// InitSentry configures the global Sentry client. A disabled or empty DSN
// leaves reporting off without error.
func InitSentry(cfg config.SentryConfig, release, environment string) error {
	if !cfg.Enabled || cfg.DSN == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Release:          release,
		Environment:      environment,
		TracesSampleRate: cfg.TracesSampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return nil
}

// Flush drains buffered events before shutdown.
func Flush(ctx context.Context) {
	deadline := 2 * time.Second
	if d, ok := ctx.Deadline(); ok {
		deadline = time.Until(d)
	}
	sentry.Flush(deadline)
}
