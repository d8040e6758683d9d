package database

import (
	"context"
	"errors"
	"net"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// PostgresSentryTracer reports failed queries to Sentry as breadcrumbs.
type PostgresSentryTracer struct{}

type sentryQueryKey struct{}

func (t *PostgresSentryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, sentryQueryKey{}, data.SQL)
}

func (t *PostgresSentryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if data.Err == nil || errors.Is(data.Err, pgx.ErrNoRows) || errors.Is(data.Err, context.Canceled) {
		return
	}

	query, _ := ctx.Value(sentryQueryKey{}).(string)
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Category: "db.query",
			Message:  query,
			Level:    sentry.LevelError,
		}, nil)
		hub.CaptureException(data.Err)
		return
	}
	sentry.CaptureException(data.Err)
}

// RedisSentryHook reports failed Redis commands to Sentry.
type RedisSentryHook struct{}

func (h *RedisSentryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			sentry.CaptureException(err)
		}
		return conn, err
	}
}

func (h *RedisSentryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
			sentry.CaptureException(err)
		}
		return err
	}
}

func (h *RedisSentryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
			sentry.CaptureException(err)
		}
		return err
	}
}
