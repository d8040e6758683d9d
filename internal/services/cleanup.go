package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/config"
)

// TokenSweeper is the slice of the token store the scheduler needs.
type TokenSweeper interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	PurgeOlderThan(ctx context.Context, now time.Time, age time.Duration) (int64, error)
}

// CleanupScheduler periodically expires stale pending tokens and purges old
// terminal rows. Both operations only touch rows whose predicates are
// monotonic in time, so sweeps are safe alongside live traffic.
type CleanupScheduler struct {
	store  TokenSweeper
	cfg    config.CleanupConfig
	logger *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	now func() time.Time
}

func NewCleanupScheduler(store TokenSweeper, cfg config.CleanupConfig, logger *zap.Logger) *CleanupScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupScheduler{
		store:  store,
		cfg:    cfg,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// Start launches the background sweep loop.
func (c *CleanupScheduler) Start(ctx context.Context) {
	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Sweep(ctx)
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (c *CleanupScheduler) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

// Sweep runs one expiry-then-purge pass. Failures are logged and retried on
// the next tick; a single failed sweep is never fatal.
func (c *CleanupScheduler) Sweep(ctx context.Context) {
	now := c.now()

	expired, err := c.store.ExpireStale(ctx, now)
	if err != nil {
		c.logger.Error("Failed to expire stale tokens", zap.Error(err))
	} else if expired > 0 {
		c.logger.Info("Expired stale verification tokens", zap.Int64("count", expired))
	}

	purged, err := c.store.PurgeOlderThan(ctx, now, c.cfg.Retention)
	if err != nil {
		c.logger.Error("Failed to purge old tokens", zap.Error(err))
	} else if purged > 0 {
		c.logger.Info("Purged old verification tokens", zap.Int64("count", purged))
	}
}
