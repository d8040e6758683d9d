package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChannelWalletVerified is the pub/sub channel the bot process subscribes to
// for role grants and confirmation DMs.
const ChannelWalletVerified = "verify:wallet:verified"

// VerifiedEvent announces a completed verification to the bot process.
type VerifiedEvent struct {
	UserID        int64     `json:"user_id"`
	WalletAddress string    `json:"wallet_address"`
	VerifiedAt    time.Time `json:"verified_at"`
}

// Notifier delivers verified events. Delivery is fire-and-forget: the
// durable record of success is the token row and the user flag, not this.
type Notifier interface {
	NotifyVerified(ctx context.Context, event VerifiedEvent)
}

// RedisNotifier publishes verified events to Redis pub/sub.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{client: client, logger: logger}
}

// NotifyVerified publishes the event. Failures are logged and dropped.
func (n *RedisNotifier) NotifyVerified(ctx context.Context, event VerifiedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal verified event", zap.Error(err))
		return
	}

	if err := n.client.Publish(ctx, ChannelWalletVerified, payload).Err(); err != nil {
		n.logger.Warn("Failed to publish verified event",
			zap.Int64("user_id", event.UserID),
			zap.Error(err),
		)
		return
	}

	n.logger.Info("Published verified event", zap.Int64("user_id", event.UserID))
}

// NopNotifier drops events; used when Redis is unavailable and in tests.
type NopNotifier struct{}

func (NopNotifier) NotifyVerified(context.Context, VerifiedEvent) {}
