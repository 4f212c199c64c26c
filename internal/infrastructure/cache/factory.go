package cache

import "go.uber.org/zap"

// NewBroadcaster returns a Redis broadcaster when Redis is configured and
// reachable, and an in-process broadcaster otherwise.
func NewBroadcaster(cfg RedisConfig, channel string, logger *zap.Logger) Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		logger.Info("Redis not configured, cache invalidation stays in-process")
		return NewLocalBroadcaster()
	}

	opts := []RedisBroadcasterOption{WithBroadcasterLogger(logger.Named("cache-broadcast"))}
	if channel != "" {
		opts = append(opts, WithChannel(channel))
	}

	b, err := NewRedisBroadcaster(cfg, opts...)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-process cache invalidation", zap.Error(err))
		return NewLocalBroadcaster()
	}
	logger.Info("Using Redis cache invalidation", zap.String("channel", b.channel))
	return b
}
