package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultInvalidationChannel is the Pub/Sub channel used between instances
const DefaultInvalidationChannel = "bizdesk:cache:invalidate"

const defaultCloseTimeout = 5 * time.Second

// InvalidationMessage tells other instances which collections changed
type InvalidationMessage struct {
	Collections []Collection `json:"collections"`
	Origin      string       `json:"origin"`
	Timestamp   int64        `json:"timestamp"`
}

// Broadcaster distributes invalidation messages between instances
type Broadcaster interface {
	Publish(ctx context.Context, msg InvalidationMessage) error
	// Subscribe blocks, invoking callback for each message, until ctx is done or Close is called
	Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error
	Close() error
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisBroadcaster implements Broadcaster using Redis Pub/Sub
type RedisBroadcaster struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisBroadcasterOption configures a RedisBroadcaster
type RedisBroadcasterOption func(*RedisBroadcaster)

// WithChannel sets the Pub/Sub channel name
func WithChannel(channel string) RedisBroadcasterOption {
	return func(b *RedisBroadcaster) {
		b.channel = channel
	}
}

// WithBroadcasterLogger sets the logger
func WithBroadcasterLogger(logger *zap.Logger) RedisBroadcasterOption {
	return func(b *RedisBroadcaster) {
		b.logger = logger
	}
}

// NewRedisBroadcaster connects to Redis and returns a broadcaster that owns the client
func NewRedisBroadcaster(cfg RedisConfig, opts ...RedisBroadcasterOption) (*RedisBroadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	b := NewRedisBroadcasterWithClient(client, opts...)
	b.ownsClient = true
	return b, nil
}

// NewRedisBroadcasterWithClient uses an existing client; the caller keeps ownership of it
func NewRedisBroadcasterWithClient(client *redis.Client, opts ...RedisBroadcasterOption) *RedisBroadcaster {
	b := &RedisBroadcaster{
		client:  client,
		channel: DefaultInvalidationChannel,
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish sends msg to every subscribed instance
func (b *RedisBroadcaster) Publish(ctx context.Context, msg InvalidationMessage) error {
	data, err := encodeInvalidation(msg)
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish cache invalidation",
			zap.String("channel", b.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	b.logger.Debug("Published cache invalidation",
		zap.Any("collections", msg.Collections),
		zap.String("channel", b.channel))
	return nil
}

// Subscribe listens on the channel until ctx is cancelled or Close is called
func (b *RedisBroadcaster) Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error {
	b.mu.Lock()
	if b.isRunning {
		b.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	b.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	b.cancelFn = cancel
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.isRunning = false
		b.mu.Unlock()
		b.doneOnce.Do(func() { close(b.doneCh) })
	}()

	pubsub := b.client.Subscribe(subCtx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Info("Subscribed to cache invalidation channel", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			b.logger.Info("Cache invalidation subscription stopped")
			return subCtx.Err()
		case m, ok := <-ch:
			if !ok {
				b.logger.Warn("Cache invalidation channel closed")
				return nil
			}
			msg, err := decodeInvalidation(m.Payload)
			if err != nil {
				b.logger.Error("Failed to decode cache invalidation",
					zap.String("payload", m.Payload),
					zap.Error(err))
				continue
			}
			go b.dispatch(callback, msg)
		}
	}
}

func (b *RedisBroadcaster) dispatch(callback func(InvalidationMessage), msg InvalidationMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic in cache invalidation callback", zap.Any("panic", r))
		}
	}()
	callback(msg)
}

// Close stops the subscription and closes the client when owned
func (b *RedisBroadcaster) Close() error {
	b.mu.Lock()
	cancelFn := b.cancelFn
	b.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-b.doneCh:
		case <-time.After(defaultCloseTimeout):
			b.logger.Warn("Timeout waiting for invalidation subscription to stop")
		}
	}

	if b.ownsClient {
		return b.client.Close()
	}
	return nil
}

// Client returns the underlying Redis client
func (b *RedisBroadcaster) Client() *redis.Client {
	return b.client
}

func encodeInvalidation(msg InvalidationMessage) ([]byte, error) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	return data, nil
}

func decodeInvalidation(payload string) (InvalidationMessage, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, err
	}
	for _, c := range msg.Collections {
		if _, err := ParseCollection(string(c)); err != nil {
			return msg, err
		}
	}
	return msg, nil
}

// LocalBroadcaster delivers messages to subscribers in the same process.
// It serves single-instance deployments and tests.
type LocalBroadcaster struct {
	mu          sync.Mutex
	nextID      int
	subscribers map[int]func(InvalidationMessage)
	closed      chan struct{}
	closeOnce   sync.Once
}

// NewLocalBroadcaster creates an in-process broadcaster
func NewLocalBroadcaster() *LocalBroadcaster {
	return &LocalBroadcaster{
		subscribers: make(map[int]func(InvalidationMessage)),
		closed:      make(chan struct{}),
	}
}

// Publish invokes every subscriber synchronously
func (b *LocalBroadcaster) Publish(_ context.Context, msg InvalidationMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}
	b.mu.Lock()
	callbacks := make([]func(InvalidationMessage), 0, len(b.subscribers))
	for _, cb := range b.subscribers {
		callbacks = append(callbacks, cb)
	}
	b.mu.Unlock()

	for _, cb := range callbacks {
		cb(msg)
	}
	return nil
}

// Subscribe registers callback until ctx is done or the broadcaster is closed
func (b *LocalBroadcaster) Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[id] = callback
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closed:
		return nil
	}
}

// SubscriberCount returns the number of active subscriptions
func (b *LocalBroadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close releases all subscribers
func (b *LocalBroadcaster) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

var (
	_ Broadcaster = (*RedisBroadcaster)(nil)
	_ Broadcaster = (*LocalBroadcaster)(nil)
)
