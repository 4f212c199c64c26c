package cache

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Syncer keeps DataManagers on different instances consistent. Local writes
// are announced through Broadcast; announcements from other instances
// trigger a reload of the named collections.
type Syncer struct {
	dm            *DataManager
	broadcaster   Broadcaster
	origin        string
	logger        *zap.Logger
	reloadTimeout time.Duration
}

// NewSyncer creates a Syncer with a random instance id
func NewSyncer(dm *DataManager, broadcaster Broadcaster, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		dm:            dm,
		broadcaster:   broadcaster,
		origin:        uuid.NewString(),
		logger:        logger.Named("cache-sync"),
		reloadTimeout: 30 * time.Second,
	}
}

// Origin returns the id this instance stamps on its messages
func (s *Syncer) Origin() string {
	return s.origin
}

// Broadcast announces that the collections changed on this instance
func (s *Syncer) Broadcast(ctx context.Context, cs ...Collection) error {
	if len(cs) == 0 {
		return nil
	}
	return s.broadcaster.Publish(ctx, InvalidationMessage{
		Collections: slices.Clone(cs),
		Origin:      s.origin,
	})
}

// Run blocks, applying remote invalidations until ctx is cancelled
func (s *Syncer) Run(ctx context.Context) error {
	err := s.broadcaster.Subscribe(ctx, func(msg InvalidationMessage) {
		s.handle(ctx, msg)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Syncer) handle(ctx context.Context, msg InvalidationMessage) {
	if msg.Origin == s.origin || len(msg.Collections) == 0 {
		return
	}

	reloadCtx, cancel := context.WithTimeout(ctx, s.reloadTimeout)
	defer cancel()

	if _, err := s.dm.InvalidateMultiple(reloadCtx, msg.Collections...); err != nil {
		s.logger.Warn("Remote invalidation reload failed",
			zap.String("origin", msg.Origin),
			zap.Any("collections", msg.Collections),
			zap.Error(err))
		return
	}
	s.logger.Debug("Applied remote invalidation",
		zap.String("origin", msg.Origin),
		zap.Any("collections", msg.Collections))
}
