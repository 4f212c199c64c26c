package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/interfaces/http/dto"
	"github.com/erp/bizdesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sseMessageBufferSize lets messages queue without blocking a notification
const sseMessageBufferSize = 64

// SSEClient represents a connected SSE client
type SSEClient struct {
	ID     string
	UserID string
	Chan   chan SSEMessage
}

// SSEMessage represents a message to be sent to SSE clients
type SSEMessage struct {
	Event string `json:"event"`
	Data  string `json:"data"`
	ID    string `json:"id,omitempty"`
}

// CollectionChangedEvent is the payload of a "changed" event
type CollectionChangedEvent struct {
	Collection cache.Collection `json:"collection"`
}

// EventsHandler streams cache change notifications to browsers over
// Server-Sent Events. Each DataManager notification becomes one "changed"
// event naming the collection.
type EventsHandler struct {
	BaseHandler
	cache      *cache.DataManager
	logger     *zap.Logger
	clients    sync.Map // map[string]*SSEClient
	count      atomic.Int64
	seq        atomic.Uint64
	ctx        context.Context
	cancel     context.CancelFunc
	heartbeat  time.Duration
	maxClients int
	startMu    sync.Mutex
	started    bool
	unsubs     []func()
}

// EventsOption is a functional option for configuring the handler
type EventsOption func(*EventsHandler)

// WithSSELogger sets the logger for the handler
func WithSSELogger(logger *zap.Logger) EventsOption {
	return func(h *EventsHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSSEHeartbeat sets the heartbeat interval
func WithSSEHeartbeat(interval time.Duration) EventsOption {
	return func(h *EventsHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithSSEMaxClients sets the maximum number of concurrent SSE clients
func WithSSEMaxClients(max int) EventsOption {
	return func(h *EventsHandler) {
		h.maxClients = max
	}
}

// NewEventsHandler creates a new SSE handler over dm
func NewEventsHandler(dm *cache.DataManager, opts ...EventsOption) *EventsHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &EventsHandler{
		cache:      dm,
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
		heartbeat:  30 * time.Second,
		maxClients: 1000,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("sse")
	return h
}

// Start subscribes to every cache collection and begins sending heartbeats
func (h *EventsHandler) Start() error {
	h.startMu.Lock()
	defer h.startMu.Unlock()

	if h.started {
		return fmt.Errorf("SSE handler already started")
	}

	for _, c := range cache.AllCollections() {
		unsubscribe, err := h.cache.Subscribe(c, h.collectionChanged(c))
		if err != nil {
			h.unsubscribeAll()
			return fmt.Errorf("subscribe to %s: %w", c, err)
		}
		h.unsubs = append(h.unsubs, unsubscribe)
	}

	go h.sendHeartbeats()

	h.started = true
	h.logger.Info("SSE handler started", zap.Duration("heartbeat", h.heartbeat))
	return nil
}

// Stop unsubscribes from the cache and disconnects every client
func (h *EventsHandler) Stop() {
	h.startMu.Lock()
	defer h.startMu.Unlock()

	h.cancel()
	h.unsubscribeAll()
	h.logger.Info("SSE handler stopped")
}

func (h *EventsHandler) unsubscribeAll() {
	for _, unsubscribe := range h.unsubs {
		unsubscribe()
	}
	h.unsubs = nil
}

// collectionChanged returns the listener registered for c. Listeners run on
// the notifying goroutine, so broadcasting never blocks.
func (h *EventsHandler) collectionChanged(c cache.Collection) cache.Listener {
	data, _ := json.Marshal(CollectionChangedEvent{Collection: c})
	return func() {
		h.broadcast(SSEMessage{
			Event: "changed",
			Data:  string(data),
			ID:    strconv.FormatUint(h.seq.Add(1), 10),
		})
	}
}

// broadcast sends a message to all connected clients
func (h *EventsHandler) broadcast(msg SSEMessage) {
	h.clients.Range(func(_, value any) bool {
		client, ok := value.(*SSEClient)
		if !ok {
			return true
		}

		select {
		case client.Chan <- msg:
		default:
			h.logger.Warn("Client channel full, dropping message",
				zap.String("client_id", client.ID),
				zap.String("event", msg.Event))
		}
		return true
	})
}

// sendHeartbeats periodically sends heartbeat messages to keep connections alive
func (h *EventsHandler) sendHeartbeats() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.broadcast(SSEMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
		}
	}
}

// Stream handles GET /events
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.maxClients > 0 && h.count.Load() >= int64(h.maxClients) {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Maximum number of event stream connections reached")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	client := &SSEClient{
		ID:     uuid.NewString(),
		UserID: middleware.GetJWTUserID(c),
		Chan:   make(chan SSEMessage, sseMessageBufferSize),
	}

	h.clients.Store(client.ID, client)
	h.count.Add(1)
	defer func() {
		h.clients.Delete(client.ID)
		h.count.Add(-1)
	}()

	h.logger.Info("SSE client connected",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID))

	c.Status(http.StatusOK)
	h.sendEvent(c.Writer, SSEMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"client_id":%q,"timestamp":%d}`, client.ID, time.Now().Unix()),
	})
	c.Writer.Flush()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			h.logger.Debug("SSE client disconnected", zap.String("client_id", client.ID))
			return
		case <-h.ctx.Done():
			return
		case msg := <-client.Chan:
			h.sendEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

// sendEvent writes an SSE event to the response writer
func (h *EventsHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

// ClientCount returns the number of connected SSE clients
func (h *EventsHandler) ClientCount() int {
	return int(h.count.Load())
}
