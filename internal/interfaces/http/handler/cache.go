package handler

import (
	"time"

	"github.com/erp/bizdesk/internal/application/cachesync"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CacheHandler exposes manual cache reloads to administrators
type CacheHandler struct {
	BaseHandler
	cache     *cache.DataManager
	announcer cachesync.Announcer
}

// NewCacheHandler creates a new CacheHandler. announcer may be nil for a
// single instance.
func NewCacheHandler(dm *cache.DataManager, announcer cachesync.Announcer) *CacheHandler {
	return &CacheHandler{
		cache:     dm,
		announcer: announcer,
	}
}

// ReloadRequest lists the collections to reload. Empty reloads all.
type ReloadRequest struct {
	Collections []string `json:"collections" binding:"omitempty,max=10"`
}

// ReloadResponse reports what was reloaded
type ReloadResponse struct {
	Collections []cache.Collection `json:"collections"`
	ReloadedAt  time.Time          `json:"reloaded_at"`
}

// Reload handles POST /cache/reload. The body is optional.
func (h *CacheHandler) Reload(c *gin.Context) {
	var req ReloadRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	collections := make([]cache.Collection, 0, len(req.Collections))
	for _, name := range req.Collections {
		col, err := cache.ParseCollection(name)
		if err != nil {
			h.BadRequest(c, "Unknown cache collection: "+name)
			return
		}
		collections = append(collections, col)
	}

	ctx := c.Request.Context()
	var err error
	if len(collections) == 0 {
		collections = cache.AllCollections()
		_, err = h.cache.InvalidateAll(ctx)
	} else {
		_, err = h.cache.InvalidateMultiple(ctx, collections...)
	}
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if h.announcer != nil {
		if err := h.announcer.Broadcast(ctx, collections...); err != nil {
			logger.GetGinLogger(c).Warn("Failed to announce cache reload", zap.Error(err))
		}
	}
	logger.GetGinLogger(c).Info("Cache reloaded", zap.Any("collections", collections))

	h.Success(c, ReloadResponse{Collections: collections, ReloadedAt: time.Now()})
}
