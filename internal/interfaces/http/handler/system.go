package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/infrastructure/logger"
	"github.com/erp/bizdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// healthCheckTimeout bounds the database ping of a health check
const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	db        Pinger
	cache     *cache.DataManager
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, db Pinger, dm *cache.DataManager) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		db:        db,
		cache:     dm,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// CollectionHealth is the state of one cached collection
type CollectionHealth struct {
	Loaded  bool `json:"loaded"`
	Loading bool `json:"loading"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string                                `json:"status"`
	Time        string                                `json:"time"`
	Database    string                                `json:"database"`
	Collections map[cache.Collection]CollectionHealth `json:"collections"`
}

// GetSystemInfo handles GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// Health handles GET /health. It answers 503 when the database is
// unreachable; collections still loading do not fail the check.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:      "healthy",
		Time:        time.Now().Format(time.RFC3339),
		Database:    "ok",
		Collections: make(map[cache.Collection]CollectionHealth),
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
			resp.Status = "unhealthy"
			resp.Database = "error"
			status = http.StatusServiceUnavailable
		}
	}

	if h.cache != nil {
		loaded := map[cache.Collection]bool{
			cache.CollectionClients:         h.cache.Clients.Loaded(),
			cache.CollectionQuotes:          h.cache.Quotes.Loaded(),
			cache.CollectionOrders:          h.cache.Orders.Loaded(),
			cache.CollectionCompanySettings: h.cache.CompanySettings.Loaded(),
		}
		for _, col := range cache.AllCollections() {
			resp.Collections[col] = CollectionHealth{
				Loaded:  loaded[col],
				Loading: h.cache.IsLoading(col),
			}
		}
	}

	c.JSON(status, resp)
}
