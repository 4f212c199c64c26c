package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"testing"

	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newSystemRouter(t *testing.T, db Pinger) (*gin.Engine, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	if db == nil {
		db = env.db
	}
	h := NewSystemHandler("bizdesk", "1.4.0", db, env.dm)
	r := env.engine(uuid.Nil, "")
	r.GET("/health", h.Health)
	r.GET("/system/info", h.GetSystemInfo)
	return r, env
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	r, _ := newSystemRouter(t, nil)

	w := doJSON(t, r, http.MethodGet, "/system/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decodeData[SystemInfoResponse](t, w)
	assert.Equal(t, "bizdesk", info.Name)
	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}

func TestSystemHandler_Health(t *testing.T) {
	r, env := newSystemRouter(t, nil)
	_, err := env.dm.InvalidateMultiple(context.Background(), cache.CollectionClients)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Database)
	require.Len(t, resp.Collections, len(cache.AllCollections()))
	assert.True(t, resp.Collections[cache.CollectionClients].Loaded)
	assert.False(t, resp.Collections[cache.CollectionQuotes].Loaded, "unloaded collections do not fail the check")
	assert.False(t, resp.Collections[cache.CollectionQuotes].Loading)
}

func TestSystemHandler_HealthDatabaseDown(t *testing.T) {
	r, _ := newSystemRouter(t, pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	}))

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "error", resp.Database)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
