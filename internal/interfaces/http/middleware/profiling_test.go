package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestControllerFromRoute(t *testing.T) {
	tests := map[string]string{
		"/api/v1/quotes/:id/pdf": "quotes",
		"/api/v1/clients":        "clients",
		"/api/v2/reports/:kind":  "reports",
		"/health":                "health",
		"/api/v1/files/*key":     "files",
		"":                       "",
		"/api/v1/:id":            "",
	}
	for route, want := range tests {
		assert.Equal(t, want, controllerFromRoute(route), route)
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vx"))
	assert.False(t, isVersionSegment("quotes"))
}

func TestProfiling_PassesThrough(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		router := gin.New()
		router.Use(Profiling(enabled, "/health"))
		router.GET("/api/v1/quotes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		for _, path := range []string{"/api/v1/quotes/1", "/health"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	}
}
