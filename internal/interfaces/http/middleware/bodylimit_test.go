package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/bizdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/upload", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestBodyLimit_WithinLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	bodyRouter(10).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBodyLimit_DeclaredLengthTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	bodyRouter(4).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, decodeError(t, rec).Code)
}

func TestBodyLimit_StreamedBodyIsCapped(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("streamed body"))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	bodyRouter(4).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
