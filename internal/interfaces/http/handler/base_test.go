package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/interfaces/http/dto"
	"github.com/erp/bizdesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(method, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestBaseHandler_HandleDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"business rule", shared.NewDomainError("INVALID_STATE", "nope"), http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"field error", shared.NewDomainError("INVALID_EMAIL", "bad email"), http.StatusBadRequest, "ERR_INVALID_EMAIL"},
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"wrapped", errors.Join(errors.New("ctx"), shared.NewDomainError("CLIENT_IN_USE", "in use")), http.StatusConflict, dto.ErrCodeClientInUse},
		{"plain error", errors.New("connection refused"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "")
			h := &BaseHandler{}
			h.HandleDomainError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
			assert.Len(t, c.Errors, 1, "error is attached for the logger")
		})
	}
}

func TestBaseHandler_InternalErrorHidesMessage(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "")
	(&BaseHandler{}).HandleDomainError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
}

func TestBaseHandler_ErrorCarriesRequestID(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "")
	c.Set(middleware.RequestIDKey, "req-42")
	(&BaseHandler{}).NotFound(c, "missing")

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "req-42", env.Error.RequestID)
}

func TestBaseHandler_BindJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name" binding:"required"`
	}

	t.Run("malformed body", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "{not json")
		var p payload
		assert.False(t, (&BaseHandler{}).bindJSON(c, &p))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, errorCode(t, w))
	})

	t.Run("validation failure", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, `{}`)
		var p payload
		assert.False(t, (&BaseHandler{}).bindJSON(c, &p))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
	})

	t.Run("body over the limit", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, `{"name":"`+strings.Repeat("x", 64)+`"}`)
		c.Request.Body = http.MaxBytesReader(w, c.Request.Body, 8)
		var p payload
		assert.False(t, (&BaseHandler{}).bindJSON(c, &p))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("valid", func(t *testing.T) {
		c, _ := newTestContext(http.MethodPost, `{"name":"Acme"}`)
		var p payload
		assert.True(t, (&BaseHandler{}).bindJSON(c, &p))
		assert.Equal(t, "Acme", p.Name)
	})
}

func TestBaseHandler_ParseID(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	_, ok := (&BaseHandler{}).parseID(c, "id", "quote")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid quote ID format")

	id := uuid.New()
	c, _ = newTestContext(http.MethodGet, "")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := (&BaseHandler{}).parseID(c, "id", "quote")
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestGetUserID(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "")
	_, err := getUserID(c)
	assert.Error(t, err)

	id := uuid.New()
	c.Set(middleware.JWTUserIDKey, id.String())
	got, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestPageDefaults(t *testing.T) {
	page, size := pageDefaults(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	page, size = pageDefaults(3, 50)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)
}
