package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	clientapp "github.com/erp/bizdesk/internal/application/client"
	"github.com/erp/bizdesk/internal/infrastructure/auth"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/infrastructure/config"
	"github.com/erp/bizdesk/internal/infrastructure/persistence"
	"github.com/erp/bizdesk/internal/interfaces/http/dto"
	"github.com/erp/bizdesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testEnv is a sqlite backed stack of repositories, cache and JWT service
type testEnv struct {
	db    *persistence.Database
	repos *persistence.Repositories
	dm    *cache.DataManager
	jwt   *auth.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	repos := persistence.NewRepositories(db.DB)
	return &testEnv{
		db:    db,
		repos: repos,
		dm:    cache.NewDataManager(repos.DataSource()),
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:                 "handler-test-secret-with-enough-bytes",
			AccessTokenExpiration:  time.Hour,
			RefreshTokenExpiration: 24 * time.Hour,
			Issuer:                 "bizdesk-test",
		}),
	}
}

// engine returns a gin engine that authenticates every request as userID
func (e *testEnv) engine(userID uuid.UUID, role string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), asUser(userID, role))
	return r
}

func asUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.JWTUserIDKey, userID.String())
			c.Set(middleware.JWTRoleKey, role)
		}
		c.Next()
	}
}

func (e *testEnv) createClient(t *testing.T, name string) clientapp.ClientResponse {
	t.Helper()
	svc := clientapp.NewClientService(e.repos.Clients, e.dm, nil)
	resp, err := svc.Create(t.Context(), clientapp.CreateClientRequest{Type: "organization", Name: name})
	require.NoError(t, err)
	return *resp
}

// envelope mirrors dto.Response with the payload left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// decodeData unmarshals the data of a success envelope into T
func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// errorCode returns the code of an error envelope
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}
