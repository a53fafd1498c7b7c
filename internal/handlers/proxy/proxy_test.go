package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duka-admin/internal/backend"
	domain "duka-admin/internal/domain/session"
	"duka-admin/internal/middleware"
	"duka-admin/internal/session"
	"duka-admin/internal/store"
	"duka-admin/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const cookieName = "duka_session"

func TestRelayHeaders_SkipsHopByHop(t *testing.T) {
	src := http.Header{
		"Content-Type":      {"application/json"},
		"X-Total-Count":     {"3"},
		"Connection":        {"keep-alive"},
		"Keep-Alive":        {"timeout=5"},
		"Transfer-Encoding": {"chunked"},
		"Upgrade":           {"h2c"},
		"Trailer":           {"X-Checksum"},
	}
	dst := http.Header{}
	relayHeaders(dst, src)

	assert.Equal(t, "application/json", dst.Get("Content-Type"))
	assert.Equal(t, "3", dst.Get("X-Total-Count"))
	for _, key := range []string{"Connection", "Keep-Alive", "Transfer-Encoding", "Upgrade", "Trailer"} {
		assert.Empty(t, dst.Get(key), key)
	}
}

// consoleEngine builds the proxy route behind the session middleware, with an
// authenticated session seeded in the slot store.
func consoleEngine(t *testing.T, backendURL string) (*gin.Engine, *session.Registry, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	sid := ulid.Make().String()
	slots := store.NewMemoryStore(0)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	require.NoError(t, token.NewStore(slots, sid).Save(ctx, tok))

	snapshot, err := json.Marshal(&domain.User{
		Name:        "Amina",
		Permissions: domain.NewPermissionSet(),
	})
	require.NoError(t, err)
	require.NoError(t, slots.Set(ctx, store.SlotKey(sid, "user"), string(snapshot)))

	api := backend.NewClient(backendURL, zap.NewNop())
	registry := session.NewRegistry(api, slots, nil, zap.NewNop(), cookieName, time.Hour)

	r := gin.New()
	r.Use(middleware.SessionMiddleware(registry))
	r.Any("/api/*path", NewProxyHandler(api, zap.NewNop()).Forward)
	return r, registry, sid
}

func proxyRequest(sid, path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: sid})
	return req
}

func TestForward_RelaysBackendResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/me":
			json.NewEncoder(w).Encode(map[string]any{"email": "amina@shop.co"})
		case "/api/products":
			assert.NotEmpty(t, r.Header.Get("Authorization"))
			w.Header().Set("X-Total-Count", "2")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"items":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r, _, sid := consoleEngine(t, srv.URL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, proxyRequest(sid, "/api/products"))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestForward_UnauthorizedBackendEndsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/me" {
			json.NewEncoder(w).Encode(map[string]any{"email": "amina@shop.co"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	r, registry, sid := consoleEngine(t, srv.URL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, proxyRequest(sid, "/api/orders"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session expired")

	manager := registry.Lookup(sid)
	require.NotNil(t, manager)
	assert.Nil(t, manager.User())
}

func TestForward_UnauthenticatedSessionAnswers401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called without a session")
	}))
	defer srv.Close()

	r, _, _ := consoleEngine(t, srv.URL)

	// No cookie: a fresh session with no credential.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "not authenticated")
}
