package middleware

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duka-admin/internal/backend"
	domain "duka-admin/internal/domain/session"
	"duka-admin/internal/session"
	"duka-admin/internal/store"
	"duka-admin/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecide(t *testing.T) {
	viewer := &domain.User{
		Name:        "Amina",
		Permissions: domain.NewPermissionSet("Permissions.Users.View"),
	}

	tests := []struct {
		name       string
		state      session.State
		user       *domain.User
		permission string
		want       Decision
	}{
		{name: "loading stays pending", state: session.StateLoading, permission: "", want: DecisionPending},
		{name: "loading pends even with permission", state: session.StateLoading, user: viewer, permission: "Permissions.Users.View", want: DecisionPending},
		{name: "unauthenticated goes to login", state: session.StateUnauthenticated, permission: "", want: DecisionLoginRedirect},
		{name: "unauthenticated gated goes to login", state: session.StateUnauthenticated, permission: "Permissions.Users.View", want: DecisionLoginRedirect},
		{name: "authenticated ungated allowed", state: session.StateAuthenticated, user: viewer, permission: "", want: DecisionAllow},
		{name: "authenticated with permission allowed", state: session.StateAuthenticated, user: viewer, permission: "Permissions.Users.View", want: DecisionAllow},
		{name: "authenticated missing permission goes home", state: session.StateAuthenticated, user: viewer, permission: "Permissions.Users.Edit", want: DecisionHomeRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.state, tt.user, tt.permission))
		})
	}
}

// guardedEngine wires a manager into the request context the way
// SessionMiddleware does, then gates a single route.
func guardedEngine(manager *session.Manager, permission string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("verifying.html").Parse("verifying")))
	r.Use(func(c *gin.Context) {
		if manager != nil {
			c.Set(managerKey, manager)
		}
		c.Next()
	})
	r.GET("/guarded", RequirePermission(permission), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func signedTestToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

// authenticatedManager builds a settled, authenticated manager by seeding the
// slot store and resuming against an unreachable backend.
func authenticatedManager(t *testing.T, permissions ...string) *session.Manager {
	t.Helper()
	ctx := context.Background()
	const sid = "01JGUARDSESSION"

	slots := store.NewMemoryStore(0)
	require.NoError(t, token.NewStore(slots, sid).Save(ctx, signedTestToken(t)))

	snapshot, err := json.Marshal(&domain.User{
		Name:        "Amina",
		Permissions: domain.NewPermissionSet(permissions...),
	})
	require.NoError(t, err)
	require.NoError(t, slots.Set(ctx, store.SlotKey(sid, "user"), string(snapshot)))

	api := backend.NewClient("http://127.0.0.1:1", zap.NewNop())
	m := session.NewManager(sid, api, slots, nil, zap.NewNop())
	m.Bootstrap(ctx)
	require.Equal(t, session.StateAuthenticated, m.State())
	return m
}

func unauthenticatedManager(t *testing.T) *session.Manager {
	t.Helper()
	api := backend.NewClient("http://127.0.0.1:1", zap.NewNop())
	m := session.NewManager("01JGUARDSESSION", api, store.NewMemoryStore(0), nil, zap.NewNop())
	m.Bootstrap(context.Background())
	return m
}

func TestRequirePermission_PendingShowsInterimPage(t *testing.T) {
	api := backend.NewClient("http://127.0.0.1:1", zap.NewNop())
	loading := session.NewManager("01JGUARDSESSION", api, store.NewMemoryStore(0), nil, zap.NewNop())

	w := httptest.NewRecorder()
	guardedEngine(loading, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "verifying", w.Body.String())
}

func TestRequirePermission_UnauthenticatedRedirectsToLogin(t *testing.T) {
	w := httptest.NewRecorder()
	guardedEngine(unauthenticatedManager(t), "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequirePermission_MissingManagerRedirectsToLogin(t *testing.T) {
	w := httptest.NewRecorder()
	guardedEngine(nil, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequirePermission_DeniedRedirectsHome(t *testing.T) {
	m := authenticatedManager(t, "Permissions.Sales.View")

	w := httptest.NewRecorder()
	guardedEngine(m, "Permissions.Users.View").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestRequirePermission_AllowedReachesHandler(t *testing.T) {
	m := authenticatedManager(t, "Permissions.Users.View")

	w := httptest.NewRecorder()
	guardedEngine(m, "Permissions.Users.View").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRequireSession_IsUngated(t *testing.T) {
	m := authenticatedManager(t) // no permissions at all

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("verifying.html").Parse("verifying")))
	r.Use(func(c *gin.Context) {
		c.Set(managerKey, m)
		c.Next()
	})
	r.GET("/me", RequireSession(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
