package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duka-admin/internal/backend"
	"duka-admin/internal/store"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCookie = "duka_session"

func newTestRegistry() *Registry {
	api := backend.NewClient("http://127.0.0.1:1", zap.NewNop())
	return NewRegistry(api, store.NewMemoryStore(0), nil, zap.NewNop(), testCookie, time.Hour)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie issued", testCookie)
	return nil
}

func TestAttach_MintsCookieForNewVisitor(t *testing.T) {
	r := newTestRegistry()
	w := httptest.NewRecorder()

	m := r.Attach(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, m)

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	_, err := ulid.Parse(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, cookie.Value, m.ID())

	// No credential in storage, so the session settles unauthenticated.
	assert.Equal(t, StateUnauthenticated, m.State())
}

func TestAttach_ReusesManagerForReturningCookie(t *testing.T) {
	r := newTestRegistry()

	w := httptest.NewRecorder()
	first := r.Attach(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, w)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	second := r.Attach(w2, req)

	assert.Same(t, first, second)
	assert.Empty(t, w2.Result().Cookies())
}

func TestAttach_RejectsMalformedCookie(t *testing.T) {
	r := newTestRegistry()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "not-a-ulid"})
	w := httptest.NewRecorder()

	m := r.Attach(w, req)
	require.NotNil(t, m)

	// A fresh identifier replaces the forged one.
	cookie := sessionCookie(t, w)
	assert.NotEqual(t, "not-a-ulid", cookie.Value)
	assert.Equal(t, cookie.Value, m.ID())
}

func TestLookup(t *testing.T) {
	r := newTestRegistry()

	w := httptest.NewRecorder()
	m := r.Attach(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Same(t, m, r.Lookup(m.ID()))
	assert.Nil(t, r.Lookup(ulid.Make().String()))
}

func TestSweep_DropsIdleManagers(t *testing.T) {
	r := newTestRegistry()
	r.idleTTL = 10 * time.Millisecond

	w := httptest.NewRecorder()
	m := r.Attach(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, r.Lookup(m.ID()))

	time.Sleep(20 * time.Millisecond)
	r.sweep()

	assert.Nil(t, r.Lookup(m.ID()))
}
