// internal/session/registry.go
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"duka-admin/internal/backend"
	"duka-admin/internal/store"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Registry binds browser sessions to managers. The session ID travels in an
// HTTP-only cookie; the manager for a returning cookie is resumed lazily,
// which runs the bootstrap sequence against whatever slots still exist in
// storage. Idle managers are swept out; their persisted slots expire on their
// own storage TTL, so a swept session resumes cleanly on the next request.
type Registry struct {
	mu         sync.Mutex
	cookieName string
	cookieTTL  time.Duration
	idleTTL    time.Duration
	api        *backend.Client
	slots      store.Store
	hub        Notifier
	logger     *zap.Logger
	managers   map[string]*registryEntry
}

type registryEntry struct {
	manager  *Manager
	lastSeen time.Time
}

func NewRegistry(api *backend.Client, slots store.Store, hub Notifier, logger *zap.Logger, cookieName string, cookieTTL time.Duration) *Registry {
	return &Registry{
		cookieName: cookieName,
		cookieTTL:  cookieTTL,
		idleTTL:    cookieTTL,
		api:        api,
		slots:      slots,
		hub:        hub,
		logger:     logger,
		managers:   make(map[string]*registryEntry),
	}
}

// Attach resolves the manager for the request's session, issuing a fresh
// session cookie when none exists. New or resumed managers are bootstrapped
// synchronously before this returns, so callers always observe a settled or
// explicitly loading state.
func (r *Registry) Attach(w http.ResponseWriter, req *http.Request) *Manager {
	sid := r.sessionID(req)
	if sid == "" {
		sid = ulid.Make().String()
		http.SetCookie(w, &http.Cookie{
			Name:     r.cookieName,
			Value:    sid,
			Path:     "/",
			MaxAge:   int(r.cookieTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	r.mu.Lock()
	entry, ok := r.managers[sid]
	if !ok {
		entry = &registryEntry{manager: NewManager(sid, r.api, r.slots, r.hub, r.logger)}
		r.managers[sid] = entry
	}
	entry.lastSeen = time.Now()
	r.mu.Unlock()

	entry.manager.Bootstrap(req.Context())
	return entry.manager
}

// Lookup returns the live manager for a session ID, if any. Used by the
// websocket endpoint, which must not mint sessions.
func (r *Registry) Lookup(sid string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.managers[sid]; ok {
		return entry.manager
	}
	return nil
}

// CookieName returns the name of the session cookie.
func (r *Registry) CookieName() string {
	return r.cookieName
}

// Run sweeps idle managers until the context is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	cutoff := time.Now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	for sid, entry := range r.managers {
		if entry.lastSeen.Before(cutoff) {
			delete(r.managers, sid)
		}
	}
}

func (r *Registry) sessionID(req *http.Request) string {
	cookie, err := req.Cookie(r.cookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if _, err := ulid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}
