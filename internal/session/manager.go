// internal/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"duka-admin/internal/backend"
	domain "duka-admin/internal/domain/session"
	"duka-admin/internal/normalize"
	xerrors "duka-admin/internal/pkg/errors"
	"duka-admin/internal/store"
	"duka-admin/internal/token"

	"go.uber.org/zap"
)

const userSlot = "user"

// State is the authorization state route guards act on.
type State int

const (
	// StateLoading means bootstrap has not settled; guards must not redirect.
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

// Notifier receives session lifecycle events for push delivery to open tabs.
type Notifier interface {
	SessionEnded(sessionID string)
}

// Manager owns the authenticated state of one browser session: the in-memory
// user record, the persisted credential and snapshot slots, and the
// Loading -> {Authenticated | Unauthenticated} state machine. It is the only
// writer of that state; login, refresh, logout and profile merges all funnel
// through it, and the user record is always replaced wholesale so readers
// never observe a partial update.
type Manager struct {
	mu      sync.Mutex
	id      string
	api     *backend.Client
	tokens  *token.Store
	slots   store.Store
	hub     Notifier
	logger  *zap.Logger
	user    *domain.User
	loading bool
	booted  bool
}

func NewManager(id string, api *backend.Client, slots store.Store, hub Notifier, logger *zap.Logger) *Manager {
	return &Manager{
		id:      id,
		api:     api,
		tokens:  token.NewStore(slots, id),
		slots:   slots,
		hub:     hub,
		logger:  logger,
		loading: true,
	}
}

// ID returns the cookie-bound session identifier.
func (m *Manager) ID() string {
	return m.id
}

// State reports the current authorization state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.loading:
		return StateLoading
	case m.user != nil:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// User returns the current canonical user record, or nil. Callers treat it as
// read-only; updates replace the whole record.
func (m *Manager) User() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// Token returns the persisted bearer credential for outbound backend calls.
func (m *Manager) Token(ctx context.Context) string {
	tok, err := m.tokens.Get(ctx)
	if err != nil {
		m.logger.Warn("failed to read credential slot", zap.String("session_id", m.id), zap.Error(err))
		return ""
	}
	return tok
}

// Bootstrap runs once per manager, when a session is first seen or resumed.
// An absent or expired credential is terminal unauthenticated. Otherwise the
// persisted snapshot is loaded optimistically before the authoritative
// refresh, so a resumed console never flashes blank. Guards only act after
// bootstrap settles.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	if m.booted {
		m.mu.Unlock()
		return
	}
	m.booted = true
	m.loading = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	tok, err := m.tokens.Get(ctx)
	if err != nil {
		m.logger.Warn("failed to read credential slot during bootstrap", zap.String("session_id", m.id), zap.Error(err))
	}
	if tok == "" || token.IsExpired(tok) {
		m.Logout(ctx)
		return
	}

	if cached := m.loadSnapshot(ctx); cached != nil {
		m.replaceUser(cached)
	}

	if err := m.Refresh(ctx); err != nil && !errors.Is(err, xerrors.ErrSessionExpired) {
		m.logger.Warn("bootstrap refresh failed, serving cached session",
			zap.String("session_id", m.id),
			zap.Error(err),
		)
	}
}

// Login submits credentials and, on success, persists the returned token and
// synchronously refreshes so the caller never navigates into an authenticated
// session with no permissions yet.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	tok, err := m.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := m.tokens.Save(ctx, tok); err != nil {
		return xerrors.Wrap(err, "failed to persist credential")
	}

	if err := m.Refresh(ctx); err != nil {
		// Failures during login are fatal to the attempt.
		return err
	}

	m.logger.Info("user logged in",
		zap.String("session_id", m.id),
		zap.String("email", email),
	)
	return nil
}

// Refresh fetches the current-user profile, normalizes it and replaces both
// the in-memory record and the persisted snapshot. A 401 tears the session
// down. Any other failure keeps the previous record: a stale-but-present
// session beats a forced logout on a transient network error.
func (m *Manager) Refresh(ctx context.Context) error {
	tok, err := m.tokens.Get(ctx)
	if err != nil {
		return xerrors.Wrap(err, "failed to read credential slot")
	}
	if tok == "" {
		m.Logout(ctx)
		return xerrors.ErrSessionExpired
	}

	raw, err := m.api.Me(ctx, tok)
	if err != nil {
		if errors.Is(err, xerrors.ErrUnauthorized) {
			m.Logout(ctx)
			return xerrors.ErrSessionExpired
		}
		m.logger.Warn("profile refresh failed, keeping cached user",
			zap.String("session_id", m.id),
			zap.Error(err),
		)
		return err
	}

	user := normalize.Normalize(raw, m.api.BaseURL())
	if user == nil {
		return fmt.Errorf("backend returned an empty user payload")
	}

	m.replaceUser(user)
	m.persistSnapshot(ctx, user)
	return nil
}

// Logout clears both slots and the in-memory record, and notifies open tabs.
// Idempotent; storage failures are logged, never surfaced.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.tokens.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear credential slot", zap.String("session_id", m.id), zap.Error(err))
	}
	if err := m.slots.Del(ctx, store.SlotKey(m.id, userSlot)); err != nil {
		m.logger.Warn("failed to clear user snapshot", zap.String("session_id", m.id), zap.Error(err))
	}

	m.mu.Lock()
	wasAuthenticated := m.user != nil
	m.user = nil
	m.mu.Unlock()

	if wasAuthenticated && m.hub != nil {
		m.hub.SessionEnded(m.id)
	}
}

// UpdateUser merges edited profile fields into a copy of the current record
// and swaps it in, avoiding a full refresh after a profile edit. Role and
// permission data cannot pass through here; only Refresh and Login set those,
// from the backend's payload.
func (m *Manager) UpdateUser(ctx context.Context, update domain.UserUpdate) {
	m.mu.Lock()
	current := m.user
	m.mu.Unlock()
	if current == nil {
		return
	}

	next := current.Clone()
	if update.FirstName != nil {
		next.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		next.LastName = *update.LastName
	}
	if update.Email != nil {
		next.Email = *update.Email
	}
	if update.Photo != nil {
		next.Photo = normalize.ResolvePhoto(*update.Photo, m.api.BaseURL())
	}

	next.Name = normalize.DisplayName(next.FirstName, next.LastName, next.Email)
	next.Initials = normalize.Initials(next.FirstName, next.LastName, next.Name)

	m.replaceUser(next)
	m.persistSnapshot(ctx, next)
}

func (m *Manager) replaceUser(user *domain.User) {
	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
}

func (m *Manager) persistSnapshot(ctx context.Context, user *domain.User) {
	data, err := json.Marshal(user)
	if err != nil {
		m.logger.Warn("failed to encode user snapshot", zap.String("session_id", m.id), zap.Error(err))
		return
	}
	if err := m.slots.Set(ctx, store.SlotKey(m.id, userSlot), string(data)); err != nil {
		m.logger.Warn("failed to persist user snapshot", zap.String("session_id", m.id), zap.Error(err))
	}
}

func (m *Manager) loadSnapshot(ctx context.Context) *domain.User {
	data, err := m.slots.Get(ctx, store.SlotKey(m.id, userSlot))
	if err != nil || data == "" {
		return nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		m.logger.Warn("discarding unreadable user snapshot", zap.String("session_id", m.id), zap.Error(err))
		return nil
	}
	return &user
}
