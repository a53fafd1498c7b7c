// internal/token/store.go
package token

import (
	"context"
	"time"

	"duka-admin/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

const slot = "token"

// Store owns the bearer credential for one browser session. The credential is
// opaque here except for its expiry claim: the gateway never verifies the
// signature (it holds no key), it only decides whether sending the token to
// the backend is worth a round trip.
type Store struct {
	slots     store.Store
	sessionID string
}

func NewStore(slots store.Store, sessionID string) *Store {
	return &Store{slots: slots, sessionID: sessionID}
}

// Save persists the credential, overwriting any prior value.
func (s *Store) Save(ctx context.Context, tok string) error {
	return s.slots.Set(ctx, store.SlotKey(s.sessionID, slot), tok)
}

// Get returns the persisted credential, or an empty string if none exists.
func (s *Store) Get(ctx context.Context) (string, error) {
	return s.slots.Get(ctx, store.SlotKey(s.sessionID, slot))
}

// Clear removes the persisted credential. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	return s.slots.Del(ctx, store.SlotKey(s.sessionID, slot))
}

// IsExpired reports whether the token's embedded expiry claim is in the past.
// The claim is decoded without signature verification. A malformed token, or
// one carrying no expiry at all, counts as expired.
func IsExpired(tok string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.Before(time.Now())
}
