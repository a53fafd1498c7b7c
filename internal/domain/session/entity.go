// internal/domain/session/entity.go
package session

import (
	"encoding/json"
	"sort"
)

// User is the canonical, render-ready user record. It is built by the
// normalizer, replaced wholesale by the session manager, and read-only for
// everything downstream. Every field is safe to render as-is.
type User struct {
	ID          string        `json:"id"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Photo       string        `json:"photo,omitempty"`
	Role        string        `json:"role"`
	Permissions PermissionSet `json:"permissions"`
	Initials    string        `json:"initials"`
}

// Clone returns a copy safe to mutate before swapping in as the new record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Permissions = make(PermissionSet, len(u.Permissions))
	for p := range u.Permissions {
		cp.Permissions[p] = struct{}{}
	}
	return &cp
}

// PermissionSet holds permission identifiers with set semantics. Identifiers
// are opaque strings, matched exactly; there is no hierarchy or wildcarding.
// The zero value (nil) behaves as an empty set for membership checks.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from a list, collapsing duplicates.
func NewPermissionSet(perms ...string) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether the permission is a member of the set.
func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// Values returns the members as a sorted slice.
func (s PermissionSet) Values() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes a JSON array into the set, collapsing duplicates.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = NewPermissionSet(list...)
	return nil
}
