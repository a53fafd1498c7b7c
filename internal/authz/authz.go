// internal/authz/authz.go
package authz

import (
	domain "duka-admin/internal/domain/session"
)

// HasPermission is the single permission check used for both navigation
// filtering and route gating. An empty requirement means the resource is
// ungated; no user means no access. Otherwise it is exact set membership:
// permission identifiers are opaque, with no hierarchy or wildcards.
func HasPermission(user *domain.User, required string) bool {
	if required == "" {
		return true
	}
	if user == nil {
		return false
	}
	return user.Permissions.Has(required)
}

// HasAnyPermission reports whether the user holds at least one of the given
// permissions. An empty list is ungated.
func HasAnyPermission(user *domain.User, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	for _, p := range required {
		if HasPermission(user, p) {
			return true
		}
	}
	return false
}
