// internal/middleware/guard.go
package middleware

import (
	"net/http"

	"duka-admin/internal/authz"
	domain "duka-admin/internal/domain/session"
	"duka-admin/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	loginPath = "/login"
	homePath  = "/"
)

// Decision is the route guard's verdict for one request.
type Decision int

const (
	// DecisionPending: bootstrap has not settled, show the interim page and
	// make no authorization call yet.
	DecisionPending Decision = iota
	// DecisionLoginRedirect: no authenticated session.
	DecisionLoginRedirect
	// DecisionHomeRedirect: authenticated but missing the required
	// permission. Falls back to the landing page, not an error view.
	DecisionHomeRedirect
	DecisionAllow
)

// Decide is the pure gate: given the session state and an optional required
// permission, pick the outcome. Guards compose by nesting: an outer ungated
// instance enforces authentication, and inner instances each enforce one
// permission. Every instance goes through this same function.
func Decide(state session.State, user *domain.User, requiredPermission string) Decision {
	switch state {
	case session.StateLoading:
		return DecisionPending
	case session.StateUnauthenticated:
		return DecisionLoginRedirect
	}
	if !authz.HasPermission(user, requiredPermission) {
		return DecisionHomeRedirect
	}
	return DecisionAllow
}

// RequireSession gates a route subtree on an authenticated session.
func RequireSession() gin.HandlerFunc {
	return RequirePermission("")
}

// RequirePermission gates a route subtree on one permission. MUST run after
// SessionMiddleware. Nest inside RequireSession-gated groups to give
// different subtrees different permissions without repeating the
// authentication check.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		manager := GetManager(c)
		if manager == nil {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		switch Decide(manager.State(), manager.User(), permission) {
		case DecisionPending:
			c.HTML(http.StatusOK, "verifying.html", gin.H{})
			c.Abort()
		case DecisionLoginRedirect:
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
		case DecisionHomeRedirect:
			c.Redirect(http.StatusFound, homePath)
			c.Abort()
		default:
			c.Next()
		}
	}
}
