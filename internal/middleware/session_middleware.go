// internal/middleware/session_middleware.go
package middleware

import (
	"duka-admin/internal/session"

	"github.com/gin-gonic/gin"
)

const managerKey = "session_manager"

// SessionMiddleware resolves the browser session for every request and makes
// its manager available to guards and handlers. Runs before any guard.
func SessionMiddleware(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		manager := registry.Attach(c.Writer, c.Request)
		c.Set(managerKey, manager)
		c.Next()
	}
}

// GetManager returns the session manager attached to the request, or nil.
func GetManager(c *gin.Context) *session.Manager {
	value, exists := c.Get(managerKey)
	if !exists {
		return nil
	}

	manager, ok := value.(*session.Manager)
	if !ok {
		return nil
	}
	return manager
}
