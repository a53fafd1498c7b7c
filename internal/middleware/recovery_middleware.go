// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	"duka-admin/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware converts a panic into a 500 envelope. The log line
// carries the session ID when one is attached, so a crash can be correlated
// with the request log and the session's slot state.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := []zap.Field{
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				}
				if manager := GetManager(c); manager != nil {
					fields = append(fields, zap.String("session_id", manager.ID()))
				}
				logger.Error("panic recovered", fields...)
				response.Error(c, http.StatusInternalServerError, "internal server error", nil)
			}
		}()
		c.Next()
	}
}
