// internal/app/router.go
package app

import (
	authHandler "duka-admin/internal/handlers/auth"
	pagesHandler "duka-admin/internal/handlers/pages"
	proxyHandler "duka-admin/internal/handlers/proxy"
	"duka-admin/internal/middleware"
	"duka-admin/internal/session"
	"duka-admin/internal/ws"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler  *authHandler.AuthHandler
	PageHandler  *pagesHandler.PageHandler
	ProxyHandler *proxyHandler.ProxyHandler
	Hub          *ws.Hub
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	// ==================== Health Check ====================
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Static Assets ====================
	r.StaticFS("/static", pagesHandler.StaticFS())

	// ==================== Public Auth Routes ====================
	r.GET("/login", h.AuthHandler.LoginPage)
	r.POST("/login", h.AuthHandler.Login)
	r.GET("/logout", h.AuthHandler.Logout)
	r.POST("/session/forgot-password", h.AuthHandler.ForgotPassword)
	r.POST("/session/reset-password", h.AuthHandler.ResetPassword)

	// ==================== Session Endpoints ====================
	sess := r.Group("/session")
	sess.Use(middleware.RequireSession())
	{
		sess.GET("/me", h.AuthHandler.Me)
		sess.PUT("/profile", h.AuthHandler.UpdateProfile)
		sess.POST("/change-password", h.AuthHandler.ChangePassword)
	}

	// ==================== Console Pages ====================
	// The outer group enforces authentication once; each gated section nests
	// its own permission group inside it.
	console := r.Group("")
	console.Use(middleware.RequireSession())
	for _, page := range pagesHandler.Pages() {
		if page.Permission == "" {
			console.GET(page.Path, h.PageHandler.Render(page))
			continue
		}
		section := console.Group(page.Path)
		section.Use(middleware.RequirePermission(page.Permission))
		section.GET("", h.PageHandler.Render(page))
	}

	// ==================== Backend Proxy ====================
	// Data calls are JSON; an expired session answers 401 here rather than
	// redirecting, and the page script handles the bounce.
	r.Any("/api/*path", h.ProxyHandler.Forward)

	// ==================== Session Events ====================
	r.GET("/ws", func(c *gin.Context) {
		manager := middleware.GetManager(c)
		if manager == nil || manager.State() != session.StateAuthenticated {
			c.AbortWithStatus(401)
			return
		}
		h.Hub.Handle(c.Writer, c.Request, manager.ID())
	})
}
