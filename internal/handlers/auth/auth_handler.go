// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"
	"net/url"

	"duka-admin/internal/backend"
	domain "duka-admin/internal/domain/session"
	"duka-admin/internal/middleware"
	xerrors "duka-admin/internal/pkg/errors"
	"duka-admin/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	api    *backend.Client
	logger *zap.Logger
}

func NewAuthHandler(api *backend.Client, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{api: api, logger: logger}
}

// ========== Login ==========

// LoginPage renders the login form. An already-authenticated session goes
// straight to the dashboard.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	manager := middleware.GetManager(c)
	if manager != nil && manager.User() != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "login.html", gin.H{
		"Error": c.Query("error"),
	})
}

// Login handles the login submit. Browser form posts get redirects; JSON
// callers get the response envelope.
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	wantsJSON := c.ContentType() == "application/json"

	var bindErr error
	if wantsJSON {
		bindErr = c.ShouldBindJSON(&req)
	} else {
		bindErr = c.ShouldBind(&req)
	}
	if bindErr != nil {
		h.fail(c, wantsJSON, http.StatusBadRequest, "email and password are required", bindErr)
		return
	}

	manager := middleware.GetManager(c)
	if manager == nil {
		h.fail(c, wantsJSON, http.StatusInternalServerError, "no session", nil)
		return
	}

	if err := manager.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		h.logger.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		status := http.StatusUnauthorized
		if errors.Is(err, xerrors.ErrNetwork) {
			status = http.StatusBadGateway
		}
		h.fail(c, wantsJSON, status, xerrors.MessageOrDefault(err, "login failed"), err)
		return
	}

	if wantsJSON {
		response.Success(c, http.StatusOK, "login successful", manager.User())
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// ========== Logout ==========

// Logout tears the session down and lands on the login page. Safe to call in
// any state.
func (h *AuthHandler) Logout(c *gin.Context) {
	if manager := middleware.GetManager(c); manager != nil {
		manager.Logout(c.Request.Context())
	}
	c.Redirect(http.StatusFound, "/login")
}

// ========== Session ==========

// Me returns the canonical user record for in-page scripts.
func (h *AuthHandler) Me(c *gin.Context) {
	manager := middleware.GetManager(c)
	if manager == nil || manager.User() == nil {
		response.Unauthorized(c, "not authenticated")
		return
	}
	response.Success(c, http.StatusOK, "current user", manager.User())
}

// UpdateProfile merges edited display fields into the session user after a
// successful profile save, sparing a full refresh round trip.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Email     *string `json:"email"`
		Photo     *string `json:"photo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	manager := middleware.GetManager(c)
	if manager == nil || manager.User() == nil {
		response.Unauthorized(c, "not authenticated")
		return
	}

	manager.UpdateUser(c.Request.Context(), domain.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Photo:     req.Photo,
	})
	response.Success(c, http.StatusOK, "profile updated", manager.User())
}

// ========== Password Management ==========

// ChangePassword forwards a password change for the logged-in user.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req domain.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	manager := middleware.GetManager(c)
	if manager == nil || manager.User() == nil {
		response.Unauthorized(c, "not authenticated")
		return
	}

	if err := h.api.ChangePassword(c.Request.Context(), manager.Token(c.Request.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, xerrors.ErrUnauthorized) {
			manager.Logout(c.Request.Context())
			response.Unauthorized(c, "session expired")
			return
		}
		response.Error(c, http.StatusBadRequest, "password change failed", err)
		return
	}
	response.Success(c, http.StatusOK, "password changed", nil)
}

// ForgotPassword starts a password reset for the given email.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req domain.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.api.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.Error(c, http.StatusBadGateway, "password reset request failed", err)
		return
	}
	response.Success(c, http.StatusOK, "password reset requested", nil)
}

// ResetPassword completes a password reset with the emailed token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req domain.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.api.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		response.Error(c, http.StatusBadRequest, "password reset failed", err)
		return
	}
	response.Success(c, http.StatusOK, "password reset", nil)
}

func (h *AuthHandler) fail(c *gin.Context, wantsJSON bool, status int, message string, err error) {
	if wantsJSON {
		response.Error(c, status, message, err)
		return
	}
	c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape(message))
}
