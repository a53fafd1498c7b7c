// internal/handlers/proxy/proxy.go
package proxy

import (
	"errors"
	"io"
	"net/http"

	"duka-admin/internal/backend"
	"duka-admin/internal/middleware"
	xerrors "duka-admin/internal/pkg/errors"
	"duka-admin/internal/pkg/response"
	"duka-admin/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProxyHandler relays the console's data calls (/api/users, /api/products,
// /api/sales, /api/Views, ...) to the POS backend with the session's bearer
// credential attached. A 401 from the backend terminates the session on the
// spot, with no retry, and the session hub tells open tabs to bounce to the
// login page.
type ProxyHandler struct {
	api    *backend.Client
	logger *zap.Logger
}

func NewProxyHandler(api *backend.Client, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{api: api, logger: logger}
}

// Forward handles any method under /api/*.
func (h *ProxyHandler) Forward(c *gin.Context) {
	manager := middleware.GetManager(c)
	if manager == nil || manager.State() != session.StateAuthenticated {
		response.Unauthorized(c, "not authenticated")
		return
	}

	resp, err := h.api.Forward(c.Request.Context(), manager.Token(c.Request.Context()), c.Request)
	if err != nil {
		if errors.Is(err, xerrors.ErrUnauthorized) {
			manager.Logout(c.Request.Context())
			response.Unauthorized(c, "session expired")
			return
		}
		h.logger.Warn("backend call failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		response.Error(c, http.StatusBadGateway, "backend unavailable", err)
		return
	}
	defer resp.Body.Close()

	relayHeaders(c.Writer.Header(), resp.Header)
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		h.logger.Warn("response relay interrupted", zap.Error(err))
	}
}

// Hop-by-hop headers belong to each hop's connection, not to the message, and
// must not be relayed to the browser.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

func relayHeaders(dst, src http.Header) {
	for key, values := range src {
		if hopByHopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
