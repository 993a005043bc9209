package realtime

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yukikurage/task-realtime-api/internal/auth"
	apierrors "github.com/yukikurage/task-realtime-api/internal/errors"
	"github.com/yukikurage/task-realtime-api/internal/middleware"
)

// Handler authenticates and upgrades websocket requests.
type Handler struct {
	hub      *Hub
	verifier auth.TokenVerifier
	upgrader websocket.Upgrader
}

// NewHandler accepts connections whose Origin is empty or matches allowedOrigin.
func NewHandler(hub *Hub, verifier auth.TokenVerifier, allowedOrigin string) *Handler {
	allowedOrigin = strings.TrimRight(allowedOrigin, "/")
	return &Handler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || strings.EqualFold(strings.TrimRight(origin, "/"), allowedOrigin)
			},
		},
	}
}

// Serve is mounted on GET /api/v1/ws. Connections without a valid token are
// refused before the upgrade.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = middleware.RequestToken(c)
	}
	if token == "" {
		apierrors.Unauthorized(c, "Authentication error: No token provided")
		return
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		apierrors.Unauthorized(c, "Authentication error: Invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Warn("websocket upgrade failed", "user_id", claims.UserID, "error", err)
		return
	}

	client := newClient(h.hub, conn, claims.UserID, claims.Name, sendBufferSize)
	h.hub.Register(client)

	go client.writePump()
	go client.readPump()
}
