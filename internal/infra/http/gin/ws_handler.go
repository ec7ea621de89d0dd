package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	chatservice "talenthub/internal/app/services/chat"
	"talenthub/internal/infra/security"
	"talenthub/internal/infra/ws"
)

// WSHandler upgrades /ws requests into gateway sessions. Browsers cannot set
// an Authorization header on a websocket handshake, so the credential comes
// in as a query parameter.
type WSHandler struct {
	Gateway         *ws.Gateway
	Verifier        security.TokenVerifier
	Logger          *slog.Logger
	WriteTimeout    time.Duration
	SkipOriginCheck bool
}

func (h WSHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = security.ExtractBearer(c.GetHeader("Authorization"))
	}
	claims, err := h.Verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: h.SkipOriginCheck,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", "error", err, "user_id", claims.UserID)
		}
		return
	}

	actor := chatservice.Actor{ID: claims.UserID, Role: claims.Role}
	if h.Logger != nil {
		h.Logger.Info("websocket connected", "user_id", actor.ID, "role", actor.Role)
	}
	h.Gateway.ServeConn(c.Request.Context(), conn, actor, h.WriteTimeout)
	if h.Logger != nil {
		h.Logger.Info("websocket disconnected", "user_id", actor.ID)
	}
}
