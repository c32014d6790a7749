package websocket

import (
	"context"
	"net/http"
	"time"

	"nearhire/internal/call"
	"nearhire/internal/identity"
	"nearhire/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Handler struct {
	verifier *identity.Verifier
	hub      *Hub
	registry *call.Registry
}

func NewHandler(verifier *identity.Verifier, hub *Hub, registry *call.Registry) *Handler {
	return &Handler{verifier: verifier, hub: hub, registry: registry}
}

// Connect upgrades an authenticated request and streams call-state events
// until the client goes away.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	principal, err := h.verifier.Parse(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	// Make sure a manager exists so inbound rings reach this user even
	// before they touch the call API.
	h.registry.For(principal.ID, principal.Name)

	client := NewClient(conn, principal.ID.String())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}

	h.hub.Unregister(client)
}
