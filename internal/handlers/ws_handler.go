package handlers

import (
	"net/http"
	"strconv"

	"github.com/resonant-live/resonant/backend/internal/ws"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler upgrades notification socket connections
type WSHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *ws.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// RegisterWSRoutes registers the socket endpoint
func (h *WSHandler) RegisterWSRoutes(g *echo.Group) {
	g.GET("/ws", h.Serve)
}

// Serve upgrades the connection and runs the session pumps. The session is
// keyed by (user id, active profile id); switching profile later goes through
// the profile_activated event.
func (h *WSHandler) Serve(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	profileID, _ := strconv.ParseUint(c.QueryParam("active_profile_id"), 10, 32)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := ws.NewClient(h.hub, conn, currentUserID, uint(profileID), h.logger)
	go client.WritePump()
	go client.ReadPump()
	return nil
}
