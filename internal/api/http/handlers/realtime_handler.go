package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/realtime"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

// RealtimeHandler upgrades clients to WebSocket and streams hub messages.
type RealtimeHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewRealtimeHandler constructs handler.
func NewRealtimeHandler(hub *realtime.Hub, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, logger: logger}
}

// Upgrade rejects non-WebSocket requests before the upgrade handler runs.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return apperrors.NewDomainError("UPGRADE_REQUIRED", "websocket upgrade required", fiber.StatusUpgradeRequired, nil)
}

// Stream GET /ws. Every connected client receives every lifecycle event;
// there is no per-client filtering or replay.
func (h *RealtimeHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sub := h.hub.Subscribe()
		defer h.hub.Unsubscribe(sub)

		// Reads are discarded; the read loop only notices the client going
		// away so the write loop can stop.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case msg, ok := <-sub.C():
				if !ok {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.Debug("websocket write failed", zap.Error(err))
					return
				}
			case <-closed:
				return
			}
		}
	})
}
