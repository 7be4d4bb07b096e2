package handler

import (
	"context"
	"encoding/json"

	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/internal/service"
	internalWS "compliance-assistant-be/internal/websocket"
	"compliance-assistant-be/pkg/rag"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type streamFrame struct {
	Type  string           `json:"type"`
	Event *rag.StreamEvent `json:"event,omitempty"`
	Error string           `json:"error,omitempty"`
}

type streamRequest struct {
	Query string `json:"query"`
}

// StreamHandler relays a user's backend stream to the browser. Inbound frames
// are {"query": "..."}; outbound frames carry each backend event as it arrives.
type StreamHandler struct {
	rag    service.IRagService
	secret string
	logger logger.ILogger
}

func NewStreamHandler(rag service.IRagService, secret string, log logger.ILogger) *StreamHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &StreamHandler{rag: rag, secret: secret, logger: log}
}

func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/rag/:mode", h.ServeStream)
}

func (h *StreamHandler) ServeStream(c *fiber.Ctx) error {
	claims, err := authenticate(c, h.secret)
	if err != nil {
		return err
	}
	userID := claims.AccountID()
	mode := rag.QueryMode(c.Params("mode"))
	if !mode.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "Unsupported mode")
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	ws, err := h.rag.OpenStream(c.UserContext(), userID, mode)
	if err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		client := internalWS.NewClient(nil, conn, userID, h.logger)

		send := func(f streamFrame) {
			data, _ := json.Marshal(f)
			client.Deliver(data)
		}

		stop := ws.Orchestrator.Listen(func(ev rag.StreamEvent) {
			send(streamFrame{Type: "event", Event: &ev})
		})
		defer stop()

		client.OnMessage = func(data []byte) {
			var req streamRequest
			if err := json.Unmarshal(data, &req); err != nil {
				send(streamFrame{Type: "error", Error: "Invalid message"})
				return
			}
			if err := h.rag.StreamQuery(context.Background(), userID, req.Query); err != nil {
				send(streamFrame{Type: "error", Error: err.Error()})
			}
		}

		h.logger.Info("StreamHandler", "Relay started", map[string]interface{}{"user_id": userID, "mode": mode})
		internalWS.ServeClient(client)
		h.logger.Info("StreamHandler", "Relay ended", map[string]interface{}{"user_id": userID})
	})(c)
}
