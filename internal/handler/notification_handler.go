package handler

import (
	"time"

	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/internal/pkg/serverutils"
	internalWS "compliance-assistant-be/internal/websocket"
	"compliance-assistant-be/pkg/events"
	"compliance-assistant-be/pkg/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type NotificationHandler struct {
	hub       *internalWS.Hub
	publisher events.Publisher
	secret    string
	auth      fiber.Handler
	logger    logger.ILogger
}

func NewNotificationHandler(hub *internalWS.Hub, publisher events.Publisher, secret string, auth fiber.Handler, log logger.ILogger) *NotificationHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &NotificationHandler{
		hub:       hub,
		publisher: publisher,
		secret:    secret,
		auth:      auth,
		logger:    log,
	}
}

// authenticate reads the token from the query (browsers) or the
// Authorization header (tooling) before the upgrade.
func authenticate(c *fiber.Ctx, secret string) (*identity.Claims, error) {
	tokenStr := serverutils.BearerToken(c)
	if tokenStr == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')")
	}
	claims, err := identity.ParseToken(tokenStr, secret)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}
	return claims, nil
}

func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	claims, err := authenticate(c, h.secret)
	if err != nil {
		h.logger.Warn("NotificationHandler", "Rejected websocket handshake", map[string]interface{}{"error": err.Error()})
		return err
	}
	userID := claims.AccountID()

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}

// Broadcast sends a system notice to every connected user.
func (h *NotificationHandler) Broadcast(c *fiber.Ctx) error {
	var req struct {
		Title   string `json:"title" validate:"required"`
		Message string `json:"message" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	evt := events.BaseEvent{
		Type: events.TypeSystemNotice,
		Data: map[string]interface{}{
			"title":   req.Title,
			"message": req.Message,
		},
		OccurredAt: time.Now(),
	}
	if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse[any]("Broadcast queued", nil))
}

func (h *NotificationHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(serverutils.SuccessResponse("Success get stats", fiber.Map{"connected_users": h.hub.ConnectedUsers()}))
}

func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notifications")
	notif.Use(h.auth)
	notif.Get("/stats", h.Stats)
	notif.Post("/broadcast", h.Broadcast)

	router.Get("/ws", h.ServeWs)
}
