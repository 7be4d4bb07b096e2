package controller

import (
	"context"

	"compliance-assistant-be/internal/metrics"
	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/rag/client"

	"github.com/gofiber/fiber/v2"
)

// Forwarder relays raw requests to the RAG backend.
type Forwarder interface {
	Forward(ctx context.Context, method, path string, body []byte, contentType string) (*client.ForwardResponse, error)
}

type IProxyController interface {
	RegisterRoutes(r fiber.Router)
	Proxy(ctx *fiber.Ctx) error
}

type proxyController struct {
	forwarder Forwarder
	logger    logger.ILogger
}

// NewProxyController serves /api/rag-proxy, a same-origin relay to the RAG
// backend that spares browsers a cross-origin call.
func NewProxyController(forwarder Forwarder, log logger.ILogger) IProxyController {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &proxyController{forwarder: forwarder, logger: log}
}

func (c *proxyController) RegisterRoutes(r fiber.Router) {
	r.Get("/api/rag-proxy", c.Proxy)
	r.Post("/api/rag-proxy", c.Proxy)
}

func detail(ctx *fiber.Ctx, code int, message string) error {
	return ctx.Status(code).JSON(fiber.Map{"detail": message})
}

func (c *proxyController) Proxy(ctx *fiber.Ctx) error {
	endpoint := ctx.Query("endpoint")
	if endpoint == "" {
		metrics.ObserveProxy("", fiber.StatusBadRequest)
		return detail(ctx, fiber.StatusBadRequest, "Missing endpoint parameter")
	}
	if !client.AllowedEndpoint(endpoint) {
		metrics.ObserveProxy(endpoint, fiber.StatusBadRequest)
		return detail(ctx, fiber.StatusBadRequest, "Endpoint not allowed")
	}

	res, err := c.forwarder.Forward(ctx.UserContext(), ctx.Method(), endpoint, ctx.Body(), ctx.Get(fiber.HeaderContentType))
	if err != nil {
		c.logger.Error("RagProxy", "Proxy request failed", map[string]interface{}{"endpoint": endpoint, "error": err})
		metrics.ObserveProxy(endpoint, fiber.StatusInternalServerError)
		return detail(ctx, fiber.StatusInternalServerError, err.Error())
	}

	metrics.ObserveProxy(endpoint, res.StatusCode)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return detail(ctx, res.StatusCode, client.UpstreamDetail(res.StatusCode, res.Body))
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = fiber.MIMEApplicationJSON
	}
	ctx.Set(fiber.HeaderContentType, contentType)
	return ctx.Status(res.StatusCode).Send(res.Body)
}
