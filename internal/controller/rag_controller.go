package controller

import (
	"compliance-assistant-be/internal/dto"
	"compliance-assistant-be/internal/pkg/serverutils"
	"compliance-assistant-be/internal/service"
	"compliance-assistant-be/pkg/rag"

	"github.com/gofiber/fiber/v2"
)

type IRagController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	DeepSearch(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	ClearHistory(ctx *fiber.Ctx) error
	ClearCache(ctx *fiber.Ctx) error
	OpenStream(ctx *fiber.Ctx) error
	StreamQuery(ctx *fiber.Ctx) error
	CloseStream(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type ragController struct {
	service service.IRagService
	auth    fiber.Handler
}

func NewRagController(service service.IRagService, auth fiber.Handler) IRagController {
	return &ragController{service: service, auth: auth}
}

func (c *ragController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag/v1")
	h.Get("/health", c.Health)

	h.Use(c.auth)
	h.Post("/query", c.Query)
	h.Post("/deep-search", c.DeepSearch)
	h.Get("/session", c.Session)
	h.Get("/history", c.History)
	h.Delete("/history", c.ClearHistory)
	h.Delete("/cache", c.ClearCache)
	h.Post("/stream/:mode", c.OpenStream)
	h.Post("/stream-query", c.StreamQuery)
	h.Delete("/stream", c.CloseStream)
}

func (c *ragController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Query(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success query", res))
}

func (c *ragController) DeepSearch(ctx *fiber.Ctx) error {
	var req dto.DeepSearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.DeepSearch(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success deep search", res))
}

func (c *ragController) Session(ctx *fiber.Ctx) error {
	res, err := c.service.Session(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *ragController) History(ctx *fiber.Ctx) error {
	res, err := c.service.History(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *ragController) ClearHistory(ctx *fiber.Ctx) error {
	if err := c.service.ClearHistory(ctx.UserContext(), serverutils.UserID(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear history", nil))
}

func (c *ragController) ClearCache(ctx *fiber.Ctx) error {
	if err := c.service.ClearCache(ctx.UserContext(), serverutils.UserID(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear cache", nil))
}

func (c *ragController) OpenStream(ctx *fiber.Ctx) error {
	mode := rag.QueryMode(ctx.Params("mode"))
	if _, err := c.service.OpenStream(ctx.UserContext(), serverutils.UserID(ctx), mode); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success open stream", fiber.Map{"mode": mode}))
}

func (c *ragController) StreamQuery(ctx *fiber.Ctx) error {
	var req dto.StreamQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.StreamQuery(ctx.UserContext(), serverutils.UserID(ctx), req.Query); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Query sent", nil))
}

func (c *ragController) CloseStream(ctx *fiber.Ctx) error {
	if err := c.service.CloseStream(ctx.UserContext(), serverutils.UserID(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success close stream", nil))
}

func (c *ragController) Health(ctx *fiber.Ctx) error {
	res, err := c.service.Health(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success health check", res))
}
