package controller

import (
	"compliance-assistant-be/internal/dto"
	"compliance-assistant-be/internal/pkg/serverutils"
	"compliance-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICanvasController interface {
	RegisterRoutes(r fiber.Router)
	State(ctx *fiber.Ctx) error
	AddVersion(ctx *fiber.Ctx) error
	AddFromAnswer(ctx *fiber.Ctx) error
	Current(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	SetCurrent(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	SetEditMode(ctx *fiber.Ctx) error
	SaveEdit(ctx *fiber.Ctx) error
}

type canvasController struct {
	service service.ICanvasService
	auth    fiber.Handler
}

func NewCanvasController(service service.ICanvasService, auth fiber.Handler) ICanvasController {
	return &canvasController{service: service, auth: auth}
}

func (c *canvasController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/canvas/v1")
	h.Use(c.auth)
	h.Get("", c.State)
	h.Post("/versions", c.AddVersion)
	h.Post("/versions/from-answer", c.AddFromAnswer)
	h.Get("/versions/current", c.Current)
	h.Get("/versions/:id", c.Show)
	h.Put("/versions/:id/current", c.SetCurrent)
	h.Delete("/versions/:id", c.Delete)
	h.Put("/edit-mode", c.SetEditMode)
	h.Post("/save-edit", c.SaveEdit)
}

func (c *canvasController) State(ctx *fiber.Ctx) error {
	res, err := c.service.State(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get canvas", res))
}

func (c *canvasController) AddVersion(ctx *fiber.Ctx) error {
	var req dto.AddVersionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.AddVersion(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success add version", res))
}

func (c *canvasController) AddFromAnswer(ctx *fiber.Ctx) error {
	var req struct {
		Label string `json:"label"`
	}
	// body is optional
	_ = ctx.BodyParser(&req)

	res, err := c.service.AddFromCurrentResult(ctx.UserContext(), serverutils.UserID(ctx), req.Label)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success add version", res))
}

func (c *canvasController) Current(ctx *fiber.Ctx) error {
	res, err := c.service.Current(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get current version", res))
}

func (c *canvasController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Show(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show version", res))
}

func (c *canvasController) SetCurrent(ctx *fiber.Ctx) error {
	res, err := c.service.SetCurrent(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success set current version", res))
}

func (c *canvasController) Delete(ctx *fiber.Ctx) error {
	res, err := c.service.Delete(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete version", res))
}

func (c *canvasController) SetEditMode(ctx *fiber.Ctx) error {
	var req dto.EditModeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetEditMode(ctx.UserContext(), serverutils.UserID(ctx), *req.Enabled)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success set edit mode", res))
}

func (c *canvasController) SaveEdit(ctx *fiber.Ctx) error {
	var req dto.SaveEditRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SaveEdit(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success save edit", res))
}
