package controller

import (
	"compliance-assistant-be/internal/dto"
	"compliance-assistant-be/internal/pkg/serverutils"
	"compliance-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPreferenceController interface {
	RegisterRoutes(r fiber.Router)
	GetSidebar(ctx *fiber.Ctx) error
	SetSidebar(ctx *fiber.Ctx) error
}

type preferenceController struct {
	service service.IPreferenceService
	auth    fiber.Handler
}

func NewPreferenceController(service service.IPreferenceService, auth fiber.Handler) IPreferenceController {
	return &preferenceController{service: service, auth: auth}
}

func (c *preferenceController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/preference/v1")
	h.Use(c.auth)
	h.Get("/sidebar", c.GetSidebar)
	h.Put("/sidebar", c.SetSidebar)
}

func (c *preferenceController) GetSidebar(ctx *fiber.Ctx) error {
	open, err := c.service.SidebarOpen(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get sidebar", dto.SidebarPreference{Open: &open}))
}

func (c *preferenceController) SetSidebar(ctx *fiber.Ctx) error {
	var req dto.SidebarPreference
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.SetSidebarOpen(ctx.UserContext(), serverutils.UserID(ctx), *req.Open); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success set sidebar", req))
}
