package controller

import (
	"compliance-assistant-be/internal/dto"
	"compliance-assistant-be/internal/pkg/serverutils"
	"compliance-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	SignIn(ctx *fiber.Ctx) error
	SignUp(ctx *fiber.Ctx) error
	SignOut(ctx *fiber.Ctx) error
	Me(ctx *fiber.Ctx) error
	ResendVerification(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
	auth    fiber.Handler
}

func NewAuthController(service service.IAuthService, auth fiber.Handler) IAuthController {
	return &authController{service: service, auth: auth}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth/v1")
	h.Post("/sign-in", c.SignIn)
	h.Post("/sign-up", c.SignUp)
	h.Post("/resend-verification", c.ResendVerification)
	h.Post("/sign-out", c.auth, c.SignOut)
	h.Get("/me", c.auth, c.Me)
}

func (c *authController) SignIn(ctx *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SignIn(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Signed in", res))
}

func (c *authController) SignUp(ctx *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SignUp(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	message := "Account created"
	if res.VerificationRequired {
		message = "Account created. Please check your email to verify your account."
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse(message, res))
}

func (c *authController) SignOut(ctx *fiber.Ctx) error {
	token, _ := ctx.Locals(serverutils.LocalAccessToken).(string)
	if err := c.service.SignOut(ctx.UserContext(), serverutils.UserID(ctx), token); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Signed out", nil))
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	token, _ := ctx.Locals(serverutils.LocalAccessToken).(string)
	res, err := c.service.Me(ctx.UserContext(), token)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get user", res))
}

func (c *authController) ResendVerification(ctx *fiber.Ctx) error {
	var req dto.ResendVerificationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.ResendVerification(ctx.UserContext(), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Verification email sent", nil))
}
