package serverutils

import (
	"errors"

	"compliance-assistant-be/pkg/identity"
	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/client"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) *BaseResponse[T] {
	return &BaseResponse[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse carries the message in both message and detail so clients of
// the RAG backend contract can keep reading {detail}.
func ErrorResponse(code int, message string) *BaseResponse[any] {
	return &BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
		Detail:  message,
	}
}

// StatusFor maps a domain error onto an HTTP status code.
func StatusFor(err error) int {
	var (
		validationErr *rag.ValidationError
		fieldErrs     validator.ValidationErrors
		backendErr    *client.BackendError
		identityErr   *identity.Error
		fiberErr      *fiber.Error
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &fieldErrs):
		return fiber.StatusBadRequest
	case errors.As(err, &backendErr):
		if backendErr.StatusCode > 0 {
			return backendErr.StatusCode
		}
		return fiber.StatusBadGateway
	case client.IsTimeout(err):
		return fiber.StatusGatewayTimeout
	case client.IsTransport(err):
		return fiber.StatusBadGateway
	case errors.As(err, &identityErr):
		return identity.HTTPStatus(err)
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware renders every error returned by a handler as a JSON envelope.
func ErrorHandlerMiddleware() fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := StatusFor(err)

		message := err.Error()
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			message = ValidationMessage(fieldErrs)
		}

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
