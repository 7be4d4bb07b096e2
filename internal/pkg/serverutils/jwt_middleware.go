package serverutils

import (
	"strings"

	"compliance-assistant-be/pkg/identity"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalUserID        = "user_id"
	LocalEmail         = "email"
	LocalEmailVerified = "email_verified"
	LocalAccessToken   = "access_token"
)

// BearerToken reads the Authorization header, falling back to the token query
// parameter browsers use for websocket handshakes.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		claims, err := identity.ParseToken(tokenStr, secret)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals(LocalUserID, claims.AccountID())
		ctx.Locals(LocalEmail, claims.Email)
		ctx.Locals(LocalEmailVerified, claims.Verified())
		ctx.Locals(LocalAccessToken, tokenStr)
		return ctx.Next()
	}
}

// UserID returns the authenticated user id set by JwtMiddleware.
func UserID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(LocalUserID).(string)
	return id
}
