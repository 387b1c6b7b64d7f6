package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/access-token-service/pkg/util"
)

// RequireAbility ensures the verified token grants every listed ability.
func RequireAbility(abilities ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok, ok := TokenFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, ability := range abilities {
			if !tok.Can(ability) {
				return apperrors.NewForbidden("insufficient ability")
			}
		}
		return c.Next()
	}
}
