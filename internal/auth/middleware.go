package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-token-service/internal/auth/token"
	apperrors "github.com/spec-kit/access-token-service/pkg/util"
)

const tokenKey = "auth_token"

// RejectHook is notified when a presented bearer token fails verification.
type RejectHook func(c *fiber.Ctx)

// AuthMiddleware validates bearer tokens and stores the verified descriptor.
type AuthMiddleware struct {
	tokens   *token.Provider
	onReject RejectHook
}

// NewAuthMiddleware constructs middleware. onReject may be nil.
func NewAuthMiddleware(tokens *token.Provider, onReject RejectHook) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, onReject: onReject}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	tok, ok := m.tokens.Verify(raw).Token()
	if !ok {
		if m.onReject != nil {
			m.onReject(c)
		}
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(tokenKey, tok)
	return c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// TokenFromContext retrieves the verified access token.
func TokenFromContext(c *fiber.Ctx) (*token.Token, bool) {
	val := c.Locals(tokenKey)
	if val == nil {
		return nil, false
	}
	tok, ok := val.(*token.Token)
	return tok, ok
}
