package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lista-crm/sites-platform/pkg/env"
)

const identityLocal = "identity"

type Config struct {
	Secret string
}

func NewConfig() Config {
	return Config{
		Secret: env.GetEnv("AUTH_SECRET", ""),
	}
}

type Identity struct {
	UserID uuid.UUID
}

// Middleware verifies the editor API bearer token. With no secret configured
// the API runs open, for local development and tests.
func Middleware(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Secret == "" {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid subject"})
		}

		c.Locals(identityLocal, &Identity{UserID: userID})
		return c.Next()
	}
}

func IdentityFromCtx(c *fiber.Ctx) *Identity {
	identity, _ := c.Locals(identityLocal).(*Identity)
	return identity
}
