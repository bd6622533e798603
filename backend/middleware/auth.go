package middleware

import (
	"errors"

	"coursehub/backend/config"
	"coursehub/backend/models"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AuthMiddleware rejects requests without a valid token and stores the
// caller's id in locals for the handlers.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals("userID", userID)
		return c.Next()
	}
}

// OptionalAuth stores the caller's id when a valid token is present but
// lets anonymous requests through.
func OptionalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID, err := utils.ExtractUserIDFromToken(c, cfg); err == nil {
			c.Locals("userID", userID)
		}
		return c.Next()
	}
}

// RestrictTo allows only the listed roles through
func RestrictTo(db *gorm.DB, cfg *config.Config, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.Unauthorized(c, "Unauthorized")
			}
			return utils.InternalServerError(c, "Could not query database")
		}

		for _, role := range roles {
			if user.Role == role {
				c.Locals("userID", userID)
				c.Locals("userRole", user.Role)
				return c.Next()
			}
		}

		return utils.Forbidden(c, "You do not have permission to perform this action")
	}
}
