package controllers

import (
	"errors"

	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// serviceError maps core error kinds onto HTTP responses. The partial
// enrollment case is handled where it occurs since it carries a body.
func serviceError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return utils.ValidationFailed(c, verr.Fields)
	}

	switch {
	case errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrChapterNotFound):
		return utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAlreadyEnrolled),
		errors.Is(err, services.ErrNotEnrolled),
		errors.Is(err, services.ErrDuplicateReview),
		errors.Is(err, services.ErrInvalidSlug),
		errors.Is(err, services.ErrDuplicateSlug):
		return utils.BadRequest(c, err.Error())
	default:
		return utils.InternalServerError(c, "Could not process request")
	}
}
