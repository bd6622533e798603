package controllers

import (
	"errors"

	"coursehub/backend/config"
	"coursehub/backend/models"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CoursesController struct {
	Cfg         *config.Config
	Courses     *services.CourseService
	Enrollments *services.EnrollmentService
}

func NewCoursesController(cfg *config.Config, courses *services.CourseService, enrollments *services.EnrollmentService) *CoursesController {
	return &CoursesController{Cfg: cfg, Courses: courses, Enrollments: enrollments}
}

// ListCourses returns a filtered, sorted, paginated page of the public
// catalog together with the total match count.
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	filters := services.CatalogFilters{
		Category: c.Query("category"),
		Level:    c.Query("level"),
		Featured: services.ParseFeaturedFlag(c.Query("featured")),
		Search:   c.Query("search"),
	}

	query := services.BuildCatalogQuery(
		filters,
		c.Query("sort", "-averageRating"),
		c.QueryInt("page", services.DefaultPage),
		c.QueryInt("limit", services.DefaultLimit),
	)

	courses, total, err := cc.Courses.List(query)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Paginate(c, courses, total, query.Page, query.Limit)
}

// GetFeatured returns the home-page strip of featured courses.
func (cc *CoursesController) GetFeatured(c *fiber.Ctx) error {
	courses, err := cc.Courses.Featured()
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"courses": courses})
}

// GetCategories returns (category, count) pairs for published courses.
func (cc *CoursesController) GetCategories(c *fiber.Ctx) error {
	counts, err := cc.Courses.CategoryCounts()
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"categories": counts})
}

// GetCourse serves the detail view. The identifier is an id when it
// parses as one, otherwise a slug. When the caller is authenticated the
// response also says whether they are enrolled.
func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	course, err := cc.Courses.GetByIDOrSlug(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}

	isEnrolled := false
	if userID, ok := c.Locals("userID").(uuid.UUID); ok {
		isEnrolled, err = cc.Enrollments.IsEnrolled(course.ID, userID)
		if err != nil {
			return serviceError(c, err)
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course":        course,
		"isEnrolled":    isEnrolled,
		"totalDuration": course.TotalDuration(),
		"totalLessons":  course.TotalLessons(),
	})
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input services.CreateCourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	course, err := cc.Courses.Create(input, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"course": course})
}

func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	course, err := cc.requireOwnership(c)
	if err != nil {
		return err
	}

	var input services.UpdateCourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	updated, err := cc.Courses.Update(course.ID, input)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"course": updated})
}

func (cc *CoursesController) AddChapter(c *fiber.Ctx) error {
	course, err := cc.requireOwnership(c)
	if err != nil {
		return err
	}

	var input services.ChapterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	chapter, err := cc.Courses.AddChapter(course.ID, input)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"chapter": chapter})
}

func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	course, err := cc.requireOwnership(c)
	if err != nil {
		return err
	}

	chapterID, err := uuid.Parse(c.Params("chapterId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chapter ID")
	}

	var input services.LessonInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	lesson, err := cc.Courses.AddLesson(course.ID, chapterID, input)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"lesson": lesson})
}

func (cc *CoursesController) ReorderChapters(c *fiber.Ctx) error {
	course, err := cc.requireOwnership(c)
	if err != nil {
		return err
	}

	var input struct {
		ChapterIDs []uuid.UUID `json:"chapterIds"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := cc.Courses.ReorderChapters(course.ID, input.ChapterIDs); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "Chapters reordered"})
}

// Enroll adds the caller to the course. A partial failure means the
// enrollment exists but the user-side mirror is stale; the response
// flags it so the caller can retry or wait for reconciliation.
func (cc *CoursesController) Enroll(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	enrollment, err := cc.Enrollments.Enroll(courseID, userID)
	if err != nil {
		if errors.Is(err, services.ErrPartialEnrollment) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success":       false,
				"error":         "Partial enrollment failure",
				"message":       err.Error(),
				"enrollment":    enrollment,
				"mirrorPending": true,
			})
		}
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"enrollment": enrollment})
}

func (cc *CoursesController) AddReview(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	review, err := cc.Courses.AddReview(courseID, userID, input.Rating, input.Comment)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"review": review})
}

// requireOwnership loads the course and checks the caller is its
// instructor or an admin. Writes the error response itself.
func (cc *CoursesController) requireOwnership(c *fiber.Ctx) (*models.Course, error) {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return nil, utils.Unauthorized(c, "Unauthorized")
	}

	course, err := cc.Courses.GetByIDOrSlug(c.Params("id"))
	if err != nil {
		return nil, serviceError(c, err)
	}

	role, _ := c.Locals("userRole").(string)
	if course.InstructorID != userID && role != "admin" {
		return nil, utils.Forbidden(c, "You do not have permission to edit this course")
	}

	return course, nil
}
