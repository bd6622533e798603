package controllers

import (
	"encoding/json"
	"errors"
	"math"
	"sort"

	"coursehub/backend/config"
	"coursehub/backend/models"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserController struct {
	DB          *gorm.DB
	Cfg         *config.Config
	Enrollments *services.EnrollmentService
}

func NewUserController(db *gorm.DB, cfg *config.Config, enrollments *services.EnrollmentService) *UserController {
	return &UserController{DB: db, Cfg: cfg, Enrollments: enrollments}
}

// GetMyCourses reads the user-side mirror; this is the read path the
// denormalization exists for.
func (uc *UserController) GetMyCourses(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var enrolled []models.UserEnrolledCourse
	if err := uc.DB.Preload("Course").Where("user_id = ?", userID).Find(&enrolled).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"results":         len(enrolled),
		"enrolledCourses": enrolled,
	})
}

// UpdateProgress updates the caller's progress on a course. Progress is
// clamped into [0,100]; resubmitting a completed lesson id is a no-op.
func (uc *UserController) UpdateProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := uuid.Parse(c.Params("courseId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		LessonID string   `json:"lessonId"`
		Progress *float64 `json:"progress"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	enrollment, err := uc.Enrollments.UpdateProgress(courseID, userID, input.Progress, input.LessonID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"progress":         enrollment.Progress,
		"completedLessons": enrollment.CompletedLessons,
	})
}

// GetProfile returns the user with enrollment statistics.
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	err := uc.DB.Preload("EnrolledCourses.Course").First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":  user,
		"stats": enrollmentStats(user.EnrolledCourses),
	})
}

// GetDashboard returns recent and in-progress courses with stats.
func (uc *UserController) GetDashboard(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	err := uc.DB.Preload("EnrolledCourses.Course").First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	recent := make([]models.UserEnrolledCourse, len(user.EnrolledCourses))
	copy(recent, user.EnrolledCourses)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].EnrolledAt.After(recent[j].EnrolledAt)
	})
	if len(recent) > 5 {
		recent = recent[:5]
	}

	var inProgress []models.UserEnrolledCourse
	for _, course := range user.EnrolledCourses {
		if course.Progress > 0 && course.Progress < 100 {
			inProgress = append(inProgress, course)
		}
	}
	sort.Slice(inProgress, func(i, j int) bool {
		return inProgress[i].Progress > inProgress[j].Progress
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user": fiber.Map{
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"email":     user.Email,
			"avatar":    user.Avatar,
			"joinedAt":  user.CreatedAt,
		},
		"stats":             enrollmentStats(user.EnrolledCourses),
		"recentCourses":     recent,
		"inProgressCourses": inProgress,
	})
}

// UpdatePreferences replaces the caller's preferences object. The
// payload is stored as-is; its shape belongs to the client.
func (uc *UserController) UpdatePreferences(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Preferences json.RawMessage `json:"preferences"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if len(input.Preferences) == 0 {
		return utils.BadRequest(c, "Preferences are required")
	}

	res := uc.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("preferences", datatypes.JSON(input.Preferences))
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not update preferences")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "User not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"preferences": json.RawMessage(input.Preferences),
	})
}

// GetAllUsers lists users for admins, filterable by role and a name or
// email search, newest first.
func (uc *UserController) GetAllUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 {
		limit = 20
	}

	// Same predicate serves the count and the page fetch.
	role := c.Query("role")
	search := c.Query("search")
	filter := func(tx *gorm.DB) *gorm.DB {
		tx = tx.Model(&models.User{})
		if role != "" && role != "all" {
			tx = tx.Where("role = ?", role)
		}
		if search != "" {
			pattern := "%" + search + "%"
			tx = tx.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", pattern, pattern, pattern)
		}
		return tx
	}

	var total int64
	if err := filter(uc.DB).Count(&total).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var users []models.User
	err := filter(uc.DB).Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Paginate(c, users, total, page, limit)
}

// UpdateUserRole sets a user's role; the only path by which a user
// becomes an instructor or admin.
func (uc *UserController) UpdateUserRole(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var input struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if !models.ValidUserRole(input.Role) {
		return utils.BadRequest(c, "Invalid role")
	}

	var user models.User
	if err := uc.DB.First(&user, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	user.Role = input.Role
	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update role")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"user": user})
}

// Reconcile rebuilds a user's enrollment mirror from the authoritative
// course-side records.
func (uc *UserController) Reconcile(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	repaired, err := uc.Enrollments.ReconcileUser(userID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message":  "Reconciliation complete",
		"repaired": repaired,
	})
}

func enrollmentStats(enrolled []models.UserEnrolledCourse) fiber.Map {
	completed := 0
	lessonsCompleted := 0
	progressSum := 0.0
	for _, course := range enrolled {
		if course.Progress == 100 {
			completed++
		}
		lessonsCompleted += len(course.CompletedLessons)
		progressSum += course.Progress
	}

	averageProgress := 0.0
	if len(enrolled) > 0 {
		averageProgress = math.Round(progressSum / float64(len(enrolled)))
	}

	return fiber.Map{
		"totalCourses":          len(enrolled),
		"completedCourses":      completed,
		"totalLessonsCompleted": lessonsCompleted,
		"averageProgress":       averageProgress,
	}
}
