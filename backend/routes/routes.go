package routes

import (
	"log"

	"coursehub/backend/config"
	"coursehub/backend/controllers"
	"coursehub/backend/middleware"
	"coursehub/backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	courseService := services.NewCourseService(db)
	enrollmentService := services.NewEnrollmentService(db, logger)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	optionalAuth := middleware.OptionalAuth(cfg)
	instructorOnly := middleware.RestrictTo(db, cfg, "instructor", "admin")
	adminOnly := middleware.RestrictTo(db, cfg, "admin")

	// Courses routes
	coursesController := controllers.NewCoursesController(cfg, courseService, enrollmentService)
	courses := app.Group("/api/courses")
	courses.Get("/featured", coursesController.GetFeatured)
	courses.Get("/categories", coursesController.GetCategories)
	courses.Get("/", coursesController.ListCourses)
	courses.Get("/:id", optionalAuth, coursesController.GetCourse)
	courses.Post("/:id/enroll", authMiddleware, coursesController.Enroll)
	courses.Post("/:id/reviews", authMiddleware, coursesController.AddReview)

	// Instructor/admin routes for course content
	courses.Post("/", instructorOnly, coursesController.CreateCourse)
	courses.Put("/:id", instructorOnly, coursesController.UpdateCourse)
	courses.Post("/:id/chapters", instructorOnly, coursesController.AddChapter)
	courses.Put("/:id/chapters/order", instructorOnly, coursesController.ReorderChapters)
	courses.Post("/:id/chapters/:chapterId/lessons", instructorOnly, coursesController.AddLesson)

	// User routes
	userController := controllers.NewUserController(db, cfg, enrollmentService)
	users := app.Group("/api/users")
	users.Get("/my-courses", authMiddleware, userController.GetMyCourses)
	users.Patch("/courses/:courseId/progress", authMiddleware, userController.UpdateProgress)
	users.Get("/profile", authMiddleware, userController.GetProfile)
	users.Get("/dashboard", authMiddleware, userController.GetDashboard)
	users.Patch("/preferences", authMiddleware, userController.UpdatePreferences)

	// Admin user management
	users.Get("/", adminOnly, userController.GetAllUsers)
	users.Patch("/:id/role", adminOnly, userController.UpdateUserRole)
	users.Post("/:id/reconcile", adminOnly, userController.Reconcile)
}
