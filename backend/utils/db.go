package utils

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"coursehub/backend/config"
	"coursehub/backend/models"
)

// InitDB opens the postgres connection and migrates the schema
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Chapter{},
		&models.Lesson{},
		&models.CourseEnrollment{},
		&models.CourseReview{},
		&models.UserEnrolledCourse{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
