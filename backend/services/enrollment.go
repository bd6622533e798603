package services

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coursehub/backend/models"
)

// EnrollmentService manages the mirrored enrollment relation. The
// course-side row (CourseEnrollment) is authoritative; the user-side
// mirror (UserEnrolledCourse) is a denormalized cache written with
// idempotent upserts so a retry after a partial failure is always safe.
type EnrollmentService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewEnrollmentService(db *gorm.DB, logger *log.Logger) *EnrollmentService {
	return &EnrollmentService{DB: db, Logger: logger}
}

// Enroll creates the (course, user) enrollment. The uniqueness check and
// the append are a single INSERT against the composite unique index, so
// of two concurrent calls for the same pair exactly one succeeds and the
// other observes ErrAlreadyEnrolled. The mirror write happens after the
// authoritative commit; its failure is surfaced as ErrPartialEnrollment.
func (s *EnrollmentService) Enroll(courseID, userID uuid.UUID) (*models.CourseEnrollment, error) {
	var userExists bool
	if err := s.DB.Model(&models.User{}).Select("count(*) > 0").Where("id = ?", userID).Find(&userExists).Error; err != nil {
		return nil, errors.Trace(err)
	}
	if !userExists {
		return nil, ErrUserNotFound
	}

	enrollment := &models.CourseEnrollment{
		CourseID:         courseID,
		UserID:           userID,
		EnrolledAt:       time.Now(),
		Progress:         0,
		CompletedLessons: pq.StringArray{},
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Locking the course row serializes concurrent enrolls on the
		// same course, so the count subquery below always reads a set
		// that includes every committed enrollment before it.
		if _, err := lockCourse(tx, courseID); err != nil {
			return err
		}

		if err := tx.Create(enrollment).Error; err != nil {
			if isUniqueViolation(err, "") {
				return ErrAlreadyEnrolled
			}
			return errors.Trace(err)
		}

		return errors.Trace(refreshEnrollmentCount(tx, courseID))
	})
	if err != nil {
		return nil, err
	}

	if err := s.writeMirror(enrollment); err != nil {
		s.Logger.Printf("mirror write failed for user=%s course=%s: %v", userID, courseID, err)
		return enrollment, ErrPartialEnrollment
	}

	return enrollment, nil
}

// writeMirror upserts the user-side entry. Keyed on (userID, courseID)
// with conflicts ignored, so retries after a partial failure cannot
// double-insert.
func (s *EnrollmentService) writeMirror(enrollment *models.CourseEnrollment) error {
	mirror := models.UserEnrolledCourse{
		UserID:           enrollment.UserID,
		CourseID:         enrollment.CourseID,
		EnrolledAt:       enrollment.EnrolledAt,
		Progress:         enrollment.Progress,
		CompletedLessons: enrollment.CompletedLessons,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&mirror).Error
	return errors.Trace(err)
}

// UpdateProgress mutates the enrollment under a row lock: the clamp, the
// set-insert and the save happen against a FOR UPDATE snapshot so
// concurrent updates serialize instead of losing writes. The response is
// built from the authoritative course-side row; the mirror is synced
// best-effort afterwards.
func (s *EnrollmentService) UpdateProgress(courseID, userID uuid.UUID, progress *float64, completedLessonID string) (*models.CourseEnrollment, error) {
	var enrollment models.CourseEnrollment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("course_id = ? AND user_id = ?", courseID, userID).
			First(&enrollment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEnrolled
			}
			return errors.Trace(err)
		}

		if progress != nil {
			enrollment.Progress = ClampProgress(*progress)
		}
		if completedLessonID != "" {
			enrollment.CompletedLessons = appendLessonOnce(enrollment.CompletedLessons, completedLessonID)
		}
		now := time.Now()
		enrollment.LastAccessedAt = &now

		return errors.Trace(tx.Save(&enrollment).Error)
	})
	if err != nil {
		return nil, err
	}

	s.syncMirror(&enrollment)
	return &enrollment, nil
}

// syncMirror pushes the authoritative state onto the user-side entry.
// Failure only logs: the mirror is a cache and ReconcileUser repairs it.
func (s *EnrollmentService) syncMirror(enrollment *models.CourseEnrollment) {
	err := s.DB.Model(&models.UserEnrolledCourse{}).
		Where("user_id = ? AND course_id = ?", enrollment.UserID, enrollment.CourseID).
		Updates(map[string]any{
			"progress":          enrollment.Progress,
			"completed_lessons": enrollment.CompletedLessons,
		}).Error
	if err != nil {
		s.Logger.Printf("mirror sync failed for user=%s course=%s: %v", enrollment.UserID, enrollment.CourseID, err)
	}
}

// IsEnrolled is the reconciliation read: enrolled means present on the
// course side, regardless of the mirror's state.
func (s *EnrollmentService) IsEnrolled(courseID, userID uuid.UUID) (bool, error) {
	var enrolled bool
	err := s.DB.Model(&models.CourseEnrollment{}).
		Select("count(*) > 0").
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Find(&enrolled).Error
	return enrolled, errors.Trace(err)
}

// ReconcileUser rebuilds a user's mirror from the authoritative
// course-side rows: upserts every enrollment and removes mirror entries
// with no counterpart. Returns the number of rows written or removed.
func (s *EnrollmentService) ReconcileUser(userID uuid.UUID) (int, error) {
	repaired := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var enrollments []models.CourseEnrollment
		if err := tx.Where("user_id = ?", userID).Find(&enrollments).Error; err != nil {
			return errors.Trace(err)
		}

		courseIDs := make([]uuid.UUID, 0, len(enrollments))
		for _, enrollment := range enrollments {
			courseIDs = append(courseIDs, enrollment.CourseID)
			mirror := models.UserEnrolledCourse{
				UserID:           enrollment.UserID,
				CourseID:         enrollment.CourseID,
				EnrolledAt:       enrollment.EnrolledAt,
				Progress:         enrollment.Progress,
				CompletedLessons: enrollment.CompletedLessons,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"enrolled_at", "progress", "completed_lessons",
				}),
			}).Create(&mirror)
			if res.Error != nil {
				return errors.Trace(res.Error)
			}
			repaired += int(res.RowsAffected)
		}

		orphans := tx.Where("user_id = ?", userID)
		if len(courseIDs) > 0 {
			orphans = orphans.Where("course_id NOT IN ?", courseIDs)
		}
		res := orphans.Delete(&models.UserEnrolledCourse{})
		if res.Error != nil {
			return errors.Trace(res.Error)
		}
		repaired += int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return repaired, nil
}

// ClampProgress forces a progress value into [0,100]. Out-of-range input
// is clamped, never rejected.
func ClampProgress(progress float64) float64 {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// appendLessonOnce is an idempotent set-insert: resubmitting the same
// lesson id is a no-op.
func appendLessonOnce(completed pq.StringArray, lessonID string) pq.StringArray {
	for _, id := range completed {
		if id == lessonID {
			return completed
		}
	}
	return append(completed, lessonID)
}

// refreshEnrollmentCount rematerializes totalEnrollments from the
// enrollment rows rather than incrementing the stored value.
func refreshEnrollmentCount(tx *gorm.DB, courseID uuid.UUID) error {
	return tx.Model(&models.Course{}).
		Where("id = ?", courseID).
		Update("total_enrollments", tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.CourseEnrollment{}).
			Select("COUNT(*)").
			Where("course_id = ?", courseID)).Error
}
