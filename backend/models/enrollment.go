package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CourseEnrollment is the authoritative record of a user's relationship
// to a course. The composite unique index makes "at most one enrollment
// per (course, user)" a property of the store, not of a read-then-write
// check. UserEnrolledCourse mirrors this row on the user side.
type CourseEnrollment struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_course_user" json:"courseId"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_course_user;index" json:"user"`
	EnrolledAt       time.Time      `json:"enrolledAt"`
	Progress         float64        `gorm:"default:0" json:"progress"`
	CompletedLessons pq.StringArray `gorm:"type:text[]" json:"completedLessons"`
	LastAccessedAt   *time.Time     `json:"lastAccessedAt,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

func (e *CourseEnrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// CourseReview is append-only: no edit or delete path exists, so the
// aggregate's rating can always be recomputed from the full set.
type CourseReview struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_course_user" json:"courseId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_course_user" json:"user"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"size:500" json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *CourseReview) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
