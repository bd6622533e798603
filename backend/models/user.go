package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRoles are the assignable roles, from least to most privileged.
var UserRoles = []string{"user", "instructor", "admin"}

func ValidUserRole(role string) bool {
	for _, r := range UserRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName    string         `gorm:"not null" json:"firstName"`
	LastName     string         `gorm:"not null" json:"lastName"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         string         `gorm:"default:user" json:"role"` // user, instructor, admin
	Avatar       string         `json:"avatar,omitempty"`
	Bio          string         `json:"bio,omitempty"`
	Preferences  datatypes.JSON `json:"preferences,omitempty"`

	EnrolledCourses []UserEnrolledCourse `gorm:"foreignKey:UserID" json:"enrolledCourses,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UserEnrolledCourse is the user-side mirror of CourseEnrollment, kept
// for read-path efficiency ("my courses" never scans the course
// collection). The course-side row is the source of truth; this one may
// lag after a partial enrollment failure and carries the same
// (userID, courseID) pairing so divergence is detectable and repairable.
type UserEnrolledCourse struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"-"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_user_courses_user_course" json:"-"`
	CourseID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_user_courses_user_course" json:"course"`
	Course           *Course        `gorm:"foreignKey:CourseID" json:"courseDetail,omitempty"`
	EnrolledAt       time.Time      `json:"enrolledAt"`
	Progress         float64        `gorm:"default:0" json:"progress"`
	CompletedLessons pq.StringArray `gorm:"type:text[]" json:"completedLessons"`
	UpdatedAt        time.Time      `json:"-"`
}

func (uc *UserEnrolledCourse) BeforeCreate(tx *gorm.DB) error {
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	return nil
}
