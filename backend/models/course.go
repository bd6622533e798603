package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseCategories is the closed set of catalog categories.
var CourseCategories = []string{
	"react", "node", "javascript", "fullstack", "mern",
	"html-css", "vue", "angular", "python", "other",
}

// CourseLevels is the closed set of difficulty levels.
var CourseLevels = []string{"beginner", "intermediate", "advanced"}

// Course is the aggregate root of the catalog. It owns its content tree
// (chapters and lessons) and the derived counters that are recomputed on
// every mutating write and served as-is on reads.
type Course struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug            string    `gorm:"uniqueIndex;not null" json:"slug"`
	Title           string    `gorm:"size:100;not null" json:"title"`
	Description     string    `gorm:"size:500;not null" json:"description"`
	LongDescription string    `gorm:"size:2000" json:"longDescription,omitempty"`
	Thumbnail       string    `gorm:"not null" json:"thumbnail"`
	InstructorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"instructor"`

	Category string         `gorm:"not null;index:idx_courses_category_level" json:"category"`
	Level    string         `gorm:"not null;index:idx_courses_category_level" json:"level"`
	Tags     pq.StringArray `gorm:"type:text[]" json:"tags"`

	Price       float64 `gorm:"default:0" json:"price"`
	IsPremium   bool    `gorm:"default:false" json:"isPremium"`
	IsPublished bool    `gorm:"default:false;index" json:"isPublished"`
	IsFeatured  bool    `gorm:"default:false" json:"isFeatured"`
	Language    string  `gorm:"default:en" json:"language"`

	WhatYouWillLearn pq.StringArray `gorm:"type:text[]" json:"whatYouWillLearn"`
	Requirements     pq.StringArray `gorm:"type:text[]" json:"requirements"`
	TargetAudience   pq.StringArray `gorm:"type:text[]" json:"targetAudience"`

	Chapters    []Chapter          `gorm:"constraint:OnDelete:CASCADE" json:"chapters"`
	Enrollments []CourseEnrollment `gorm:"constraint:OnDelete:CASCADE" json:"enrollments,omitempty"`
	Reviews     []CourseReview     `gorm:"constraint:OnDelete:CASCADE" json:"reviews,omitempty"`

	// Derived fields. Never set directly; refreshed by the services on
	// every enrollment/review write.
	AverageRating    float64 `gorm:"default:0" json:"averageRating"`
	TotalReviews     int     `gorm:"default:0" json:"totalReviews"`
	TotalEnrollments int     `gorm:"default:0" json:"totalEnrollments"`

	// LastUpdated tracks content changes only (create, description or
	// chapter/lesson edits). Enrollment and review writes leave it alone;
	// UpdatedAt still records every touch.
	LastUpdated time.Time `json:"lastUpdated"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TotalDuration sums lesson durations (minutes) across all chapters.
func (c *Course) TotalDuration() int {
	total := 0
	for _, chapter := range c.Chapters {
		for _, lesson := range chapter.Lessons {
			total += lesson.Duration
		}
	}
	return total
}

// TotalLessons counts lessons across all chapters.
func (c *Course) TotalLessons() int {
	total := 0
	for _, chapter := range c.Chapters {
		total += len(chapter.Lessons)
	}
	return total
}

type Chapter struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;index" json:"courseId"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description,omitempty"`
	Order       int       `gorm:"not null" json:"order"`
	Lessons     []Lesson  `gorm:"constraint:OnDelete:CASCADE" json:"lessons"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (ch *Chapter) BeforeCreate(tx *gorm.DB) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	return nil
}

type Lesson struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChapterID   uuid.UUID `gorm:"type:uuid;not null;index" json:"chapterId"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description,omitempty"`
	VideoURL    string    `gorm:"not null" json:"videoUrl"`
	// Duration in minutes.
	Duration  int            `gorm:"not null" json:"duration"`
	Order     int            `gorm:"not null" json:"order"`
	IsPreview bool           `gorm:"default:false" json:"isPreview"`
	Resources datatypes.JSON `json:"resources,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// LessonResource is the shape stored in Lesson.Resources.
type LessonResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"` // pdf, link, code, other
}

// ValidateContentTree checks that chapter orders are unique within the
// course and lesson orders are unique within each chapter. Positions are
// encoded by the explicit Order field, so reordering never depends on
// slice position.
func (c *Course) ValidateContentTree() error {
	seen := make(map[int]bool, len(c.Chapters))
	for _, chapter := range c.Chapters {
		if seen[chapter.Order] {
			return fmt.Errorf("duplicate chapter order %d", chapter.Order)
		}
		seen[chapter.Order] = true

		lessonSeen := make(map[int]bool, len(chapter.Lessons))
		for _, lesson := range chapter.Lessons {
			if lessonSeen[lesson.Order] {
				return fmt.Errorf("duplicate lesson order %d in chapter %q", lesson.Order, chapter.Title)
			}
			lessonSeen[lesson.Order] = true
		}
	}
	return nil
}
