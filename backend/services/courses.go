package services

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coursehub/backend/models"
)

// courseRowLock takes the course row FOR UPDATE. Every write path that
// recomputes a derived field (rating, enrollment count, content
// ordering) acquires this lock first so concurrent recomputes serialize
// and each one reads a review/enrollment set that includes every
// committed write before it.
func courseRowLock(courseID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", courseID)
	}
}

func lockCourse(tx *gorm.DB, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := tx.Scopes(courseRowLock(courseID)).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, errors.Trace(err)
	}
	return &course, nil
}

// CourseService owns the course aggregate: creation, lookup, catalog
// listing, content-tree edits and review insertion with derived-field
// refresh.
type CourseService struct {
	DB       *gorm.DB
	validate *validator.Validate
}

func NewCourseService(db *gorm.DB) *CourseService {
	v := validator.New()
	// Report violations under the json field names the caller sent.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CourseService{DB: db, validate: v}
}

type ResourceInput struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required"`
	Type  string `json:"type" validate:"omitempty,oneof=pdf link code other"`
}

type LessonInput struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	VideoURL    string          `json:"videoUrl" validate:"required"`
	Duration    int             `json:"duration" validate:"required,gt=0"`
	Order       int             `json:"order" validate:"omitempty,gte=1"`
	IsPreview   bool            `json:"isPreview"`
	Resources   []ResourceInput `json:"resources" validate:"omitempty,dive"`
}

type ChapterInput struct {
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Order       int           `json:"order" validate:"omitempty,gte=1"`
	Lessons     []LessonInput `json:"lessons" validate:"omitempty,dive"`
}

type CreateCourseInput struct {
	Title            string         `json:"title" validate:"required,max=100"`
	Description      string         `json:"description" validate:"required,max=500"`
	LongDescription  string         `json:"longDescription" validate:"omitempty,max=2000"`
	Thumbnail        string         `json:"thumbnail" validate:"required"`
	Category         string         `json:"category" validate:"required,oneof=react node javascript fullstack mern html-css vue angular python other"`
	Level            string         `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Tags             []string       `json:"tags"`
	Price            float64        `json:"price" validate:"omitempty,gte=0"`
	IsPremium        bool           `json:"isPremium"`
	IsFeatured       bool           `json:"isFeatured"`
	Language         string         `json:"language"`
	WhatYouWillLearn []string       `json:"whatYouWillLearn"`
	Requirements     []string       `json:"requirements"`
	TargetAudience   []string       `json:"targetAudience"`
	Chapters         []ChapterInput `json:"chapters" validate:"omitempty,dive"`
}

// Create validates the input, derives the slug and persists the course.
// New courses are unpublished until the instructor flips the flag.
func (s *CourseService) Create(input CreateCourseInput, instructorID uuid.UUID) (*models.Course, error) {
	if verr := s.validateInput(input); verr != nil {
		return nil, verr
	}

	slug := GenerateSlug(input.Title)
	if slug == "" {
		return nil, ErrInvalidSlug
	}

	now := time.Now()
	course := &models.Course{
		Slug:             slug,
		Title:            input.Title,
		Description:      input.Description,
		LongDescription:  input.LongDescription,
		Thumbnail:        input.Thumbnail,
		InstructorID:     instructorID,
		Category:         input.Category,
		Level:            input.Level,
		Tags:             pq.StringArray(input.Tags),
		Price:            input.Price,
		IsPremium:        input.IsPremium,
		IsFeatured:       input.IsFeatured,
		Language:         input.Language,
		WhatYouWillLearn: pq.StringArray(input.WhatYouWillLearn),
		Requirements:     pq.StringArray(input.Requirements),
		TargetAudience:   pq.StringArray(input.TargetAudience),
		Chapters:         buildChapters(input.Chapters),
		LastUpdated:      now,
	}
	if course.Language == "" {
		course.Language = "en"
	}

	if err := course.ValidateContentTree(); err != nil {
		return nil, &ValidationError{Fields: map[string]string{"chapters": err.Error()}}
	}

	if err := s.DB.Create(course).Error; err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrDuplicateSlug
		}
		return nil, errors.Trace(err)
	}

	return course, nil
}

func (s *CourseService) validateInput(input any) *ValidationError {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Namespace()] = validationMessage(fe)
		}
	} else {
		fields["input"] = err.Error()
	}
	return &ValidationError{Fields: fields}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

func buildChapters(inputs []ChapterInput) []models.Chapter {
	chapters := make([]models.Chapter, 0, len(inputs))
	for i, ci := range inputs {
		chapter := models.Chapter{
			Title:       ci.Title,
			Description: ci.Description,
			Order:       ci.Order,
			Lessons:     buildLessons(ci.Lessons),
		}
		if chapter.Order == 0 {
			chapter.Order = i + 1
		}
		chapters = append(chapters, chapter)
	}
	return chapters
}

func buildLessons(inputs []LessonInput) []models.Lesson {
	if len(inputs) == 0 {
		return nil
	}
	lessons := make([]models.Lesson, 0, len(inputs))
	for j, li := range inputs {
		lesson := models.Lesson{
			Title:       li.Title,
			Description: li.Description,
			VideoURL:    li.VideoURL,
			Duration:    li.Duration,
			Order:       li.Order,
			IsPreview:   li.IsPreview,
			Resources:   buildLessonResources(li.Resources),
		}
		if lesson.Order == 0 {
			lesson.Order = j + 1
		}
		lessons = append(lessons, lesson)
	}
	return lessons
}

func buildLessonResources(inputs []ResourceInput) []byte {
	if len(inputs) == 0 {
		return nil
	}
	resources := make([]models.LessonResource, 0, len(inputs))
	for _, ri := range inputs {
		if ri.Type == "" {
			ri.Type = "link"
		}
		resources = append(resources, models.LessonResource{Title: ri.Title, URL: ri.URL, Type: ri.Type})
	}
	raw, _ := json.Marshal(resources)
	return raw
}

// GetByIDOrSlug resolves a course detail view. Anything that parses as a
// UUID is treated as an id, everything else as a slug.
func (s *CourseService) GetByIDOrSlug(identifier string) (*models.Course, error) {
	query := s.DB.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB { return db.Order("chapters.\"order\" ASC") }).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("lessons.\"order\" ASC") }).
		Preload("Reviews")

	var course models.Course
	var err error
	if id, parseErr := uuid.Parse(identifier); parseErr == nil {
		err = query.First(&course, "id = ?", id).Error
	} else {
		err = query.First(&course, "slug = ?", identifier).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, errors.Trace(err)
	}

	return &course, nil
}

// List runs a catalog query and returns the requested page plus the
// total match count.
func (s *CourseService) List(q CatalogQuery) ([]models.Course, int64, error) {
	var total int64
	if err := q.Apply(s.DB).Count(&total).Error; err != nil {
		return nil, 0, errors.Trace(err)
	}

	var courses []models.Course
	err := q.Apply(s.DB).
		Order(q.Ordering).
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&courses).Error
	if err != nil {
		return nil, 0, errors.Trace(err)
	}

	return courses, total, nil
}

// Featured returns up to FeaturedLimit published featured courses.
func (s *CourseService) Featured() ([]models.Course, error) {
	courses, _, err := s.List(FeaturedQuery())
	return courses, errors.Trace(err)
}

// ByCategory returns a category's published courses, best-rated first.
func (s *CourseService) ByCategory(category string) ([]models.Course, error) {
	courses, _, err := s.List(ByCategoryQuery(category))
	return courses, errors.Trace(err)
}

// CategoryCounts exposes the category aggregation.
func (s *CourseService) CategoryCounts() ([]CategoryCount, error) {
	return CategoryCounts(s.DB)
}

// AddReview appends a review for an enrolled user and refreshes the
// course's derived rating fields. Reviews are one-per-user and
// append-only; the duplicate check rides on the table's unique index so
// two concurrent submissions cannot both land. The course row is locked
// before the review set is read, so a concurrent insert cannot commit a
// rating computed from a set missing another committed review.
func (s *CourseService) AddReview(courseID, userID uuid.UUID, rating int, comment string) (*models.CourseReview, error) {
	if rating < 1 || rating > 5 {
		return nil, &ValidationError{Fields: map[string]string{"rating": "must be between 1 and 5"}}
	}
	if len(comment) > 500 {
		return nil, &ValidationError{Fields: map[string]string{"comment": "must be at most 500 characters"}}
	}

	review := &models.CourseReview{
		CourseID:  courseID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := lockCourse(tx, courseID); err != nil {
			return err
		}

		var enrolled bool
		if err := tx.Model(&models.CourseEnrollment{}).
			Select("count(*) > 0").
			Where("course_id = ? AND user_id = ?", courseID, userID).
			Find(&enrolled).Error; err != nil {
			return errors.Trace(err)
		}
		if !enrolled {
			return ErrNotEnrolled
		}

		if err := tx.Create(review).Error; err != nil {
			if isUniqueViolation(err, "") {
				return ErrDuplicateReview
			}
			return errors.Trace(err)
		}

		return s.refreshRating(tx, courseID)
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// RefreshRating recomputes averageRating and totalReviews from the full
// review set and persists them.
func (s *CourseService) RefreshRating(courseID uuid.UUID) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := lockCourse(tx, courseID); err != nil {
			return err
		}
		return s.refreshRating(tx, courseID)
	})
}

func (s *CourseService) refreshRating(tx *gorm.DB, courseID uuid.UUID) error {
	var reviews []models.CourseReview
	if err := tx.Where("course_id = ?", courseID).Find(&reviews).Error; err != nil {
		return errors.Trace(err)
	}

	avg, total := RecomputeRating(reviews)
	err := tx.Model(&models.Course{}).Where("id = ?", courseID).Updates(map[string]any{
		"average_rating": avg,
		"total_reviews":  total,
	}).Error
	return errors.Trace(err)
}

type UpdateCourseInput struct {
	Title           string   `json:"title" validate:"omitempty,max=100"`
	Description     string   `json:"description" validate:"omitempty,max=500"`
	LongDescription string   `json:"longDescription" validate:"omitempty,max=2000"`
	Thumbnail       string   `json:"thumbnail"`
	Category        string   `json:"category" validate:"omitempty,oneof=react node javascript fullstack mern html-css vue angular python other"`
	Level           string   `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Tags            []string `json:"tags"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0"`
	IsPremium       *bool    `json:"isPremium"`
	IsPublished     *bool    `json:"isPublished"`
	IsFeatured      *bool    `json:"isFeatured"`
	Language        string   `json:"language"`
}

// Update applies a partial edit to the course document. A title change
// re-derives the slug; any accepted edit bumps LastUpdated.
func (s *CourseService) Update(courseID uuid.UUID, input UpdateCourseInput) (*models.Course, error) {
	if verr := s.validateInput(input); verr != nil {
		return nil, verr
	}

	var course models.Course
	if err := s.DB.First(&course, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, errors.Trace(err)
	}

	if input.Title != "" && input.Title != course.Title {
		slug := GenerateSlug(input.Title)
		if slug == "" {
			return nil, ErrInvalidSlug
		}
		course.Title = input.Title
		course.Slug = slug
	}
	if input.Description != "" {
		course.Description = input.Description
	}
	if input.LongDescription != "" {
		course.LongDescription = input.LongDescription
	}
	if input.Thumbnail != "" {
		course.Thumbnail = input.Thumbnail
	}
	if input.Category != "" {
		course.Category = input.Category
	}
	if input.Level != "" {
		course.Level = input.Level
	}
	if input.Tags != nil {
		course.Tags = pq.StringArray(input.Tags)
	}
	if input.Price != nil {
		course.Price = *input.Price
	}
	if input.IsPremium != nil {
		course.IsPremium = *input.IsPremium
	}
	if input.IsPublished != nil {
		course.IsPublished = *input.IsPublished
	}
	if input.IsFeatured != nil {
		course.IsFeatured = *input.IsFeatured
	}
	if input.Language != "" {
		course.Language = input.Language
	}
	course.LastUpdated = time.Now()

	if err := s.DB.Save(&course).Error; err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrDuplicateSlug
		}
		return nil, errors.Trace(err)
	}

	return &course, nil
}

// AddChapter appends a chapter at the next free position. Lessons in
// the input are persisted with it, ordered the same way Create orders
// them.
func (s *CourseService) AddChapter(courseID uuid.UUID, input ChapterInput) (*models.Chapter, error) {
	if verr := s.validateInput(input); verr != nil {
		return nil, verr
	}

	chapter := &models.Chapter{
		CourseID:    courseID,
		Title:       input.Title,
		Description: input.Description,
		Lessons:     buildLessons(input.Lessons),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := lockCourse(tx, courseID); err != nil {
			return err
		}

		var maxOrder int
		if err := tx.Model(&models.Chapter{}).
			Select("COALESCE(MAX(\"order\"), 0)").
			Where("course_id = ?", courseID).
			Scan(&maxOrder).Error; err != nil {
			return errors.Trace(err)
		}
		chapter.Order = maxOrder + 1

		if err := tx.Create(chapter).Error; err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(touchContent(tx, courseID))
	})
	if err != nil {
		return nil, err
	}

	return chapter, nil
}

// AddLesson appends a lesson to a chapter at the next free position.
func (s *CourseService) AddLesson(courseID, chapterID uuid.UUID, input LessonInput) (*models.Lesson, error) {
	fields := make(map[string]string)
	if input.Title == "" {
		fields["title"] = "is required"
	}
	if input.VideoURL == "" {
		fields["videoUrl"] = "is required"
	}
	if input.Duration <= 0 {
		fields["duration"] = "must be greater than 0"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	lesson := &models.Lesson{
		ChapterID:   chapterID,
		Title:       input.Title,
		Description: input.Description,
		VideoURL:    input.VideoURL,
		Duration:    input.Duration,
		IsPreview:   input.IsPreview,
		Resources:   buildLessonResources(input.Resources),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := lockCourse(tx, courseID); err != nil {
			return err
		}

		var chapter models.Chapter
		if err := tx.First(&chapter, "id = ? AND course_id = ?", chapterID, courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChapterNotFound
			}
			return errors.Trace(err)
		}

		var maxOrder int
		if err := tx.Model(&models.Lesson{}).
			Select("COALESCE(MAX(\"order\"), 0)").
			Where("chapter_id = ?", chapterID).
			Scan(&maxOrder).Error; err != nil {
			return errors.Trace(err)
		}
		lesson.Order = maxOrder + 1

		if err := tx.Create(lesson).Error; err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(touchContent(tx, courseID))
	})
	if err != nil {
		return nil, err
	}

	return lesson, nil
}

// ReorderChapters renumbers a course's chapters from an explicit id
// permutation. The permutation must name every chapter exactly once.
func (s *CourseService) ReorderChapters(courseID uuid.UUID, orderedIDs []uuid.UUID) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := lockCourse(tx, courseID); err != nil {
			return err
		}

		var chapters []models.Chapter
		if err := tx.Where("course_id = ?", courseID).Find(&chapters).Error; err != nil {
			return errors.Trace(err)
		}
		if len(orderedIDs) != len(chapters) {
			return &ValidationError{Fields: map[string]string{"chapters": "must list every chapter exactly once"}}
		}

		known := make(map[uuid.UUID]bool, len(chapters))
		for _, chapter := range chapters {
			known[chapter.ID] = true
		}
		for _, id := range orderedIDs {
			if !known[id] {
				return &ValidationError{Fields: map[string]string{"chapters": "unknown chapter id " + id.String()}}
			}
			delete(known, id)
		}

		for position, id := range orderedIDs {
			if err := tx.Model(&models.Chapter{}).
				Where("id = ?", id).
				Update("order", position+1).Error; err != nil {
				return errors.Trace(err)
			}
		}
		return errors.Trace(touchContent(tx, courseID))
	})
}

// touchContent bumps LastUpdated; used by content edits only.
func touchContent(tx *gorm.DB, courseID uuid.UUID) error {
	return tx.Model(&models.Course{}).
		Where("id = ?", courseID).
		Update("last_updated", time.Now()).Error
}
