package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"coursehub/backend/models"
)

// dryRunDB builds statements without a live connection, for asserting
// on generated SQL.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(
		postgres.New(postgres.Config{DSN: "host=localhost user=app dbname=app sslmode=disable"}),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true},
	)
	require.NoError(t, err)
	return db
}

func validCreateInput() CreateCourseInput {
	return CreateCourseInput{
		Title:       "Intro to React",
		Description: "Learn React from scratch",
		Thumbnail:   "https://cdn.example.com/react.png",
		Category:    "react",
		Level:       "beginner",
	}
}

func TestValidateCreateInputOK(t *testing.T) {
	svc := NewCourseService(nil)
	assert.Nil(t, svc.validateInput(validCreateInput()))
}

func TestValidateCreateInputMissingRequired(t *testing.T) {
	svc := NewCourseService(nil)

	verr := svc.validateInput(CreateCourseInput{})
	require.NotNil(t, verr)

	// Field names follow the json tags the caller sent.
	keys := make([]string, 0, len(verr.Fields))
	for k := range verr.Fields {
		keys = append(keys, k)
	}
	assert.Contains(t, keys, "CreateCourseInput.title")
	assert.Contains(t, keys, "CreateCourseInput.description")
	assert.Contains(t, keys, "CreateCourseInput.thumbnail")
	assert.Contains(t, keys, "CreateCourseInput.category")
	assert.Contains(t, keys, "CreateCourseInput.level")
}

func TestValidateCreateInputRejectsUnknownEnums(t *testing.T) {
	svc := NewCourseService(nil)

	input := validCreateInput()
	input.Category = "basket-weaving"
	verr := svc.validateInput(input)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields["CreateCourseInput.category"], "must be one of")

	input = validCreateInput()
	input.Level = "expert"
	verr = svc.validateInput(input)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields["CreateCourseInput.level"], "must be one of")
}

func TestValidateCreateInputBounds(t *testing.T) {
	svc := NewCourseService(nil)

	input := validCreateInput()
	input.Title = string(make([]byte, 101))
	verr := svc.validateInput(input)
	require.NotNil(t, verr)
	assert.Equal(t, "must be at most 100 characters", verr.Fields["CreateCourseInput.title"])
}

func TestBuildChaptersAssignsOrders(t *testing.T) {
	chapters := buildChapters([]ChapterInput{
		{Title: "Getting Started", Lessons: []LessonInput{
			{Title: "Setup", VideoURL: "v1", Duration: 10},
			{Title: "Hello World", VideoURL: "v2", Duration: 15},
		}},
		{Title: "Components"},
	})

	require.Len(t, chapters, 2)
	assert.Equal(t, 1, chapters[0].Order)
	assert.Equal(t, 2, chapters[1].Order)
	require.Len(t, chapters[0].Lessons, 2)
	assert.Equal(t, 1, chapters[0].Lessons[0].Order)
	assert.Equal(t, 2, chapters[0].Lessons[1].Order)
}

func TestBuildChaptersKeepsExplicitOrders(t *testing.T) {
	chapters := buildChapters([]ChapterInput{
		{Title: "Second", Order: 2},
		{Title: "First", Order: 1},
	})

	require.Len(t, chapters, 2)
	assert.Equal(t, 2, chapters[0].Order)
	assert.Equal(t, 1, chapters[1].Order)
}

// The scope behind rating, enrollment count and ordering writes must
// lock the course row, otherwise two concurrent writers can each
// recompute from a set missing the other's committed row.
func TestCourseRowLockTakesForUpdate(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var course models.Course
		return tx.Scopes(courseRowLock(uuid.New())).Find(&course)
	})

	assert.Contains(t, sql, `FROM "courses"`)
	assert.Contains(t, sql, "FOR UPDATE")
}

func TestValidateChapterInputNestedLessons(t *testing.T) {
	svc := NewCourseService(nil)

	verr := svc.validateInput(ChapterInput{
		Title:   "Extras",
		Lessons: []LessonInput{{Description: "no title, url or duration"}},
	})
	require.NotNil(t, verr)
	keys := make([]string, 0, len(verr.Fields))
	for k := range verr.Fields {
		keys = append(keys, k)
	}
	assert.Contains(t, keys, "ChapterInput.lessons[0].title")
	assert.Contains(t, keys, "ChapterInput.lessons[0].videoUrl")
	assert.Contains(t, keys, "ChapterInput.lessons[0].duration")
}

func TestValidateChapterInputOmittedOrdersOK(t *testing.T) {
	svc := NewCourseService(nil)

	// Orders are auto-assigned when omitted, so zero must pass.
	assert.Nil(t, svc.validateInput(ChapterInput{
		Title:   "Extras",
		Lessons: []LessonInput{{Title: "Reading", VideoURL: "v1", Duration: 5}},
	}))
}

func TestBuildLessons(t *testing.T) {
	lessons := buildLessons([]LessonInput{
		{Title: "Setup", VideoURL: "v1", Duration: 10},
		{Title: "Hello World", VideoURL: "v2", Duration: 15},
	})

	require.Len(t, lessons, 2)
	assert.Equal(t, 1, lessons[0].Order)
	assert.Equal(t, 2, lessons[1].Order)

	assert.Nil(t, buildLessons(nil))
}

func TestBuildChaptersResourceDefaults(t *testing.T) {
	chapters := buildChapters([]ChapterInput{
		{Title: "Extras", Lessons: []LessonInput{
			{
				Title:    "Reading",
				VideoURL: "v1",
				Duration: 5,
				Resources: []ResourceInput{
					{Title: "Docs", URL: "https://example.com/docs"},
					{Title: "Cheatsheet", URL: "https://example.com/pdf", Type: "pdf"},
				},
			},
		}},
	})

	require.Len(t, chapters, 1)
	require.Len(t, chapters[0].Lessons, 1)

	var resources []models.LessonResource
	require.NoError(t, json.Unmarshal(chapters[0].Lessons[0].Resources, &resources))
	require.Len(t, resources, 2)
	assert.Equal(t, "link", resources[0].Type)
	assert.Equal(t, "pdf", resources[1].Type)
}
