package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalDurationAndLessons(t *testing.T) {
	course := Course{
		Chapters: []Chapter{
			{Order: 1, Lessons: []Lesson{
				{Order: 1, Duration: 10},
				{Order: 2, Duration: 25},
			}},
			{Order: 2, Lessons: []Lesson{
				{Order: 1, Duration: 5},
			}},
			{Order: 3},
		},
	}

	assert.Equal(t, 40, course.TotalDuration())
	assert.Equal(t, 3, course.TotalLessons())
}

func TestTotalDurationEmptyCourse(t *testing.T) {
	course := Course{}
	assert.Equal(t, 0, course.TotalDuration())
	assert.Equal(t, 0, course.TotalLessons())
}

func TestValidateContentTree(t *testing.T) {
	valid := Course{
		Chapters: []Chapter{
			{Order: 1, Lessons: []Lesson{{Order: 1}, {Order: 2}}},
			{Order: 2, Lessons: []Lesson{{Order: 1}}},
		},
	}
	assert.NoError(t, valid.ValidateContentTree())
}

func TestValidateContentTreeDuplicateChapterOrder(t *testing.T) {
	course := Course{
		Chapters: []Chapter{
			{Order: 1},
			{Order: 1},
		},
	}
	err := course.ValidateContentTree()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate chapter order")
}

func TestValidateContentTreeDuplicateLessonOrder(t *testing.T) {
	course := Course{
		Chapters: []Chapter{
			{Order: 1, Title: "Basics", Lessons: []Lesson{{Order: 3}, {Order: 3}}},
		},
	}
	err := course.ValidateContentTree()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate lesson order")
}

func TestValidateContentTreeLessonOrdersScopedToChapter(t *testing.T) {
	// The same lesson order in different chapters is fine.
	course := Course{
		Chapters: []Chapter{
			{Order: 1, Lessons: []Lesson{{Order: 1}}},
			{Order: 2, Lessons: []Lesson{{Order: 1}}},
		},
	}
	assert.NoError(t, course.ValidateContentTree())
}
