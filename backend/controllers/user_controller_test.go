package controllers

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"coursehub/backend/models"
)

func TestEnrollmentStats(t *testing.T) {
	enrolled := []models.UserEnrolledCourse{
		{Progress: 100, CompletedLessons: pq.StringArray{"a", "b"}},
		{Progress: 50, CompletedLessons: pq.StringArray{"c"}},
		{Progress: 33},
	}

	stats := enrollmentStats(enrolled)
	assert.Equal(t, 3, stats["totalCourses"])
	assert.Equal(t, 1, stats["completedCourses"])
	assert.Equal(t, 3, stats["totalLessonsCompleted"])
	assert.Equal(t, 61.0, stats["averageProgress"])
}

func TestEnrollmentStatsRoundsAverage(t *testing.T) {
	stats := enrollmentStats([]models.UserEnrolledCourse{
		{Progress: 50},
		{Progress: 25},
	})

	// 37.5 rounds to the nearest integer, not truncated.
	assert.Equal(t, 38.0, stats["averageProgress"])
}

func TestEnrollmentStatsEmpty(t *testing.T) {
	stats := enrollmentStats(nil)
	assert.Equal(t, 0, stats["totalCourses"])
	assert.Equal(t, 0, stats["completedCourses"])
	assert.Equal(t, 0.0, stats["averageProgress"])
}
