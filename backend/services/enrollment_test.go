package services

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClampProgress(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{150, 100},
		{-20, 0},
		{0, 0},
		{100, 100},
		{42.5, 42.5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClampProgress(tt.input), "input %v", tt.input)
	}
}

func TestAppendLessonOnce(t *testing.T) {
	completed := pq.StringArray{}

	completed = appendLessonOnce(completed, "lesson-1")
	assert.Equal(t, pq.StringArray{"lesson-1"}, completed)

	// Resubmitting the same id is a no-op, not an error.
	completed = appendLessonOnce(completed, "lesson-1")
	assert.Equal(t, pq.StringArray{"lesson-1"}, completed)

	completed = appendLessonOnce(completed, "lesson-2")
	assert.Equal(t, pq.StringArray{"lesson-1", "lesson-2"}, completed)

	completed = appendLessonOnce(completed, "lesson-1")
	assert.Len(t, completed, 2)
}
