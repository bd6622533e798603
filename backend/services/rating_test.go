package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coursehub/backend/models"
)

func reviewsWithRatings(ratings ...int) []models.CourseReview {
	reviews := make([]models.CourseReview, 0, len(ratings))
	for _, r := range ratings {
		reviews = append(reviews, models.CourseReview{Rating: r})
	}
	return reviews
}

func TestRecomputeRatingEmptySet(t *testing.T) {
	avg, total := RecomputeRating(nil)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, total)
}

func TestRecomputeRating(t *testing.T) {
	tests := []struct {
		name     string
		ratings  []int
		expected float64
		total    int
	}{
		{"single review", []int{5}, 5.0, 1},
		{"5 4 5 rounds up", []int{5, 4, 5}, 4.7, 3},
		{"exact mean", []int{4, 4}, 4.0, 2},
		{"half rounds away from zero", []int{4, 5}, 4.5, 2},
		{"repeating third rounds down", []int{1, 1, 2}, 1.3, 3},
		{"all ones", []int{1, 1, 1, 1}, 1.0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, total := RecomputeRating(reviewsWithRatings(tt.ratings...))
			assert.Equal(t, tt.expected, avg)
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 4.7, roundHalfAwayFromZero(4.65, 1))
	assert.Equal(t, 4.6, roundHalfAwayFromZero(4.649, 1))
	assert.Equal(t, -4.7, roundHalfAwayFromZero(-4.65, 1))
	assert.Equal(t, 0.0, roundHalfAwayFromZero(0, 1))
}
