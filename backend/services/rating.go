package services

import (
	"math"

	"coursehub/backend/models"
)

// RecomputeRating derives (averageRating, totalReviews) from the full
// review set. Always called with every review for the course, never
// adjusted incrementally, so floating-point drift cannot accumulate.
func RecomputeRating(reviews []models.CourseReview) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}

	sum := 0
	for _, review := range reviews {
		sum += review.Rating
	}

	avg := float64(sum) / float64(len(reviews))
	return roundHalfAwayFromZero(avg, 1), len(reviews)
}

// roundHalfAwayFromZero rounds to the given number of decimal places
// with ties going away from zero (so 4.65 -> 4.7, -4.65 -> -4.7).
func roundHalfAwayFromZero(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	if v < 0 {
		return -math.Floor(-v*shift+0.5) / shift
	}
	return math.Floor(v*shift+0.5) / shift
}
