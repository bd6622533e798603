package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCatalogQueryDefaults(t *testing.T) {
	q := BuildCatalogQuery(CatalogFilters{}, "", 0, 0)

	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, "average_rating DESC", q.Ordering)
	assert.Equal(t, 0, q.Offset())
}

func TestBuildCatalogQueryCoercesPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"negative page", -3, 10, 1, 10, 0},
		{"zero limit", 2, 0, 2, DefaultLimit, DefaultLimit},
		{"both valid", 3, 20, 3, 20, 40},
		{"both invalid", 0, -1, 1, DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildCatalogQuery(CatalogFilters{}, "", tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, q.Page)
			assert.Equal(t, tt.wantLimit, q.Limit)
			assert.Equal(t, tt.wantOffset, q.Offset())
		})
	}
}

func TestBuildCatalogQuerySorting(t *testing.T) {
	tests := []struct {
		sort     string
		expected string
	}{
		{"", "average_rating DESC"},
		{"-averageRating", "average_rating DESC"},
		{"averageRating", "average_rating ASC"},
		{"-createdAt", "created_at DESC"},
		{"price", "price ASC"},
		{"-lastUpdated", "last_updated DESC"},
		{"title", "title ASC"},
		{"-totalEnrollments", "total_enrollments DESC"},
		// Unknown fields fall back to the default, never into SQL.
		{"instructor_id; DROP TABLE courses", "average_rating DESC"},
		{"-nonexistent", "average_rating DESC"},
	}

	for _, tt := range tests {
		q := BuildCatalogQuery(CatalogFilters{}, tt.sort, 1, 12)
		assert.Equal(t, tt.expected, q.Ordering, "sort %q", tt.sort)
	}
}

func TestParseFeaturedFlag(t *testing.T) {
	flag := ParseFeaturedFlag("true")
	if assert.NotNil(t, flag) {
		assert.True(t, *flag)
	}

	// Anything but the literal "true" leaves the filter unset.
	assert.Nil(t, ParseFeaturedFlag(""))
	assert.Nil(t, ParseFeaturedFlag("false"))
	assert.Nil(t, ParseFeaturedFlag("TRUE"))
	assert.Nil(t, ParseFeaturedFlag("1"))
}

func TestFeaturedQueryPreset(t *testing.T) {
	q := FeaturedQuery()

	assert.NotNil(t, q.Filters.Featured)
	assert.True(t, *q.Filters.Featured)
	assert.Equal(t, "average_rating DESC, total_enrollments DESC", q.Ordering)
	assert.Equal(t, FeaturedLimit, q.Limit)
	assert.Equal(t, 0, q.Offset())
}

func TestByCategoryQueryPreset(t *testing.T) {
	q := ByCategoryQuery("react")

	assert.Equal(t, "react", q.Filters.Category)
	assert.Nil(t, q.Filters.Featured)
	assert.Equal(t, "average_rating DESC", q.Ordering)
}
