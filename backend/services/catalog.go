package services

import (
	"strings"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"coursehub/backend/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12

	// FeaturedLimit caps the featured preset.
	FeaturedLimit = 6
)

// CatalogFilters is the explicit filter object for public catalog
// queries. Zero values (and the "all" sentinel for category/level)
// impose no constraint; Featured is only applied when set.
type CatalogFilters struct {
	Category string
	Level    string
	Featured *bool
	Search   string
}

// CatalogQuery is a compiled query plan: predicate, ordering, offset and
// limit over the published course collection.
type CatalogQuery struct {
	Filters CatalogFilters
	// Ordering is a SQL order-by expression built exclusively from the
	// sortable-field whitelist.
	Ordering string
	Page     int
	Limit    int
}

// sortableFields maps the caller-facing sort keys to their columns.
var sortableFields = map[string]string{
	"averageRating":    "average_rating",
	"createdAt":        "created_at",
	"lastUpdated":      "last_updated",
	"price":            "price",
	"title":            "title",
	"totalEnrollments": "total_enrollments",
}

const defaultOrdering = "average_rating DESC"

// BuildCatalogQuery translates raw listing parameters into a query plan.
// Sort keys use the "-field" convention for descending ("-averageRating"
// is the default); unknown fields fall back to the default ordering.
// Page and limit are coerced to positive integers.
func BuildCatalogQuery(filters CatalogFilters, sort string, page, limit int) CatalogQuery {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	return CatalogQuery{
		Filters:  filters,
		Ordering: parseOrdering(sort),
		Page:     page,
		Limit:    limit,
	}
}

// ParseFeaturedFlag interprets the raw featured query value. Only the
// literal "true" activates the filter; "false" and junk leave it unset
// rather than turning into an is_featured = false predicate.
func ParseFeaturedFlag(v string) *bool {
	if v == "true" {
		t := true
		return &t
	}
	return nil
}

func parseOrdering(sort string) string {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return defaultOrdering
	}

	direction := "ASC"
	if strings.HasPrefix(sort, "-") {
		direction = "DESC"
		sort = sort[1:]
	}

	column, ok := sortableFields[sort]
	if !ok {
		return defaultOrdering
	}
	return column + " " + direction
}

// Offset is derived from the 1-based page.
func (q CatalogQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Apply compiles the plan's predicate onto a gorm query. Ordering and
// pagination are applied by the caller after counting, so the same
// predicate serves both the page fetch and the total count.
func (q CatalogQuery) Apply(db *gorm.DB) *gorm.DB {
	tx := db.Model(&models.Course{}).Where("is_published = ?", true)

	if q.Filters.Category != "" && q.Filters.Category != "all" {
		tx = tx.Where("category = ?", q.Filters.Category)
	}
	if q.Filters.Level != "" && q.Filters.Level != "all" {
		tx = tx.Where("level = ?", q.Filters.Level)
	}
	if q.Filters.Featured != nil {
		tx = tx.Where("is_featured = ?", *q.Filters.Featured)
	}
	if search := strings.TrimSpace(q.Filters.Search); search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where(
			"title ILIKE ? OR description ILIKE ? OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE ?)",
			pattern, pattern, pattern,
		)
	}

	return tx
}

// FeaturedQuery is the preset behind the home-page strip: published and
// featured, best-rated first with enrollment count as tiebreaker, capped
// at FeaturedLimit.
func FeaturedQuery() CatalogQuery {
	featured := true
	return CatalogQuery{
		Filters:  CatalogFilters{Featured: &featured},
		Ordering: "average_rating DESC, total_enrollments DESC",
		Page:     1,
		Limit:    FeaturedLimit,
	}
}

// ByCategoryQuery lists a category's published courses, best-rated first.
func ByCategoryQuery(category string) CatalogQuery {
	return CatalogQuery{
		Filters:  CatalogFilters{Category: category},
		Ordering: defaultOrdering,
		Page:     DefaultPage,
		Limit:    DefaultLimit,
	}
}

// CategoryCount is one row of the catalog's category aggregation.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// CategoryCounts groups published courses by category, most populated
// first.
func CategoryCounts(db *gorm.DB) ([]CategoryCount, error) {
	var counts []CategoryCount
	err := db.Model(&models.Course{}).
		Select("category, COUNT(*) AS count").
		Where("is_published = ?", true).
		Group("category").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return counts, nil
}
