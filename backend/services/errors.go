package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	jujuerrors "github.com/juju/errors"
)

var (
	ErrCourseNotFound  = jujuerrors.New("course not found")
	ErrUserNotFound    = jujuerrors.New("user not found")
	ErrChapterNotFound = jujuerrors.New("chapter not found")
	ErrNotEnrolled     = jujuerrors.New("not enrolled in this course")
	ErrAlreadyEnrolled = jujuerrors.New("already enrolled in this course")
	ErrDuplicateReview = jujuerrors.New("course already reviewed by this user")
	ErrInvalidSlug     = jujuerrors.New("title produces an empty slug")
	ErrDuplicateSlug   = jujuerrors.New("a course with this slug already exists")

	// ErrPartialEnrollment means the authoritative course-side write
	// committed but the user-side mirror write failed. The enrollment
	// exists; the caller may retry just the mirror (the write is an
	// idempotent upsert) or leave it for reconciliation.
	ErrPartialEnrollment = jujuerrors.New("enrolled, but the user-side mirror write failed")
)

// ValidationError carries field-level detail for user-correctable input
// problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation, optionally on a specific constraint name.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
