package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Intro to React!!", "intro-to-react"},
		{"Node.js for Beginners", "nodejs-for-beginners"},
		{"  Spaced   Out    Title  ", "spaced-out-title"},
		{"UPPER lower 123", "upper-lower-123"},
		{"  ???  ", ""},
		{"", ""},
		{"---", ""},
		{"a", "a"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, GenerateSlug(tt.title), "title %q", tt.title)
	}
}

func TestGenerateSlugIsDeterministic(t *testing.T) {
	title := "Advanced Vue Patterns & Practices"
	first := GenerateSlug(title)
	assert.Equal(t, first, GenerateSlug(title))
	assert.Equal(t, "advanced-vue-patterns-practices", first)
}
