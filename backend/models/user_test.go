package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidUserRole(t *testing.T) {
	for _, role := range UserRoles {
		assert.True(t, ValidUserRole(role), "role %q", role)
	}

	assert.False(t, ValidUserRole(""))
	assert.False(t, ValidUserRole("superuser"))
	assert.False(t, ValidUserRole("Admin"))
}
