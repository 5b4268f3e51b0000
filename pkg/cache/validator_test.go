package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryValidatorValidate(t *testing.T) {
	v := NewQueryValidator()

	t.Run("accepts ordinary queries", func(t *testing.T) {
		assert.NoError(t, v.Validate("SELECT * FROM users WHERE id = ?"))
	})

	t.Run("rejects empty and blank queries", func(t *testing.T) {
		assert.ErrorIs(t, v.Validate(""), ErrInvalidQuery)
		assert.ErrorIs(t, v.Validate("   \n\t  "), ErrInvalidQuery)
	})

	t.Run("rejects oversized queries", func(t *testing.T) {
		assert.ErrorIs(t, v.Validate(strings.Repeat("a", 10001)), ErrInvalidQuery)
		assert.NoError(t, v.Validate(strings.Repeat("a", 10000)))
	})

	t.Run("rejects null bytes", func(t *testing.T) {
		assert.ErrorIs(t, v.Validate("SELECT \x00"), ErrInvalidQuery)
	})
}

func TestQueryValidatorSanitize(t *testing.T) {
	v := NewQueryValidator()

	assert.Equal(t, "SELECT   1", v.Sanitize("SELECT \x01 1"))
	assert.Equal(t, "a\tb\nc\rd", v.Sanitize("a\tb\nc\rd"), "common whitespace controls pass through")
	assert.Equal(t, "a b", v.Sanitize("a\x1fb"))
}
