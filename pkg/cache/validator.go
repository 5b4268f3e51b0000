package cache

import (
	"fmt"
	"strings"
)

// defaultMaxQueryLength bounds queries accepted for caching.
const defaultMaxQueryLength = 10000

// QueryValidator validates and sanitizes queries before they touch the cache
type QueryValidator struct {
	maxQueryLength int
}

// NewQueryValidator creates a validator with default limits
func NewQueryValidator() *QueryValidator {
	return &QueryValidator{
		maxQueryLength: defaultMaxQueryLength,
	}
}

// Validate checks that a query is acceptable for caching
func (v *QueryValidator) Validate(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if len(query) > v.maxQueryLength {
		return fmt.Errorf("%w: query exceeds %d bytes", ErrInvalidQuery, v.maxQueryLength)
	}
	if strings.ContainsRune(query, '\x00') {
		return fmt.Errorf("%w: query contains null byte", ErrInvalidQuery)
	}
	return nil
}

// Sanitize replaces control characters with spaces. Whitespace collapse in
// the normalizer cleans up the result.
func (v *QueryValidator) Sanitize(query string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return ' '
		}
		return r
	}, query)
}
