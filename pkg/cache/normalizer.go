package cache

import (
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Parameter class tokens substituted for positional placeholders. Two queries
// whose parameters share the same shapes normalize identically, which is what
// lets them collide on cache key and embedding.
const (
	paramDate   = "DATE_PARAM"
	paramUUID   = "UUID_PARAM"
	paramEmail  = "EMAIL_PARAM"
	paramString = "STRING_PARAM"
	paramInt    = "INT_PARAM"
	paramFloat  = "FLOAT_PARAM"
	paramBool   = "BOOL_PARAM"
	paramArray  = "ARRAY_PARAM"
	paramObject = "OBJECT_PARAM"
)

// QueryNormalizer canonicalizes a query and its positional parameters into a
// parameter-type-abstracted textual form.
type QueryNormalizer interface {
	Normalize(query string, params []interface{}) string
}

// SQLQueryNormalizer implements standard SQL query normalization: whitespace
// collapse, uppercasing, and substitution of positional placeholders with
// parameter class tokens.
type SQLQueryNormalizer struct {
	whitespaceRegex  *regexp.Regexp
	placeholderRegex *regexp.Regexp
	datePrefixRegex  *regexp.Regexp
}

// NewQueryNormalizer creates a new query normalizer with default settings
func NewQueryNormalizer() QueryNormalizer {
	return &SQLQueryNormalizer{
		whitespaceRegex:  regexp.MustCompile(`\s+`),
		placeholderRegex: regexp.MustCompile(`\?|\$\d+`),
		datePrefixRegex:  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`),
	}
}

// Normalize processes a query for consistent caching. Output depends only on
// the query shape and the parameter shapes, never on literal parameter values.
//
// Both `?` and Postgres-style `$n` placeholders are recognized. `?`
// placeholders consume parameters in order; `$n` resolves to params[n-1] and
// may repeat. A query with fewer placeholders than parameters leaves the
// surplus parameters unused; surplus or out-of-range placeholders are left in
// place. Neither case is an error.
func (n *SQLQueryNormalizer) Normalize(query string, params []interface{}) string {
	if query == "" {
		return ""
	}

	normalized := strings.TrimSpace(query)
	normalized = n.whitespaceRegex.ReplaceAllString(normalized, " ")
	normalized = strings.ToUpper(normalized)

	if len(params) == 0 {
		return normalized
	}

	next := 0
	return n.placeholderRegex.ReplaceAllStringFunc(normalized, func(ph string) string {
		if ph == "?" {
			if next >= len(params) {
				return ph
			}
			token := n.classifyParam(params[next])
			next++
			return token
		}
		idx, err := strconv.Atoi(ph[1:])
		if err != nil || idx < 1 || idx > len(params) {
			return ph
		}
		return n.classifyParam(params[idx-1])
	})
}

// classifyParam maps a parameter value to its class token based on the
// value's shape, not its literal content.
func (n *SQLQueryNormalizer) classifyParam(v interface{}) string {
	switch p := v.(type) {
	case bool:
		return paramBool
	case string:
		switch {
		case n.datePrefixRegex.MatchString(p):
			return paramDate
		case isCanonicalUUID(p):
			return paramUUID
		case strings.Contains(p, "@"):
			return paramEmail
		default:
			return paramString
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return paramInt
	case float32:
		if float64(p) == math.Trunc(float64(p)) {
			return paramInt
		}
		return paramFloat
	case float64:
		if p == math.Trunc(p) {
			return paramInt
		}
		return paramFloat
	case time.Time:
		return paramDate
	case uuid.UUID:
		return paramUUID
	case nil:
		return paramObject
	default:
		switch reflect.ValueOf(v).Kind() {
		case reflect.Slice, reflect.Array:
			return paramArray
		default:
			return paramObject
		}
	}
}

// isCanonicalUUID reports whether s is a UUID in the canonical
// 8-4-4-4-12 hyphenated form.
func isCanonicalUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
