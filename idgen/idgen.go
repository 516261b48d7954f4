// Package idgen generates identifiers for pages, fetches and requests.
//
// The default strategy is UUIDv7: time-sortable, so IDs listed in creation
// order read the same as their lexical order.
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID of gen, e.g. "pg_" for pages.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the process-wide generator.
var Default Generator = UUIDv7()

// New produces an ID using Default.
func New() string {
	return Default()
}

// Page produces a page ID.
var Page = Prefixed("pg_", UUIDv7())

// Parse validates an ID made by a Prefixed UUID generator and returns it
// in canonical form.
func Parse(prefix, s string) (string, error) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return "", fmt.Errorf("idgen: %q lacks prefix %q", s, prefix)
	}
	u, err := uuid.Parse(rest)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + u.String(), nil
}
