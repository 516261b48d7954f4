package idgen

import (
	"strings"
	"testing"
)

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for range 100 {
		next := gen()
		if next <= prev {
			t.Fatalf("%s not after %s", next, prev)
		}
		prev = next
	}
}

func TestPage(t *testing.T) {
	id := Page()
	if !strings.HasPrefix(id, "pg_") {
		t.Fatalf("page id = %q", id)
	}
	got, err := Parse("pg_", id)
	if err != nil || got != id {
		t.Fatalf("Parse = %q, %v", got, err)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "pg_", "pg_nope", New()} {
		if _, err := Parse("pg_", s); err == nil {
			t.Errorf("Parse(%q) accepted", s)
		}
	}
}
