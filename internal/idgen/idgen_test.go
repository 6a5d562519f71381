package idgen

import (
	"regexp"
	"testing"
)

func TestNewCycleID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(CyclePrefix) + `[a-zA-Z0-9]{12}$`)
	for i := 0; i < 100; i++ {
		id, err := NewCycleID()
		if err != nil {
			t.Fatalf("NewCycleID() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("NewCycleID() = %q, does not match %s", id, pattern)
		}
	}
}

func TestNewCycleID_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := NewCycleID()
		if err != nil {
			t.Fatalf("NewCycleID() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}
