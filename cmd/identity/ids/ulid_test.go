package ids

import (
	"strings"
	"testing"
	"time"
)

func TestNewULID(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a, err := NewULID(now)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	b, _ := NewULID(now.Add(time.Second))
	if len(a) != 26 || !Valid(a) {
		t.Fatalf("bad ulid %q", a)
	}
	if a >= b {
		t.Fatalf("expected time ordering: %s >= %s", a, b)
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "short", strings.Repeat("U", 26), "01HZZZZZZZZZZZZZZZZZZZZZZ!"} {
		if Valid(bad) {
			t.Fatalf("Valid(%q) = true", bad)
		}
	}
}
