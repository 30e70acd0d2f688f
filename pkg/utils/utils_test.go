package utils

import (
	"testing"
	"time"
)

func TestCoalesceString(t *testing.T) {
	if got := CoalesceString("", "a", "b"); got != "a" {
		t.Errorf("got %q", got)
	}
	if got := CoalesceString("", ""); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestDefaultInt(t *testing.T) {
	if got := DefaultInt(0, 7); got != 7 {
		t.Errorf("got %d", got)
	}
	if got := DefaultInt(3, 7); got != 3 {
		t.Errorf("got %d", got)
	}
}

func TestParseDurationOr(t *testing.T) {
	if got := ParseDurationOr("2h", time.Minute); got != 2*time.Hour {
		t.Errorf("got %s", got)
	}
	if got := ParseDurationOr("", time.Minute); got != time.Minute {
		t.Errorf("got %s", got)
	}
	if got := ParseDurationOr("bogus", time.Minute); got != time.Minute {
		t.Errorf("got %s", got)
	}
}
