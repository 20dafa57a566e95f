package timeparse

import (
	"errors"
	"testing"
	"time"

	"github.com/steveyegge/lb/internal/types"
)

func TestParseFixedLayouts(t *testing.T) {
	now := time.Date(2026, 8, 6, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		expr string
		want time.Time
	}{
		{"2026-08-01", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{"2026/08/01", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-08-01T10:30:00Z", time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)},
		{"2026-08-01T10:30:00", time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)},
		{"2026-08-01 10:30", time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)},
		{"  2026-08-01  ", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.expr, now)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestParseNaturalLanguage(t *testing.T) {
	now := time.Date(2026, 8, 6, 15, 0, 0, 0, time.UTC)

	got, err := Parse("yesterday", now)
	if err != nil {
		t.Fatalf("Parse(yesterday): %v", err)
	}
	if got.Day() != 5 || got.Month() != time.August {
		t.Errorf("Parse(yesterday) = %v, want August 5", got)
	}

	got, err = Parse("3 days ago", now)
	if err != nil {
		t.Fatalf("Parse(3 days ago): %v", err)
	}
	if got.Day() != 3 {
		t.Errorf("Parse(3 days ago) = %v, want August 3", got)
	}
}

func TestParseInvalid(t *testing.T) {
	now := time.Now()
	for _, expr := range []string{"", "   ", "not a date at all xyzzy"} {
		_, err := Parse(expr, now)
		if err == nil {
			t.Errorf("Parse(%q) = nil error, want validation error", expr)
			continue
		}
		if !errors.Is(err, types.ErrValidation) {
			t.Errorf("Parse(%q) error = %v, want ErrValidation", expr, err)
		}
	}
}
