// Package timeparse turns user-supplied date expressions into instants. It
// accepts absolute dates (2026-08-01, RFC 3339) and natural-language forms
// ("yesterday", "3 days ago", "last monday").
package timeparse

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/steveyegge/lb/internal/types"
)

var parser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// Parse resolves expr to a time, trying fixed layouts before the
// natural-language parser.
func Parse(expr string, now time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", types.ErrValidation)
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, expr); err == nil {
			return t.UTC(), nil
		}
	}

	result, err := parser.Parse(expr, now)
	if err == nil && result != nil {
		return result.Time.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse date %q", types.ErrValidation, expr)
}
