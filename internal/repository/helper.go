package repository

import (
	"fmt"
	"strings"
	"time"
)

// timeLayout is a fixed-width UTC layout, so stored timestamps order
// lexicographically the same way they order in time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// dateLayout is used for day-granular columns.
const dateLayout = "2006-01-02"

// FormatTime renders t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses a date string in "2006-01-02", the storage layout or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range []string{dateLayout, timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %q", str)
}

// placeholders returns "?,?,...,?" with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
