package db

import (
	"fmt"
	"time"
)

const (
	// timeLayout is sortable as text and understood by SQLite date functions.
	timeLayout = "2006-01-02 15:04:05.000"

	sourceLocal = "sqlite"

	// maxHistoryAccounts is the number of account columns in usage_history.
	maxHistoryAccounts = 3
)

// parseLayouts lists the formats accepted when reading timestamps back.
var parseLayouts = []string{
	timeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
