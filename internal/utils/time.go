package utils

import (
	"fmt"
	"strings"
	"time"
)

const layoutDateTime = "2006-01-02 15:04:05"

// ParseDepartureTime accepts RFC3339 or "YYYY-MM-DD HH:MM:SS" (local).
func ParseDepartureTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(layoutDateTime, s, time.Local)
}

// FormatDateTime formats time to "YYYY-MM-DD HH:MM:SS" in local timezone.
func FormatDateTime(t time.Time) string {
	return t.In(time.Local).Format(layoutDateTime)
}
