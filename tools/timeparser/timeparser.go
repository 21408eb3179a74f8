package timeparser

import (
	"fmt"
	"time"
)

// ParseTelemetryTimestamp parses an incoming telemetry timestamp.
// Accepts RFC3339 with or without offset; naive timestamps are assumed
// to be UTC.
func ParseTelemetryTimestamp(value string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999", // naive, assumed UTC
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, value)
		if err == nil {
			if t.Location() == time.UTC {
				return t, nil
			}
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", value, lastErr)
}

// OrNow parses value when non-empty, falling back to now on empty or
// unparseable input.
func OrNow(value string, now time.Time) time.Time {
	if value == "" {
		return now
	}
	t, err := ParseTelemetryTimestamp(value)
	if err != nil {
		return now
	}
	return t
}
