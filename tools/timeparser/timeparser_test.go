package timeparser_test

import (
	"testing"
	"time"

	"fleetwatch/tools/timeparser"
)

func TestParseTelemetryTimestamp_RFC3339(t *testing.T) {
	got, err := timeparser.ParseTelemetryTimestamp("2025-06-01T12:00:00Z")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestParseTelemetryTimestamp_OffsetConvertedToUTC(t *testing.T) {
	got, err := timeparser.ParseTelemetryTimestamp("2025-06-01T14:00:00+02:00")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got.Location() != time.UTC {
		t.Error("Expected UTC location")
	}
}

func TestParseTelemetryTimestamp_NaiveAssumedUTC(t *testing.T) {
	got, err := timeparser.ParseTelemetryTimestamp("2025-06-01T12:00:00")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected naive timestamp read as UTC, got %v", got)
	}
}

func TestParseTelemetryTimestamp_SpaceSeparator(t *testing.T) {
	got, err := timeparser.ParseTelemetryTimestamp("2025-06-01 12:00:00")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Hour() != 12 {
		t.Errorf("Expected hour 12, got %d", got.Hour())
	}
}

func TestParseTelemetryTimestamp_Nanoseconds(t *testing.T) {
	got, err := timeparser.ParseTelemetryTimestamp("2025-06-01T12:00:00.123456789Z")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Nanosecond() != 123456789 {
		t.Errorf("Expected nanoseconds preserved, got %d", got.Nanosecond())
	}
}

func TestParseTelemetryTimestamp_Invalid(t *testing.T) {
	if _, err := timeparser.ParseTelemetryTimestamp("yesterday"); err == nil {
		t.Error("Expected error for unparseable timestamp")
	}
}

func TestOrNow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := timeparser.OrNow("", now); !got.Equal(now) {
		t.Error("Expected now for empty value")
	}
	if got := timeparser.OrNow("garbage", now); !got.Equal(now) {
		t.Error("Expected now for unparseable value")
	}
	want := time.Date(2025, 5, 31, 8, 30, 0, 0, time.UTC)
	if got := timeparser.OrNow("2025-05-31T08:30:00Z", now); !got.Equal(want) {
		t.Errorf("Expected parsed value, got %v", got)
	}
}
