package dataset_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"fleetwatch/internal/dataset"
	"fleetwatch/internal/domain"
	"fleetwatch/internal/features"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestBuilder(windowSize int) *dataset.Builder {
	return dataset.NewBuilder(nil, features.NewExtractor(windowSize), zap.NewNop())
}

// makeReadings returns n readings newest first, one minute apart.
func makeReadings(n int) []domain.Reading {
	readings := make([]domain.Reading, n)
	for i := 0; i < n; i++ {
		readings[i] = domain.Reading{
			VehicleID: 1,
			Timestamp: testNow.Add(-time.Duration(i) * time.Minute),
		}
	}
	return readings
}

func alertAt(alertType domain.AlertType, at time.Time) domain.Alert {
	return domain.Alert{VehicleID: 1, Type: alertType, CreatedAt: at}
}

func TestWindowSamples_SlidesByStep(t *testing.T) {
	b := newTestBuilder(5)

	samples := b.WindowSamples(makeReadings(12), nil, 5, 5)

	if len(samples) != 2 {
		t.Fatalf("Expected 2 windows from 12 readings, got %d", len(samples))
	}
	for _, s := range samples {
		if len(s.Features) != features.NewExtractor(5).Length() {
			t.Errorf("Expected full feature vector, got %d values", len(s.Features))
		}
		if s.Label != "normal" {
			t.Errorf("Expected label 'normal' without alerts, got '%s'", s.Label)
		}
	}
}

func TestWindowSamples_TooFewReadings(t *testing.T) {
	b := newTestBuilder(5)

	if samples := b.WindowSamples(makeReadings(4), nil, 5, 1); len(samples) != 0 {
		t.Errorf("Expected no windows below the window size, got %d", len(samples))
	}
}

func TestWindowSamples_LabelsWindowBeforeAlert(t *testing.T) {
	b := newTestBuilder(5)
	readings := makeReadings(10)

	// First window spans readings 0..4; its trailing timestamp is 4
	// minutes before testNow. An alert 2 minutes after that boundary
	// labels it.
	boundary := readings[4].Timestamp
	alerts := []domain.Alert{
		alertAt(domain.AlertHighEngineTemp, boundary.Add(2*time.Minute)),
	}

	samples := b.WindowSamples(readings, alerts, 5, 5)

	if len(samples) != 2 {
		t.Fatalf("Expected 2 windows, got %d", len(samples))
	}
	if samples[0].Label != "high_engine_temp" {
		t.Errorf("Expected first window labeled high_engine_temp, got '%s'", samples[0].Label)
	}
	if samples[1].Label != "normal" {
		t.Errorf("Expected second window labeled normal, got '%s'", samples[1].Label)
	}
}

func TestWindowSamples_AlertBeyondDeltaIsNormal(t *testing.T) {
	b := newTestBuilder(5)
	readings := makeReadings(5)
	boundary := readings[4].Timestamp
	alerts := []domain.Alert{
		alertAt(domain.AlertHighEngineTemp, boundary.Add(6*time.Minute)),
	}

	samples := b.WindowSamples(readings, alerts, 5, 1)

	if len(samples) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(samples))
	}
	if samples[0].Label != "normal" {
		t.Errorf("Expected 'normal' for an alert past the 5 minute delta, got '%s'", samples[0].Label)
	}
}

func TestWindowSamples_AlertBeforeWindowIgnored(t *testing.T) {
	b := newTestBuilder(5)
	readings := makeReadings(5)
	boundary := readings[4].Timestamp
	alerts := []domain.Alert{
		alertAt(domain.AlertAnomalousFuel, boundary.Add(-time.Hour)),
		alertAt(domain.AlertHighEngineTemp, boundary.Add(time.Minute)),
	}

	samples := b.WindowSamples(readings, alerts, 5, 1)

	if len(samples) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(samples))
	}
	if samples[0].Label != "high_engine_temp" {
		t.Errorf("Expected the first alert at or after the boundary to label, got '%s'", samples[0].Label)
	}
}
