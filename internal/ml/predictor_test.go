package ml_test

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/features"
	"fleetwatch/internal/ml"
)

const testThreshold = 0.5

func testExtractor() *features.Extractor {
	return features.NewExtractor(features.DefaultWindowSize)
}

func testWindow() []domain.Reading {
	window := make([]domain.Reading, features.DefaultWindowSize)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := range window {
		window[i] = domain.Reading{
			VehicleID: 1,
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return window
}

// writeArtifact writes an artifact whose class scores are driven purely
// by intercepts, so any feature vector yields the same distribution.
func writeArtifact(t *testing.T, classes []string, intercepts []float64, nFeatures int) string {
	t.Helper()

	a := ml.Artifact{
		Version:    1,
		NFeatures:  nFeatures,
		Classes:    classes,
		Means:      make([]float64, nFeatures),
		Scales:     make([]float64, nFeatures),
		Intercepts: intercepts,
	}
	for i := range a.Scales {
		a.Scales[i] = 1
	}
	for range classes {
		a.Coefficients = append(a.Coefficients, make([]float64, nFeatures))
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Failed to marshal artifact: %v", err)
	}
	path := filepath.Join(t.TempDir(), "predictor.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}
	return path
}

func TestPredict_MissingArtifact(t *testing.T) {
	p := ml.NewPredictor("/nonexistent/predictor.json", testThreshold, testExtractor(), zap.NewNop())

	if got := p.Predict(testWindow()); len(got) != 0 {
		t.Errorf("Expected no predictions without an artifact, got %d", len(got))
	}
}

func TestPredict_EmptyPath(t *testing.T) {
	p := ml.NewPredictor("", testThreshold, testExtractor(), zap.NewNop())

	if got := p.Predict(testWindow()); len(got) != 0 {
		t.Errorf("Expected no predictions with no artifact configured, got %d", len(got))
	}
}

func TestPredict_ExcludesNormalClass(t *testing.T) {
	extractor := testExtractor()
	// Softmax of intercepts [0, 2] puts ~0.88 on high_engine_temp.
	path := writeArtifact(t, []string{"normal", "high_engine_temp"}, []float64{0, 2}, extractor.Length())
	p := ml.NewPredictor(path, testThreshold, extractor, zap.NewNop())

	got := p.Predict(testWindow())

	if len(got) != 1 {
		t.Fatalf("Expected exactly one prediction, got %d", len(got))
	}
	if got[0].Type != domain.AlertHighEngineTemp {
		t.Errorf("Expected high_engine_temp, got %s", got[0].Type)
	}
	want := math.Exp(2) / (1 + math.Exp(2))
	if math.Abs(got[0].Probability-want) > 1e-9 {
		t.Errorf("Expected probability %v, got %v", want, got[0].Probability)
	}
}

func TestPredict_ThresholdFiltersLowConfidence(t *testing.T) {
	extractor := testExtractor()
	path := writeArtifact(t, []string{"normal", "high_engine_temp"}, []float64{0, 2}, extractor.Length())
	p := ml.NewPredictor(path, 0.95, extractor, zap.NewNop())

	if got := p.Predict(testWindow()); len(got) != 0 {
		t.Errorf("Expected no predictions above threshold 0.95, got %d", len(got))
	}
}

func TestPredict_SortedByProbabilityDescending(t *testing.T) {
	extractor := testExtractor()
	path := writeArtifact(t,
		[]string{"normal", "harsh_driving", "prolonged_idle"},
		[]float64{-10, 3, 5},
		extractor.Length())
	p := ml.NewPredictor(path, 0.05, extractor, zap.NewNop())

	got := p.Predict(testWindow())

	if len(got) != 2 {
		t.Fatalf("Expected two predictions, got %d", len(got))
	}
	if got[0].Type != domain.AlertProlongedIdle || got[1].Type != domain.AlertHarshDriving {
		t.Errorf("Expected descending probability order, got %s then %s", got[0].Type, got[1].Type)
	}
	if got[0].Probability < got[1].Probability {
		t.Error("Expected probabilities sorted descending")
	}
}

func TestPredict_ShapeMismatchDegrades(t *testing.T) {
	path := writeArtifact(t, []string{"normal", "high_engine_temp"}, []float64{0, 2}, 3)
	p := ml.NewPredictor(path, testThreshold, testExtractor(), zap.NewNop())

	if got := p.Predict(testWindow()); len(got) != 0 {
		t.Errorf("Expected no predictions for a shape-mismatched artifact, got %d", len(got))
	}
}

func TestReset_ReloadsArtifact(t *testing.T) {
	extractor := testExtractor()
	dir := t.TempDir()
	path := filepath.Join(dir, "predictor.json")
	p := ml.NewPredictor(path, testThreshold, extractor, zap.NewNop())

	if got := p.Predict(testWindow()); len(got) != 0 {
		t.Fatalf("Expected no predictions before the artifact exists, got %d", len(got))
	}

	src := writeArtifact(t, []string{"normal", "high_engine_temp"}, []float64{0, 2}, extractor.Length())
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to install artifact: %v", err)
	}

	if got := p.Predict(testWindow()); len(got) != 0 {
		t.Errorf("Expected the missing-artifact result to stay cached, got %d", len(got))
	}

	p.Reset()

	if got := p.Predict(testWindow()); len(got) != 1 {
		t.Errorf("Expected one prediction after reset, got %d", len(got))
	}
}
