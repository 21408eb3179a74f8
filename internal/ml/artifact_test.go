package ml_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"fleetwatch/internal/ml"
)

func TestLoadArtifact_RejectsShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	body := `{"version":1,"n_features":3,"classes":["normal","x"],
		"means":[0,0],"scales":[1,1,1],
		"coefficients":[[0,0,0],[0,0,0]],"intercepts":[0,0]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	if _, err := ml.LoadArtifact(path); err == nil {
		t.Error("Expected error for standardizer shape mismatch")
	}
}

func TestLoadArtifact_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	if _, err := ml.LoadArtifact(path); err == nil {
		t.Error("Expected error for unparseable artifact")
	}
}

func TestProbabilities_SumToOne(t *testing.T) {
	a := &ml.Artifact{
		Version:   1,
		NFeatures: 2,
		Classes:   []string{"normal", "high_engine_temp", "harsh_driving"},
		Means:     []float64{1, 2},
		Scales:    []float64{2, 4},
		Coefficients: [][]float64{
			{0.5, -0.25},
			{-1, 0.75},
			{0.1, 0.1},
		},
		Intercepts: []float64{0.1, -0.3, 0.2},
	}

	probs, err := a.Probabilities([]float64{3, 6})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	sum := 0.0
	for _, p := range probs {
		if p < 0 || p > 1 {
			t.Errorf("Probability out of range: %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("Expected probabilities to sum to 1, got %v", sum)
	}
}

func TestProbabilities_WrongVectorLength(t *testing.T) {
	a := &ml.Artifact{
		Version:      1,
		NFeatures:    2,
		Classes:      []string{"normal"},
		Means:        []float64{0, 0},
		Scales:       []float64{1, 1},
		Coefficients: [][]float64{{0, 0}},
		Intercepts:   []float64{0},
	}

	if _, err := a.Probabilities([]float64{1}); err == nil {
		t.Error("Expected error for wrong feature vector length")
	}
}
