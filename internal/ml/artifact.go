package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Artifact is a trained failure-predictor bundle: a standardizer and a
// multinomial logistic regression over feature vectors. Produced by the
// offline training job, consumed read-only here.
type Artifact struct {
	Version      int         `json:"version"`
	NFeatures    int         `json:"n_features"`
	Classes      []string    `json:"classes"`
	Means        []float64   `json:"means"`
	Scales       []float64   `json:"scales"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
}

// LoadArtifact reads and validates an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}
	return &a, nil
}

func (a *Artifact) validate() error {
	if a.NFeatures <= 0 {
		return fmt.Errorf("n_features must be positive, got %d", a.NFeatures)
	}
	if len(a.Classes) == 0 {
		return fmt.Errorf("no classes")
	}
	if len(a.Means) != a.NFeatures || len(a.Scales) != a.NFeatures {
		return fmt.Errorf("standardizer shape mismatch")
	}
	if len(a.Coefficients) != len(a.Classes) || len(a.Intercepts) != len(a.Classes) {
		return fmt.Errorf("coefficient shape mismatch")
	}
	for _, row := range a.Coefficients {
		if len(row) != a.NFeatures {
			return fmt.Errorf("coefficient row length %d, want %d", len(row), a.NFeatures)
		}
	}
	return nil
}

// Probabilities returns the class probability distribution for one
// feature vector via standardize, linear score, softmax.
func (a *Artifact) Probabilities(features []float64) ([]float64, error) {
	if len(features) != a.NFeatures {
		return nil, fmt.Errorf("feature vector length %d, want %d", len(features), a.NFeatures)
	}

	x := make([]float64, a.NFeatures)
	for i, f := range features {
		scale := a.Scales[i]
		if scale == 0 {
			scale = 1
		}
		x[i] = (f - a.Means[i]) / scale
	}

	logits := make([]float64, len(a.Classes))
	maxLogit := math.Inf(-1)
	for c := range a.Classes {
		score := a.Intercepts[c]
		for i, v := range x {
			score += a.Coefficients[c][i] * v
		}
		logits[c] = score
		if score > maxLogit {
			maxLogit = score
		}
	}

	var sum float64
	probs := make([]float64, len(logits))
	for c, l := range logits {
		probs[c] = math.Exp(l - maxLogit)
		sum += probs[c]
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("degenerate probability distribution")
	}
	for c := range probs {
		probs[c] /= sum
	}
	return probs, nil
}
