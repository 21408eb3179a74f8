package ml

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/features"
)

// Prediction is one classifier output above the confidence threshold.
type Prediction struct {
	Type        domain.AlertType
	Probability float64
}

// Predictor runs the failure-prediction artifact over reading windows.
// A missing or unreadable artifact degrades to "no predictions"; it is
// never an error surfaced to callers.
type Predictor struct {
	path      string
	threshold float64
	extractor *features.Extractor
	logger    *zap.Logger

	mu       sync.Mutex
	loaded   bool
	artifact *Artifact
}

// NewPredictor creates a predictor for the artifact at path. The
// artifact is loaded lazily on first use and cached for the process
// lifetime.
func NewPredictor(path string, threshold float64, extractor *features.Extractor, logger *zap.Logger) *Predictor {
	return &Predictor{
		path:      path,
		threshold: threshold,
		extractor: extractor,
		logger:    logger,
	}
}

func (p *Predictor) model() *Artifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.artifact
	}
	p.loaded = true
	if p.path == "" {
		return nil
	}
	a, err := LoadArtifact(p.path)
	if err != nil {
		p.logger.Warn("failure predictor unavailable", zap.String("path", p.path), zap.Error(err))
		return nil
	}
	if a.NFeatures != p.extractor.Length() {
		p.logger.Warn("failure predictor shape mismatch",
			zap.Int("artifact_features", a.NFeatures),
			zap.Int("extractor_features", p.extractor.Length()))
		return nil
	}
	p.artifact = a
	return p.artifact
}

// Reset drops the cached artifact so the next call reloads it.
func (p *Predictor) Reset() {
	p.mu.Lock()
	p.loaded = false
	p.artifact = nil
	p.mu.Unlock()
}

// Predict returns (alert type, probability) pairs for every class
// except "normal" whose probability meets the threshold, sorted by
// probability descending. Any failure yields an empty result.
func (p *Predictor) Predict(window []domain.Reading) []Prediction {
	artifact := p.model()
	if artifact == nil {
		return nil
	}

	probs, err := artifact.Probabilities(p.extractor.Extract(window))
	if err != nil {
		p.logger.Warn("failure predictor inference failed", zap.Error(err))
		return nil
	}

	var out []Prediction
	for i, class := range artifact.Classes {
		if strings.EqualFold(class, "normal") {
			continue
		}
		if probs[i] >= p.threshold {
			out = append(out, Prediction{
				Type:        domain.AlertType(class),
				Probability: probs[i],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	return out
}
