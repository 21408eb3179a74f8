package features

import (
	"math"
	"time"

	"fleetwatch/internal/domain"
)

// DefaultWindowSize is the number of readings a feature window covers.
const DefaultWindowSize = 20

const fill = 0.0

// Extractor builds fixed-length feature vectors from reading windows.
// The same extractor is used for dataset construction and online
// inference; for a given window size its output length never changes,
// since trained artifacts are shape-dependent.
type Extractor struct {
	windowSize int
}

// NewExtractor creates an extractor over windows of the given size.
// A non-positive size falls back to DefaultWindowSize.
func NewExtractor(windowSize int) *Extractor {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Extractor{windowSize: windowSize}
}

// Length returns the vector length this extractor produces:
// 4 sensor keys x 4 stats, plus time span, reading count, and the
// temperature and fuel slopes.
func (e *Extractor) Length() int {
	return 4*4 + 2 + 2
}

// Extract builds the feature vector for a window of readings ordered
// newest first. Only the first windowSize readings are used. Missing
// values are filled with zero; the output never contains NaN or Inf.
func (e *Extractor) Extract(readings []domain.Reading) []float64 {
	window := readings
	if len(window) > e.windowSize {
		window = window[:e.windowSize]
	}

	features := make([]float64, 0, e.Length())

	speeds := collect(window, func(r *domain.Reading) *float64 { return r.SpeedKmh })
	fuels := collect(window, func(r *domain.Reading) *float64 { return r.FuelLevelPct })
	temps := collect(window, func(r *domain.Reading) *float64 { return r.EngineTempC })
	rpms := collect(window, func(r *domain.Reading) *float64 {
		if r.RPM == nil {
			return nil
		}
		v := float64(*r.RPM)
		return &v
	})

	for _, values := range [][]float64{speeds, fuels, temps, rpms} {
		mean, std, mn, mx := aggregate(values)
		features = append(features, mean, std, mn, mx)
	}

	timestamps := make([]float64, len(window))
	for i := range window {
		timestamps[i] = float64(window[i].Timestamp.UnixNano()) / float64(time.Second)
	}

	timeSpan := fill
	if len(timestamps) >= 2 {
		mn, mx := timestamps[0], timestamps[0]
		for _, t := range timestamps[1:] {
			if t < mn {
				mn = t
			}
			if t > mx {
				mx = t
			}
		}
		timeSpan = mx - mn
	}
	features = append(features, timeSpan, float64(len(window)))

	tempSlope, fuelSlope := fill, fill
	if len(window) >= 2 {
		// Window is newest-first; reverse timestamps so x ascends.
		ascending := make([]float64, len(timestamps))
		for i, t := range timestamps {
			ascending[len(timestamps)-1-i] = t
		}
		tempSlope = slope(ascending, temps)
		fuelSlope = slope(ascending, fuels)
	}
	features = append(features, tempSlope, fuelSlope)

	for i, f := range features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			features[i] = fill
		}
	}
	return features
}

func collect(window []domain.Reading, get func(*domain.Reading) *float64) []float64 {
	values := make([]float64, len(window))
	for i := range window {
		if v := get(&window[i]); v != nil {
			values[i] = *v
		} else {
			values[i] = fill
		}
	}
	return values
}

// aggregate returns (mean, population std, min, max), zero for an
// empty input. Std is zero for a single sample.
func aggregate(values []float64) (float64, float64, float64, float64) {
	finite := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return fill, fill, fill, fill
	}

	sum := 0.0
	mn, mx := finite[0], finite[0]
	for _, v := range finite {
		sum += v
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	mean := sum / float64(len(finite))

	std := 0.0
	if len(finite) > 1 {
		varSum := 0.0
		for _, v := range finite {
			d := v - mean
			varSum += d * d
		}
		std = math.Sqrt(varSum / float64(len(finite)))
	}
	return mean, std, mn, mx
}

// slope computes the least-squares slope of y over x. Returns zero when
// fewer than two usable points exist or the x spread is zero.
func slope(x, y []float64) float64 {
	if len(x) < 2 || len(y) < 2 || len(x) != len(y) {
		return fill
	}

	var n, sumX, sumY, sumXY, sumXX float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		n++
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}
	if n < 2 {
		return fill
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return fill
	}
	return (n*sumXY - sumX*sumY) / denom
}
