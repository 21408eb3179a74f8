package dataset

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/features"
)

// labelDelta is how soon after a window an alert must have been created
// to label that window with its type.
const labelDelta = 5 * time.Minute

// Sample is one labeled feature vector.
type Sample struct {
	Features []float64 `json:"features"`
	Label    string    `json:"label"`
}

// Store is the read surface the builder needs.
type Store interface {
	ActiveVehicleIDs(ctx context.Context) ([]int64, error)
	ReadingsSince(ctx context.Context, vehicleID int64, since time.Time) ([]domain.Reading, error)
	AlertsSince(ctx context.Context, vehicleID int64, since time.Time) ([]domain.Alert, error)
}

// Builder turns historical telemetry and alerts into a labeled training
// set using the same feature contract the online predictor uses.
type Builder struct {
	store     Store
	extractor *features.Extractor
	logger    *zap.Logger
}

// NewBuilder creates a dataset builder.
func NewBuilder(store Store, extractor *features.Extractor, logger *zap.Logger) *Builder {
	return &Builder{store: store, extractor: extractor, logger: logger}
}

// Build slides windows over each vehicle's history (newest first,
// advancing by step readings) and labels each window with the first
// alert created within labelDelta after the window's trailing
// timestamp, else "normal".
func (b *Builder) Build(ctx context.Context, days, windowSize, step int) ([]Sample, error) {
	if windowSize <= 0 {
		windowSize = features.DefaultWindowSize
	}
	if step < 1 {
		step = 1
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	vehicleIDs, err := b.store.ActiveVehicleIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	var samples []Sample
	for _, vehicleID := range vehicleIDs {
		readings, err := b.store.ReadingsSince(ctx, vehicleID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to load readings for vehicle %d: %w", vehicleID, err)
		}
		if len(readings) < windowSize {
			continue
		}
		alerts, err := b.store.AlertsSince(ctx, vehicleID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to load alerts for vehicle %d: %w", vehicleID, err)
		}

		vehicleSamples := b.WindowSamples(readings, alerts, windowSize, step)
		samples = append(samples, vehicleSamples...)

		b.logger.Debug("dataset windows built",
			zap.Int64("vehicle_id", vehicleID),
			zap.Int("windows", len(vehicleSamples)),
		)
	}
	return samples, nil
}

// WindowSamples is the pure windowing and labeling core. Readings are
// newest first; alerts are oldest first.
func (b *Builder) WindowSamples(readings []domain.Reading, alerts []domain.Alert, windowSize, step int) []Sample {
	var samples []Sample
	for idx := 0; idx+windowSize <= len(readings); idx += step {
		window := readings[idx : idx+windowSize]
		lastTS := window[len(window)-1].Timestamp

		label := "normal"
		for _, alert := range alerts {
			if alert.CreatedAt.Before(lastTS) {
				continue
			}
			if alert.CreatedAt.Sub(lastTS) <= labelDelta {
				label = string(alert.Type)
			}
			break
		}

		samples = append(samples, Sample{
			Features: b.extractor.Extract(window),
			Label:    label,
		})
	}
	return samples
}
