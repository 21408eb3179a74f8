package health

import (
	"context"
	"fmt"
	"time"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/rules"
)

// Status is the derived three-level vehicle health indicator.
type Status string

const (
	StatusRed    Status = "red"
	StatusYellow Status = "yellow"
	StatusGreen  Status = "green"
)

// Snapshot is the result of one health read.
type Snapshot struct {
	Status   Status   `json:"status"`
	Reasons  []string `json:"reasons"`
	EngineOn bool     `json:"engine_on"`
}

// Store is the read surface the aggregator needs.
type Store interface {
	HasUnreadAlertSince(ctx context.Context, vehicleID int64, severity domain.Severity, since time.Time) (bool, error)
	HasOverdueTask(ctx context.Context, vehicleID int64, before time.Time) (bool, error)
	HasTaskDueBy(ctx context.Context, vehicleID int64, by time.Time) (bool, error)
	HasHighTempReadingSince(ctx context.Context, vehicleID int64, since time.Time, threshold float64) (bool, error)
}

// Options tune the aggregation windows.
type Options struct {
	AlertLookback     time.Duration
	DueSoonHorizon    time.Duration
	RecentTempWindow  time.Duration
	EngineOnThreshold time.Duration
}

// DefaultOptions returns the reference windows: 7 day alert lookback,
// 14 day due-soon horizon, 24 hour temperature window.
func DefaultOptions() Options {
	return Options{
		AlertLookback:     7 * 24 * time.Hour,
		DueSoonHorizon:    14 * 24 * time.Hour,
		RecentTempWindow:  24 * time.Hour,
		EngineOnThreshold: 90 * time.Second,
	}
}

// Aggregator computes vehicle health on read. It keeps no state of its
// own and is safe to call at arbitrary frequency.
type Aggregator struct {
	store      Store
	thresholds rules.ThresholdSource
	opts       Options
}

// NewAggregator creates a health aggregator. The threshold source
// supplies the same high-temperature threshold the rule battery uses.
func NewAggregator(store Store, thresholds rules.ThresholdSource, opts Options) *Aggregator {
	return &Aggregator{store: store, thresholds: thresholds, opts: opts}
}

// Evaluate returns the health snapshot for a vehicle.
// Red: unread critical alert within the lookback, or overdue scheduled
// maintenance. Yellow: unread high alert, maintenance due within the
// horizon, or a high-temperature reading in the recent window. Green
// otherwise. Red findings short-circuit the yellow checks.
func (a *Aggregator) Evaluate(ctx context.Context, vehicle *domain.Vehicle, now time.Time) (*Snapshot, error) {
	since := now.Add(-a.opts.AlertLookback)
	engineOn := vehicle.EngineOn(now, a.opts.EngineOnThreshold)

	var reasons []string

	critical, err := a.store.HasUnreadAlertSince(ctx, vehicle.ID, domain.SeverityCritical, since)
	if err != nil {
		return nil, fmt.Errorf("failed to check critical alerts: %w", err)
	}
	if critical {
		reasons = append(reasons, "Unread critical alert")
	}

	overdue, err := a.store.HasOverdueTask(ctx, vehicle.ID, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("failed to check overdue maintenance: %w", err)
	}
	if overdue {
		reasons = append(reasons, "Maintenance overdue")
	}

	if len(reasons) > 0 {
		return &Snapshot{Status: StatusRed, Reasons: reasons, EngineOn: engineOn}, nil
	}

	high, err := a.store.HasUnreadAlertSince(ctx, vehicle.ID, domain.SeverityHigh, since)
	if err != nil {
		return nil, fmt.Errorf("failed to check high alerts: %w", err)
	}
	if high {
		reasons = append(reasons, "Unread high-severity alert")
	}

	dueSoon, err := a.store.HasTaskDueBy(ctx, vehicle.ID, startOfDay(now).Add(a.opts.DueSoonHorizon))
	if err != nil {
		return nil, fmt.Errorf("failed to check upcoming maintenance: %w", err)
	}
	if dueSoon {
		reasons = append(reasons, fmt.Sprintf("Maintenance due within %d days", int(a.opts.DueSoonHorizon.Hours()/24)))
	}

	highTemp, err := a.store.HasHighTempReadingSince(ctx, vehicle.ID, now.Add(-a.opts.RecentTempWindow), a.thresholds.Current().EngineTempHighC)
	if err != nil {
		return nil, fmt.Errorf("failed to check recent telemetry: %w", err)
	}
	if highTemp {
		reasons = append(reasons, "Recent high engine temperature")
	}

	if len(reasons) > 0 {
		return &Snapshot{Status: StatusYellow, Reasons: reasons, EngineOn: engineOn}, nil
	}

	return &Snapshot{Status: StatusGreen, Reasons: []string{"No issues detected"}, EngineOn: engineOn}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
