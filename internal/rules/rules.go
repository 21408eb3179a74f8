package rules

import (
	"fmt"
	"math"
	"time"

	"fleetwatch/internal/domain"
)

// Context carries the per-vehicle state two of the rules need beyond
// the reading window itself.
type Context struct {
	Vehicle           *domain.Vehicle
	LastCompletedTask *domain.MaintenanceTask
	Now               time.Time
	Thresholds        Thresholds
}

// Rule is one deterministic check over a reading window. Rules are pure
// functions of their inputs; a rule that cannot evaluate returns nil.
type Rule interface {
	Name() string
	Evaluate(window []domain.Reading, ctx *Context) *domain.Candidate
}

func confidence(v float64) *float64 {
	return &v
}

// highEngineTempRule fires when any of the 5 most recent readings is at
// or above the temperature threshold. Severity escalates to critical at
// threshold+10.
type highEngineTempRule struct{}

func (highEngineTempRule) Name() string { return "high_engine_temp" }

func (highEngineTempRule) Evaluate(window []domain.Reading, ctx *Context) *domain.Candidate {
	thresh := ctx.Thresholds.EngineTempHighC
	n := len(window)
	if n > 5 {
		n = 5
	}
	for _, r := range window[:n] {
		if r.EngineTempC == nil {
			continue
		}
		t := *r.EngineTempC
		if t < thresh {
			continue
		}
		severity := domain.SeverityHigh
		if t >= thresh+10 {
			severity = domain.SeverityCritical
		}
		return &domain.Candidate{
			Type:          domain.AlertHighEngineTemp,
			Severity:      severity,
			Message:       fmt.Sprintf("Engine temperature high (%.1f °C). Recommend inspection.", t),
			Confidence:    confidence(0.95),
			TimeframeText: "Immediate",
		}
	}
	return nil
}

// anomalousFuelRule fires when fuel level drops too fast across the
// most recent window.
type anomalousFuelRule struct{}

func (anomalousFuelRule) Name() string { return "anomalous_fuel" }

func (anomalousFuelRule) Evaluate(window []domain.Reading, ctx *Context) *domain.Candidate {
	size := ctx.Thresholds.FuelWindowSize
	if len(window) < size {
		return nil
	}
	var fuels []float64
	for _, r := range window[:size] {
		if r.FuelLevelPct != nil {
			fuels = append(fuels, *r.FuelLevelPct)
		}
	}
	if len(fuels) < 2 {
		return nil
	}
	// Window is newest-first: earliest minus latest is last minus first.
	drop := fuels[len(fuels)-1] - fuels[0]
	if drop >= ctx.Thresholds.FuelDropPct {
		return &domain.Candidate{
			Type:       domain.AlertAnomalousFuel,
			Severity:   domain.SeverityHigh,
			Message:    fmt.Sprintf("Rapid fuel drop (%.1f%% in window). Possible leak or anomaly.", drop),
			Confidence: confidence(0.75),
		}
	}
	return nil
}

// harshDrivingRule fires on high speed variance in a short window.
type harshDrivingRule struct{}

func (harshDrivingRule) Name() string { return "harsh_driving" }

func (harshDrivingRule) Evaluate(window []domain.Reading, ctx *Context) *domain.Candidate {
	size := ctx.Thresholds.SpeedWindowSize
	if len(window) < size {
		return nil
	}
	speeds := make([]float64, 0, size)
	for _, r := range window[:size] {
		if r.SpeedKmh != nil {
			speeds = append(speeds, *r.SpeedKmh)
		} else {
			speeds = append(speeds, 0)
		}
	}
	if len(speeds) < 2 {
		return nil
	}
	if populationStd(speeds) >= ctx.Thresholds.SpeedVarianceKmh {
		return &domain.Candidate{
			Type:       domain.AlertHarshDriving,
			Severity:   domain.SeverityMedium,
			Message:    "Harsh acceleration/braking detected. Consider smoother driving.",
			Confidence: confidence(0.70),
		}
	}
	return nil
}

// prolongedIdleRule fires after a consecutive run of low-rpm low-speed
// readings. A single non-idle reading resets the run.
type prolongedIdleRule struct{}

func (prolongedIdleRule) Name() string { return "prolonged_idle" }

func (prolongedIdleRule) Evaluate(window []domain.Reading, ctx *Context) *domain.Candidate {
	minRun := ctx.Thresholds.IdleMinutes / 2
	if minRun < 5 {
		minRun = 5
	}
	if len(window) < minRun {
		return nil
	}
	run := 0
	for _, r := range window {
		speed := 0.0
		if r.SpeedKmh != nil {
			speed = *r.SpeedKmh
		}
		if r.RPM != nil && *r.RPM <= ctx.Thresholds.IdleRPMMax && speed <= ctx.Thresholds.IdleSpeedMaxKmh {
			run++
		} else {
			run = 0
		}
		if run >= minRun {
			return &domain.Candidate{
				Type:       domain.AlertProlongedIdle,
				Severity:   domain.SeverityLow,
				Message:    "Prolonged idling detected. Consider reducing engine idle time.",
				Confidence: confidence(0.80),
			}
		}
	}
	return nil
}

// maintenanceMileageRule fires when current mileage is within the
// buffer of (or past) the next type-specific service mileage.
type maintenanceMileageRule struct{}

func (maintenanceMileageRule) Name() string { return "maintenance_mileage" }

func (maintenanceMileageRule) Evaluate(window []domain.Reading, ctx *Context) *domain.Candidate {
	v := ctx.Vehicle
	if v == nil || v.MaintenanceIntervalKm == 0 || v.CurrentMileage == 0 {
		return nil
	}
	var lastMileage int64
	if ctx.LastCompletedTask != nil && ctx.LastCompletedTask.MileageAtMaintenance != nil {
		lastMileage = *ctx.LastCompletedTask.MileageAtMaintenance
	}
	nextDue := lastMileage + v.MaintenanceIntervalKm
	if v.CurrentMileage < nextDue-ctx.Thresholds.MaintenanceKmBuffer {
		return nil
	}
	kmLeft := nextDue - v.CurrentMileage
	if kmLeft < 0 {
		kmLeft = 0
	}
	return &domain.Candidate{
		Type:          domain.AlertMaintenanceMileage,
		Severity:      domain.SeverityMedium,
		Message:       fmt.Sprintf("Preventive maintenance due soon (next due ~%d km, current %d km).", nextDue, v.CurrentMileage),
		Confidence:    confidence(0.90),
		TimeframeText: fmt.Sprintf("In %d km", kmLeft),
	}
}

// maintenanceTimeRule fires when the calendar interval since the last
// completed service is nearly elapsed. Never fires without a completed
// task on record.
type maintenanceTimeRule struct{}

func (maintenanceTimeRule) Name() string { return "maintenance_time" }

func (maintenanceTimeRule) Evaluate(window []domain.Reading, ctx *Context) *domain.Candidate {
	v := ctx.Vehicle
	if v == nil || v.MaintenanceIntervalDays == 0 {
		return nil
	}
	task := ctx.LastCompletedTask
	if task == nil || task.CompletionDate == nil {
		return nil
	}
	since := int64(ctx.Now.Sub(*task.CompletionDate).Hours() / 24)
	interval := v.MaintenanceIntervalDays
	if since < interval-int64(ctx.Thresholds.MaintenanceDaysBuffer) {
		return nil
	}
	daysLeft := interval - since
	if daysLeft < 0 {
		daysLeft = 0
	}
	return &domain.Candidate{
		Type:          domain.AlertMaintenanceTime,
		Severity:      domain.SeverityMedium,
		Message:       fmt.Sprintf("Preventive maintenance due by time (interval %d days, %d days since last).", interval, since),
		Confidence:    confidence(0.90),
		TimeframeText: fmt.Sprintf("Next %d days", daysLeft),
	}
}

// statisticalAnomalyRule fires when the latest temperature or RPM
// deviates from the window mean by at least K standard deviations.
// Temperature is checked first; only the first match is returned.
type statisticalAnomalyRule struct{}

func (statisticalAnomalyRule) Name() string { return "statistical_anomaly" }

func (statisticalAnomalyRule) Evaluate(window []domain.Reading, ctx *Context) *domain.Candidate {
	size := ctx.Thresholds.AnomalyWindowSize
	k := ctx.Thresholds.AnomalyStdMultiplier
	if len(window) < size {
		return nil
	}

	var temps, rpms []float64
	for _, r := range window[:size] {
		if r.EngineTempC != nil {
			temps = append(temps, *r.EngineTempC)
		}
		if r.RPM != nil {
			rpms = append(rpms, float64(*r.RPM))
		}
	}
	latest := window[0]

	if len(temps) >= 5 && latest.EngineTempC != nil {
		mean := meanOf(temps)
		std := populationStd(temps)
		if std > 0 && math.Abs(*latest.EngineTempC-mean) >= k*std {
			return &domain.Candidate{
				Type:       domain.AlertStatisticalAnomaly,
				Severity:   domain.SeverityMedium,
				Message:    fmt.Sprintf("Engine temperature anomaly (%.1f °C vs recent mean %.1f).", *latest.EngineTempC, mean),
				Confidence: confidence(0.65),
			}
		}
	}
	if len(rpms) >= 5 && latest.RPM != nil {
		mean := meanOf(rpms)
		std := populationStd(rpms)
		if std > 0 && math.Abs(float64(*latest.RPM)-mean) >= k*std {
			return &domain.Candidate{
				Type:       domain.AlertStatisticalAnomaly,
				Severity:   domain.SeverityLow,
				Message:    fmt.Sprintf("RPM anomaly (%d vs recent mean %.0f).", *latest.RPM, mean),
				Confidence: confidence(0.60),
			}
		}
	}
	return nil
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	varSum := 0.0
	for _, v := range values {
		d := v - mean
		varSum += d * d
	}
	return math.Sqrt(varSum / float64(len(values)))
}
