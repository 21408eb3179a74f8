package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reading is one timestamped telemetry sample for a vehicle. Optional
// sensor fields are pointers: nil means the sample did not carry them.
type Reading struct {
	ID        uuid.UUID
	VehicleID int64
	Timestamp time.Time

	SpeedKmh     *float64
	FuelLevelPct *float64
	EngineTempC  *float64
	Latitude     *float64
	Longitude    *float64
	RPM          *int64
	Mileage      *int64
	Voltage      *float64
	ThrottlePct  *float64
	BrakeStatus  *bool
}

type AlertType string

const (
	AlertHighEngineTemp     AlertType = "high_engine_temp"
	AlertAnomalousFuel      AlertType = "anomalous_fuel"
	AlertHarshDriving       AlertType = "harsh_driving"
	AlertProlongedIdle      AlertType = "prolonged_idle"
	AlertMaintenanceMileage AlertType = "maintenance_mileage"
	AlertMaintenanceTime    AlertType = "maintenance_time"
	AlertStatisticalAnomaly AlertType = "statistical_anomaly"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Candidate is a detected condition not yet persisted as an alert.
type Candidate struct {
	Type          AlertType
	Severity      Severity
	Message       string
	Confidence    *float64
	TimeframeText string
}

// Alert is a persisted candidate.
type Alert struct {
	ID            uuid.UUID
	VehicleID     int64
	Type          AlertType
	Severity      Severity
	Message       string
	Confidence    *float64
	TimeframeText string
	CreatedAt     time.Time
	ReadAt        *time.Time
}
