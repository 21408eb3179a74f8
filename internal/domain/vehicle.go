package domain

import "time"

type VehicleStatus string

const (
	StatusActive           VehicleStatus = "active"
	StatusInactive         VehicleStatus = "inactive"
	StatusUnderMaintenance VehicleStatus = "under_maintenance"
	StatusRetired          VehicleStatus = "retired"
)

// Vehicle carries the registry fields this core reads and the two
// rolling-state fields it writes (CurrentMileage, LastTelemetryAt).
type Vehicle struct {
	ID           int64
	LicensePlate string
	VIN          string
	Status       VehicleStatus

	CurrentMileage  int64
	LastTelemetryAt *time.Time

	AssignedDriverID *int64

	// Type-specific maintenance intervals; zero means not configured.
	MaintenanceIntervalKm   int64
	MaintenanceIntervalDays int64
}

// EngineOn reports whether the vehicle sent telemetry recently enough
// to be considered running.
func (v *Vehicle) EngineOn(now time.Time, threshold time.Duration) bool {
	if v.LastTelemetryAt == nil {
		return false
	}
	return now.Sub(*v.LastTelemetryAt) < threshold
}

type TaskStatus string

const (
	TaskScheduled  TaskStatus = "scheduled"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskOverdue    TaskStatus = "overdue"
	TaskCancelled  TaskStatus = "cancelled"
)

// MaintenanceTask is the slice of the maintenance registry consumed by
// the rule engine and the health aggregator.
type MaintenanceTask struct {
	ID                   int64
	VehicleID            int64
	Status               TaskStatus
	ScheduledDate        time.Time
	CompletionDate       *time.Time
	MileageAtMaintenance *int64
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleDriver  Role = "driver"
)

// User is the minimal identity consumed by the visibility check.
type User struct {
	ID   int64
	Role Role
}
