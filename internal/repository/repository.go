package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetwatch/internal/domain"
)

// ErrVehicleNotFound is returned when a lookup matches no non-retired vehicle.
var ErrVehicleNotFound = errors.New("vehicle not found")

// Repository handles database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const vehicleColumns = `
	v.id, v.license_plate, v.vin, v.status, v.current_mileage,
	v.last_telemetry_at, v.assigned_driver_id,
	COALESCE(vt.maintenance_interval_km, 0),
	COALESCE(vt.maintenance_interval_days, 0)
`

const vehicleFrom = `
	FROM vehicles v
	LEFT JOIN vehicle_types vt ON vt.id = v.vehicle_type_id
`

func (r *Repository) scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(
		&v.ID,
		&v.LicensePlate,
		&v.VIN,
		&v.Status,
		&v.CurrentMileage,
		&v.LastTelemetryAt,
		&v.AssignedDriverID,
		&v.MaintenanceIntervalKm,
		&v.MaintenanceIntervalDays,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan vehicle: %w", err)
	}
	return &v, nil
}

// GetVehicle fetches one non-retired vehicle by id.
func (r *Repository) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + vehicleFrom + `
		WHERE v.id = $1 AND v.status <> 'retired'`
	return r.scanVehicle(r.pool.QueryRow(ctx, query, id))
}

// ResolveVehicle resolves a vehicle by internal id, license plate, or
// VIN, in that priority order. Retired vehicles never resolve.
func (r *Repository) ResolveVehicle(ctx context.Context, id *int64, licensePlate, vin string) (*domain.Vehicle, error) {
	if id != nil {
		return r.GetVehicle(ctx, *id)
	}
	if licensePlate != "" {
		query := `SELECT ` + vehicleColumns + vehicleFrom + `
			WHERE v.license_plate = $1 AND v.status <> 'retired'`
		return r.scanVehicle(r.pool.QueryRow(ctx, query, licensePlate))
	}
	if vin != "" {
		query := `SELECT ` + vehicleColumns + vehicleFrom + `
			WHERE v.vin = $1 AND v.status <> 'retired'`
		return r.scanVehicle(r.pool.QueryRow(ctx, query, vin))
	}
	return nil, ErrVehicleNotFound
}

// InsertReading persists one telemetry reading.
func (r *Repository) InsertReading(ctx context.Context, reading *domain.Reading) error {
	query := `
		INSERT INTO vehicle_telemetry (
			id, vehicle_id, timestamp, speed_kmh, fuel_level_pct,
			engine_temperature_c, latitude, longitude, rpm, mileage,
			voltage, throttle_pct, brake_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		reading.ID,
		reading.VehicleID,
		reading.Timestamp,
		reading.SpeedKmh,
		reading.FuelLevelPct,
		reading.EngineTempC,
		reading.Latitude,
		reading.Longitude,
		reading.RPM,
		reading.Mileage,
		reading.Voltage,
		reading.ThrottlePct,
		reading.BrakeStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// UpdateRollingState raises current_mileage when the new odometer value
// exceeds it (monotonic ratchet) and always refreshes last_telemetry_at.
func (r *Repository) UpdateRollingState(ctx context.Context, vehicleID int64, mileage *int64, seenAt time.Time) error {
	query := `
		UPDATE vehicles
		SET current_mileage = GREATEST(current_mileage, COALESCE($2, current_mileage)),
		    last_telemetry_at = $3
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, vehicleID, mileage, seenAt)
	if err != nil {
		return fmt.Errorf("failed to update rolling state: %w", err)
	}
	return nil
}

func (r *Repository) scanReadings(rows pgx.Rows) ([]domain.Reading, error) {
	defer rows.Close()

	var readings []domain.Reading
	for rows.Next() {
		var rd domain.Reading
		err := rows.Scan(
			&rd.ID,
			&rd.VehicleID,
			&rd.Timestamp,
			&rd.SpeedKmh,
			&rd.FuelLevelPct,
			&rd.EngineTempC,
			&rd.Latitude,
			&rd.Longitude,
			&rd.RPM,
			&rd.Mileage,
			&rd.Voltage,
			&rd.ThrottlePct,
			&rd.BrakeStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return readings, nil
}

const readingColumns = `
	id, vehicle_id, timestamp, speed_kmh, fuel_level_pct,
	engine_temperature_c, latitude, longitude, rpm, mileage,
	voltage, throttle_pct, brake_status
`

// RecentReadings returns the most recent readings for a vehicle,
// newest first.
func (r *Repository) RecentReadings(ctx context.Context, vehicleID int64, limit int) ([]domain.Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM vehicle_telemetry
		WHERE vehicle_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	return r.scanReadings(rows)
}

// ReadingsSince returns all readings for a vehicle after the cutoff,
// newest first. Used by the dataset builder.
func (r *Repository) ReadingsSince(ctx context.Context, vehicleID int64, since time.Time) ([]domain.Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM vehicle_telemetry
		WHERE vehicle_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC`

	rows, err := r.pool.Query(ctx, query, vehicleID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	return r.scanReadings(rows)
}

// AlertTypesSince returns the alert types already created for a vehicle
// after the cutoff.
func (r *Repository) AlertTypesSince(ctx context.Context, vehicleID int64, since time.Time) (map[domain.AlertType]struct{}, error) {
	query := `
		SELECT DISTINCT alert_type
		FROM vehicle_alerts
		WHERE vehicle_id = $1 AND created_at >= $2
	`
	rows, err := r.pool.Query(ctx, query, vehicleID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert types: %w", err)
	}
	defer rows.Close()

	types := make(map[domain.AlertType]struct{})
	for rows.Next() {
		var t domain.AlertType
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan alert type: %w", err)
		}
		types[t] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return types, nil
}

// InsertAlert persists an alert and fills in its creation timestamp.
func (r *Repository) InsertAlert(ctx context.Context, alert *domain.Alert) error {
	query := `
		INSERT INTO vehicle_alerts (
			id, vehicle_id, alert_type, severity, message,
			confidence, timeframe_text, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		alert.ID,
		alert.VehicleID,
		alert.Type,
		alert.Severity,
		alert.Message,
		alert.Confidence,
		alert.TimeframeText,
	).Scan(&alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// AlertsSince returns alerts for a vehicle after the cutoff, oldest
// first. Used by the dataset builder for labeling.
func (r *Repository) AlertsSince(ctx context.Context, vehicleID int64, since time.Time) ([]domain.Alert, error) {
	query := `
		SELECT id, vehicle_id, alert_type, severity, message,
		       confidence, timeframe_text, created_at, read_at
		FROM vehicle_alerts
		WHERE vehicle_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, vehicleID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		err := rows.Scan(
			&a.ID,
			&a.VehicleID,
			&a.Type,
			&a.Severity,
			&a.Message,
			&a.Confidence,
			&a.TimeframeText,
			&a.CreatedAt,
			&a.ReadAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return alerts, nil
}

// HasUnreadAlertSince reports whether an unread alert of the given
// severity exists for the vehicle after the cutoff.
func (r *Repository) HasUnreadAlertSince(ctx context.Context, vehicleID int64, severity domain.Severity, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM vehicle_alerts
			WHERE vehicle_id = $1 AND severity = $2
			  AND read_at IS NULL AND created_at >= $3
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, vehicleID, severity, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query unread alerts: %w", err)
	}
	return exists, nil
}

// LastCompletedTask returns the most recently completed maintenance
// task for the vehicle, or nil when none exists.
func (r *Repository) LastCompletedTask(ctx context.Context, vehicleID int64) (*domain.MaintenanceTask, error) {
	query := `
		SELECT id, vehicle_id, status, scheduled_date, completion_date, mileage_at_maintenance
		FROM maintenance_tasks
		WHERE vehicle_id = $1 AND status = 'completed'
		ORDER BY completion_date DESC
		LIMIT 1
	`
	var t domain.MaintenanceTask
	err := r.pool.QueryRow(ctx, query, vehicleID).Scan(
		&t.ID,
		&t.VehicleID,
		&t.Status,
		&t.ScheduledDate,
		&t.CompletionDate,
		&t.MileageAtMaintenance,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last completed task: %w", err)
	}
	return &t, nil
}

// HasOverdueTask reports whether a scheduled or overdue task has a
// scheduled date strictly before the given day.
func (r *Repository) HasOverdueTask(ctx context.Context, vehicleID int64, before time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM maintenance_tasks
			WHERE vehicle_id = $1
			  AND status IN ('scheduled', 'overdue')
			  AND scheduled_date < $2
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, vehicleID, before).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query overdue tasks: %w", err)
	}
	return exists, nil
}

// HasTaskDueBy reports whether a scheduled or overdue task is due on or
// before the given day.
func (r *Repository) HasTaskDueBy(ctx context.Context, vehicleID int64, by time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM maintenance_tasks
			WHERE vehicle_id = $1
			  AND status IN ('scheduled', 'overdue')
			  AND scheduled_date <= $2
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, vehicleID, by).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query due tasks: %w", err)
	}
	return exists, nil
}

// HasHighTempReadingSince reports whether any reading after the cutoff
// has engine temperature at or above the threshold.
func (r *Repository) HasHighTempReadingSince(ctx context.Context, vehicleID int64, since time.Time, threshold float64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM vehicle_telemetry
			WHERE vehicle_id = $1
			  AND timestamp >= $2
			  AND engine_temperature_c >= $3
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, vehicleID, since, threshold).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query high temp readings: %w", err)
	}
	return exists, nil
}

// UserByToken resolves a user from its API token.
func (r *Repository) UserByToken(ctx context.Context, token string) (*domain.User, error) {
	query := `SELECT id, role FROM users WHERE api_token = $1`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, token).Scan(&u.ID, &u.Role)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// ActiveVehicleIDs lists ids of all non-retired vehicles.
func (r *Repository) ActiveVehicleIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT id FROM vehicles WHERE status <> 'retired' ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return ids, nil
}
