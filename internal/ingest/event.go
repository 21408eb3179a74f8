package ingest

import (
	"time"

	"fleetwatch/internal/domain"
)

// Event is the normalized telemetry shape pushed to subscribers: the
// coerced values, not the raw input.
type Event struct {
	VehicleID    int64    `json:"vehicle_id"`
	Timestamp    string   `json:"timestamp"`
	SpeedKmh     *float64 `json:"speed_kmh"`
	FuelLevelPct *float64 `json:"fuel_level_pct"`
	EngineTempC  *float64 `json:"engine_temperature_c"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	RPM          *int64   `json:"rpm"`
	Mileage      *int64   `json:"mileage"`
	Voltage      *float64 `json:"voltage"`
	ThrottlePct  *float64 `json:"throttle_pct"`
	BrakeStatus  *bool    `json:"brake_status"`
}

func eventFromReading(r *domain.Reading) Event {
	return Event{
		VehicleID:    r.VehicleID,
		Timestamp:    r.Timestamp.Format(time.RFC3339),
		SpeedKmh:     r.SpeedKmh,
		FuelLevelPct: r.FuelLevelPct,
		EngineTempC:  r.EngineTempC,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		RPM:          r.RPM,
		Mileage:      r.Mileage,
		Voltage:      r.Voltage,
		ThrottlePct:  r.ThrottlePct,
		BrakeStatus:  r.BrakeStatus,
	}
}

// stateFields builds the redis state hash for the vehicle state cache.
// Only present fields are written.
func stateFields(r *domain.Reading) map[string]interface{} {
	state := map[string]interface{}{
		"vehicle_id": r.VehicleID,
		"timestamp":  r.Timestamp.Unix(),
	}
	if r.SpeedKmh != nil {
		state["speed_kmh"] = *r.SpeedKmh
	}
	if r.FuelLevelPct != nil {
		state["fuel_level_pct"] = *r.FuelLevelPct
	}
	if r.EngineTempC != nil {
		state["engine_temp_c"] = *r.EngineTempC
	}
	if r.Latitude != nil {
		state["lat"] = *r.Latitude
	}
	if r.Longitude != nil {
		state["lng"] = *r.Longitude
	}
	if r.RPM != nil {
		state["rpm"] = *r.RPM
	}
	if r.Mileage != nil {
		state["mileage"] = *r.Mileage
	}
	if r.Voltage != nil {
		state["voltage"] = *r.Voltage
	}
	return state
}
