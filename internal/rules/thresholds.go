package rules

import (
	"os"
	"strconv"
)

// Thresholds holds the named numeric knobs of the pattern battery.
type Thresholds struct {
	EngineTempHighC       float64
	FuelDropPct           float64
	FuelWindowSize        int
	SpeedVarianceKmh      float64
	SpeedWindowSize       int
	IdleMinutes           int
	IdleRPMMax            int64
	IdleSpeedMaxKmh       float64
	MaintenanceKmBuffer   int64
	MaintenanceDaysBuffer int
	AnomalyStdMultiplier  float64
	AnomalyWindowSize     int
}

// DefaultThresholds returns the built-in defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EngineTempHighC:       105,
		FuelDropPct:           8,
		FuelWindowSize:        5,
		SpeedVarianceKmh:      35,
		SpeedWindowSize:       4,
		IdleMinutes:           10,
		IdleRPMMax:            900,
		IdleSpeedMaxKmh:       2,
		MaintenanceKmBuffer:   500,
		MaintenanceDaysBuffer: 7,
		AnomalyStdMultiplier:  2.5,
		AnomalyWindowSize:     20,
	}
}

// ThresholdSource supplies the thresholds for one evaluation pass.
type ThresholdSource interface {
	Current() Thresholds
}

// EnvThresholds reads TELEMETRY_PATTERNS_* overrides from the
// environment on every call, so operators can retune the battery
// without a restart.
type EnvThresholds struct{}

// NewEnvThresholds creates an environment-backed threshold source.
func NewEnvThresholds() *EnvThresholds {
	return &EnvThresholds{}
}

// Current returns the defaults with any environment overrides applied.
func (e *EnvThresholds) Current() Thresholds {
	t := DefaultThresholds()
	t.EngineTempHighC = envFloat("TELEMETRY_PATTERNS_ENGINE_TEMP_HIGH_C", t.EngineTempHighC)
	t.FuelDropPct = envFloat("TELEMETRY_PATTERNS_FUEL_DROP_PCT_PER_WINDOW", t.FuelDropPct)
	t.FuelWindowSize = envInt("TELEMETRY_PATTERNS_FUEL_WINDOW_SIZE", t.FuelWindowSize)
	t.SpeedVarianceKmh = envFloat("TELEMETRY_PATTERNS_SPEED_VARIANCE_HARSH_KMH", t.SpeedVarianceKmh)
	t.SpeedWindowSize = envInt("TELEMETRY_PATTERNS_SPEED_WINDOW_SIZE", t.SpeedWindowSize)
	t.IdleMinutes = envInt("TELEMETRY_PATTERNS_IDLE_MINUTES_THRESHOLD", t.IdleMinutes)
	t.IdleRPMMax = int64(envInt("TELEMETRY_PATTERNS_IDLE_RPM_MAX", int(t.IdleRPMMax)))
	t.IdleSpeedMaxKmh = envFloat("TELEMETRY_PATTERNS_IDLE_SPEED_MAX_KMH", t.IdleSpeedMaxKmh)
	t.MaintenanceKmBuffer = int64(envInt("TELEMETRY_PATTERNS_MAINTENANCE_KM_BUFFER", int(t.MaintenanceKmBuffer)))
	t.MaintenanceDaysBuffer = envInt("TELEMETRY_PATTERNS_MAINTENANCE_DAYS_BUFFER", t.MaintenanceDaysBuffer)
	t.AnomalyStdMultiplier = envFloat("TELEMETRY_PATTERNS_ANOMALY_STD_MULTIPLIER", t.AnomalyStdMultiplier)
	t.AnomalyWindowSize = envInt("TELEMETRY_PATTERNS_ANOMALY_WINDOW_SIZE", t.AnomalyWindowSize)
	return t
}

// StaticThresholds always returns the same thresholds. Used in tests.
type StaticThresholds struct {
	T Thresholds
}

// Current returns the fixed thresholds.
func (s *StaticThresholds) Current() Thresholds {
	return s.T
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
