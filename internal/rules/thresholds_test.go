package rules_test

import (
	"testing"

	"fleetwatch/internal/rules"
)

func TestDefaultThresholds(t *testing.T) {
	th := rules.DefaultThresholds()

	if th.EngineTempHighC != 105 {
		t.Errorf("Expected engine temp threshold 105, got %v", th.EngineTempHighC)
	}
	if th.FuelDropPct != 8 || th.FuelWindowSize != 5 {
		t.Error("Expected fuel drop defaults 8% over 5 readings")
	}
	if th.SpeedVarianceKmh != 35 || th.SpeedWindowSize != 4 {
		t.Error("Expected speed variance defaults 35 km/h over 4 readings")
	}
	if th.AnomalyStdMultiplier != 2.5 || th.AnomalyWindowSize != 20 {
		t.Error("Expected anomaly defaults 2.5 sigma over 20 readings")
	}
}

func TestEnvThresholds_Override(t *testing.T) {
	t.Setenv("TELEMETRY_PATTERNS_ENGINE_TEMP_HIGH_C", "95.5")
	t.Setenv("TELEMETRY_PATTERNS_FUEL_WINDOW_SIZE", "10")

	th := rules.NewEnvThresholds().Current()

	if th.EngineTempHighC != 95.5 {
		t.Errorf("Expected overridden engine temp 95.5, got %v", th.EngineTempHighC)
	}
	if th.FuelWindowSize != 10 {
		t.Errorf("Expected overridden fuel window 10, got %d", th.FuelWindowSize)
	}
	if th.FuelDropPct != 8 {
		t.Errorf("Expected untouched fuel drop default 8, got %v", th.FuelDropPct)
	}
}

func TestEnvThresholds_InvalidValueKeepsDefault(t *testing.T) {
	t.Setenv("TELEMETRY_PATTERNS_ENGINE_TEMP_HIGH_C", "not-a-number")

	th := rules.NewEnvThresholds().Current()

	if th.EngineTempHighC != 105 {
		t.Errorf("Expected default 105 for unparseable override, got %v", th.EngineTempHighC)
	}
}
