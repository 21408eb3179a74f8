package ingest

import (
	"encoding/json"
	"testing"
)

func TestCoerceFloat_Number(t *testing.T) {
	got := coerceFloat(42.5)
	if got == nil || *got != 42.5 {
		t.Error("Expected 42.5")
	}
}

func TestCoerceFloat_String(t *testing.T) {
	got := coerceFloat(" 42.5 ")
	if got == nil || *got != 42.5 {
		t.Error("Expected 42.5 from padded string")
	}
}

func TestCoerceFloat_JSONNumber(t *testing.T) {
	got := coerceFloat(json.Number("17.25"))
	if got == nil || *got != 17.25 {
		t.Error("Expected 17.25 from json.Number")
	}
}

func TestCoerceFloat_Bool(t *testing.T) {
	got := coerceFloat(true)
	if got == nil || *got != 1.0 {
		t.Error("Expected 1.0 from true")
	}
}

func TestCoerceFloat_Invalid(t *testing.T) {
	if coerceFloat("not a number") != nil {
		t.Error("Expected nil for unparseable string")
	}
	if coerceFloat(nil) != nil {
		t.Error("Expected nil for nil")
	}
	if coerceFloat([]interface{}{1}) != nil {
		t.Error("Expected nil for array")
	}
}

func TestCoerceInt_Truncates(t *testing.T) {
	got := coerceInt(3.9)
	if got == nil || *got != 3 {
		t.Error("Expected truncation to 3")
	}
}

func TestCoerceInt_String(t *testing.T) {
	got := coerceInt("1200")
	if got == nil || *got != 1200 {
		t.Error("Expected 1200 from string")
	}
}

func TestCoerceBool_Variants(t *testing.T) {
	if got := coerceBool(true); got == nil || !*got {
		t.Error("Expected true")
	}
	if got := coerceBool("true"); got == nil || !*got {
		t.Error("Expected true from string")
	}
	if got := coerceBool(0.0); got == nil || *got {
		t.Error("Expected false from 0")
	}
	if got := coerceBool(1.0); got == nil || !*got {
		t.Error("Expected true from 1")
	}
	if coerceBool("maybe") != nil {
		t.Error("Expected nil for unparseable bool")
	}
}

func TestCoerceString(t *testing.T) {
	if got := coerceString("  ABC-123  "); got != "ABC-123" {
		t.Errorf("Expected trimmed string, got '%s'", got)
	}
	if got := coerceString(42.0); got != "" {
		t.Errorf("Expected empty string for non-string, got '%s'", got)
	}
}
