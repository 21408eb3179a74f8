package dataset_test

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"fleetwatch/internal/dataset"
)

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dataset.csv")
	samples := []dataset.Sample{
		{Features: []float64{1.5, 2, 0}, Label: "normal"},
		{Features: []float64{0.25, 3, 9}, Label: "high_engine_temp"},
	}

	if err := dataset.WriteCSV(path, samples, 3); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "f0" || rows[0][3] != "label" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[2][3] != "high_engine_temp" {
		t.Errorf("Expected label in last column, got '%s'", rows[2][3])
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	samples := []dataset.Sample{{Features: []float64{1, 2}, Label: "normal"}}

	if err := dataset.WriteJSON(path, samples, 2); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	var out struct {
		Samples []dataset.Sample `json:"samples"`
		Updated string           `json:"updated"`
		N       int              `json:"n_features"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if out.N != 2 || len(out.Samples) != 1 {
		t.Errorf("Unexpected dataset shape: n_features=%d samples=%d", out.N, len(out.Samples))
	}
	if out.Updated == "" {
		t.Error("Expected updated timestamp")
	}
}
