package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// WriteCSV writes samples as `f0..fN-1,label` rows.
func WriteCSV(path string, samples []Sample, nFeatures int) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, 0, nFeatures+1)
	for i := 0; i < nFeatures; i++ {
		header = append(header, fmt.Sprintf("f%d", i))
	}
	header = append(header, "label")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, nFeatures+1)
	for _, s := range samples {
		for i, v := range s.Features {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row[nFeatures] = s.Label
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

type jsonDataset struct {
	Samples   []Sample `json:"samples"`
	Updated   string   `json:"updated"`
	NFeatures int      `json:"n_features"`
}

// WriteJSON writes samples in the continuous-learning JSON shape.
func WriteJSON(path string, samples []Sample, nFeatures int) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create json: %w", err)
	}
	defer f.Close()

	if samples == nil {
		samples = []Sample{}
	}
	enc := json.NewEncoder(f)
	return enc.Encode(jsonDataset{
		Samples:   samples,
		Updated:   time.Now().UTC().Format(time.RFC3339),
		NFeatures: nFeatures,
	})
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
