package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	loadDotEnv()

	root := &cobra.Command{
		Use:   "fleetwatch",
		Short: "Fleet telemetry ingestion, alerting, and health service",
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newBuildDatasetCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDotEnv looks for a .env near the working directory; absence is
// fine in pods and containers where the environment is injected.
func loadDotEnv() {
	paths := []string{".env"}
	if workDir, err := os.Getwd(); err == nil {
		parent := filepath.Dir(workDir)
		paths = append(paths,
			filepath.Join(parent, ".env"),
			filepath.Join(filepath.Dir(parent), ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}
