package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"fleetwatch/internal/config"
	"fleetwatch/internal/dataset"
	"fleetwatch/internal/features"
	"fleetwatch/internal/logging"
	"fleetwatch/internal/repository"
)

func newBuildDatasetCommand() *cobra.Command {
	var (
		output     string
		outputJSON string
		days       int
		windowSize int
		step       int
	)

	cmd := &cobra.Command{
		Use:   "build-dataset",
		Short: "Build a labeled training set from telemetry history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuildDataset(cmd.Context(), output, outputJSON, days, windowSize, step)
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "CSV output path (default dataset.csv unless --output-json is given alone)")
	cmd.Flags().StringVar(&outputJSON, "output-json", "", "JSON output path for continuous learning")
	cmd.Flags().IntVar(&days, "days", 90, "days of history")
	cmd.Flags().IntVar(&windowSize, "window-size", 0, "feature window size (default from ML_WINDOW_SIZE)")
	cmd.Flags().IntVar(&step, "step-readings", 5, "slide step in readings")

	return cmd
}

func runBuildDataset(ctx context.Context, output, outputJSON string, days, windowSize, step int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.ServiceName)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if windowSize <= 0 {
		windowSize = cfg.ML.WindowSize
	}
	if output == "" && outputJSON == "" {
		output = "dataset.csv"
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	extractor := features.NewExtractor(windowSize)
	builder := dataset.NewBuilder(repository.NewRepository(pool), extractor, logger)

	samples, err := builder.Build(ctx, days, windowSize, step)
	if err != nil {
		return err
	}

	if output != "" && len(samples) > 0 {
		if err := dataset.WriteCSV(output, samples, extractor.Length()); err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows to %s\n", len(samples), output)
	}
	if outputJSON != "" {
		if err := dataset.WriteJSON(outputJSON, samples, extractor.Length()); err != nil {
			return err
		}
		fmt.Printf("Wrote %d samples to %s\n", len(samples), outputJSON)
	}
	return nil
}
