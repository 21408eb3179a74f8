package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates a new structured logger
func NewLogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// WithVehicleID returns a logger with vehicle_id field
func WithVehicleID(logger *zap.Logger, vehicleID int64) *zap.Logger {
	return logger.With(zap.Int64("vehicle_id", vehicleID))
}
