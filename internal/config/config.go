package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Database    DatabaseConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Ingest      IngestConfig
	Alerts      AlertsConfig
	ML          MLConfig
	Health      HealthConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds redis connection settings for broadcast and the
// vehicle state cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig holds the notification exchange settings
type RabbitMQConfig struct {
	URL             string
	AlertExchange   string
	AlertRoutingKey string
}

// IngestConfig holds telemetry ingestion settings
type IngestConfig struct {
	// Token gates the ingestion websocket when non-empty. Empty means
	// open ingestion.
	Token string
	// RecentWindow is how many readings are fetched for evaluation
	// after each accepted message.
	RecentWindow int
	// SubscriberBuffer bounds the per-subscriber outbound queue.
	SubscriberBuffer int
	// StateTTLSeconds is the TTL of the cached vehicle state hash.
	StateTTLSeconds int
}

// AlertsConfig holds alert dedup settings
type AlertsConfig struct {
	CooldownMinutes int
}

// MLConfig holds classifier adapter settings
type MLConfig struct {
	ArtifactPath        string
	WindowSize          int
	ConfidenceThreshold float64
}

// HealthConfig holds health aggregation settings
type HealthConfig struct {
	AlertLookbackDays        int
	DueSoonDays              int
	RecentTempHours          int
	EngineOnThresholdSeconds int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "fleetwatch"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8090),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			AlertExchange:   getEnv("RABBITMQ_ALERT_EXCHANGE", "fleetwatch.alerts.exchange"),
			AlertRoutingKey: getEnv("RABBITMQ_ALERT_ROUTING_KEY", "vehicle.alert.created"),
		},
		Ingest: IngestConfig{
			Token:            getEnv("TELEMETRY_WS_TOKEN", ""),
			RecentWindow:     getEnvAsInt("TELEMETRY_RECENT_WINDOW", 30),
			SubscriberBuffer: getEnvAsInt("TELEMETRY_SUBSCRIBER_BUFFER", 16),
			StateTTLSeconds:  getEnvAsInt("TELEMETRY_STATE_TTL_SECONDS", 30),
		},
		Alerts: AlertsConfig{
			CooldownMinutes: getEnvAsInt("ALERT_COOLDOWN_MINUTES", 60),
		},
		ML: MLConfig{
			ArtifactPath:        getEnv("ML_FAILURE_PREDICTOR_PATH", ""),
			WindowSize:          getEnvAsInt("ML_WINDOW_SIZE", 20),
			ConfidenceThreshold: getEnvAsFloat("ML_PREDICTION_CONFIDENCE_THRESHOLD", 0.5),
		},
		Health: HealthConfig{
			AlertLookbackDays:        getEnvAsInt("HEALTH_ALERT_LOOKBACK_DAYS", 7),
			DueSoonDays:              getEnvAsInt("HEALTH_DUE_SOON_DAYS", 14),
			RecentTempHours:          getEnvAsInt("HEALTH_RECENT_TEMP_HOURS", 24),
			EngineOnThresholdSeconds: getEnvAsInt("HEALTH_ENGINE_ON_THRESHOLD_SECONDS", 90),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
