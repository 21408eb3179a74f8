package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Store fans accepted telemetry out through redis pub/sub, one channel
// per vehicle, and keeps a short-lived per-vehicle state hash for
// dashboard reads. The ingestion side is publisher-only; subscribers
// are passive readers.
type Store struct {
	client *redis.Client
}

// NewStore creates a redis-backed broadcast store.
func NewStore(lc fx.Lifecycle, logger *zap.Logger, addr, password string, db int) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("cannot reach redis: %w", err)
			}
			logger.Info("redis connection established")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := client.Close(); err != nil {
				return err
			}
			logger.Info("redis connection closed")
			return nil
		},
	})

	return &Store{client: client}
}

func telemetryChannel(vehicleID int64) string {
	return fmt.Sprintf("vehicle:%d:telemetry", vehicleID)
}

func stateKey(vehicleID int64) string {
	return fmt.Sprintf("vehicle:%d:state", vehicleID)
}

// PublishTelemetry pushes one normalized event to the vehicle's
// broadcast group and refreshes its cached state hash in a single
// pipeline round trip.
func (s *Store) PublishTelemetry(ctx context.Context, vehicleID int64, payload []byte, state map[string]interface{}, stateTTL time.Duration) error {
	pipe := s.client.Pipeline()
	if len(state) > 0 {
		pipe.HSet(ctx, stateKey(vehicleID), state)
		pipe.Expire(ctx, stateKey(vehicleID), stateTTL)
	}
	pipe.Publish(ctx, telemetryChannel(vehicleID), payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Subscribe registers a passive reader on the vehicle's broadcast
// group. The caller owns the subscription and must Close it so the
// delivery target is deregistered.
func (s *Store) Subscribe(ctx context.Context, vehicleID int64) *redis.PubSub {
	return s.client.Subscribe(ctx, telemetryChannel(vehicleID))
}
