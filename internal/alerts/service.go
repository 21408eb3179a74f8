package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/ml"
	"fleetwatch/internal/rules"
)

// Store is the persistence surface the alert service needs.
type Store interface {
	AlertTypesSince(ctx context.Context, vehicleID int64, since time.Time) (map[domain.AlertType]struct{}, error)
	InsertAlert(ctx context.Context, alert *domain.Alert) error
	LastCompletedTask(ctx context.Context, vehicleID int64) (*domain.MaintenanceTask, error)
}

// Notifier receives fully persisted high and critical alerts.
type Notifier interface {
	NotifyAlert(ctx context.Context, alert *domain.Alert) error
}

// Predictor yields model candidates for a reading window. Satisfied by
// *ml.Predictor; an implementation may return nothing at all.
type Predictor interface {
	Predict(window []domain.Reading) []ml.Prediction
}

const stripes = 64

// Service converts rule and model candidates into durable alerts at
// most once per cooldown per (vehicle, type).
type Service struct {
	engine    *rules.Engine
	predictor Predictor
	store     Store
	notifier  Notifier
	cooldown  time.Duration
	logger    *zap.Logger

	// Per-vehicle striped locks serialize concurrent evaluation passes
	// for the same vehicle, closing the read-then-write dedup race.
	locks [stripes]sync.Mutex
}

// NewService creates the alert service. Notifier and predictor may be
// nil.
func NewService(engine *rules.Engine, predictor Predictor, store Store, notifier Notifier, cooldown time.Duration, logger *zap.Logger) *Service {
	return &Service{
		engine:    engine,
		predictor: predictor,
		store:     store,
		notifier:  notifier,
		cooldown:  cooldown,
		logger:    logger,
	}
}

// severityForPrediction maps a predicted alert type to the severity a
// model-originated alert carries.
var severityForPrediction = map[domain.AlertType]domain.Severity{
	domain.AlertHighEngineTemp:     domain.SeverityHigh,
	domain.AlertAnomalousFuel:      domain.SeverityHigh,
	domain.AlertHarshDriving:       domain.SeverityMedium,
	domain.AlertProlongedIdle:      domain.SeverityLow,
	domain.AlertMaintenanceMileage: domain.SeverityMedium,
	domain.AlertMaintenanceTime:    domain.SeverityMedium,
	domain.AlertStatisticalAnomaly: domain.SeverityLow,
}

// EvaluateAndSave runs the rule battery (and the classifier when one is
// configured) over the window and persists every candidate whose type
// was not already alerted within the cooldown. Returns the newly
// created alerts; an empty result is a normal outcome.
func (s *Service) EvaluateAndSave(ctx context.Context, vehicle *domain.Vehicle, window []domain.Reading, now time.Time) ([]domain.Alert, error) {
	if vehicle == nil || len(window) == 0 {
		return nil, nil
	}

	lock := &s.locks[uint64(vehicle.ID)%stripes]
	lock.Lock()
	defer lock.Unlock()

	lastTask, err := s.store.LastCompletedTask(ctx, vehicle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load maintenance context: %w", err)
	}

	candidates := s.engine.Evaluate(window, &rules.Context{
		Vehicle:           vehicle,
		LastCompletedTask: lastTask,
		Now:               now,
	})
	candidates = append(candidates, s.modelCandidates(window)...)
	if len(candidates) == 0 {
		return nil, nil
	}

	existing, err := s.store.AlertTypesSince(ctx, vehicle.ID, now.Add(-s.cooldown))
	if err != nil {
		return nil, fmt.Errorf("failed to load cooldown set: %w", err)
	}

	var created []domain.Alert
	for _, c := range candidates {
		if _, dup := existing[c.Type]; dup {
			continue
		}
		alert := domain.Alert{
			ID:            uuid.New(),
			VehicleID:     vehicle.ID,
			Type:          c.Type,
			Severity:      c.Severity,
			Message:       c.Message,
			Confidence:    c.Confidence,
			TimeframeText: c.TimeframeText,
		}
		if err := s.store.InsertAlert(ctx, &alert); err != nil {
			return created, fmt.Errorf("failed to persist alert: %w", err)
		}
		existing[c.Type] = struct{}{}
		created = append(created, alert)

		if c.Severity == domain.SeverityHigh || c.Severity == domain.SeverityCritical {
			s.notify(ctx, &alert)
		}
	}
	return created, nil
}

func (s *Service) modelCandidates(window []domain.Reading) []domain.Candidate {
	if s.predictor == nil {
		return nil
	}
	predictions := s.predictor.Predict(window)
	candidates := make([]domain.Candidate, 0, len(predictions))
	for _, p := range predictions {
		severity, known := severityForPrediction[p.Type]
		if !known {
			continue
		}
		prob := p.Probability
		candidates = append(candidates, domain.Candidate{
			Type:       p.Type,
			Severity:   severity,
			Message:    fmt.Sprintf("Predicted %s (model confidence %.2f).", p.Type, prob),
			Confidence: &prob,
		})
	}
	return candidates
}

func (s *Service) notify(ctx context.Context, alert *domain.Alert) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAlert(ctx, alert); err != nil {
		s.logger.Error("alert notification failed",
			zap.Error(err),
			zap.Int64("vehicle_id", alert.VehicleID),
			zap.String("alert_type", string(alert.Type)),
		)
	}
}
