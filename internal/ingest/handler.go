package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fleetwatch/internal/alerts"
	"fleetwatch/internal/broadcast"
	"fleetwatch/internal/config"
	"fleetwatch/internal/domain"
	"fleetwatch/internal/logging"
	"fleetwatch/internal/metrics"
	"fleetwatch/tools/timeparser"
)

// Close codes sent to websocket clients.
const (
	CloseBadRoute     = 4000
	CloseUnauthorized = 4001
	CloseForbidden    = 4003
)

// Store is the persistence surface the ingestion channel needs.
type Store interface {
	ResolveVehicle(ctx context.Context, id *int64, licensePlate, vin string) (*domain.Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)
	InsertReading(ctx context.Context, reading *domain.Reading) error
	UpdateRollingState(ctx context.Context, vehicleID int64, mileage *int64, seenAt time.Time) error
	RecentReadings(ctx context.Context, vehicleID int64, limit int) ([]domain.Reading, error)
}

// Handler serves the telemetry ingestion and subscription websockets.
type Handler struct {
	store       Store
	alerts      *alerts.Service
	broadcaster *broadcast.Store
	authorizer  TokenResolver
	cfg         config.IngestConfig
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

// TokenResolver resolves subscriber tokens to users.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.User, error)
}

// NewHandler creates the websocket handler.
func NewHandler(store Store, alertSvc *alerts.Service, broadcaster *broadcast.Store, authorizer TokenResolver, cfg config.IngestConfig, logger *zap.Logger) *Handler {
	return &Handler{
		store:       store,
		alerts:      alertSvc,
		broadcaster: broadcaster,
		authorizer:  authorizer,
		cfg:         cfg,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type reply struct {
	OK           bool   `json:"ok"`
	Ack          bool   `json:"ack,omitempty"`
	Error        string `json:"error,omitempty"`
	VehicleID    *int64 `json:"vehicle_id,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
	VIN          string `json:"vin,omitempty"`
}

// ServeIngest handles one ingestion connection. Messages on a
// connection are processed strictly in order: each one is validated,
// persisted, evaluated, and broadcast before the ack goes out.
func (h *Handler) ServeIngest(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.cfg.Token != "" && r.URL.Query().Get("token") != h.cfg.Token {
		closeWith(conn, CloseUnauthorized, "invalid token")
		return
	}

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		metrics.MessagesReceived.Add(1)

		resp := h.handleMessage(ctx, data)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, data []byte) reply {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return reply{OK: false, Error: "invalid JSON: " + err.Error()}
	}

	vehicleID := coerceInt(raw["vehicle_id"])
	licensePlate := coerceString(raw["license_plate"])
	vin := coerceString(raw["vin"])

	vehicle, err := h.store.ResolveVehicle(ctx, vehicleID, licensePlate, vin)
	if err != nil || vehicle == nil {
		metrics.ReadingsRejected.Add(1)
		return reply{
			OK:           false,
			Error:        "vehicle not found or retired",
			VehicleID:    vehicleID,
			LicensePlate: licensePlate,
			VIN:          vin,
		}
	}

	log := logging.WithVehicleID(h.logger, vehicle.ID)

	reading := h.buildReading(vehicle.ID, raw)
	if err := h.store.InsertReading(ctx, reading); err != nil {
		log.Error("failed to store reading", zap.Error(err))
		metrics.ReadingsRejected.Add(1)
		return reply{OK: false, Error: "failed to store reading"}
	}
	metrics.ReadingsStored.Add(1)

	if err := h.store.UpdateRollingState(ctx, vehicle.ID, reading.Mileage, reading.Timestamp); err != nil {
		log.Error("failed to update rolling state", zap.Error(err))
		return reply{OK: false, Error: "failed to update vehicle state"}
	}

	window, err := h.store.RecentReadings(ctx, vehicle.ID, h.cfg.RecentWindow)
	if err != nil {
		log.Error("failed to load evaluation window", zap.Error(err))
		metrics.EvaluationErrors.Add(1)
		return reply{OK: false, Error: "evaluation failed"}
	}
	created, err := h.alerts.EvaluateAndSave(ctx, vehicle, window, time.Now().UTC())
	if err != nil {
		log.Error("alert evaluation failed", zap.Error(err))
		metrics.EvaluationErrors.Add(1)
		return reply{OK: false, Error: "evaluation failed"}
	}
	metrics.AlertsCreated.Add(int64(len(created)))

	h.publish(ctx, reading, log)

	return reply{OK: true, Ack: true}
}

func (h *Handler) buildReading(vehicleID int64, raw map[string]interface{}) *domain.Reading {
	ts := timeparser.OrNow(coerceString(raw["timestamp"]), time.Now().UTC())

	lat := coerceFloat(raw["latitude"])
	if lat == nil {
		lat = coerceFloat(raw["lat"])
	}
	lng := coerceFloat(raw["longitude"])
	if lng == nil {
		lng = coerceFloat(raw["lng"])
	}

	return &domain.Reading{
		ID:           uuid.New(),
		VehicleID:    vehicleID,
		Timestamp:    ts,
		SpeedKmh:     coerceFloat(raw["speed_kmh"]),
		FuelLevelPct: coerceFloat(raw["fuel_level_pct"]),
		EngineTempC:  coerceFloat(raw["engine_temperature_c"]),
		Latitude:     lat,
		Longitude:    lng,
		RPM:          coerceInt(raw["rpm"]),
		Mileage:      coerceInt(raw["mileage"]),
		Voltage:      coerceFloat(raw["voltage"]),
		ThrottlePct:  coerceFloat(raw["throttle_pct"]),
		BrakeStatus:  coerceBool(raw["brake_status"]),
	}
}

// publish fans the coerced event out to the vehicle's broadcast group.
// Broadcast is best-effort: a failure never blocks the ack.
func (h *Handler) publish(ctx context.Context, reading *domain.Reading, log *zap.Logger) {
	payload, err := json.Marshal(eventFromReading(reading))
	if err != nil {
		log.Error("failed to marshal broadcast event", zap.Error(err))
		return
	}
	ttl := time.Duration(h.cfg.StateTTLSeconds) * time.Second
	if err := h.broadcaster.PublishTelemetry(ctx, reading.VehicleID, payload, stateFields(reading), ttl); err != nil {
		metrics.BroadcastDrops.Add(1)
		log.Warn("telemetry broadcast failed", zap.Error(err))
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}
