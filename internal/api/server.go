package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fleetwatch/internal/auth"
	"fleetwatch/internal/health"
	"fleetwatch/internal/ingest"
	"fleetwatch/internal/metrics"
)

// Server wires the websocket and HTTP routes.
type Server struct {
	router     *mux.Router
	handler    *ingest.Handler
	aggregator *health.Aggregator
	store      ingest.Store
	authorizer *auth.Authorizer
	logger     *zap.Logger
}

// NewServer creates the route table.
func NewServer(handler *ingest.Handler, aggregator *health.Aggregator, store ingest.Store, authorizer *auth.Authorizer, logger *zap.Logger) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		handler:    handler,
		aggregator: aggregator,
		store:      store,
		authorizer: authorizer,
		logger:     logger,
	}

	s.router.HandleFunc("/ws/telemetry", handler.ServeIngest)
	s.router.HandleFunc("/ws/vehicles/{id}/subscribe", handler.ServeSubscribe)
	s.router.HandleFunc("/vehicles/{id}/health", s.handleVehicleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", metrics.HandleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleVehicleHealth serves the derived red/yellow/green status with
// its reasons. Pure read; safe at arbitrary frequency.
func (s *Server) handleVehicleHealth(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad vehicle id")
		return
	}

	user, err := s.authorizer.ResolveToken(r.Context(), bearerToken(r))
	if err != nil {
		s.logger.Error("token resolution failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	vehicle, err := s.store.GetVehicle(r.Context(), vehicleID)
	if err != nil || !auth.CanView(user, vehicle) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}

	snapshot, err := s.aggregator.Evaluate(r.Context(), vehicle, time.Now().UTC())
	if err != nil {
		s.logger.Error("health evaluation failed", zap.Error(err), zap.Int64("vehicle_id", vehicleID))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
