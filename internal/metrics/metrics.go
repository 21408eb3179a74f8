package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	MessagesReceived  atomic.Int64
	ReadingsStored    atomic.Int64
	ReadingsRejected  atomic.Int64
	AlertsCreated     atomic.Int64
	EvaluationErrors  atomic.Int64
	BroadcastDrops    atomic.Int64
	SubscribersActive atomic.Int64
)

// HandleMetrics serves the counters in Prometheus text exposition
// format.
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "fleetwatch_messages_received_total %d\n", MessagesReceived.Load())
	fmt.Fprintf(w, "fleetwatch_readings_stored_total %d\n", ReadingsStored.Load())
	fmt.Fprintf(w, "fleetwatch_readings_rejected_total %d\n", ReadingsRejected.Load())
	fmt.Fprintf(w, "fleetwatch_alerts_created_total %d\n", AlertsCreated.Load())
	fmt.Fprintf(w, "fleetwatch_evaluation_errors_total %d\n", EvaluationErrors.Load())
	fmt.Fprintf(w, "fleetwatch_broadcast_drops_total %d\n", BroadcastDrops.Load())
	fmt.Fprintf(w, "fleetwatch_subscribers_active %d\n", SubscribersActive.Load())
}
