package ingest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fleetwatch/internal/auth"
	"fleetwatch/internal/metrics"
)

// ServeSubscribe handles one read-only subscription connection for a
// single vehicle. The caller must be entitled to see the vehicle;
// otherwise the connection is closed with a distinct code and no event
// is ever delivered.
func (h *Handler) ServeSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	vehicleID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		closeWith(conn, CloseBadRoute, "bad vehicle id")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	user, err := h.authorizer.ResolveToken(ctx, r.URL.Query().Get("token"))
	if err != nil {
		h.logger.Error("token resolution failed", zap.Error(err))
		closeWith(conn, CloseForbidden, "not authorized")
		return
	}
	vehicle, err := h.store.GetVehicle(ctx, vehicleID)
	if err != nil || !auth.CanView(user, vehicle) {
		closeWith(conn, CloseForbidden, "not authorized")
		return
	}

	sub := h.broadcaster.Subscribe(ctx, vehicleID)
	defer sub.Close()

	metrics.SubscribersActive.Add(1)
	defer metrics.SubscribersActive.Add(-1)

	// Detect client close; subscribers never send data.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	out := make(chan []byte, h.cfg.SubscriberBuffer)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				payload := []byte(msg.Payload)
				select {
				case out <- payload:
				default:
					// Slow subscriber: drop the oldest queued event
					// rather than block the publisher side.
					select {
					case <-out:
						metrics.BroadcastDrops.Add(1)
					default:
					}
					select {
					case out <- payload:
					default:
					}
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-out:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
