package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"fleetwatch/internal/domain"
)

// AlertEvent is the wire shape of a published alert notification.
type AlertEvent struct {
	AlertID       string   `json:"alert_id"`
	VehicleID     int64    `json:"vehicle_id"`
	AlertType     string   `json:"alert_type"`
	Severity      string   `json:"severity"`
	Message       string   `json:"message"`
	Confidence    *float64 `json:"confidence,omitempty"`
	TimeframeText string   `json:"timeframe_text,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// AlertPublisher publishes high and critical alerts to the notification
// exchange. Downstream delivery (email, dashboards) is out of scope;
// the publish is the hook boundary.
type AlertPublisher struct {
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// NewAlertPublisher creates a publisher bound to a durable topic
// exchange.
func NewAlertPublisher(conn *Connection, exchange, routingKey string, logger *zap.Logger) (*AlertPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AlertPublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

// NotifyAlert publishes one persisted alert.
func (p *AlertPublisher) NotifyAlert(ctx context.Context, alert *domain.Alert) error {
	event := AlertEvent{
		AlertID:       alert.ID.String(),
		VehicleID:     alert.VehicleID,
		AlertType:     string(alert.Type),
		Severity:      string(alert.Severity),
		Message:       alert.Message,
		Confidence:    alert.Confidence,
		TimeframeText: alert.TimeframeText,
		CreatedAt:     alert.CreatedAt.Format(time.RFC3339),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	p.logger.Info("alert notification published",
		zap.Int64("vehicle_id", alert.VehicleID),
		zap.String("alert_type", string(alert.Type)),
		zap.String("severity", string(alert.Severity)),
	)
	return nil
}

// Close closes the publisher channel
func (p *AlertPublisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
