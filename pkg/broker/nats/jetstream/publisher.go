package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is the envelope published for every domain occurrence the CSMS
// wants other consumers (reporting, notification fan-out, audit mirrors)
// to observe without coupling them to the request path that produced it.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

type Publisher struct {
	js     *JetStream
	logger *zap.Logger
	source string
}

func NewPublisher(js *JetStream, logger *zap.Logger, source string) *Publisher {
	return &Publisher{
		js:     js,
		logger: logger,
		source: source,
	}
}

func (p *Publisher) PublishEvent(ctx context.Context, subject, eventType string, data map[string]interface{}) error {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    p.source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event",
			zap.Error(err),
			zap.String("event_type", eventType),
		)
		return fmt.Errorf("publisher - PublishEvent - json.Marshal: %w", err)
	}

	err = p.js.Publish(ctx, subject, eventData)
	if err != nil {
		p.logger.Error("failed to publish event",
			zap.Error(err),
			zap.String("subject", subject),
			zap.String("event_type", eventType),
		)
		return err
	}

	p.logger.Debug("event published",
		zap.String("subject", subject),
		zap.String("event_type", eventType),
		zap.String("event_id", event.ID),
	)

	return nil
}

// PublishChargerConnected announces that a charge point completed BootNotification
// (or reconnected) and is now attached to this CSMS instance.
func (p *Publisher) PublishChargerConnected(ctx context.Context, chargePointID, vendor, model string) error {
	return p.PublishEvent(ctx, "events.charger.connected", "charger.connected", map[string]interface{}{
		"charge_point_id": chargePointID,
		"vendor":          vendor,
		"model":           model,
	})
}

// PublishChargerDisconnected announces that a charge point's connection dropped.
func (p *Publisher) PublishChargerDisconnected(ctx context.Context, chargePointID string) error {
	return p.PublishEvent(ctx, "events.charger.disconnected", "charger.disconnected", map[string]interface{}{
		"charge_point_id": chargePointID,
	})
}

// PublishSessionCompleted announces that a charging session reached status=completed.
func (p *Publisher) PublishSessionCompleted(ctx context.Context, transactionID int64, chargePointID string, energyKWh float64) error {
	return p.PublishEvent(ctx, "events.session.completed", "session.completed", map[string]interface{}{
		"transaction_id":  transactionID,
		"charge_point_id": chargePointID,
		"energy_kwh":      energyKWh,
	})
}

// PublishPaymentCredited announces that a successful top-up was credited to a wallet.
func (p *Publisher) PublishPaymentCredited(ctx context.Context, transactionRef string, userID string, amount string) error {
	return p.PublishEvent(ctx, "events.payment.credited", "payment.credited", map[string]interface{}{
		"transaction_ref": transactionRef,
		"user_id":         userID,
		"amount":          amount,
	})
}

// PublishTicketEscalated announces that a support ticket passed its SLA due time and was escalated.
func (p *Publisher) PublishTicketEscalated(ctx context.Context, ticketNumber string, department string, dueAt time.Time) error {
	return p.PublishEvent(ctx, "events.ticket.escalated", "ticket.escalated", map[string]interface{}{
		"ticket_number": ticketNumber,
		"department":    department,
		"due_at":        dueAt,
	})
}
