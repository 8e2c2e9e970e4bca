// Package nats publishes domain events to a NATS subject per event
// type. Delivery is fire-and-forget; consumers are expected to be
// idempotent on event_id.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/domain/events"
)

var _ ports.EventPublisher = (*EventPublisher)(nil)

// SubjectPrefix namespaces every published subject, e.g.
// "walletcore.transfer.confirmed".
const SubjectPrefix = "walletcore"

// EventPublisher implements ports.EventPublisher on a NATS connection.
type EventPublisher struct {
	conn *nats.Conn
}

// Connect dials NATS with reconnect enabled and wraps the connection
// in a publisher.
func Connect(url string) (*EventPublisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &EventPublisher{conn: conn}, nil
}

// NewEventPublisher wraps an existing connection. Useful in tests.
func NewEventPublisher(conn *nats.Conn) *EventPublisher {
	return &EventPublisher{conn: conn}
}

// envelope is the wire shape of every event: common metadata plus the
// event's own exported fields as the payload.
type envelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Publish publishes one event to "<prefix>.<event type>".
func (p *EventPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	data, err := json.Marshal(envelope{
		EventID:     event.EventID().String(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID().String(),
		OccurredAt:  event.OccurredAt(),
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := SubjectPrefix + "." + event.EventType()
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	return nil
}

// PublishBatch publishes events in order, stopping at the first error.
func (p *EventPublisher) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	for _, ev := range evs {
		if err := p.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered messages and closes the connection.
func (p *EventPublisher) Close() error {
	if err := p.conn.Flush(); err != nil {
		p.conn.Close()
		return err
	}
	p.conn.Close()
	return nil
}
