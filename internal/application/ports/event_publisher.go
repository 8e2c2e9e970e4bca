package ports

import (
	"context"

	"github.com/finboard/walletcore/internal/domain/events"
)

// EventPublisher publishes domain events to the message bus. Delivery
// is fire-and-forget with at-least-once semantics; consumers must be
// idempotent. The wallet engine publishes only after a successful
// commit and treats publish failure as a logged warning, never as an
// operation failure.
type EventPublisher interface {
	// Publish publishes one event.
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch publishes several events in one call.
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
