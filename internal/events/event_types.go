package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lankaconnect/support-service/internal/domain"
)

// EventType is the routing key of a published event.
type EventType string

const (
	EventTicketCreated       EventType = domain.EventTicketCreated
	EventTicketReplied       EventType = domain.EventTicketReplied
	EventTicketStatusChanged EventType = domain.EventTicketStatusChanged
	EventTicketAssigned      EventType = domain.EventTicketAssigned
)

// TicketEventTypes lists every ticket event in the order they are documented.
func TicketEventTypes() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketReplied,
		EventTicketStatusChanged,
		EventTicketAssigned,
	}
}

// Actor is the caller on whose behalf an event was produced. ID is empty for
// anonymous submissions.
type Actor struct {
	ID        string `json:"id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Event wraps a domain event with delivery metadata.
type Event struct {
	ID        string             `json:"id"`
	Type      EventType          `json:"type"`
	TicketID  string             `json:"ticket_id"`
	Actor     Actor              `json:"actor"`
	Timestamp time.Time          `json:"timestamp"`
	Payload   domain.DomainEvent `json:"payload"`
}

// NewEvent wraps payload for publication.
func NewEvent(actor Actor, payload domain.DomainEvent) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventType(payload.EventName()),
		TicketID:  payload.AggregateID(),
		Actor:     actor,
		Timestamp: payload.OccurredAt(),
		Payload:   payload,
	}
}

type actorKey struct{}

// WithActor attaches the request's actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
