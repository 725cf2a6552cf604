package domain

import "time"

// Event names used for routing and on the wire.
const (
	EventTicketCreated       = "support.ticket_created"
	EventTicketReplied       = "support.ticket_replied"
	EventTicketStatusChanged = "support.ticket_status_changed"
	EventTicketAssigned      = "support.ticket_assigned"
)

// DomainEvent is an immutable fact recorded by an aggregate. Events are held on
// the aggregate until the caller has persisted it and drains them.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// TicketCreated is recorded when a contact submission becomes a ticket.
type TicketCreated struct {
	TicketID       string    `json:"ticket_id"`
	ReferenceID    string    `json:"reference_id"`
	SubmitterEmail string    `json:"submitter_email"`
	SubmitterName  string    `json:"submitter_name"`
	Subject        string    `json:"subject"`
	At             time.Time `json:"occurred_at"`
}

func (e TicketCreated) EventName() string     { return EventTicketCreated }
func (e TicketCreated) AggregateID() string   { return e.TicketID }
func (e TicketCreated) OccurredAt() time.Time { return e.At }

// TicketReplied carries the reply so the submitter can be emailed.
type TicketReplied struct {
	TicketID       string    `json:"ticket_id"`
	ReferenceID    string    `json:"reference_id"`
	SubmitterEmail string    `json:"submitter_email"`
	SubmitterName  string    `json:"submitter_name"`
	Subject        string    `json:"subject"`
	ReplyContent   string    `json:"reply_content"`
	AuthorID       string    `json:"author_id"`
	At             time.Time `json:"occurred_at"`
}

func (e TicketReplied) EventName() string     { return EventTicketReplied }
func (e TicketReplied) AggregateID() string   { return e.TicketID }
func (e TicketReplied) OccurredAt() time.Time { return e.At }

// TicketStatusChanged payload.
type TicketStatusChanged struct {
	TicketID    string       `json:"ticket_id"`
	ReferenceID string       `json:"reference_id"`
	OldStatus   TicketStatus `json:"old_status"`
	NewStatus   TicketStatus `json:"new_status"`
	At          time.Time    `json:"occurred_at"`
}

func (e TicketStatusChanged) EventName() string     { return EventTicketStatusChanged }
func (e TicketStatusChanged) AggregateID() string   { return e.TicketID }
func (e TicketStatusChanged) OccurredAt() time.Time { return e.At }

// TicketAssigned payload. PreviousAssignee is nil when the ticket was unassigned.
type TicketAssigned struct {
	TicketID         string    `json:"ticket_id"`
	ReferenceID      string    `json:"reference_id"`
	AssignedTo       string    `json:"assigned_to"`
	PreviousAssignee *string   `json:"previous_assignee,omitempty"`
	At               time.Time `json:"occurred_at"`
}

func (e TicketAssigned) EventName() string     { return EventTicketAssigned }
func (e TicketAssigned) AggregateID() string   { return e.TicketID }
func (e TicketAssigned) OccurredAt() time.Time { return e.At }
