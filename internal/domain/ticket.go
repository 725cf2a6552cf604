package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxNameLength    = 100
	MaxSubjectLength = 200
	MaxMessageLength = 10000

	referencePrefix = "CONTACT-"
)

// now is the aggregate's clock. Tests replace it for deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

// Ticket is the aggregate for support requests submitted through the contact form.
// All mutation goes through its methods; each successful state-changing call
// records at most one DomainEvent for the caller to dispatch after persisting.
type Ticket struct {
	id             string
	referenceID    string
	submitterName  string
	submitterEmail Email
	subject        string
	message        string
	status         TicketStatus
	priority       TicketPriority
	assignedTo     *string
	replies        []TicketReply
	notes          []TicketNote
	createdAt      time.Time
	updatedAt      time.Time
	version        int

	pendingEvents []DomainEvent
}

// CreateTicket validates a contact submission and opens a New ticket.
// Every violated constraint is reported in a single *ValidationError.
func CreateTicket(submitterName, submitterEmail, subject, message string) (*Ticket, error) {
	var p problems

	name := strings.TrimSpace(submitterName)
	switch {
	case name == "":
		p.add("Name is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		p.add("Name cannot exceed 100 characters")
	}

	email, err := ParseEmail(submitterEmail)
	if verr, ok := err.(*ValidationError); ok {
		p = append(p, verr.Problems...)
	}

	subj := strings.TrimSpace(subject)
	switch {
	case subj == "":
		p.add("Subject is required")
	case utf8.RuneCountInString(subj) > MaxSubjectLength:
		p.add("Subject cannot exceed 200 characters")
	}

	msg := strings.TrimSpace(message)
	switch {
	case msg == "":
		p.add("Message is required")
	case utf8.RuneCountInString(msg) > MaxMessageLength:
		p.add("Message cannot exceed 10000 characters")
	}

	if err := p.err(); err != nil {
		return nil, err
	}

	at := now()
	t := &Ticket{
		id:             uuid.NewString(),
		referenceID:    NewReferenceID(at),
		submitterName:  name,
		submitterEmail: email,
		subject:        subj,
		message:        msg,
		status:         TicketStatusNew,
		priority:       TicketPriorityNormal,
		createdAt:      at,
		updatedAt:      at,
	}
	t.record(TicketCreated{
		TicketID:       t.id,
		ReferenceID:    t.referenceID,
		SubmitterEmail: email.String(),
		SubmitterName:  name,
		Subject:        subj,
		At:             at,
	})
	return t, nil
}

// NewReferenceID formats CONTACT-<YYYYMMDD>-<8 uppercase hex> using the UTC date of at.
func NewReferenceID(at time.Time) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return referencePrefix + at.UTC().Format("20060102") + "-" + hex
}

func (t *Ticket) ID() string               { return t.id }
func (t *Ticket) ReferenceID() string      { return t.referenceID }
func (t *Ticket) SubmitterName() string    { return t.submitterName }
func (t *Ticket) SubmitterEmail() Email    { return t.submitterEmail }
func (t *Ticket) Subject() string          { return t.subject }
func (t *Ticket) Message() string          { return t.message }
func (t *Ticket) Status() TicketStatus     { return t.status }
func (t *Ticket) Priority() TicketPriority { return t.priority }
func (t *Ticket) CreatedAt() time.Time     { return t.createdAt }
func (t *Ticket) UpdatedAt() time.Time     { return t.updatedAt }
func (t *Ticket) Version() int             { return t.version }

// AssignedTo returns the current assignee, if any.
func (t *Ticket) AssignedTo() (string, bool) {
	if t.assignedTo == nil {
		return "", false
	}
	return *t.assignedTo, true
}

// Replies returns a copy of the replies in the order they were added.
func (t *Ticket) Replies() []TicketReply {
	return append([]TicketReply(nil), t.replies...)
}

// Notes returns a copy of the internal notes in the order they were added.
func (t *Ticket) Notes() []TicketNote {
	return append([]TicketNote(nil), t.notes...)
}

// IsClosed reports whether the ticket reached its terminal state.
func (t *Ticket) IsClosed() bool {
	return t.status.IsTerminal()
}

// AddReply appends a customer-visible reply. The first reply on a New ticket
// moves it to InProgress.
func (t *Ticket) AddReply(content, authorID string) error {
	if t.IsClosed() {
		return conflict("Cannot reply to closed ticket")
	}
	content, authorID, err := validateMessage("Reply", content, authorID, MaxReplyLength)
	if err != nil {
		return err
	}

	at := now()
	t.replies = append(t.replies, TicketReply{
		ID:        uuid.NewString(),
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: at,
	})
	if t.status == TicketStatusNew {
		t.status = TicketStatusInProgress
	}
	t.updatedAt = at
	t.record(TicketReplied{
		TicketID:       t.id,
		ReferenceID:    t.referenceID,
		SubmitterEmail: t.submitterEmail.String(),
		SubmitterName:  t.submitterName,
		Subject:        t.subject,
		ReplyContent:   content,
		AuthorID:       authorID,
		At:             at,
	})
	return nil
}

// AddNote appends an internal note. Notes are accepted on closed tickets so
// staff can keep annotating history after closure.
func (t *Ticket) AddNote(content, authorID string) error {
	content, authorID, err := validateMessage("Note", content, authorID, MaxNoteLength)
	if err != nil {
		return err
	}
	at := now()
	t.notes = append(t.notes, TicketNote{
		ID:        uuid.NewString(),
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: at,
	})
	t.updatedAt = at
	return nil
}

// UpdateStatus moves the ticket to newStatus. Closed accepts no transition.
func (t *Ticket) UpdateStatus(newStatus TicketStatus) error {
	if t.IsClosed() {
		return conflict("Cannot change status of a closed ticket")
	}
	if !newStatus.IsValid() {
		return &ValidationError{Problems: []string{"Invalid ticket status"}}
	}
	if newStatus == t.status {
		return conflict("Ticket status is already set to this value")
	}

	at := now()
	old := t.status
	t.status = newStatus
	t.updatedAt = at
	t.record(TicketStatusChanged{
		TicketID:    t.id,
		ReferenceID: t.referenceID,
		OldStatus:   old,
		NewStatus:   newStatus,
		At:          at,
	})
	return nil
}

// UpdatePriority changes the priority of an open ticket.
func (t *Ticket) UpdatePriority(newPriority TicketPriority) error {
	if t.IsClosed() {
		return conflict("Cannot change priority of a closed ticket")
	}
	if !newPriority.IsValid() {
		return &ValidationError{Problems: []string{"Invalid ticket priority"}}
	}
	if newPriority == t.priority {
		return conflict("Ticket priority is already set to this value")
	}
	t.priority = newPriority
	t.updatedAt = now()
	return nil
}

// AssignTo hands the ticket to agentID.
func (t *Ticket) AssignTo(agentID string) error {
	if t.IsClosed() {
		return conflict("Cannot assign a closed ticket")
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return &ValidationError{Problems: []string{"Assignee ID is required"}}
	}
	if t.assignedTo != nil && *t.assignedTo == agentID {
		return conflict("Ticket is already assigned to this user")
	}

	at := now()
	previous := t.assignedTo
	assignee := agentID
	t.assignedTo = &assignee
	t.updatedAt = at
	t.record(TicketAssigned{
		TicketID:         t.id,
		ReferenceID:      t.referenceID,
		AssignedTo:       assignee,
		PreviousAssignee: previous,
		At:               at,
	})
	return nil
}

// Unassign clears the assignee.
func (t *Ticket) Unassign() error {
	if t.IsClosed() {
		return conflict("Cannot unassign a closed ticket")
	}
	if t.assignedTo == nil {
		return conflict("Ticket is not assigned")
	}
	t.assignedTo = nil
	t.updatedAt = now()
	return nil
}

// PendingEvents returns a copy of the events recorded since the last drain.
func (t *Ticket) PendingEvents() []DomainEvent {
	return append([]DomainEvent(nil), t.pendingEvents...)
}

// TakeEvents returns the recorded events in order and clears them. Call it only
// after the ticket has been persisted.
func (t *Ticket) TakeEvents() []DomainEvent {
	out := t.pendingEvents
	t.pendingEvents = nil
	return out
}

// IncrementVersion is called by stores after a successful optimistic write.
func (t *Ticket) IncrementVersion() {
	t.version++
}

func (t *Ticket) record(event DomainEvent) {
	t.pendingEvents = append(t.pendingEvents, event)
}

// TicketSnapshot is the persisted shape of a Ticket.
type TicketSnapshot struct {
	ID             string         `json:"id"`
	ReferenceID    string         `json:"reference_id"`
	SubmitterName  string         `json:"submitter_name"`
	SubmitterEmail string         `json:"submitter_email"`
	Subject        string         `json:"subject"`
	Message        string         `json:"message"`
	Status         TicketStatus   `json:"status"`
	Priority       TicketPriority `json:"priority"`
	AssignedTo     *string        `json:"assigned_to,omitempty"`
	Replies        []TicketReply  `json:"replies"`
	Notes          []TicketNote   `json:"notes"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Version        int            `json:"version"`
}

// Snapshot captures the ticket's state. Pending events are not part of it.
func (t *Ticket) Snapshot() TicketSnapshot {
	var assignee *string
	if t.assignedTo != nil {
		v := *t.assignedTo
		assignee = &v
	}
	return TicketSnapshot{
		ID:             t.id,
		ReferenceID:    t.referenceID,
		SubmitterName:  t.submitterName,
		SubmitterEmail: t.submitterEmail.String(),
		Subject:        t.subject,
		Message:        t.message,
		Status:         t.status,
		Priority:       t.priority,
		AssignedTo:     assignee,
		Replies:        t.Replies(),
		Notes:          t.Notes(),
		CreatedAt:      t.createdAt,
		UpdatedAt:      t.updatedAt,
		Version:        t.version,
	}
}

// RestoreTicket rebuilds a ticket from storage without validation; the data
// was valid when it was written.
func RestoreTicket(s TicketSnapshot) *Ticket {
	t := &Ticket{
		id:             s.ID,
		referenceID:    s.ReferenceID,
		submitterName:  s.SubmitterName,
		submitterEmail: Email(s.SubmitterEmail),
		subject:        s.Subject,
		message:        s.Message,
		status:         s.Status,
		priority:       s.Priority,
		replies:        append([]TicketReply(nil), s.Replies...),
		notes:          append([]TicketNote(nil), s.Notes...),
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
		version:        s.Version,
	}
	if s.AssignedTo != nil {
		v := *s.AssignedTo
		t.assignedTo = &v
	}
	return t
}
