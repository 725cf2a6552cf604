package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Target entity types recorded on audit entries.
const (
	AuditTargetUser          = "User"
	AuditTargetSupportTicket = "SupportTicket"
)

// Audit actions. Callers may use other actions; they are normalized to upper case.
const (
	AuditActionUserLocked            = "USER_LOCKED"
	AuditActionUserUnlocked          = "USER_UNLOCKED"
	AuditActionUserActivated         = "USER_ACTIVATED"
	AuditActionUserDeactivated       = "USER_DEACTIVATED"
	AuditActionTicketCreated         = "TICKET_CREATED"
	AuditActionTicketReplied         = "TICKET_REPLIED"
	AuditActionTicketNoteAdded       = "TICKET_NOTE_ADDED"
	AuditActionTicketStatusChanged   = "TICKET_STATUS_CHANGED"
	AuditActionTicketPriorityChanged = "TICKET_PRIORITY_CHANGED"
	AuditActionTicketAssigned        = "TICKET_ASSIGNED"
	AuditActionTicketUnassigned      = "TICKET_UNASSIGNED"
	AuditActionAuditLogExported      = "AUDIT_LOG_EXPORTED"
)

// Column limits of the audit table. Ids and actions over the limit are
// rejected; client-supplied request metadata is truncated instead.
const (
	MaxAuditIDLength         = 64
	MaxAuditActionLength     = 100
	MaxAuditEntityTypeLength = 100
	MaxAuditIPAddressLength  = 50
	MaxAuditUserAgentLength  = 500
)

// SystemActorID attributes actions that have no authenticated actor, such as
// anonymous contact submissions.
var SystemActorID = uuid.Nil.String()

// AuditLogEntry is an immutable record of one privileged action. There is no
// way to change or remove an entry once built; corrections are new entries.
type AuditLogEntry struct {
	id               string
	actorID          string
	action           string
	targetUserID     string
	targetEntityID   string
	targetEntityType string
	details          string
	ipAddress        string
	userAgent        string
	createdAt        time.Time
}

// AuditOption sets an optional field while building an entry.
type AuditOption func(*AuditLogEntry)

// WithDetails attaches free-form context, typically JSON before/after values.
func WithDetails(details string) AuditOption {
	return func(e *AuditLogEntry) { e.details = strings.TrimSpace(details) }
}

// WithIPAddress records the caller's address.
func WithIPAddress(ip string) AuditOption {
	return func(e *AuditLogEntry) { e.ipAddress = truncate(strings.TrimSpace(ip), MaxAuditIPAddressLength) }
}

// WithUserAgent records the caller's user agent.
func WithUserAgent(userAgent string) AuditOption {
	return func(e *AuditLogEntry) {
		e.userAgent = truncate(strings.TrimSpace(userAgent), MaxAuditUserAgentLength)
	}
}

// WithTarget names the affected entity on a generic entry.
func WithTarget(entityID, entityType string) AuditOption {
	return func(e *AuditLogEntry) {
		e.targetEntityID = strings.TrimSpace(entityID)
		e.targetEntityType = strings.TrimSpace(entityType)
	}
}

// NewUserAuditEntry records an action taken against a user account.
func NewUserAuditEntry(actorID, action, targetUserID string, opts ...AuditOption) (*AuditLogEntry, error) {
	var p problems
	targetUserID = strings.TrimSpace(targetUserID)
	checkID(&p, "Target user ID", targetUserID)
	e, err := newAuditEntry(actorID, action, p, opts)
	if err != nil {
		return nil, err
	}
	e.targetUserID = targetUserID
	e.targetEntityID = ""
	e.targetEntityType = AuditTargetUser
	return e, nil
}

// NewTicketAuditEntry records an action taken against a support ticket.
func NewTicketAuditEntry(actorID, action, ticketID string, opts ...AuditOption) (*AuditLogEntry, error) {
	var p problems
	ticketID = strings.TrimSpace(ticketID)
	checkID(&p, "Ticket ID", ticketID)
	e, err := newAuditEntry(actorID, action, p, opts)
	if err != nil {
		return nil, err
	}
	e.targetUserID = ""
	e.targetEntityID = ticketID
	e.targetEntityType = AuditTargetSupportTicket
	return e, nil
}

// NewAuditEntry records an action with no single addressable target, such as
// a bulk export. Use WithTarget when there is one.
func NewAuditEntry(actorID, action string, opts ...AuditOption) (*AuditLogEntry, error) {
	return newAuditEntry(actorID, action, nil, opts)
}

func newAuditEntry(actorID, action string, p problems, opts []AuditOption) (*AuditLogEntry, error) {
	e := &AuditLogEntry{
		actorID: strings.TrimSpace(actorID),
		action:  strings.ToUpper(strings.TrimSpace(action)),
	}
	for _, opt := range opts {
		opt(e)
	}

	var actor problems
	checkID(&actor, "Actor ID", e.actorID)
	p = append(actor, p...)
	switch {
	case e.action == "":
		p.add("Action is required")
	case utf8.RuneCountInString(e.action) > MaxAuditActionLength:
		p.add(fmt.Sprintf("Action cannot exceed %d characters", MaxAuditActionLength))
	}
	if utf8.RuneCountInString(e.targetEntityID) > MaxAuditIDLength {
		p.add(fmt.Sprintf("Target entity ID cannot exceed %d characters", MaxAuditIDLength))
	}
	if utf8.RuneCountInString(e.targetEntityType) > MaxAuditEntityTypeLength {
		p.add(fmt.Sprintf("Target entity type cannot exceed %d characters", MaxAuditEntityTypeLength))
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	e.id = uuid.NewString()
	e.createdAt = now()
	return e, nil
}

func checkID(p *problems, field, id string) {
	switch {
	case id == "":
		p.add(field + " is required")
	case utf8.RuneCountInString(id) > MaxAuditIDLength:
		p.add(fmt.Sprintf("%s cannot exceed %d characters", field, MaxAuditIDLength))
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func (e *AuditLogEntry) ID() string           { return e.id }
func (e *AuditLogEntry) ActorID() string      { return e.actorID }
func (e *AuditLogEntry) Action() string       { return e.action }
func (e *AuditLogEntry) Details() string      { return e.details }
func (e *AuditLogEntry) CreatedAt() time.Time { return e.createdAt }

// TargetUserID returns the affected user, if the entry has one.
func (e *AuditLogEntry) TargetUserID() (string, bool) {
	return e.targetUserID, e.targetUserID != ""
}

// TargetEntityID returns the affected entity, if the entry has one.
func (e *AuditLogEntry) TargetEntityID() (string, bool) {
	return e.targetEntityID, e.targetEntityID != ""
}

// TargetEntityType returns the kind of the affected entity, if set.
func (e *AuditLogEntry) TargetEntityType() (string, bool) {
	return e.targetEntityType, e.targetEntityType != ""
}

func (e *AuditLogEntry) IPAddress() (string, bool) {
	return e.ipAddress, e.ipAddress != ""
}

func (e *AuditLogEntry) UserAgent() (string, bool) {
	return e.userAgent, e.userAgent != ""
}

// AuditEntrySnapshot is the persisted shape of an AuditLogEntry. Empty strings
// stand for absent optional values.
type AuditEntrySnapshot struct {
	ID               string    `json:"id"`
	ActorID          string    `json:"actor_id"`
	Action           string    `json:"action"`
	TargetUserID     string    `json:"target_user_id,omitempty"`
	TargetEntityID   string    `json:"target_entity_id,omitempty"`
	TargetEntityType string    `json:"target_entity_type,omitempty"`
	Details          string    `json:"details,omitempty"`
	IPAddress        string    `json:"ip_address,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (e *AuditLogEntry) Snapshot() AuditEntrySnapshot {
	return AuditEntrySnapshot{
		ID:               e.id,
		ActorID:          e.actorID,
		Action:           e.action,
		TargetUserID:     e.targetUserID,
		TargetEntityID:   e.targetEntityID,
		TargetEntityType: e.targetEntityType,
		Details:          e.details,
		IPAddress:        e.ipAddress,
		UserAgent:        e.userAgent,
		CreatedAt:        e.createdAt,
	}
}

// RestoreAuditEntry rebuilds a stored entry without validation.
func RestoreAuditEntry(s AuditEntrySnapshot) *AuditLogEntry {
	return &AuditLogEntry{
		id:               s.ID,
		actorID:          s.ActorID,
		action:           s.Action,
		targetUserID:     s.TargetUserID,
		targetEntityID:   s.TargetEntityID,
		targetEntityType: s.TargetEntityType,
		details:          s.Details,
		ipAddress:        s.IPAddress,
		userAgent:        s.UserAgent,
		createdAt:        s.CreatedAt,
	}
}
