package domain

import (
	"fmt"
	"strings"
)

// TicketStatus enumerates lifecycle states for tickets.
// The numeric values are the stored representation.
type TicketStatus int

const (
	TicketStatusNew                TicketStatus = 1
	TicketStatusInProgress         TicketStatus = 2
	TicketStatusWaitingForResponse TicketStatus = 3
	TicketStatusResolved           TicketStatus = 4
	TicketStatusClosed             TicketStatus = 5
)

// TicketPriority enumerates ticket urgency.
type TicketPriority int

const (
	TicketPriorityLow    TicketPriority = 1
	TicketPriorityNormal TicketPriority = 2
	TicketPriorityHigh   TicketPriority = 3
	TicketPriorityUrgent TicketPriority = 4
)

type enumInfo struct {
	name  string
	label string
}

var ticketStatusInfo = map[TicketStatus]enumInfo{
	TicketStatusNew:                {name: "New", label: "New"},
	TicketStatusInProgress:         {name: "InProgress", label: "In Progress"},
	TicketStatusWaitingForResponse: {name: "WaitingForResponse", label: "Waiting for Response"},
	TicketStatusResolved:           {name: "Resolved", label: "Resolved"},
	TicketStatusClosed:             {name: "Closed", label: "Closed"},
}

var ticketPriorityInfo = map[TicketPriority]enumInfo{
	TicketPriorityLow:    {name: "Low", label: "Low"},
	TicketPriorityNormal: {name: "Normal", label: "Normal"},
	TicketPriorityHigh:   {name: "High", label: "High"},
	TicketPriorityUrgent: {name: "Urgent", label: "Urgent"},
}

// TicketStatuses lists every status in lifecycle order.
func TicketStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusNew,
		TicketStatusInProgress,
		TicketStatusWaitingForResponse,
		TicketStatusResolved,
		TicketStatusClosed,
	}
}

// TicketPriorities lists every priority from lowest to highest.
func TicketPriorities() []TicketPriority {
	return []TicketPriority{
		TicketPriorityLow,
		TicketPriorityNormal,
		TicketPriorityHigh,
		TicketPriorityUrgent,
	}
}

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	_, ok := ticketStatusInfo[s]
	return ok
}

// IsTerminal reports whether no further change is allowed from s.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed
}

func (s TicketStatus) String() string {
	if info, ok := ticketStatusInfo[s]; ok {
		return info.name
	}
	return fmt.Sprintf("TicketStatus(%d)", int(s))
}

// Label returns the human-facing name.
func (s TicketStatus) Label() string {
	if info, ok := ticketStatusInfo[s]; ok {
		return info.label
	}
	return s.String()
}

func (s TicketStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid ticket status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *TicketStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseTicketStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseTicketStatus accepts the canonical name, case-insensitively, with or
// without separators ("InProgress", "in_progress", "in progress").
func ParseTicketStatus(raw string) (TicketStatus, error) {
	key := normalizeEnumKey(raw)
	for status, info := range ticketStatusInfo {
		if strings.ToLower(info.name) == key {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown ticket status %q", raw)
}

// IsValid reports whether p is a known priority.
func (p TicketPriority) IsValid() bool {
	_, ok := ticketPriorityInfo[p]
	return ok
}

func (p TicketPriority) String() string {
	if info, ok := ticketPriorityInfo[p]; ok {
		return info.name
	}
	return fmt.Sprintf("TicketPriority(%d)", int(p))
}

// Label returns the human-facing name.
func (p TicketPriority) Label() string {
	if info, ok := ticketPriorityInfo[p]; ok {
		return info.label
	}
	return p.String()
}

func (p TicketPriority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid ticket priority %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *TicketPriority) UnmarshalText(text []byte) error {
	parsed, err := ParseTicketPriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseTicketPriority accepts the canonical name case-insensitively.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	key := normalizeEnumKey(raw)
	for priority, info := range ticketPriorityInfo {
		if strings.ToLower(info.name) == key {
			return priority, nil
		}
	}
	return 0, fmt.Errorf("unknown ticket priority %q", raw)
}

func normalizeEnumKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, "-", "")
	return strings.ReplaceAll(key, " ", "")
}
