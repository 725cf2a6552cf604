package domain

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNewUserAuditEntry(t *testing.T) {
	at := time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	fixClock(t, at)

	e, err := NewUserAuditEntry(" admin-1 ", "user_locked", " user-9 ",
		WithDetails(`{"reason":"abuse"}`), WithIPAddress("10.0.0.1"), WithUserAgent("curl/8"))
	if err != nil {
		t.Fatal(err)
	}
	if e.ID() == "" || e.ActorID() != "admin-1" || e.Action() != AuditActionUserLocked {
		t.Fatalf("unexpected entry %+v", e.Snapshot())
	}
	if id, ok := e.TargetUserID(); !ok || id != "user-9" {
		t.Fatalf("target user = %q", id)
	}
	if typ, _ := e.TargetEntityType(); typ != AuditTargetUser {
		t.Fatalf("target type = %q", typ)
	}
	if _, ok := e.TargetEntityID(); ok {
		t.Fatal("user entries carry no entity id")
	}
	if ip, ok := e.IPAddress(); !ok || ip != "10.0.0.1" {
		t.Fatalf("ip = %q", ip)
	}
	if ua, ok := e.UserAgent(); !ok || ua != "curl/8" {
		t.Fatalf("user agent = %q", ua)
	}
	if !e.CreatedAt().Equal(at) {
		t.Fatalf("created_at = %v", e.CreatedAt())
	}
}

func TestNewTicketAuditEntry(t *testing.T) {
	e, err := NewTicketAuditEntry("agent-1", AuditActionTicketNoteAdded, "ticket-1")
	if err != nil {
		t.Fatal(err)
	}
	if id, ok := e.TargetEntityID(); !ok || id != "ticket-1" {
		t.Fatalf("entity id = %q", id)
	}
	if typ, _ := e.TargetEntityType(); typ != AuditTargetSupportTicket {
		t.Fatalf("entity type = %q", typ)
	}
	if _, ok := e.TargetUserID(); ok {
		t.Fatal("ticket entries carry no target user")
	}
	if _, ok := e.IPAddress(); ok {
		t.Fatal("ip should be absent")
	}
}

func TestNewAuditEntryWithTarget(t *testing.T) {
	e, err := NewAuditEntry("admin-1", "audit_log_exported", WithTarget("", ""))
	if err != nil {
		t.Fatal(err)
	}
	if e.Action() != AuditActionAuditLogExported {
		t.Fatalf("action = %q", e.Action())
	}
	if _, ok := e.TargetEntityType(); ok {
		t.Fatal("blank target should be absent")
	}
}

func TestAuditEntryValidation(t *testing.T) {
	_, err := NewUserAuditEntry("", " ", "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := []string{"Actor ID is required", "Target user ID is required", "Action is required"}
	if got := problemsOf(t, err); !reflect.DeepEqual(got, want) {
		t.Fatalf("problems = %q, want %q", got, want)
	}

	_, err = NewTicketAuditEntry("agent-1", "TICKET_REPLIED", "")
	if got := problemsOf(t, err); len(got) != 1 || got[0] != "Ticket ID is required" {
		t.Fatalf("problems = %q", got)
	}
}

func TestTicketRepliedAuditEntry(t *testing.T) {
	e, err := NewTicketAuditEntry("agent-1", "ticket_replied", "ticket-42",
		WithDetails(`{"reference_id":"CONTACT-20250101-0000AAAA"}`))
	if err != nil {
		t.Fatal(err)
	}
	if e.Action() != AuditActionTicketReplied {
		t.Fatalf("action = %q", e.Action())
	}
	if typ, ok := e.TargetEntityType(); !ok || typ != AuditTargetSupportTicket {
		t.Fatalf("entity type = %q", typ)
	}
	if id, _ := e.TargetEntityID(); id != "ticket-42" {
		t.Fatalf("entity id = %q", id)
	}
	if _, ok := e.TargetUserID(); ok {
		t.Fatal("ticket entries carry no target user")
	}
	if e.Details() != `{"reference_id":"CONTACT-20250101-0000AAAA"}` {
		t.Fatalf("details = %q", e.Details())
	}
}

func TestAuditEntryColumnLimits(t *testing.T) {
	e, err := NewTicketAuditEntry("agent-1", AuditActionTicketReplied, "ticket-1",
		WithUserAgent(strings.Repeat("U", 600)), WithIPAddress(strings.Repeat("1", 80)))
	if err != nil {
		t.Fatal(err)
	}
	if ua, _ := e.UserAgent(); len(ua) != MaxAuditUserAgentLength {
		t.Fatalf("user agent length = %d", len(ua))
	}
	if ip, _ := e.IPAddress(); len(ip) != MaxAuditIPAddressLength {
		t.Fatalf("ip length = %d", len(ip))
	}

	e, err = NewTicketAuditEntry("agent-1", "ticket_replied", "ticket-1", WithUserAgent(strings.Repeat("é", 501)))
	if err != nil {
		t.Fatal(err)
	}
	if ua, _ := e.UserAgent(); ua != strings.Repeat("é", 500) {
		t.Fatal("truncation must keep whole characters")
	}

	_, err = NewTicketAuditEntry(strings.Repeat("a", 65), strings.Repeat("a", 150), strings.Repeat("t", 65))
	want := []string{
		"Actor ID cannot exceed 64 characters",
		"Ticket ID cannot exceed 64 characters",
		"Action cannot exceed 100 characters",
	}
	if got := problemsOf(t, err); !reflect.DeepEqual(got, want) {
		t.Fatalf("problems = %q, want %q", got, want)
	}

	_, err = NewUserAuditEntry("admin-1", AuditActionUserLocked, strings.Repeat("u", 65))
	if got := problemsOf(t, err); len(got) != 1 || got[0] != "Target user ID cannot exceed 64 characters" {
		t.Fatalf("problems = %q", got)
	}

	_, err = NewAuditEntry("admin-1", AuditActionAuditLogExported, WithTarget(strings.Repeat("x", 65), "Report"))
	if got := problemsOf(t, err); len(got) != 1 || got[0] != "Target entity ID cannot exceed 64 characters" {
		t.Fatalf("problems = %q", got)
	}
}

func TestAuditEntrySnapshotRoundTrip(t *testing.T) {
	e, err := NewTicketAuditEntry("agent-1", AuditActionTicketAssigned, "ticket-1", WithDetails(`{"to":"agent-2"}`))
	if err != nil {
		t.Fatal(err)
	}
	restored := RestoreAuditEntry(e.Snapshot())
	if !reflect.DeepEqual(e, restored) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", e.Snapshot(), restored.Snapshot())
	}
}
