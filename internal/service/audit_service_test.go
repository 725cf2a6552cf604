package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/events"
	"github.com/lankaconnect/support-service/internal/repository"
)

func TestRecordUserActionUsesContextActor(t *testing.T) {
	db := repository.NewMemoryDB()
	audit := NewAuditService(db, zap.NewNop())
	ctx := events.WithActor(context.Background(), events.Actor{ID: "admin-1", IPAddress: "192.0.2.1"})

	if _, err := audit.RecordUserAction(ctx, "user_locked", "user-9", map[string]string{"reason": "abuse"}); err != nil {
		t.Fatal(err)
	}
	entries, err := audit.ForUser(context.Background(), "user-9")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	entry := entries[0]
	if entry.ActorID() != "admin-1" || entry.Action() != domain.AuditActionUserLocked {
		t.Fatalf("unexpected entry %+v", entry.Snapshot())
	}
	var details map[string]string
	if err := json.Unmarshal([]byte(entry.Details()), &details); err != nil || details["reason"] != "abuse" {
		t.Fatalf("details = %q", entry.Details())
	}
	if kind, _ := entry.TargetEntityType(); kind != domain.AuditTargetUser {
		t.Fatalf("target type = %q", kind)
	}
}

func TestRecordRejectsMissingTarget(t *testing.T) {
	audit := NewAuditService(repository.NewMemoryDB(), nil)
	err := audit.RecordTicketAction(context.Background(), domain.AuditActionTicketNoteAdded, " ", nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	page, _ := audit.List(context.Background(), repository.AuditQuery{})
	if page.TotalCount != 0 {
		t.Fatal("invalid entry must not be stored")
	}
}

func TestExportWritesCSVAndAuditsItself(t *testing.T) {
	db := repository.NewMemoryDB()
	audit := NewAuditService(db, nil)
	admin := events.WithActor(context.Background(), events.Actor{ID: "admin-1"})

	for i := 0; i < repository.MaxPageSize+5; i++ {
		if err := audit.RecordTicketAction(admin, domain.AuditActionTicketAssigned, "ticket-1", nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := audit.RecordUserAction(admin, domain.AuditActionUserUnlocked, "user-1", nil); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	n, err := audit.Export(admin, repository.AuditQuery{Action: domain.AuditActionTicketAssigned}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != repository.MaxPageSize+5 {
		t.Fatalf("rows = %d", n)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != n+1 || rows[0][0] != "id" || rows[0][3] != "action" {
		t.Fatalf("unexpected csv shape: %d rows, header %v", len(rows), rows[0])
	}
	if rows[1][3] != domain.AuditActionTicketAssigned || rows[1][6] != "ticket-1" {
		t.Fatalf("unexpected row %v", rows[1])
	}

	exports, _ := audit.List(context.Background(), repository.AuditQuery{Action: domain.AuditActionAuditLogExported})
	if exports.TotalCount != 1 || exports.Items[0].ActorID() != "admin-1" {
		t.Fatalf("export not audited: %+v", exports)
	}
}

func TestAuditEventHandlerMapsEvents(t *testing.T) {
	db := repository.NewMemoryDB()
	audit := NewAuditService(db, nil)
	handler := NewAuditEventHandler(audit)
	prev := "agent-1"

	cases := []struct {
		payload domain.DomainEvent
		action  string
		detail  string
	}{
		{domain.TicketCreated{TicketID: "t-1", ReferenceID: "CONTACT-20240101-AAAAAAAA"}, domain.AuditActionTicketCreated, "reference_id"},
		{domain.TicketReplied{TicketID: "t-1", AuthorID: "agent-1"}, domain.AuditActionTicketReplied, "author_id"},
		{domain.TicketStatusChanged{TicketID: "t-1", OldStatus: domain.TicketStatusNew, NewStatus: domain.TicketStatusResolved}, domain.AuditActionTicketStatusChanged, "new_status"},
		{domain.TicketAssigned{TicketID: "t-1", AssignedTo: "agent-2", PreviousAssignee: &prev}, domain.AuditActionTicketAssigned, "previous_assignee"},
	}
	for _, tc := range cases {
		ev := events.NewEvent(events.Actor{ID: "agent-9"}, tc.payload)
		if err := handler.Handle(context.Background(), ev); err != nil {
			t.Fatalf("%s: %v", tc.action, err)
		}
		page, _ := audit.List(context.Background(), repository.AuditQuery{Action: tc.action})
		if page.TotalCount != 1 {
			t.Fatalf("%s: entries = %d", tc.action, page.TotalCount)
		}
		entry := page.Items[0]
		var details map[string]any
		if err := json.Unmarshal([]byte(entry.Details()), &details); err != nil {
			t.Fatalf("%s: details %q: %v", tc.action, entry.Details(), err)
		}
		if _, ok := details[tc.detail]; !ok {
			t.Errorf("%s: missing %q in %v", tc.action, tc.detail, details)
		}
		if entry.ActorID() != "agent-9" {
			t.Errorf("%s: actor = %q", tc.action, entry.ActorID())
		}
	}
}
