package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/repository"
)

func TestToDomainError(t *testing.T) {
	_, validation := domain.CreateTicket("", "jane@example.com", "s", "m")
	tk, _ := domain.CreateTicket("Jane", "jane@example.com", "s", "m")
	_ = tk.UpdateStatus(domain.TicketStatusClosed)
	conflict := tk.AddReply("hi", "agent-1")

	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", validation, "VALIDATION_FAILED", http.StatusBadRequest},
		{"conflict", conflict, "CONFLICT", http.StatusConflict},
		{"not found", fmt.Errorf("load: %w", repository.ErrNotFound), "NOT_FOUND", http.StatusNotFound},
		{"concurrency", repository.ErrConcurrentUpdate, "CONCURRENT_UPDATE", http.StatusConflict},
		{"timeout", context.DeadlineExceeded, "TIMEOUT", http.StatusGatewayTimeout},
		{"fiber", fiber.NewError(http.StatusMethodNotAllowed, "nope"), "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed},
		{"domain error", NewForbidden("admins only"), "FORBIDDEN", http.StatusForbidden},
		{"unknown", errors.New("disk on fire"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			if got.Code != tc.code || got.HTTPStatus != tc.status {
				t.Fatalf("got %s/%d, want %s/%d", got.Code, got.HTTPStatus, tc.code, tc.status)
			}
		})
	}

	if ToDomainError(nil) != nil {
		t.Fatal("nil must map to nil")
	}
}

func TestValidationDetailsCarryProblems(t *testing.T) {
	_, err := domain.CreateTicket("", "", "", "")
	got := ToDomainError(err)
	problems, ok := got.Details["problems"].([]string)
	if !ok || len(problems) != 4 {
		t.Fatalf("details = %#v", got.Details)
	}

	manual := ToDomainError(NewValidationProblems("Invalid ticket status"))
	if !reflect.DeepEqual(manual.Details["problems"], []string{"Invalid ticket status"}) {
		t.Fatalf("details = %#v", manual.Details)
	}
}

func TestConflictMessageIsReason(t *testing.T) {
	tk, _ := domain.CreateTicket("Jane", "jane@example.com", "s", "m")
	got := ToDomainError(tk.Unassign())
	if got.Message != "Ticket is not assigned" {
		t.Fatalf("message = %q", got.Message)
	}
}
