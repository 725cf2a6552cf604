package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/lankaconnect/support-service/internal/config"
	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/events"
)

type failureCounter struct {
	mu    sync.Mutex
	count map[string]int
}

func (f *failureCounter) RecordEventFailure(eventType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.count == nil {
		f.count = make(map[string]int)
	}
	f.count[eventType]++
}

func TestNotificationWebhookReceivesEvent(t *testing.T) {
	var (
		mu       sync.Mutex
		received []map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, payload)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	failures := &failureCounter{}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop(), failures)
	NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{
		EmailFrom:  "support@example.com",
		WebhookURL: server.URL,
	}).RegisterHandlers()

	ev := events.NewEvent(events.Actor{}, domain.TicketCreated{
		TicketID:       "t-1",
		ReferenceID:    "CONTACT-20240101-AAAAAAAA",
		SubmitterEmail: "jane@example.com",
		SubmitterName:  "Jane",
		Subject:        "Help",
	})
	if err := dispatcher.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("webhook calls = %d", len(received))
	}
	if received[0]["type"] != string(events.EventTicketCreated) || received[0]["ticket_id"] != "t-1" {
		t.Fatalf("unexpected webhook body %v", received[0])
	}
	if len(failures.count) != 0 {
		t.Fatalf("unexpected failures %v", failures.count)
	}
}

func TestNotificationWebhookFailureIsCounted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	failures := &failureCounter{}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop(), failures)
	NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{WebhookURL: server.URL}).RegisterHandlers()

	ev := events.NewEvent(events.Actor{ID: "lead-1"}, domain.TicketAssigned{TicketID: "t-1", AssignedTo: "agent-1"})
	if err := dispatcher.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if failures.count[string(events.EventTicketAssigned)] != 1 {
		t.Fatalf("failures = %v", failures.count)
	}
}

func TestNotificationWithoutWebhookIsNoop(t *testing.T) {
	n := NewNotificationService(nil, nil, config.NotificationConfig{})
	ev := events.NewEvent(events.Actor{}, domain.TicketReplied{TicketID: "t-1", SubmitterEmail: "jane@example.com"})
	if err := n.handleTicketReplied(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if err := n.handleTicketCreated(context.Background(), events.NewEvent(events.Actor{}, domain.TicketReplied{TicketID: "t-1"})); err == nil {
		t.Fatal("mismatched payload should fail")
	}
}
