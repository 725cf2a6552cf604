package domain

import (
	"encoding/json"
	"testing"
)

func TestParseTicketStatus(t *testing.T) {
	cases := map[string]TicketStatus{
		"New":                  TicketStatusNew,
		"in_progress":          TicketStatusInProgress,
		"IN PROGRESS":          TicketStatusInProgress,
		"waiting-for-response": TicketStatusWaitingForResponse,
		" resolved ":           TicketStatusResolved,
		"closed":               TicketStatusClosed,
	}
	for raw, want := range cases {
		got, err := ParseTicketStatus(raw)
		if err != nil || got != want {
			t.Errorf("ParseTicketStatus(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}
	if _, err := ParseTicketStatus("archived"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestParseTicketPriority(t *testing.T) {
	for _, p := range TicketPriorities() {
		got, err := ParseTicketPriority(p.String())
		if err != nil || got != p {
			t.Errorf("ParseTicketPriority(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParseTicketPriority("critical"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestStatusLabelsAndStorage(t *testing.T) {
	if TicketStatusWaitingForResponse.Label() != "Waiting for Response" {
		t.Errorf("label = %q", TicketStatusWaitingForResponse.Label())
	}
	if int(TicketStatusNew) != 1 || int(TicketStatusClosed) != 5 {
		t.Error("stored status values changed")
	}
	if int(TicketPriorityLow) != 1 || int(TicketPriorityUrgent) != 4 {
		t.Error("stored priority values changed")
	}
	if !TicketStatusClosed.IsTerminal() || TicketStatusResolved.IsTerminal() {
		t.Error("only Closed is terminal")
	}
	if TicketStatus(0).IsValid() || TicketPriority(5).IsValid() {
		t.Error("out-of-range values must be invalid")
	}
}

func TestStatusJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		S TicketStatus   `json:"s"`
		P TicketPriority `json:"p"`
	}{TicketStatusInProgress, TicketPriorityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"s":"InProgress","p":"High"}` {
		t.Fatalf("json = %s", raw)
	}
	if _, err := json.Marshal(TicketStatus(9)); err == nil {
		t.Fatal("invalid status must not marshal")
	}
}
