package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/lankaconnect/support-service/internal/config"
)

type recordingWriter struct {
	messages []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisherKeysByTicket(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w, topic: "support.ticket-events"}

	ev := createdEvent()
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(w.messages) != 1 {
		t.Fatalf("messages = %d", len(w.messages))
	}
	msg := w.messages[0]
	if msg.Topic != "support.ticket-events" || string(msg.Key) != "ticket-1" {
		t.Fatalf("topic=%q key=%q", msg.Topic, msg.Key)
	}

	var decoded struct {
		Type     string         `json:"type"`
		TicketID string         `json:"ticket_id"`
		Payload  map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "support.ticket_created" || decoded.Payload["reference_id"] != "CONTACT-20250101-0000AAAA" {
		t.Fatalf("unexpected payload %s", msg.Value)
	}
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaPublisher(config.KafkaConfig{Topic: "t"}); err == nil {
		t.Fatal("expected error without brokers")
	}
	p, err := NewKafkaPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", ClientID: "svc"})
	if err != nil {
		t.Fatal(err)
	}
	_ = p.Close()
}
