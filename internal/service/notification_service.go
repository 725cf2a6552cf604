package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lankaconnect/support-service/internal/config"
	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/events"
)

// Email templates rendered by the mail service.
const (
	TemplateTicketConfirmation = "template-support-ticket-confirmation"
	TemplateTicketReply        = "template-support-ticket-reply"
)

const webhookTimeout = 5 * time.Second

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketReplied, n.handleTicketReplied)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	created, ok := event.Payload.(domain.TicketCreated)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.sendEmail(ctx, TemplateTicketConfirmation, created.SubmitterEmail, map[string]string{
		"name":         created.SubmitterName,
		"reference_id": created.ReferenceID,
		"subject":      created.Subject,
	})
	return n.postWebhook(ctx, event)
}

func (n *NotificationService) handleTicketReplied(ctx context.Context, event events.Event) error {
	replied, ok := event.Payload.(domain.TicketReplied)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.sendEmail(ctx, TemplateTicketReply, replied.SubmitterEmail, map[string]string{
		"name":         replied.SubmitterName,
		"reference_id": replied.ReferenceID,
		"subject":      replied.Subject,
		"reply":        replied.ReplyContent,
	})
	return n.postWebhook(ctx, event)
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	assigned, ok := event.Payload.(domain.TicketAssigned)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("agent assignment notice",
		zap.String("ticket_id", event.TicketID),
		zap.String("reference_id", assigned.ReferenceID),
		zap.String("agent_id", assigned.AssignedTo))
	return n.postWebhook(ctx, event)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	return n.postWebhook(ctx, event)
}

// sendEmail hands the message to the mail service. Delivery itself lives
// outside this service, so the request is only logged.
func (n *NotificationService) sendEmail(_ context.Context, template, to string, data map[string]string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Info("email queued",
		zap.String("template", template),
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.Any("data", data))
}

func (n *NotificationService) postWebhook(_ context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	agent := fiber.Post(url).JSON(event).Timeout(webhookTimeout)
	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("post webhook: %w", errors.Join(errs...))
	}
	if status >= fiber.StatusBadRequest {
		return fmt.Errorf("post webhook: unexpected status %d", status)
	}
	n.logger.Debug("webhook delivered",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)),
		zap.Int("status", status))
	return nil
}
