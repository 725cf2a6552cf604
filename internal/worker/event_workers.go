package worker

import (
	"github.com/lankaconnect/support-service/internal/events"
	"github.com/lankaconnect/support-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartAuditWorker records an audit entry for every ticket event.
func StartAuditWorker(dispatcher events.Dispatcher, handler *service.AuditEventHandler) {
	if handler == nil {
		return
	}
	handler.RegisterHandlers(dispatcher)
}

// StartEventForwarder relays every event to Kafka. A nil publisher means
// Kafka is not configured.
func StartEventForwarder(dispatcher events.Dispatcher, publisher *events.KafkaPublisher) {
	if dispatcher == nil || publisher == nil {
		return
	}
	dispatcher.SubscribeAll(publisher.Handle)
}
