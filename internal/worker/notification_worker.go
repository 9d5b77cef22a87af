package worker

import (
	"github.com/spec-kit/fault-service/internal/events"
	"github.com/spec-kit/fault-service/internal/service"
)

// StartNotificationWorker wires the notification handlers into the event
// dispatcher. Comment events intentionally have no email handler.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService) {
	dispatcher.Subscribe(events.EventFaultCreated, notifications.HandleFaultCreated)
	dispatcher.Subscribe(events.EventFaultAssigned, notifications.HandleFaultAssigned)
	dispatcher.Subscribe(events.EventFaultStatusChanged, notifications.HandleFaultStatusChanged)
}
