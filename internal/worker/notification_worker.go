package worker

import (
	"github.com/societyops/society-service/internal/events"
	"github.com/societyops/society-service/internal/service"
)

// StartNotificationWorker wires the notification service into the event
// dispatcher so every assignment event is logged as it happens.
func StartNotificationWorker(notifications *service.NotificationService, dispatcher events.Dispatcher) {
	if notifications == nil || dispatcher == nil {
		return
	}
	notifications.RegisterHandlers(dispatcher)
}
