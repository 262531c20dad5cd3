package worker

import (
	"github.com/anvy22/taskboard/internal/service"
)

// StartNotifier registers the event handlers that turn workflow events
// into ledger entries and realtime pushes.
func StartNotifier(notifier *service.Notifier) {
	if notifier == nil {
		return
	}
	notifier.RegisterHandlers()
}
