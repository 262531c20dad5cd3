package realtime

import (
	"go.uber.org/zap"

	"github.com/anvy22/taskboard/internal/observability"
)

// Emitter pushes events to connected sessions through the registry.
// Delivery is at-most-once and never queued: an offline recipient simply
// misses the push and recovers from the notification ledger or a re-fetch.
type Emitter struct {
	registry *Registry
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewEmitter constructs an emitter over the given registry.
func NewEmitter(registry *Registry, logger *zap.Logger, metrics *observability.Metrics) *Emitter {
	return &Emitter{registry: registry, logger: logger, metrics: metrics}
}

// EmitToUser pushes (event, payload) to the identity's live session.
// A false return means the recipient is offline; that is expected
// behavior, not an error, and the caller must not retry.
func (e *Emitter) EmitToUser(identity, event string, payload any) bool {
	session, ok := e.registry.Lookup(identity)
	if !ok {
		e.logger.Debug("recipient offline, push dropped",
			zap.String("event", event),
			zap.String("identity", identity))
		e.metrics.RecordEmit(event, false)
		return false
	}
	if err := session.Send(event, payload); err != nil {
		e.logger.Info("push failed",
			zap.String("event", event),
			zap.String("identity", identity),
			zap.Error(err))
		e.metrics.RecordEmit(event, false)
		return false
	}
	e.metrics.RecordEmit(event, true)
	return true
}

// EmitToAll pushes to every connected session. Used only for coarse
// presence broadcasts, never for state that must be durable.
func (e *Emitter) EmitToAll(event string, payload any) {
	for _, session := range e.registry.Sessions() {
		if err := session.Send(event, payload); err != nil {
			e.logger.Debug("broadcast push failed", zap.String("event", event), zap.Error(err))
			e.metrics.RecordEmit(event, false)
			continue
		}
		e.metrics.RecordEmit(event, true)
	}
}
