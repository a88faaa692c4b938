package services

import (
	"encoding/json"
	"log/slog"
)

// Routing keys of the account events.
const (
	EventUserRegistered         = "account.user.registered"
	EventPasswordResetRequested = "account.password_reset.requested"
)

// EventPublisher delivers account events to downstream consumers such as a mailer.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// publishEvent sends payload when a publisher is configured. Failures are logged and
// never fail the calling operation.
func publishEvent(log *slog.Logger, events EventPublisher, routingKey string, payload any) {
	if events == nil {
		log.Debug("event publisher not configured, skipping event", "routing_key", routingKey)
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn("failed to marshal event", "routing_key", routingKey, "error", err)
		return
	}
	if err := events.Publish(routingKey, body); err != nil {
		log.Warn("failed to publish event", "routing_key", routingKey, "error", err)
	}
}
