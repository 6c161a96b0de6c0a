// Package bus fans successful mutations out to the real-time channel
// and the webhook dispatcher. Publishing happens only after the
// triggering write has succeeded and responded; neither sink can block
// or fail the caller.
package bus

import (
	"log/slog"

	"github.com/micasa-app/micasa/internal/event"
	"github.com/micasa-app/micasa/internal/realtime"
	"github.com/micasa-app/micasa/internal/webhook"
)

// Mutation is the ephemeral record of one successful write. It is
// constructed once, consumed by both sinks, and discarded.
type Mutation struct {
	Household   string
	Type        event.Type
	Action      event.Action
	ResourceKey string // JSON key for the resource in the broadcast body, e.g. "chore"
	Resource    any    // full item for create/update
	ResourceID  int64  // id reference for delete
	Origin      string // originating connection id, empty if unknown
}

// Bus hands mutations to the broadcast and webhook sinks.
type Bus struct {
	hub        *realtime.Hub
	dispatcher *webhook.Dispatcher
	logger     *slog.Logger
}

func New(hub *realtime.Hub, dispatcher *webhook.Dispatcher, logger *slog.Logger) *Bus {
	return &Bus{hub: hub, dispatcher: dispatcher, logger: logger}
}

// Publish fans one mutation out to every sink. The broadcast excludes
// the originating connection; the actor already has the result from
// its direct response. The webhook sink runs detached; no ordering is
// guaranteed between the two, only that each is attempted once.
func (b *Bus) Publish(m Mutation) {
	body := map[string]any{
		"action":      m.Action,
		"householdId": m.Household,
	}
	if m.Action == event.ActionDelete {
		body["id"] = m.ResourceID
	} else {
		body[m.ResourceKey] = m.Resource
	}

	b.hub.Broadcast(m.Household, m.Origin, string(m.Type), body)
	go b.dispatcher.Dispatch(m.Household, m.Type, body)

	b.logger.Debug("published mutation",
		"household", m.Household, "event", m.Type, "action", m.Action)
}
