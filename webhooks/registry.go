// Package webhooks fans domain events out to registered HTTP endpoints via
// durable delivery jobs. The registry is built once at startup from config
// and injected wherever it is read; it never mutates afterwards.
package webhooks

import (
	"fmt"
	"strings"

	"selene/config"
	"selene/models"
)

// Registration is one (url, event) subscription. Several registrations may
// share an event name; each match becomes its own delivery job.
type Registration struct {
	ID    string
	URL   string
	Event string
}

type Registry struct {
	regs []Registration
}

func knownEvent(name string) bool {
	switch name {
	case models.WEBHOOK_EVENT_CONVERSATION_CREATED,
		models.WEBHOOK_EVENT_MESSAGE_ADDED,
		models.WEBHOOK_EVENT_CONVERSATION_UPDATED:
		return true
	}
	return false
}

// NewRegistry validates and indexes the configured registrations. Unknown
// event names are rejected up front so a typo fails at boot, not in the
// delivery loop.
func NewRegistry(entries []config.WebhookRegistration) (*Registry, error) {
	regs := make([]Registration, 0, len(entries))
	for i, e := range entries {
		url := strings.TrimSpace(e.URL)
		event := strings.TrimSpace(e.Event)
		if url == "" {
			return nil, fmt.Errorf("webhook registration %d: empty url", i)
		}
		if !knownEvent(event) {
			return nil, fmt.Errorf("webhook registration %d: unknown event %q", i, event)
		}
		regs = append(regs, Registration{
			ID:    fmt.Sprintf("wh-%d", i+1),
			URL:   url,
			Event: event,
		})
	}
	return &Registry{regs: regs}, nil
}

// Match returns every registration subscribed to event.
func (r *Registry) Match(event string) []Registration {
	var out []Registration
	for _, reg := range r.regs {
		if reg.Event == event {
			out = append(out, reg)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.regs) }
