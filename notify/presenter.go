package notify

import (
	"context"
	"strings"

	"github.com/offcache/offcache/metrics"

	"github.com/rs/zerolog/log"
)

// Click actions.
const (
	ActionView    = "view"
	ActionDismiss = "dismiss"
)

// Sink displays a notification somewhere the user can see it.
type Sink interface {
	Show(ctx context.Context, n Notification) error
}

// Client is an open application window.
type Client interface {
	URL() string
	Focus() error
	Navigate(url string) error
}

// ClientRegistry enumerates and opens application windows. The embedding
// application provides the real implementation; the standalone daemon wires
// a logging no-op.
type ClientRegistry interface {
	List() []Client
	OpenWindow(url string) error
}

// Presenter renders push payloads through its sinks and handles clicks.
type Presenter struct {
	Sinks   []Sink
	Clients ClientRegistry
	// Origin identifies which client windows belong to this application.
	Origin  string
	Metrics *metrics.Metrics
}

// Present parses a push payload and shows the resulting notification.
// Implements the worker's push handler.
func (p *Presenter) Present(ctx context.Context, payload []byte) error {
	n := ParsePayload(payload)
	return p.Show(ctx, n)
}

// Show fans the notification out to every sink. Sink failures are logged and
// do not stop delivery to the remaining sinks; the notification always
// persists until dismissed.
func (p *Presenter) Show(ctx context.Context, n Notification) error {
	n.RequireInteraction = true
	for _, sink := range p.Sinks {
		if err := sink.Show(ctx, n); err != nil {
			log.Warn().Err(err).Str("tag", n.Tag).Msg("Notification sink failed")
		}
	}
	p.Metrics.NotificationShown()
	return nil
}

// Click handles a notification interaction. A view click (or a click on the
// notification body) focuses an existing application window and navigates it
// to the deep link, opening a new window only if none exists. Dismiss is a
// no-op.
func (p *Presenter) Click(ctx context.Context, action string, n Notification) error {
	_ = ctx
	if action == ActionDismiss {
		return nil
	}
	if action != ActionView && action != "" {
		log.Debug().Str("action", action).Msg("Ignoring unknown notification action")
		return nil
	}

	url := n.URL
	if url == "" {
		url = "/"
	}
	if p.Clients == nil {
		return nil
	}
	for _, client := range p.Clients.List() {
		if !strings.Contains(client.URL(), p.Origin) {
			continue
		}
		if err := client.Focus(); err != nil {
			log.Warn().Err(err).Msg("Could not focus client window")
			continue
		}
		return client.Navigate(url)
	}
	return p.Clients.OpenWindow(url)
}
