package notify

import (
	"context"
	"fmt"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/rs/zerolog/log"
)

// LogSink writes notifications to the structured log. Always wired, so every
// notification leaves a trace even with no delivery services configured.
type LogSink struct{}

func (LogSink) Show(ctx context.Context, n Notification) error {
	log.Info().
		Str("title", n.Title).
		Str("body", n.Body).
		Str("tag", n.Tag).
		Str("url", n.URL).
		Msg("Notification")
	return nil
}

// ShoutrrrSink delivers notifications over shoutrrr service URLs
// (ntfy, discord, telegram, ...).
type ShoutrrrSink struct {
	sender *router.ServiceRouter
}

func NewShoutrrrSink(urls ...string) (*ShoutrrrSink, error) {
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("create shoutrrr sender: %w", err)
	}
	return &ShoutrrrSink{sender: sender}, nil
}

func (s *ShoutrrrSink) Show(ctx context.Context, n Notification) error {
	params := types.Params{"title": n.Title}
	for _, err := range s.sender.Send(n.Body, &params) {
		if err != nil {
			return err
		}
	}
	return nil
}

// LoggingRegistry is the client registry for the standalone daemon: there
// are no application windows to focus, so click-throughs are just logged.
type LoggingRegistry struct{}

func (LoggingRegistry) List() []Client { return nil }

func (LoggingRegistry) OpenWindow(url string) error {
	log.Info().Str("url", url).Msg("Notification click-through (no client windows attached)")
	return nil
}
