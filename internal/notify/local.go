package notify

import (
	"context"

	"github.com/LuisCutz/expo-notifications/internal/apperr"
	"github.com/LuisCutz/expo-notifications/internal/logging"
	"github.com/LuisCutz/expo-notifications/internal/metrics"
	"github.com/LuisCutz/expo-notifications/internal/platform"
)

// DefaultLocalIdentifier is the fixed identifier local notifications are
// scheduled under, so a new one replaces the pending one.
const DefaultLocalIdentifier = "pizza-notification"

// DefaultSound is used when a message names no sound.
const DefaultSound = "default"

// Local schedules a one-shot notification on the device.
type Local struct {
	Scheduler  platform.Scheduler
	Identifier string
}

// NewLocal returns a local sender. An empty identifier uses the default.
func NewLocal(s platform.Scheduler, identifier string) *Local {
	if identifier == "" {
		identifier = DefaultLocalIdentifier
	}
	return &Local{Scheduler: s, Identifier: identifier}
}

func (l *Local) Name() string { return "local" }

// Send cancels whatever is pending under the identifier, then schedules msg
// to fire immediately.
func (l *Local) Send(ctx context.Context, msg Message) error {
	log := logging.Component("notify").With().Str("path", l.Name()).Str("id", l.Identifier).Logger()

	if err := l.Scheduler.CancelScheduled(ctx, l.Identifier); err != nil {
		metrics.IncLocal(false)
		log.Error().Err(err).Msg("failed to cancel pending notification")
		return apperr.Wrap(apperr.KindPlatform, "schedule", err.Error(), err)
	}

	sound := msg.Sound
	if sound == "" {
		sound = DefaultSound
	}
	req := platform.Request{
		Identifier: l.Identifier,
		Content:    platform.Content{Title: msg.Title, Body: msg.Body, Data: msg.Data, Sound: sound},
		Trigger:    platform.Trigger{Repeats: false},
	}
	if _, err := l.Scheduler.Schedule(ctx, req); err != nil {
		metrics.IncLocal(false)
		log.Error().Err(err).Msg("failed to schedule notification")
		return apperr.Wrap(apperr.KindPlatform, "schedule", err.Error(), err)
	}
	metrics.IncLocal(true)
	log.Info().Str("title", msg.Title).Msg("notification scheduled")
	return nil
}
