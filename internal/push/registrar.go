// Package push registers the device for push notifications and returns the
// push token the backend sends to.
package push

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/LuisCutz/expo-notifications/internal/apperr"
	"github.com/LuisCutz/expo-notifications/internal/config"
	"github.com/LuisCutz/expo-notifications/internal/logging"
	"github.com/LuisCutz/expo-notifications/internal/metrics"
	"github.com/LuisCutz/expo-notifications/internal/platform"
)

// Platform is the slice of the notification subsystem registration needs.
type Platform interface {
	platform.Device
	platform.Permissions
	platform.Channels
	platform.TokenIssuer
}

// Manifest resolves the project id a token is scoped to.
type Manifest interface {
	ProjectID() (string, bool)
}

// Options selects the delivery variant and its channel.
type Options struct {
	Mode    string
	Channel platform.Channel
}

// DefaultChannel returns the channel for a delivery mode, built from the
// default config.
func DefaultChannel(mode string) platform.Channel {
	cfg := config.DefaultConfig()
	cfg.DeliveryMode = mode
	return ChannelFromConfig(cfg.ResolvedChannel())
}

// ChannelFromConfig converts a resolved config channel. Notifications on it
// always use the highest importance.
func ChannelFromConfig(ch config.Channel) platform.Channel {
	return platform.Channel{
		ID:               ch.ID,
		Name:             ch.Name,
		Importance:       platform.ImportanceMax,
		VibrationPattern: ch.VibrationPattern,
		LightColor:       ch.LightColor,
	}
}

// Registrar runs the registration sequence. It holds no state between runs.
type Registrar struct {
	platform Platform
	manifest Manifest
	channel  platform.Channel
	mode     string
	now      func() time.Time
	log      zerolog.Logger
}

// NewRegistrar returns a registrar. Unset channel fields take the mode's
// defaults.
func NewRegistrar(p Platform, manifest Manifest, opts Options) *Registrar {
	def := DefaultChannel(opts.Mode)
	ch := opts.Channel
	if ch.ID == "" {
		ch.ID = def.ID
	}
	if ch.Name == "" {
		ch.Name = def.Name
	}
	if ch.Importance == 0 {
		ch.Importance = def.Importance
	}
	if len(ch.VibrationPattern) == 0 {
		ch.VibrationPattern = def.VibrationPattern
	}
	if ch.LightColor == "" {
		ch.LightColor = def.LightColor
	}
	return &Registrar{
		platform: p,
		manifest: manifest,
		channel:  ch,
		mode:     opts.Mode,
		now:      time.Now,
		log:      logging.Component("push"),
	}
}

// Register runs one registration: channel setup, device check, permission,
// project id, token. A denied permission ends the run; it is not retried.
func (r *Registrar) Register(ctx context.Context) (string, error) {
	log := r.log.With().Str("mode", r.mode).Logger()

	if r.platform.RequiresChannels() {
		if err := r.platform.SetChannel(ctx, r.channel); err != nil {
			metrics.IncChannelSetupFailed()
			log.Warn().Err(err).Str("channel", r.channel.ID).Msg("failed to configure notification channel")
		}
	}

	if !r.platform.IsDevice() {
		return "", r.fail(log, notAPhysicalDevice())
	}

	status, err := r.platform.PermissionStatus(ctx)
	if err != nil {
		return "", r.fail(log, platformError("permission status", err))
	}
	if status != platform.PermissionGranted {
		log.Debug().Str("status", string(status)).Msg("requesting notification permission")
		status, err = r.platform.RequestPermission(ctx)
		if err != nil {
			return "", r.fail(log, platformError("permission request", err))
		}
	}
	if status != platform.PermissionGranted {
		return "", r.fail(log, permissionDenied())
	}

	projectID, ok := r.manifest.ProjectID()
	if !ok {
		return "", r.fail(log, missingProjectID())
	}

	token, err := r.platform.PushToken(ctx, projectID)
	if err != nil {
		return "", r.fail(log, platformError("push token", err))
	}
	if token == "" {
		return "", r.fail(log, platformError("push token", errors.New("platform returned an empty push token")))
	}

	metrics.IncRegistration(metrics.ResultSuccess)
	metrics.SetLastRegistration(r.now())
	log.Info().Str("project_id", projectID).Str("token", logging.Redact(token)).Msg("registered for push notifications")
	return token, nil
}

func (r *Registrar) fail(log zerolog.Logger, err error) error {
	reason := ReasonOf(err)
	metrics.IncRegistration(string(reason))
	log.Warn().Err(err).Str("reason", string(reason)).Msg("push registration failed")
	return err
}

// Channels lists the ids of configured notification channels.
func (r *Registrar) Channels(ctx context.Context) ([]string, error) {
	chans, err := r.platform.ListChannels(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPlatform, "list channels", err.Error(), err)
	}
	ids := make([]string, 0, len(chans))
	for _, ch := range chans {
		ids = append(ids, ch.ID)
	}
	return ids, nil
}
