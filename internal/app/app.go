// Package app wires the client core together for the lifetime of a process.
package app

import (
	"context"
	"sync"

	"github.com/LuisCutz/expo-notifications/internal/apiclient"
	"github.com/LuisCutz/expo-notifications/internal/config"
	"github.com/LuisCutz/expo-notifications/internal/logging"
	"github.com/LuisCutz/expo-notifications/internal/notify"
	"github.com/LuisCutz/expo-notifications/internal/observer"
	"github.com/LuisCutz/expo-notifications/internal/platform"
	"github.com/LuisCutz/expo-notifications/internal/push"
	"github.com/LuisCutz/expo-notifications/internal/securestore"
	"github.com/LuisCutz/expo-notifications/internal/session"
)

// App holds the session, push and notification components.
type App struct {
	cfg      *config.Config
	platform platform.Platform

	Session    *session.Manager
	Registrar  *push.Registrar
	Observer   *observer.Observer
	Dispatcher *notify.Dispatcher

	mu    sync.Mutex
	token string // latest push token, memory only
}

// New builds the app and installs the foreground presentation policy.
func New(cfg *config.Config, p platform.Platform, store securestore.Primitive) *App {
	for _, w := range cfg.Validate() {
		logging.Get().Warn().Str("warning", w).Msg("config validation")
	}

	p.SetForegroundPolicy(platform.ForegroundPolicy{
		ShowAlert: cfg.Foreground.ShowAlert,
		PlaySound: cfg.Foreground.PlaySound,
		SetBadge:  cfg.Foreground.SetBadge,
	})

	api := apiclient.New(cfg.HTTPTimeout)

	return &App{
		cfg:      cfg,
		platform: p,
		Session:  session.NewManager(store, session.NewAuthClient(cfg.Endpoint(cfg.AuthPath), api)),
		Registrar: push.NewRegistrar(p, cfg.Manifest, push.Options{
			Mode:    cfg.DeliveryMode,
			Channel: push.ChannelFromConfig(cfg.ResolvedChannel()),
		}),
		Observer: observer.New(p),
		Dispatcher: notify.NewDispatcher(
			notify.NewLocal(p, cfg.LocalIdentifier),
			notify.NewRemote(cfg.Endpoint(cfg.SendPath), api),
		),
	}
}

// Token returns the latest push token, or "".
func (a *App) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// Register runs a registration and keeps the token on success. A failed run
// leaves the previous token in place.
func (a *App) Register(ctx context.Context) (string, error) {
	token, err := a.Registrar.Register(ctx)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
	return token, nil
}

// ActivatePushScreen attaches the notification listeners and registers for
// push. Listeners stay attached when registration fails.
func (a *App) ActivatePushScreen(ctx context.Context) (string, error) {
	if err := a.Observer.Activate(ctx); err != nil {
		return "", err
	}
	return a.Register(ctx)
}

// DeactivatePushScreen releases the notification listeners.
func (a *App) DeactivatePushScreen() {
	a.Observer.Deactivate()
}

// Send triggers the configured notification through mode ("" uses the
// configured delivery mode). The remote path registers first when no token
// is known yet.
func (a *App) Send(ctx context.Context, mode string) error {
	if mode == "" {
		mode = a.cfg.DeliveryMode
	}
	if mode == config.ModeLocal {
		return a.Dispatcher.Send(ctx, mode, notify.MessageFromContent(a.cfg.LocalNotification))
	}

	token := a.Token()
	if token == "" && mode == config.ModeRemote {
		var err error
		if token, err = a.Register(ctx); err != nil {
			return err
		}
	}
	msg := notify.MessageFromContent(a.cfg.RemoteNotification)
	msg.To = token
	return a.Dispatcher.Send(ctx, mode, msg)
}
