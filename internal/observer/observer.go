// Package observer tracks notifications delivered while the app is in the
// foreground and the user's responses to them.
package observer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/LuisCutz/expo-notifications/internal/apperr"
	"github.com/LuisCutz/expo-notifications/internal/logging"
	"github.com/LuisCutz/expo-notifications/internal/metrics"
	"github.com/LuisCutz/expo-notifications/internal/platform"
)

// Observer owns the received and response subscriptions for one screen.
type Observer struct {
	events platform.Events
	log    zerolog.Logger

	lifeMu   sync.Mutex // serializes Activate and Deactivate
	received platform.Subscription
	response platform.Subscription

	mu        sync.Mutex
	gen       uint64 // events from an older generation are ignored
	active    bool
	last      platform.Notification
	hasLast   bool
	listeners map[int]func(platform.Notification)
	nextID    int
}

// New returns an inactive observer.
func New(events platform.Events) *Observer {
	return &Observer{
		events:    events,
		log:       logging.Component("observer"),
		listeners: make(map[int]func(platform.Notification)),
	}
}

// Activate subscribes to both streams. It is a no-op while already active.
// If the second subscription fails the first is released.
func (o *Observer) Activate(ctx context.Context) error {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if o.received != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.mu.Unlock()

	recv, err := o.events.AddReceivedListener(func(n platform.Notification) { o.onReceived(gen, n) })
	if err != nil {
		return apperr.Wrap(apperr.KindPlatform, "observe", "could not subscribe to notifications", err)
	}
	resp, err := o.events.AddResponseListener(func(r platform.Response) { o.onResponse(gen, r) })
	if err != nil {
		recv.Remove()
		return apperr.Wrap(apperr.KindPlatform, "observe", "could not subscribe to notification responses", err)
	}
	o.received, o.response = recv, resp

	o.mu.Lock()
	o.active = true
	o.mu.Unlock()
	o.log.Debug().Msg("notification listeners attached")
	return nil
}

// Deactivate releases both subscriptions. Calling it while inactive is a
// no-op.
func (o *Observer) Deactivate() {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if o.received == nil {
		return
	}
	o.mu.Lock()
	o.gen++
	o.active = false
	o.mu.Unlock()

	o.received.Remove()
	o.response.Remove()
	o.received, o.response = nil, nil
	o.log.Debug().Msg("notification listeners released")
}

// Active reports whether the observer currently holds its subscriptions.
func (o *Observer) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Run activates the observer and releases it when ctx is done.
func (o *Observer) Run(ctx context.Context) error {
	if err := o.Activate(ctx); err != nil {
		return err
	}
	defer o.Deactivate()
	<-ctx.Done()
	return nil
}

// Last returns the most recently received notification.
func (o *Observer) Last() (platform.Notification, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.hasLast
}

// OnChange registers fn for every received notification. The returned func
// unregisters it.
func (o *Observer) OnChange(fn func(platform.Notification)) (cancel func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.listeners, id)
			o.mu.Unlock()
		})
	}
}

func (o *Observer) onReceived(gen uint64, n platform.Notification) {
	o.mu.Lock()
	if !o.active || gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.last, o.hasLast = n, true
	fns := make([]func(platform.Notification), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	metrics.IncReceived()
	o.log.Info().Str("id", n.Identifier).Str("title", n.Title).Msg("notification received")
	for _, fn := range fns {
		fn(n)
	}
}

func (o *Observer) onResponse(gen uint64, r platform.Response) {
	o.mu.Lock()
	stale := !o.active || gen != o.gen
	o.mu.Unlock()
	if stale {
		return
	}
	metrics.IncResponse()
	o.log.Info().
		Str("id", r.Notification.Identifier).
		Str("action", r.ActionIdentifier).
		Interface("data", r.Notification.Data).
		Msg("notification response")
}
