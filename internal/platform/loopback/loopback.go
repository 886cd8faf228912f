// Package loopback is an in-process notification platform. It keeps
// permission, channel, schedule and listener state in memory and delivers
// scheduled notifications back to the registered listeners, which is enough
// to drive the client core from the CLI and from tests.
package loopback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LuisCutz/expo-notifications/internal/platform"
)

// ErrClosed is returned once the platform has been closed.
var ErrClosed = errors.New("loopback: platform closed")

// Options configures the simulated device.
type Options struct {
	Physical       bool
	OS             string
	Permission     platform.PermissionStatus
	GrantOnRequest bool
	// InstallationID scopes issued tokens; empty picks a random id.
	InstallationID string
	Now            func() time.Time
}

// Platform implements platform.Platform in memory.
type Platform struct {
	opts Options

	mu         sync.Mutex
	closed     bool
	permission platform.PermissionStatus
	requests   int
	policy     platform.ForegroundPolicy
	channels   map[string]platform.Channel
	pending    map[string]*time.Timer
	received   map[int]func(platform.Notification)
	responses  map[int]func(platform.Response)
	delivered  map[string]platform.Notification
	order      []string // delivered ids, oldest first
	nextSub    int
}

// maxDelivered bounds how many delivered notifications stay available to
// Respond; the oldest are forgotten first.
const maxDelivered = 128

var _ platform.Platform = (*Platform)(nil)

// New returns a loopback platform.
func New(opts Options) *Platform {
	if opts.Permission == "" {
		opts.Permission = platform.PermissionUndetermined
	}
	if opts.InstallationID == "" {
		opts.InstallationID = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Platform{
		opts:       opts,
		permission: opts.Permission,
		channels:   make(map[string]platform.Channel),
		pending:    make(map[string]*time.Timer),
		received:   make(map[int]func(platform.Notification)),
		responses:  make(map[int]func(platform.Response)),
		delivered:  make(map[string]platform.Notification),
	}
}

func (p *Platform) IsDevice() bool { return p.opts.Physical }

func (p *Platform) RequiresChannels() bool { return p.opts.OS == "android" }

func (p *Platform) PermissionStatus(ctx context.Context) (platform.PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission, nil
}

// RequestPermission answers the simulated permission dialog. A denied status
// stays denied, as on a real OS once the user refused.
func (p *Platform) RequestPermission(ctx context.Context) (platform.PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	if p.permission == platform.PermissionUndetermined {
		if p.opts.GrantOnRequest {
			p.permission = platform.PermissionGranted
		} else {
			p.permission = platform.PermissionDenied
		}
	}
	return p.permission, nil
}

// PermissionRequests returns how many times the permission dialog was shown.
func (p *Platform) PermissionRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *Platform) SetChannel(ctx context.Context, ch platform.Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.RequiresChannels() {
		return fmt.Errorf("loopback: channels are not supported on %q", p.opts.OS)
	}
	if ch.ID == "" {
		return errors.New("loopback: channel id is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[ch.ID] = ch
	return nil
}

func (p *Platform) ListChannels(ctx context.Context) ([]platform.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]platform.Channel, 0, len(p.channels))
	for _, ch := range p.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PushToken issues a token that is stable for (installation, project id).
func (p *Platform) PushToken(ctx context.Context, projectID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if projectID == "" {
		return "", errors.New("loopback: project id is required")
	}
	p.mu.Lock()
	granted := p.permission == platform.PermissionGranted
	p.mu.Unlock()
	if !granted {
		return "", errors.New("loopback: notification permission not granted")
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(p.opts.InstallationID+"/"+projectID))
	return "ExponentPushToken[" + id.String() + "]", nil
}

func (p *Platform) SetForegroundPolicy(policy platform.ForegroundPolicy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
}

// ForegroundPolicy returns the installed presentation policy.
func (p *Platform) ForegroundPolicy() platform.ForegroundPolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policy
}

// Schedule delivers the request to received listeners when its trigger
// fires. Zero-delay triggers fire before Schedule returns.
func (p *Platform) Schedule(ctx context.Context, req platform.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Identifier == "" {
		req.Identifier = uuid.NewString()
	}
	if req.Trigger.Repeats && req.Trigger.After <= 0 {
		return "", errors.New("loopback: repeating trigger needs a positive interval")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrClosed
	}
	if old, ok := p.pending[req.Identifier]; ok {
		old.Stop()
		delete(p.pending, req.Identifier)
	}
	if req.Trigger.After <= 0 {
		p.mu.Unlock()
		p.deliver(req.Identifier, req.Content)
		return req.Identifier, nil
	}
	p.pending[req.Identifier] = time.AfterFunc(req.Trigger.After, func() { p.fire(req) })
	p.mu.Unlock()
	return req.Identifier, nil
}

func (p *Platform) fire(req platform.Request) {
	p.mu.Lock()
	if _, ok := p.pending[req.Identifier]; !ok {
		p.mu.Unlock()
		return
	}
	if req.Trigger.Repeats {
		p.pending[req.Identifier] = time.AfterFunc(req.Trigger.After, func() { p.fire(req) })
	} else {
		delete(p.pending, req.Identifier)
	}
	p.mu.Unlock()
	p.deliver(req.Identifier, req.Content)
}

func (p *Platform) CancelScheduled(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.pending[identifier]; ok {
		t.Stop()
		delete(p.pending, identifier)
	}
	return nil
}

// Pending returns the identifiers of scheduled, not yet delivered requests.
func (p *Platform) Pending() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.pending))
	for id := range p.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Emit delivers a notification as if it had arrived from the push service.
func (p *Platform) Emit(c platform.Content) string {
	id := uuid.NewString()
	p.deliver(id, c)
	return id
}

// Respond simulates the user tapping a delivered notification.
func (p *Platform) Respond(identifier, action string) error {
	p.mu.Lock()
	n, ok := p.delivered[identifier]
	listeners := make([]func(platform.Response), 0, len(p.responses))
	for _, fn := range p.responses {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("loopback: no delivered notification %q", identifier)
	}
	if action == "" {
		action = "expo.modules.notifications.actions.DEFAULT"
	}
	resp := platform.Response{Notification: n, ActionIdentifier: action}
	for _, fn := range listeners {
		fn(resp)
	}
	return nil
}

func (p *Platform) deliver(identifier string, c platform.Content) {
	n := platform.Notification{Identifier: identifier, Content: c, ReceivedAt: p.opts.Now()}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.rememberLocked(n)
	listeners := make([]func(platform.Notification), 0, len(p.received))
	for _, fn := range p.received {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(n)
	}
}

func (p *Platform) rememberLocked(n platform.Notification) {
	if _, ok := p.delivered[n.Identifier]; ok {
		for i, id := range p.order {
			if id == n.Identifier {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
	p.delivered[n.Identifier] = n
	p.order = append(p.order, n.Identifier)
	for len(p.order) > maxDelivered {
		delete(p.delivered, p.order[0])
		p.order = p.order[1:]
	}
}

func (p *Platform) AddReceivedListener(fn func(platform.Notification)) (platform.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	id := p.nextSub
	p.nextSub++
	p.received[id] = fn
	return &subscription{remove: func() {
		p.mu.Lock()
		delete(p.received, id)
		p.mu.Unlock()
	}}, nil
}

func (p *Platform) AddResponseListener(fn func(platform.Response)) (platform.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	id := p.nextSub
	p.nextSub++
	p.responses[id] = fn
	return &subscription{remove: func() {
		p.mu.Lock()
		delete(p.responses, id)
		p.mu.Unlock()
	}}, nil
}

// Listeners returns the number of live received and response listeners.
func (p *Platform) Listeners() (received, responses int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.received), len(p.responses)
}

// Close stops pending timers and drops all listeners.
func (p *Platform) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, t := range p.pending {
		t.Stop()
		delete(p.pending, id)
	}
	clear(p.received)
	clear(p.responses)
}

type subscription struct {
	once   sync.Once
	remove func()
}

func (s *subscription) Remove() { s.once.Do(s.remove) }
