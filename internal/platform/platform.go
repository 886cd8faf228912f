// Package platform describes the OS notification subsystem the client core
// talks to. Real devices implement it through a native bridge; the loopback
// package implements it in-process.
package platform

import (
	"context"
	"time"
)

// PermissionStatus is the OS notification permission state.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// Importance of an Android-style notification channel.
type Importance int

const (
	ImportanceDefault Importance = 3
	ImportanceHigh    Importance = 4
	ImportanceMax     Importance = 5
)

// Channel is a named notification category.
type Channel struct {
	ID               string
	Name             string
	Importance       Importance
	VibrationPattern []int64
	LightColor       string
}

// Content is what a notification shows.
type Content struct {
	Title string
	Body  string
	Data  map[string]any
	Sound string
}

// Notification is a delivered notification as seen by listeners.
type Notification struct {
	Identifier string
	Content
	ReceivedAt time.Time
}

// Response is the user acting on a notification.
type Response struct {
	Notification     Notification
	ActionIdentifier string
}

// Trigger controls when a scheduled notification fires. The zero value fires
// immediately, once.
type Trigger struct {
	After   time.Duration
	Repeats bool
}

// Request schedules a local notification under Identifier.
type Request struct {
	Identifier string
	Content    Content
	Trigger    Trigger
}

// ForegroundPolicy decides how notifications are presented while the app is
// in the foreground.
type ForegroundPolicy struct {
	ShowAlert bool
	PlaySound bool
	SetBadge  bool
}

// Subscription is a listener handle. Remove is safe to call more than once.
type Subscription interface {
	Remove()
}

// Device reports facts about the execution environment.
type Device interface {
	IsDevice() bool
	// RequiresChannels reports whether notification channels must be
	// configured before tokens are useful (Android).
	RequiresChannels() bool
}

// Permissions queries and requests notification permission.
type Permissions interface {
	PermissionStatus(ctx context.Context) (PermissionStatus, error)
	RequestPermission(ctx context.Context) (PermissionStatus, error)
}

// Channels configures notification channels.
type Channels interface {
	SetChannel(ctx context.Context, ch Channel) error
	ListChannels(ctx context.Context) ([]Channel, error)
}

// TokenIssuer obtains a push token scoped to a project id.
type TokenIssuer interface {
	PushToken(ctx context.Context, projectID string) (string, error)
}

// Scheduler schedules and cancels local notifications by identifier.
type Scheduler interface {
	Schedule(ctx context.Context, req Request) (string, error)
	CancelScheduled(ctx context.Context, identifier string) error
}

// Events exposes the two notification streams.
type Events interface {
	AddReceivedListener(fn func(Notification)) (Subscription, error)
	AddResponseListener(fn func(Response)) (Subscription, error)
}

// Presenter installs the foreground presentation policy.
type Presenter interface {
	SetForegroundPolicy(p ForegroundPolicy)
}

// Platform is the full notification subsystem.
type Platform interface {
	Device
	Permissions
	Channels
	TokenIssuer
	Scheduler
	Events
	Presenter
}
