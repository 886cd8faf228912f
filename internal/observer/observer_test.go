package observer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisCutz/expo-notifications/internal/apperr"
	"github.com/LuisCutz/expo-notifications/internal/platform"
	"github.com/LuisCutz/expo-notifications/internal/platform/loopback"
)

func newLoopback() *loopback.Platform {
	return loopback.New(loopback.Options{Physical: true, OS: "android"})
}

func TestReceivedUpdatesLast(t *testing.T) {
	lp := newLoopback()
	o := New(lp)
	require.NoError(t, o.Activate(context.Background()))
	defer o.Deactivate()

	_, ok := o.Last()
	assert.False(t, ok)

	lp.Emit(platform.Content{Title: "first"})
	id := lp.Emit(platform.Content{Title: "second"})

	n, ok := o.Last()
	require.True(t, ok)
	assert.Equal(t, "second", n.Title)
	assert.Equal(t, id, n.Identifier)
}

func TestResponseDoesNotChangeLast(t *testing.T) {
	lp := newLoopback()
	o := New(lp)
	require.NoError(t, o.Activate(context.Background()))
	defer o.Deactivate()

	first := lp.Emit(platform.Content{Title: "first"})
	lp.Emit(platform.Content{Title: "second"})
	require.NoError(t, lp.Respond(first, ""))

	n, _ := o.Last()
	assert.Equal(t, "second", n.Title)
}

func TestDeactivateStopsUpdates(t *testing.T) {
	lp := newLoopback()
	o := New(lp)
	require.NoError(t, o.Activate(context.Background()))
	lp.Emit(platform.Content{Title: "before"})

	o.Deactivate()
	o.Deactivate()
	r, s := lp.Listeners()
	assert.Zero(t, r)
	assert.Zero(t, s)

	lp.Emit(platform.Content{Title: "after"})
	n, _ := o.Last()
	assert.Equal(t, "before", n.Title)
	assert.False(t, o.Active())
}

func TestDoubleActivateIsNoop(t *testing.T) {
	lp := newLoopback()
	o := New(lp)
	require.NoError(t, o.Activate(context.Background()))
	require.NoError(t, o.Activate(context.Background()))
	defer o.Deactivate()

	r, s := lp.Listeners()
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, s)
}

func TestReactivateUsesFreshSubscriptions(t *testing.T) {
	lp := newLoopback()
	o := New(lp)
	require.NoError(t, o.Activate(context.Background()))
	o.Deactivate()
	require.NoError(t, o.Activate(context.Background()))
	defer o.Deactivate()

	r, _ := lp.Listeners()
	assert.Equal(t, 1, r)

	var calls int
	cancel := o.OnChange(func(platform.Notification) { calls++ })
	defer cancel()
	lp.Emit(platform.Content{Title: "again"})
	assert.Equal(t, 1, calls, "one delivery per notification after reactivation")
}

// staleEvents hands out subscriptions whose callbacks the test can invoke
// after removal.
type staleEvents struct {
	recv       func(platform.Notification)
	respErr    error
	removed    int
	subscribed int
}

type stubSub struct{ onRemove func() }

func (s stubSub) Remove() { s.onRemove() }

func (e *staleEvents) AddReceivedListener(fn func(platform.Notification)) (platform.Subscription, error) {
	e.subscribed++
	e.recv = fn
	return stubSub{onRemove: func() { e.removed++ }}, nil
}

func (e *staleEvents) AddResponseListener(fn func(platform.Response)) (platform.Subscription, error) {
	if e.respErr != nil {
		return nil, e.respErr
	}
	e.subscribed++
	return stubSub{onRemove: func() { e.removed++ }}, nil
}

func TestStaleCallbackIsIgnored(t *testing.T) {
	ev := &staleEvents{}
	o := New(ev)
	require.NoError(t, o.Activate(context.Background()))
	stale := ev.recv
	o.Deactivate()
	assert.Equal(t, 2, ev.removed)

	stale(platform.Notification{Content: platform.Content{Title: "late"}})
	_, ok := o.Last()
	assert.False(t, ok)

	require.NoError(t, o.Activate(context.Background()))
	defer o.Deactivate()
	stale(platform.Notification{Content: platform.Content{Title: "late again"}})
	_, ok = o.Last()
	assert.False(t, ok, "callbacks from a previous activation never apply")
}

func TestPartialActivationReleasesFirst(t *testing.T) {
	ev := &staleEvents{respErr: errors.New("bridge gone")}
	o := New(ev)

	err := o.Activate(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindPlatform, apperr.KindOf(err))
	assert.Equal(t, 1, ev.removed)
	assert.False(t, o.Active())

	ev.respErr = nil
	require.NoError(t, o.Activate(context.Background()))
	o.Deactivate()
}

func TestRunReleasesOnCancel(t *testing.T) {
	lp := newLoopback()
	o := New(lp)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, o.Active, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	r, s := lp.Listeners()
	assert.Zero(t, r)
	assert.Zero(t, s)
}

func TestOnChangeCancel(t *testing.T) {
	lp := newLoopback()
	o := New(lp)
	require.NoError(t, o.Activate(context.Background()))
	defer o.Deactivate()

	var titles []string
	cancel := o.OnChange(func(n platform.Notification) { titles = append(titles, n.Title) })
	lp.Emit(platform.Content{Title: "one"})
	cancel()
	cancel()
	lp.Emit(platform.Content{Title: "two"})
	assert.Equal(t, []string{"one"}, titles)
}
