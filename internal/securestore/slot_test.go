package securestore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedStore blocks Get until release is closed and can fail on demand.
type gatedStore struct {
	*MemoryStore
	release chan struct{}
	getErr  error
	setErr  error
	delErr  error
}

func newGatedStore() *gatedStore {
	return &gatedStore{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
}

func (g *gatedStore) Get(ctx context.Context, key string) (string, bool, error) {
	<-g.release
	if g.getErr != nil {
		return "", false, g.getErr
	}
	return g.MemoryStore.Get(ctx, key)
}

func (g *gatedStore) Set(ctx context.Context, key, value string) error {
	if g.setErr != nil {
		return g.setErr
	}
	return g.MemoryStore.Set(ctx, key, value)
}

func (g *gatedStore) Delete(ctx context.Context, key string) error {
	if g.delErr != nil {
		return g.delErr
	}
	return g.MemoryStore.Delete(ctx, key)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSlotLoadsStoredValue(t *testing.T) {
	store := newGatedStore()
	require.NoError(t, store.MemoryStore.Set(context.Background(), "session_token", "T0"))

	slot := NewSlot(store, "session_token")
	assert.Equal(t, State{Loading: true}, slot.State())

	slot.Load(context.Background())
	assert.True(t, slot.State().Loading, "still loading until the store answers")

	close(store.release)
	st, err := slot.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, State{Value: "T0"}, st)
}

func TestSlotLoadEmpty(t *testing.T) {
	slot := NewSlot(NewMemoryStore(), "session_token")
	slot.Load(context.Background())
	st, err := slot.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Value)
}

func TestSlotLoadFailureIsSurfaced(t *testing.T) {
	store := newGatedStore()
	store.getErr = errors.New("keychain locked")
	close(store.release)

	slot := NewSlot(store, "session_token")
	slot.Load(context.Background())
	st, err := slot.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Value)
	assert.ErrorIs(t, st.Err, store.getErr)
}

func TestSlotSetDuringLoadWins(t *testing.T) {
	store := newGatedStore()
	require.NoError(t, store.MemoryStore.Set(context.Background(), "session_token", "stale"))

	slot := NewSlot(store, "session_token")
	slot.Load(context.Background())

	// Get is blocked; the Set's store write goes straight through
	require.NoError(t, slot.Set(context.Background(), "fresh"))
	assert.Equal(t, State{Value: "fresh"}, slot.State())

	close(store.release)
	// give the load goroutine a chance to finish and (not) apply
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "fresh", slot.State().Value)
}

func TestSlotSetPersistFailureDoesNotPublish(t *testing.T) {
	store := newGatedStore()
	close(store.release)
	slot := NewSlot(store, "session_token")
	slot.Load(context.Background())
	_, err := slot.Wait(waitCtx(t))
	require.NoError(t, err)

	store.setErr = errors.New("disk full")
	err = slot.Set(context.Background(), "T1")
	require.ErrorIs(t, err, store.setErr)
	assert.Empty(t, slot.State().Value)
}

func TestSlotClearAlwaysPublishes(t *testing.T) {
	store := newGatedStore()
	close(store.release)
	slot := NewSlot(store, "session_token")
	require.NoError(t, slot.Set(context.Background(), "T1"))

	store.delErr = errors.New("keychain locked")
	err := slot.Set(context.Background(), "")
	require.ErrorIs(t, err, store.delErr)
	assert.Equal(t, State{}, slot.State())
}

func TestSlotSubscribe(t *testing.T) {
	slot := NewSlot(NewMemoryStore(), "session_token")

	var mu sync.Mutex
	var seen []State
	cancel := slot.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	require.NoError(t, slot.Set(context.Background(), "T1"))
	require.NoError(t, slot.Set(context.Background(), ""))
	cancel()
	cancel()
	require.NoError(t, slot.Set(context.Background(), "T2"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{{Loading: true}, {Value: "T1"}, {}}, seen)
}

func TestSlotWaitHonoursContext(t *testing.T) {
	store := newGatedStore()
	slot := NewSlot(store, "k")
	slot.Load(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	st, err := slot.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, st.Loading)
	close(store.release)
}

func TestSlotDropsStaleDelivery(t *testing.T) {
	slot := NewSlot(NewMemoryStore(), "session_token")

	var seen []State
	subs := []func(State){func(st State) { seen = append(seen, st) }}

	// a Set published seq 2 before the load got to publish seq 1
	slot.publish(2, State{Value: "fresh"}, subs)
	slot.publish(1, State{Value: "stored"}, subs)

	assert.Equal(t, []State{{Value: "fresh"}}, seen)
}

func TestSlotSubscriberEndsOnCurrentState(t *testing.T) {
	for i := 0; i < 200; i++ {
		store := NewMemoryStore()
		require.NoError(t, store.Set(context.Background(), "session_token", "stored"))
		slot := NewSlot(store, "session_token")

		var mu sync.Mutex
		var last State
		cancel := slot.Subscribe(func(st State) {
			mu.Lock()
			last = st
			mu.Unlock()
		})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			slot.Load(context.Background())
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, slot.Set(context.Background(), "fresh"))
		}()
		wg.Wait()
		_, err := slot.Wait(waitCtx(t))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return last == slot.State() && !last.Loading
		}, time.Second, time.Millisecond, "iteration %d", i)
		cancel()
	}
}
