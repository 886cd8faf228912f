package securestore

import (
	"context"
	"fmt"
	"sync"
)

// State is a snapshot of a slot. Value is empty when nothing is stored.
// Err is set when the initial load failed.
type State struct {
	Loading bool
	Value   string
	Err     error
}

// Slot is one named key in a Primitive. It starts out loading, resolves once
// the stored value has been read, and publishes every change to subscribers.
type Slot struct {
	store Primitive
	key   string

	writeMu sync.Mutex // serializes Set so the store and the published state agree

	// pubMu orders deliveries. Subscribers run under it and must not call
	// Set or Subscribe synchronously.
	pubMu     sync.Mutex
	delivered uint64 // seq of the last state handed to subscribers

	mu         sync.Mutex
	state      State
	seq        uint64 // bumped by every state change
	version    uint64 // bumped by every Set; a load only applies to the version it started on
	loadOnce   sync.Once
	loadedOnce sync.Once
	loaded     chan struct{}
	subs       map[int]func(State)
	nextSub    int
}

// NewSlot returns a slot for key. Call Load to start reading the stored value.
func NewSlot(store Primitive, key string) *Slot {
	return &Slot{
		store:  store,
		key:    key,
		state:  State{Loading: true},
		loaded: make(chan struct{}),
		subs:   make(map[int]func(State)),
	}
}

// Load starts the asynchronous read of the stored value. Only the first call
// has an effect.
func (s *Slot) Load(ctx context.Context) {
	s.loadOnce.Do(func() {
		s.mu.Lock()
		startVersion := s.version
		s.mu.Unlock()
		go s.load(ctx, startVersion)
	})
}

func (s *Slot) load(ctx context.Context, startVersion uint64) {
	value, _, err := s.store.Get(ctx, s.key)
	if err != nil {
		err = fmt.Errorf("load %s: %w", s.key, err)
	}

	s.mu.Lock()
	if s.version != startVersion {
		// a Set landed while we were reading; it wins
		s.mu.Unlock()
		s.markLoaded()
		return
	}
	s.state = State{Value: value, Err: err}
	if err != nil {
		s.state.Value = ""
	}
	seq, st, subs := s.changeLocked()
	s.mu.Unlock()

	s.markLoaded()
	s.publish(seq, st, subs)
}

func (s *Slot) markLoaded() {
	s.loadedOnce.Do(func() { close(s.loaded) })
}

// State returns the current snapshot.
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wait blocks until the initial load resolved (or a Set superseded it).
func (s *Slot) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.loaded:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

// Set stores value; an empty value deletes the key. A non-empty value is
// persisted before it is published, so subscribers never see a value that
// is not stored. Clearing is published first and the delete error, if any,
// is returned afterwards.
func (s *Slot) Set(ctx context.Context, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if value == "" {
		s.publishValue("")
		if err := s.store.Delete(ctx, s.key); err != nil {
			return fmt.Errorf("delete %s: %w", s.key, err)
		}
		return nil
	}
	if err := s.store.Set(ctx, s.key, value); err != nil {
		return fmt.Errorf("persist %s: %w", s.key, err)
	}
	s.publishValue(value)
	return nil
}

func (s *Slot) publishValue(value string) {
	s.mu.Lock()
	s.version++
	s.state = State{Value: value}
	seq, st, subs := s.changeLocked()
	s.mu.Unlock()

	s.markLoaded()
	s.publish(seq, st, subs)
}

// Subscribe registers fn for every state change. fn is also called once with
// the current state. The returned func unsubscribes.
func (s *Slot) Subscribe(fn func(State)) (cancel func()) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	st := s.state
	s.mu.Unlock()

	fn(st)
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// changeLocked records a state change and snapshots what to deliver.
func (s *Slot) changeLocked() (uint64, State, []func(State)) {
	s.seq++
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return s.seq, s.state, subs
}

// publish delivers st unless a newer change was already delivered, so the
// last state a subscriber sees is always the current one.
func (s *Slot) publish(seq uint64, st State, subs []func(State)) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if seq <= s.delivered {
		return
	}
	s.delivered = seq
	for _, fn := range subs {
		fn(st)
	}
}
