// Package session owns the persisted session token and the sign-in and
// sign-out operations that change it.
package session

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LuisCutz/expo-notifications/internal/apperr"
	"github.com/LuisCutz/expo-notifications/internal/logging"
	"github.com/LuisCutz/expo-notifications/internal/metrics"
	"github.com/LuisCutz/expo-notifications/internal/securestore"
)

// TokenKey is the storage key of the session token.
const TokenKey = "session_token"

// Result is the outcome of a sign-in attempt. Error is the display message
// when Success is false; Err carries the classified cause.
type Result struct {
	Success bool
	Error   string
	Err     error
}

// Manager exposes the session state and the operations that change it.
type Manager struct {
	slot *securestore.Slot
	auth Authenticator
	log  zerolog.Logger
}

// NewManager returns a manager backed by store. The stored token starts
// loading immediately; until it resolves State reports loading.
func NewManager(store securestore.Primitive, auth Authenticator) *Manager {
	m := &Manager{
		slot: securestore.NewSlot(store, TokenKey),
		auth: auth,
		log:  logging.Component("session"),
	}
	m.slot.Load(context.Background())
	return m
}

// ValidateCredentials rejects blank input before any network call is made.
func ValidateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return apperr.New(apperr.KindValidation, "sign in", MsgMissingFields)
	}
	return nil
}

// SignIn authenticates and persists the returned token. On failure the
// current session is left untouched.
func (m *Manager) SignIn(ctx context.Context, email, password string) Result {
	token, err := m.auth.Authenticate(ctx, email, password)
	if err != nil {
		metrics.IncSignIn(false)
		m.log.Warn().Err(err).Str("email", email).Msg("sign-in failed")
		return Result{Error: apperr.Message(err), Err: err}
	}
	if err := m.slot.Set(ctx, token); err != nil {
		metrics.IncSignIn(false)
		m.log.Error().Err(err).Msg("failed to persist session token")
		return Result{Error: MsgSaveFailed, Err: apperr.Wrap(apperr.KindStorage, "sign in", MsgSaveFailed, err)}
	}
	metrics.IncSignIn(true)
	m.log.Info().Str("email", email).Str("token", logging.Redact(token)).Msg("signed in")
	return Result{Success: true}
}

// SignOut clears the session. The in-memory session is cleared even when
// removing the stored token fails; that failure is returned.
func (m *Manager) SignOut(ctx context.Context) error {
	metrics.IncSignOut()
	if err := m.slot.Set(ctx, ""); err != nil {
		m.log.Error().Err(err).Msg("failed to delete stored session token")
		return apperr.Wrap(apperr.KindStorage, "sign out", "could not remove stored session", err)
	}
	m.log.Info().Msg("signed out")
	return nil
}

// State returns whether the stored session is still loading and the current
// token ("" when signed out).
func (m *Manager) State() (loading bool, session string) {
	st := m.slot.State()
	return st.Loading, st.Value
}

// Subscribe calls fn with the current state and on every change.
func (m *Manager) Subscribe(fn func(securestore.State)) (cancel func()) {
	return m.slot.Subscribe(fn)
}

// Wait blocks until the stored session has been loaded.
func (m *Manager) Wait(ctx context.Context) (securestore.State, error) {
	return m.slot.Wait(ctx)
}
