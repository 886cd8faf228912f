package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisCutz/expo-notifications/internal/config"
	"github.com/LuisCutz/expo-notifications/internal/platform"
	"github.com/LuisCutz/expo-notifications/internal/platform/loopback"
	"github.com/LuisCutz/expo-notifications/internal/push"
	"github.com/LuisCutz/expo-notifications/internal/securestore"
)

type backend struct {
	mu    sync.Mutex
	sends []map[string]any
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"token":"S1"}}`))
	})
	mux.HandleFunc("/send-notification", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode send body: %v", err)
		}
		b.mu.Lock()
		b.sends = append(b.sends, body)
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func testConfig(url string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIBaseURL = url
	cfg.HTTPTimeout = time.Second
	cfg.Manifest.Expo.Extra.EAS.ProjectID = "proj-1"
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) (*App, *loopback.Platform) {
	t.Helper()
	lp := loopback.New(loopback.Options{Physical: true, OS: "android", GrantOnRequest: true})
	t.Cleanup(lp.Close)
	return New(cfg, lp, securestore.NewMemoryStore()), lp
}

func TestNewInstallsForegroundPolicy(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.Foreground.SetBadge = false
	_, lp := newApp(t, cfg)
	assert.Equal(t, platform.ForegroundPolicy{ShowAlert: true, PlaySound: true}, lp.ForegroundPolicy())
}

func TestRemoteFlow(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	a, lp := newApp(t, testConfig(srv.URL))
	ctx := context.Background()

	require.True(t, a.Session.SignIn(ctx, "a@b.c", "pw").Success)
	_, sess := a.Session.State()
	assert.Equal(t, "S1", sess)

	token, err := a.ActivatePushScreen(ctx)
	require.NoError(t, err)
	defer a.DeactivatePushScreen()
	assert.Equal(t, token, a.Token())

	require.NoError(t, a.Send(ctx, ""))
	b.mu.Lock()
	require.Len(t, b.sends, 1)
	assert.Equal(t, token, b.sends[0]["token"])
	b.mu.Unlock()

	lp.Emit(platform.Content{Title: "from the backend"})
	n, ok := a.Observer.Last()
	require.True(t, ok)
	assert.Equal(t, "from the backend", n.Title)

	ids, err := a.Registrar.Channels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{config.RemoteChannelID}, ids)
}

func TestRemoteSendRegistersLazily(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	a, _ := newApp(t, testConfig(srv.URL))
	require.Empty(t, a.Token())
	require.NoError(t, a.Send(context.Background(), config.ModeRemote))
	assert.NotEmpty(t, a.Token())
}

func TestRegistrationFailureKeepsListeners(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.Manifest = config.Manifest{}
	a, lp := newApp(t, cfg)

	_, err := a.ActivatePushScreen(context.Background())
	require.Error(t, err)
	assert.Equal(t, push.ReasonMissingProjectID, push.ReasonOf(err))
	assert.True(t, a.Observer.Active())

	a.DeactivatePushScreen()
	r, s := lp.Listeners()
	assert.Zero(t, r+s)
}

func TestLocalSendReachesObserver(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.DeliveryMode = config.ModeLocal
	a, _ := newApp(t, cfg)
	require.NoError(t, a.Observer.Activate(context.Background()))
	defer a.Observer.Deactivate()

	require.NoError(t, a.Send(context.Background(), ""))
	n, ok := a.Observer.Last()
	require.True(t, ok)
	assert.Equal(t, cfg.LocalNotification.Title, n.Title)
	assert.Equal(t, "pizza-notification", n.Identifier)
}
