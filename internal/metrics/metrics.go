// Package metrics provides counters, Prometheus collectors, and HTTP
// handlers for exporting push client runtime metrics.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// 1. Internal State (Source of Truth)
var (
	signInsSuccess      int64
	signInsFailure      int64
	signOuts            int64
	registrationsOK     int64
	registrationsFailed int64
	channelSetupFailed  int64
	received            int64
	responses           int64
	localScheduled      int64
	localFailed         int64
	remoteDispatched    int64
	remoteFailed        int64
	lastRegistration    int64
)

const counterInc int64 = 1

// 2. Prometheus Collectors
var (
	promSignIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushclient_sign_ins_total",
			Help: "Total sign-in attempts",
		},
		[]string{"result"},
	)
	promSignOuts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pushclient_sign_outs_total",
			Help: "Total sign-outs",
		},
	)
	promRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushclient_registrations_total",
			Help: "Push registration runs by outcome",
		},
		[]string{"outcome"},
	)
	promChannelSetupFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pushclient_channel_setup_failed_total",
			Help: "Notification channel configuration failures",
		},
	)
	promReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pushclient_notifications_received_total",
			Help: "Notifications received while foregrounded",
		},
	)
	promResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pushclient_notification_responses_total",
			Help: "User responses to notifications",
		},
	)
	promDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushclient_deliveries_total",
			Help: "Notification deliveries by path and result",
		},
		[]string{"path", "result"},
	)
	promLastRegistration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pushclient_last_registration_timestamp_seconds",
			Help: "Unix timestamp of the last successful push registration",
		},
	)
)

func init() {
	prometheus.MustRegister(
		promSignIns,
		promSignOuts,
		promRegistrations,
		promChannelSetupFailed,
		promReceived,
		promResponses,
		promDeliveries,
		promLastRegistration,
	)
}

// 3. Public API (Updates both Atomic and Prometheus)

// IncSignIn records a sign-in attempt.
func IncSignIn(ok bool) {
	if ok {
		atomic.AddInt64(&signInsSuccess, counterInc)
		promSignIns.WithLabelValues(ResultSuccess).Inc()
		return
	}
	atomic.AddInt64(&signInsFailure, counterInc)
	promSignIns.WithLabelValues(ResultFailure).Inc()
}

func IncSignOut() {
	atomic.AddInt64(&signOuts, counterInc)
	promSignOuts.Inc()
}

// IncRegistration records a registration run; outcome is "success" or the
// failure reason.
func IncRegistration(outcome string) {
	if outcome == ResultSuccess {
		atomic.AddInt64(&registrationsOK, counterInc)
	} else {
		atomic.AddInt64(&registrationsFailed, counterInc)
	}
	promRegistrations.WithLabelValues(outcome).Inc()
}

func IncChannelSetupFailed() {
	atomic.AddInt64(&channelSetupFailed, counterInc)
	promChannelSetupFailed.Inc()
}

func IncReceived() {
	atomic.AddInt64(&received, counterInc)
	promReceived.Inc()
}

func IncResponse() {
	atomic.AddInt64(&responses, counterInc)
	promResponses.Inc()
}

// IncLocal records a local schedule attempt.
func IncLocal(ok bool) {
	if ok {
		atomic.AddInt64(&localScheduled, counterInc)
		promDeliveries.WithLabelValues("local", ResultSuccess).Inc()
		return
	}
	atomic.AddInt64(&localFailed, counterInc)
	promDeliveries.WithLabelValues("local", ResultFailure).Inc()
}

// IncRemote records a remote dispatch attempt.
func IncRemote(ok bool) {
	if ok {
		atomic.AddInt64(&remoteDispatched, counterInc)
		promDeliveries.WithLabelValues("remote", ResultSuccess).Inc()
		return
	}
	atomic.AddInt64(&remoteFailed, counterInc)
	promDeliveries.WithLabelValues("remote", ResultFailure).Inc()
}

// SetLastRegistration stores the time of the last successful registration.
func SetLastRegistration(t time.Time) {
	atomic.StoreInt64(&lastRegistration, t.Unix())
	promLastRegistration.Set(float64(t.Unix()))
}

// 4. JSON Snapshot Struct

// StatsSnapshot is a snapshot of metrics for JSON encoding.
type StatsSnapshot struct {
	SignInsSuccess        int64  `json:"sign_ins_success"`
	SignInsFailure        int64  `json:"sign_ins_failure"`
	SignOuts              int64  `json:"sign_outs"`
	RegistrationsOK       int64  `json:"registrations_ok"`
	RegistrationsFailed   int64  `json:"registrations_failed"`
	ChannelSetupFailed    int64  `json:"channel_setup_failed"`
	Received              int64  `json:"notifications_received"`
	Responses             int64  `json:"notification_responses"`
	LocalScheduled        int64  `json:"local_scheduled"`
	LocalFailed           int64  `json:"local_failed"`
	RemoteDispatched      int64  `json:"remote_dispatched"`
	RemoteFailed          int64  `json:"remote_failed"`
	LastRegistration      int64  `json:"last_registration_timestamp"`
	LastRegistrationHuman string `json:"last_registration_human,omitempty"`
}

// GetSnapshot returns the current values of all internal counters.
func GetSnapshot() StatsSnapshot {
	ts := atomic.LoadInt64(&lastRegistration)
	var human string
	if ts > 0 {
		human = time.Unix(ts, 0).Format(time.RFC3339)
	}
	return StatsSnapshot{
		SignInsSuccess:        atomic.LoadInt64(&signInsSuccess),
		SignInsFailure:        atomic.LoadInt64(&signInsFailure),
		SignOuts:              atomic.LoadInt64(&signOuts),
		RegistrationsOK:       atomic.LoadInt64(&registrationsOK),
		RegistrationsFailed:   atomic.LoadInt64(&registrationsFailed),
		ChannelSetupFailed:    atomic.LoadInt64(&channelSetupFailed),
		Received:              atomic.LoadInt64(&received),
		Responses:             atomic.LoadInt64(&responses),
		LocalScheduled:        atomic.LoadInt64(&localScheduled),
		LocalFailed:           atomic.LoadInt64(&localFailed),
		RemoteDispatched:      atomic.LoadInt64(&remoteDispatched),
		RemoteFailed:          atomic.LoadInt64(&remoteFailed),
		LastRegistration:      ts,
		LastRegistrationHuman: human,
	}
}

// 5. Handlers

// PromHandler returns an HTTP handler that exposes Prometheus metrics.
func PromHandler() http.Handler { return promhttp.Handler() }

// JSONHandler returns an HTTP handler that serves the current metrics as
// a JSON-encoded StatsSnapshot.
func JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GetSnapshot())
	})
}

// NewMux returns the metrics server routes.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", PromHandler())
	mux.Handle("/status", JSONHandler())
	return mux
}
