package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/LuisCutz/expo-notifications/internal/apiclient"
	"github.com/LuisCutz/expo-notifications/internal/apperr"
	"github.com/LuisCutz/expo-notifications/internal/logging"
	"github.com/LuisCutz/expo-notifications/internal/metrics"
)

// User-facing remote send messages.
const (
	MsgSendFailed     = "there was an error sending the notification"
	MsgUnreachable    = "could not connect to the API"
	IdempotencyHeader = "Idempotency-Key"
)

// idempotencyNamespace scopes the name-based keys of send requests.
var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:pushctl:send-notification"))

// Remote asks the backend to push a notification to a device token.
type Remote struct {
	Endpoint string
	API      *apiclient.Client
}

// NewRemote returns a remote sender posting to endpoint.
func NewRemote(endpoint string, api *apiclient.Client) *Remote {
	return &Remote{Endpoint: endpoint, API: api}
}

func (r *Remote) Name() string { return "remote" }

type sendPayload struct {
	Token string         `json:"token"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// IdempotencyKey derives the request key from the payload, so resending the
// same notification to the same token reuses it.
func IdempotencyKey(msg Message) (string, error) {
	b, err := json.Marshal(sendPayload{Token: msg.To, Title: msg.Title, Body: msg.Body, Data: msg.Data})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return uuid.NewSHA1(idempotencyNamespace, b).String(), nil
}

// Send posts msg to the send endpoint. Any 2xx is success.
func (r *Remote) Send(ctx context.Context, msg Message) error {
	log := logging.Component("notify").With().Str("path", r.Name()).Str("token", logging.Redact(msg.To)).Logger()

	key, err := IdempotencyKey(msg)
	if err != nil {
		metrics.IncRemote(false)
		return apperr.Wrap(apperr.KindValidation, "send", MsgSendFailed, err)
	}
	payload := sendPayload{Token: msg.To, Title: msg.Title, Body: msg.Body, Data: msg.Data}
	resp, err := r.API.PostJSON(ctx, r.Endpoint, payload, http.Header{IdempotencyHeader: {key}})
	if err != nil {
		metrics.IncRemote(false)
		log.Error().Err(err).Msg("send request failed")
		return apperr.Wrap(apperr.KindNetwork, "send", MsgUnreachable, err)
	}
	if !resp.OK() {
		metrics.IncRemote(false)
		msgText := resp.Message()
		if msgText == "" {
			msgText = MsgSendFailed
		}
		log.Warn().Int("status", resp.Status).Str("message", msgText).Msg("send rejected")
		return &apperr.Error{
			Kind:    apperr.KindRemote,
			Op:      "send",
			Message: msgText,
			Err:     fmt.Errorf("send endpoint returned status %d", resp.Status),
		}
	}
	metrics.IncRemote(true)
	log.Info().Str("idempotency_key", key).Msg("notification dispatched")
	return nil
}
