package session

import (
	"context"
	"fmt"

	"github.com/LuisCutz/expo-notifications/internal/apiclient"
	"github.com/LuisCutz/expo-notifications/internal/apperr"
)

// User-facing sign-in messages.
const (
	MsgInvalidCredentials = "invalid credentials"
	MsgSignInFailed       = "error signing in"
	MsgSaveFailed         = "could not save session"
	MsgMissingFields      = "please fill in all fields"
)

// Authenticator exchanges credentials for a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
}

// AuthClient authenticates against the backend's auth endpoint.
type AuthClient struct {
	endpoint string
	api      *apiclient.Client
}

// NewAuthClient returns a client posting credentials to endpoint.
func NewAuthClient(endpoint string, api *apiclient.Client) *AuthClient {
	return &AuthClient{endpoint: endpoint, api: api}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Authenticate posts the credentials and returns the issued token.
func (a *AuthClient) Authenticate(ctx context.Context, email, password string) (string, error) {
	resp, err := a.api.PostJSON(ctx, a.endpoint, credentials{Email: email, Password: password}, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, "sign in", MsgSignInFailed, err)
	}
	if !resp.OK() {
		msg := resp.Message()
		if msg == "" {
			msg = MsgSignInFailed
		}
		return "", &apperr.Error{
			Kind:    apperr.KindRemote,
			Op:      "sign in",
			Message: msg,
			Err:     fmt.Errorf("auth endpoint returned status %d", resp.Status),
		}
	}
	var body authResponse
	if err := resp.Decode(&body); err != nil || body.Data.Token == "" {
		return "", apperr.New(apperr.KindRemote, "sign in", MsgInvalidCredentials)
	}
	return body.Data.Token, nil
}
