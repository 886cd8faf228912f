// Package notify triggers notifications, either scheduled on the device or
// pushed through the backend API.
package notify

import (
	"context"

	"github.com/LuisCutz/expo-notifications/internal/config"
)

// Message is one notification to deliver. To is the push token and is only
// used by the remote path.
type Message struct {
	To    string
	Title string
	Body  string
	Data  map[string]any
	Sound string
}

// MessageFromContent builds a message from configured content.
func MessageFromContent(c config.Content) Message {
	return Message{Title: c.Title, Body: c.Body, Data: c.Data, Sound: c.Sound}
}

// Service is the interface every delivery path implements
type Service interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}
