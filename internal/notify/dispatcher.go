package notify

import (
	"context"
	"fmt"

	"github.com/LuisCutz/expo-notifications/internal/apperr"
	"github.com/LuisCutz/expo-notifications/internal/config"
)

// Dispatcher routes a message to the service registered for a delivery mode.
type Dispatcher struct {
	services map[string]Service
}

// NewDispatcher returns a dispatcher with the local and remote paths.
func NewDispatcher(local, remote Service) *Dispatcher {
	d := &Dispatcher{services: make(map[string]Service)}
	d.Add(config.ModeLocal, local)
	d.Add(config.ModeRemote, remote)
	return d
}

// Add registers s for mode. Nil services are ignored.
func (d *Dispatcher) Add(mode string, s Service) {
	if s != nil {
		d.services[mode] = s
	}
}

// Len returns the number of registered services.
func (d *Dispatcher) Len() int { return len(d.services) }

// Send delivers msg through the service for mode.
func (d *Dispatcher) Send(ctx context.Context, mode string, msg Message) error {
	s, ok := d.services[mode]
	if !ok {
		return apperr.New(apperr.KindValidation, "send", fmt.Sprintf("unknown delivery mode %q", mode))
	}
	return s.Send(ctx, msg)
}
