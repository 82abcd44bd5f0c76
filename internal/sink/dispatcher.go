package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/site-tracking/internal/domain"
)

// Notifier is one downstream integration.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, evt domain.ConversionEvent) error
}

// Dispatcher runs every notifier on each event. All notifiers run even when
// one fails; the failures are joined. Because a failed event is redelivered
// to every notifier, notifiers must tolerate seeing an event twice.
type Dispatcher struct {
	notifiers []Notifier
}

var _ Handler = (*Dispatcher)(nil)

// NewDispatcher skips nil notifiers, so optional ones can be passed as-is.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

func (d *Dispatcher) Handle(ctx context.Context, evt domain.ConversionEvent) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		sinkLog.Debug("event delivered", "notifier", n.Name(), "event_id", evt.ID)
	}
	return errors.Join(errs...)
}

// Names lists the configured notifiers.
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		out[i] = n.Name()
	}
	return out
}
