package telemetry

import (
	"context"
	"errors"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/rte"
)

// Fanout forwards every record to each sink in order. A failing sink does
// not stop the others; their errors are joined.
type Fanout []rte.TelemetrySink

var _ rte.TelemetrySink = Fanout(nil)

// NewFanout drops nil sinks.
func NewFanout(sinks ...rte.TelemetrySink) Fanout {
	out := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// StoreAPICall implements rte.TelemetrySink.
func (f Fanout) StoreAPICall(ctx context.Context, call rte.APICall) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.StoreAPICall(ctx, call))
	}
	return errors.Join(errs...)
}

// StoreDataModelChange implements rte.TelemetrySink.
func (f Fanout) StoreDataModelChange(ctx context.Context, ev datamodel.ChangeEvent) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.StoreDataModelChange(ctx, ev))
	}
	return errors.Join(errs...)
}

// Broadcast implements rte.TelemetrySink.
func (f Fanout) Broadcast(ctx context.Context, channel string, payload any) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.Broadcast(ctx, channel, payload))
	}
	return errors.Join(errs...)
}
