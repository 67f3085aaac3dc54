package telemetry

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/rte"
)

// Broadcast is one recorded observer notification.
type Broadcast struct {
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

// Recorder keeps everything it receives in memory, in arrival order.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu         sync.Mutex
	calls      []rte.APICall
	changes    []datamodel.ChangeEvent
	broadcasts []Broadcast
}

var _ rte.TelemetrySink = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// StoreAPICall implements rte.TelemetrySink.
func (r *Recorder) StoreAPICall(_ context.Context, call rte.APICall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	call.Parameters = slices.Clone(call.Parameters)
	r.calls = append(r.calls, call)
	return nil
}

// StoreDataModelChange implements rte.TelemetrySink.
func (r *Recorder) StoreDataModelChange(_ context.Context, ev datamodel.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev)
	return nil
}

// Broadcast implements rte.TelemetrySink.
func (r *Recorder) Broadcast(_ context.Context, channel string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, Broadcast{Channel: channel, Payload: payload})
	return nil
}

// Calls returns a copy of the recorded API calls.
func (r *Recorder) Calls() []rte.APICall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Changes returns a copy of the recorded change events.
func (r *Recorder) Changes() []datamodel.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.changes)
}

// Broadcasts returns a copy of the recorded broadcasts.
func (r *Recorder) Broadcasts() []Broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.broadcasts)
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls, r.changes, r.broadcasts = nil, nil, nil
}
