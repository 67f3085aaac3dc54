package rte

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/testutil"
)

type fakeRegistry struct {
	registered   []SessionHandle
	unregistered []string
	persisted    []Snapshot
	learner      *datamodel.LearnerInfo

	persistErr   error
	decline      bool
	registerErr  error
	learnerPanic bool
}

func (r *fakeRegistry) RegisterSession(_ context.Context, h SessionHandle) error {
	if r.registerErr != nil {
		return r.registerErr
	}
	r.registered = append(r.registered, h)
	return nil
}

func (r *fakeRegistry) UnregisterSession(_ context.Context, id string) error {
	r.unregistered = append(r.unregistered, id)
	return nil
}

func (r *fakeRegistry) PersistSessionData(_ context.Context, _ string, snap Snapshot) (bool, error) {
	if r.persistErr != nil {
		return false, r.persistErr
	}
	if r.decline {
		return false, nil
	}
	r.persisted = append(r.persisted, snap)
	return true, nil
}

func (r *fakeRegistry) LearnerInfo(context.Context) (*datamodel.LearnerInfo, error) {
	if r.learnerPanic {
		panic("learner lookup exploded")
	}
	return r.learner, nil
}

// asyncRegistry persists through a channel the test controls.
type asyncRegistry struct {
	fakeRegistry
	mu      sync.Mutex
	pending []chan error
	snaps   []Snapshot
}

func (r *asyncRegistry) PersistSessionDataAsync(_ context.Context, _ string, snap Snapshot) <-chan error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan error, 1)
	r.pending = append(r.pending, ch)
	r.snaps = append(r.snaps, snap)
	return ch
}

type broadcast struct {
	channel string
	payload any
}

type recordingTelemetry struct {
	calls      []APICall
	changes    []datamodel.ChangeEvent
	broadcasts []broadcast
	failAll    bool
}

var errTelemetryDown = errors.New("telemetry down")

func (t *recordingTelemetry) StoreAPICall(_ context.Context, c APICall) error {
	t.calls = append(t.calls, c)
	if t.failAll {
		return errTelemetryDown
	}
	return nil
}

func (t *recordingTelemetry) StoreDataModelChange(_ context.Context, ev datamodel.ChangeEvent) error {
	t.changes = append(t.changes, ev)
	if t.failAll {
		return errTelemetryDown
	}
	return nil
}

func (t *recordingTelemetry) Broadcast(_ context.Context, channel string, payload any) error {
	t.broadcasts = append(t.broadcasts, broadcast{channel, payload})
	if t.failAll {
		return errTelemetryDown
	}
	return nil
}

func (t *recordingTelemetry) channels() []string {
	out := make([]string, len(t.broadcasts))
	for i, b := range t.broadcasts {
		out[i] = b.channel
	}
	return out
}

type fakeSequencer struct {
	state    SequencingState
	err      error
	refresh  int
	panicked bool
}

func (s *fakeSequencer) RefreshNavigationAvailability(context.Context) error {
	s.refresh++
	if s.panicked {
		panic("sequencer exploded")
	}
	return nil
}

func (s *fakeSequencer) SequencingState(context.Context) (SequencingState, error) {
	return s.state, s.err
}

type harness struct {
	engine    *Engine
	clock     *testutil.FakeClock
	registry  *fakeRegistry
	telemetry *recordingTelemetry
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock:     testutil.NewFakeClock(),
		registry:  &fakeRegistry{},
		telemetry: &recordingTelemetry{},
	}
	base := []Option{
		WithClock(h.clock),
		WithLogger(quietLogger()),
		WithSessionIDs(testutil.NewFixedSessionIDs("sess-1")),
		WithRegistry(h.registry),
		WithTelemetry(h.telemetry),
	}
	e, err := New(append(base, opts...)...)
	require.NoError(t, err)
	h.engine = e
	return h
}

func (h *harness) mustInit(t *testing.T) {
	t.Helper()
	require.Equal(t, "true", h.engine.Initialize(""), h.engine.GetDiagnostic(""))
}
