package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/rte"
	"github.com/roach88/scormrte/internal/store"
	"github.com/roach88/scormrte/internal/telemetry"
	"github.com/roach88/scormrte/internal/testutil"
)

// Harness runs one scenario against a live engine.
type Harness struct {
	engine  *rte.Engine
	store   *store.Store
	clock   *testutil.FakeClock
	effects *effectRecorder
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*runOptions)

type runOptions struct {
	logger    *slog.Logger
	telemetry rte.TelemetrySink
}

// WithLogger sends engine logs to l instead of discarding them.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// WithTelemetry forwards everything the engine reports to sink as well.
func WithTelemetry(sink rte.TelemetrySink) Option {
	return func(o *runOptions) { o.telemetry = sink }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh engine (and, with persist, a fresh
// in-memory database) for isolation. The returned error covers setup
// failures only; failed expectations are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	h := &Harness{
		clock:   testutil.NewFakeClock(),
		effects: &effectRecorder{},
		logger:  o.logger,
	}

	cfg := scenario.config()
	engineOpts := append(cfg.Options(),
		rte.WithClock(h.clock),
		rte.WithLogger(o.logger),
		rte.WithSessionIDs(testutil.NewFixedSessionIDs(scenario.SessionID)),
	)

	sinks := []rte.TelemetrySink{h.effects, o.telemetry}
	if scenario.Persist {
		st, err := store.Open(":memory:", store.WithNow(h.clock.Now))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		h.store = st
		sinks = append(sinks, st)
		engineOpts = append(engineOpts, rte.WithRegistry(st))
	}
	engineOpts = append(engineOpts, rte.WithTelemetry(telemetry.NewFanout(sinks...)))

	eng, err := rte.New(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.engine = eng

	if len(scenario.Restore) > 0 {
		data, err := restoreData(scenario.Restore)
		if err != nil {
			return nil, fmt.Errorf("failed to build restore data: %w", err)
		}
		if err := eng.Restore(data); err != nil {
			return nil, fmt.Errorf("failed to restore: %w", err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(i+1, step, result)
	}

	if err := h.finish(len(scenario.Steps)+1, scenario.Final, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (h *Harness) executeStep(n int, step Step, result *Result) {
	if step.Advance != "" {
		d, _ := time.ParseDuration(step.Advance)
		h.clock.Advance(d)
		result.Trace = append(result.Trace, TraceEvent{Step: n, Type: EventAdvance, Advance: d.String()})
		return
	}

	h.effects.reset()
	got := h.call(step.Call, step.Args)
	// LastError is not an API call, so the audit trail only holds the
	// scripted calls.
	code := h.engine.LastError().String()
	changes, broadcasts := h.effects.drain()

	result.Trace = append(result.Trace, TraceEvent{
		Step:       n,
		Type:       EventCall,
		Method:     step.Call,
		Args:       step.Args,
		Result:     got,
		Error:      code,
		Changes:    changes,
		Broadcasts: broadcasts,
	})

	if step.Expect != nil && got != *step.Expect {
		result.AddError(fmt.Sprintf("step %d: %s%q returned %q, want %q", n, step.Call, step.Args, got, *step.Expect))
	}
	if step.Error != "" && code != step.Error {
		result.AddError(fmt.Sprintf("step %d: %s%q left error %s, want %s", n, step.Call, step.Args, code, step.Error))
	}
	h.logger.Debug("step completed", "step", n, "call", step.Call, "result", got, "error", code)
}

func (h *Harness) call(method string, args []string) string {
	e := h.engine
	switch method {
	case rte.MethodInitialize:
		return e.Initialize(args[0])
	case rte.MethodTerminate:
		return e.Terminate(args[0])
	case rte.MethodCommit:
		return e.Commit(args[0])
	case rte.MethodGetValue:
		return e.GetValue(args[0])
	case rte.MethodSetValue:
		return e.SetValue(args[0], args[1])
	case rte.MethodGetLastError:
		return e.GetLastError()
	case rte.MethodGetErrorString:
		return e.GetErrorString(args[0])
	case rte.MethodGetDiagnostic:
		return e.GetDiagnostic(args[0])
	}
	panic("harness: unvalidated method " + method)
}

func (h *Harness) finish(n int, final *FinalClause, result *Result) error {
	ev := TraceEvent{Step: n, Type: EventFinal, State: h.engine.State().String()}

	if final != nil {
		if final.State != "" && final.State != ev.State {
			result.AddError(fmt.Sprintf("final: state %s, want %s", ev.State, final.State))
		}
		if len(final.Values) > 0 {
			ev.Values = make(map[string]string, len(final.Values))
			for _, element := range slices.Sorted(maps.Keys(final.Values)) {
				got, err := h.engine.InternalValue(element)
				if err != nil {
					got = "<" + err.Error() + ">"
				}
				ev.Values[element] = got
				if want := final.Values[element]; got != want {
					result.AddError(fmt.Sprintf("final: %s = %q, want %q", element, got, want))
				}
			}
		}
	}

	if h.store != nil {
		snaps, err := h.store.Snapshots(context.Background(), h.engine.SessionID())
		if err != nil {
			return fmt.Errorf("failed to read snapshots: %w", err)
		}
		count := len(snaps)
		ev.Snapshots = &count
	}

	result.Trace = append(result.Trace, ev)
	return nil
}

// restoreData builds restore input by writing the values into a scratch
// data model, which applies the same validation the engine would.
func restoreData(values []ElementValue) (datamodel.Data, error) {
	dm := datamodel.New()
	for _, v := range values {
		if err := dm.SetInternalValue(v.Element, v.Value); err != nil {
			return datamodel.Data{}, fmt.Errorf("restore %s: %w", v.Element, err)
		}
	}
	return dm.AllData(), nil
}

// effectRecorder collects the changes and broadcasts of the current call.
type effectRecorder struct {
	mu         sync.Mutex
	changes    []Change
	broadcasts []string
}

func (r *effectRecorder) StoreAPICall(context.Context, rte.APICall) error { return nil }

func (r *effectRecorder) StoreDataModelChange(_ context.Context, ev datamodel.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, Change{Element: ev.Element, From: ev.Previous, To: ev.Value, Source: ev.Source})
	return nil
}

func (r *effectRecorder) Broadcast(_ context.Context, channel string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, channel)
	return nil
}

func (r *effectRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes, r.broadcasts = nil, nil
}

func (r *effectRecorder) drain() ([]Change, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changes, broadcasts := r.changes, r.broadcasts
	r.changes, r.broadcasts = nil, nil
	return changes, broadcasts
}
