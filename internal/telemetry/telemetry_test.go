package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/rte"
	fake "github.com/roach88/scormrte/internal/testutil"
)

func TestMetrics_CountsAPICalls(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	require.NoError(t, m.StoreAPICall(ctx, rte.APICall{Method: "SetValue", ErrorCode: "0", Duration: time.Millisecond}))
	require.NoError(t, m.StoreAPICall(ctx, rte.APICall{Method: "SetValue", ErrorCode: "404"}))
	require.NoError(t, m.StoreAPICall(ctx, rte.APICall{Method: "SetValue", ErrorCode: "0"}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APICallsTotal.WithLabelValues("SetValue", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICallsTotal.WithLabelValues("SetValue", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.APICallDurationSeconds))
}

func TestMetrics_ChangesAndBroadcasts(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	require.NoError(t, m.StoreDataModelChange(ctx, datamodel.ChangeEvent{Source: datamodel.SourceAPISetValue}))
	require.NoError(t, m.StoreDataModelChange(ctx, datamodel.ChangeEvent{Source: datamodel.SourceSessionInit}))
	require.NoError(t, m.Broadcast(ctx, rte.ChannelProgressUpdated, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DataModelChangesTotal.WithLabelValues("api:SetValue")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.DataModelChangesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BroadcastsTotal.WithLabelValues(rte.ChannelProgressUpdated)))
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

type failingSink struct{ err error }

func (f failingSink) StoreAPICall(context.Context, rte.APICall) error { return f.err }
func (f failingSink) StoreDataModelChange(context.Context, datamodel.ChangeEvent) error {
	return f.err
}
func (f failingSink) Broadcast(context.Context, string, any) error { return f.err }

func TestFanout_ReachesEverySink(t *testing.T) {
	boom := errors.New("boom")
	first, second := NewRecorder(), NewRecorder()
	f := NewFanout(first, nil, failingSink{err: boom}, second)
	require.Len(t, f, 3)

	err := f.StoreAPICall(context.Background(), rte.APICall{Method: "Commit"})
	require.ErrorIs(t, err, boom)
	assert.Len(t, first.Calls(), 1)
	assert.Len(t, second.Calls(), 1)

	require.ErrorIs(t, f.Broadcast(context.Background(), "c", 1), boom)
	assert.Equal(t, []Broadcast{{Channel: "c", Payload: 1}}, second.Broadcasts())
}

func TestFanout_EmptyIsNoop(t *testing.T) {
	var f Fanout
	assert.NoError(t, f.StoreDataModelChange(context.Background(), datamodel.ChangeEvent{}))
}

func TestRecorder_CopiesParameters(t *testing.T) {
	r := NewRecorder()
	params := []string{"cmi.location"}
	require.NoError(t, r.StoreAPICall(context.Background(), rte.APICall{Parameters: params}))
	params[0] = "mutated"
	assert.Equal(t, "cmi.location", r.Calls()[0].Parameters[0])

	r.Reset()
	assert.Empty(t, r.Calls())
}

func TestMetrics_WithEngine(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	rec := NewRecorder()
	e, err := rte.New(
		rte.WithClock(fake.NewFakeClock()),
		rte.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		rte.WithTelemetry(NewFanout(m, rec)),
	)
	require.NoError(t, err)

	require.Equal(t, "true", e.Initialize(""))
	require.Equal(t, "false", e.SetValue("cmi.credit", "no-credit"))
	require.Equal(t, "true", e.SetValue("cmi.completion_status", "completed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICallsTotal.WithLabelValues("Initialize", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICallsTotal.WithLabelValues("SetValue", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DataModelChangesTotal.WithLabelValues("api:SetValue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BroadcastsTotal.WithLabelValues(rte.ChannelProgressUpdated)))
	assert.Len(t, rec.Calls(), 3)
}
