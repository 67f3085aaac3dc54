package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scormrte/internal/rte"
	"github.com/roach88/scormrte/internal/telemetry"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"basic_session", "resume_with_persist", "browse_mode", "error_reporting"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: mismatch
description: expectations that do not hold
steps:
  - call: Initialize
    expect: "false"
  - call: SetValue
    args: [cmi.location, here]
    error: "404"
final:
  state: terminated
  values:
    cmi.location: there
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "step 1")
	assert.Contains(t, result.Errors[1], "left error 0, want 404")
	assert.Contains(t, result.Errors[2], "final: state running")
	assert.Contains(t, result.Errors[3], `cmi.location = "here"`)
	require.Len(t, result.Trace, 3, "every step still runs")
}

func TestRun_TraceShape(t *testing.T) {
	result, err := Run(loadTestScenario(t, "basic_session"))
	require.NoError(t, err)

	require.Len(t, result.Trace, 9)
	first := result.Trace[0]
	assert.Equal(t, EventCall, first.Type)
	assert.Equal(t, rte.MethodInitialize, first.Method)
	assert.Equal(t, []string{""}, first.Args)

	set := result.Trace[3]
	require.Len(t, set.Changes, 1)
	assert.Equal(t, Change{Element: "cmi.completion_status", From: "unknown", To: "completed", Source: "api:SetValue"}, set.Changes[0])
	assert.Equal(t, []string{rte.ChannelDataModelUpdated, rte.ChannelProgressUpdated}, set.Broadcasts)

	assert.Equal(t, EventAdvance, result.Trace[5].Type)
	assert.Equal(t, "1m30s", result.Trace[5].Advance)

	final := result.Trace[8]
	assert.Equal(t, EventFinal, final.Type)
	assert.Nil(t, final.Snapshots, "no store without persist")
}

func TestRun_ForwardsTelemetry(t *testing.T) {
	rec := telemetry.NewRecorder()
	result, err := Run(loadTestScenario(t, "basic_session"), WithTelemetry(rec))
	require.NoError(t, err)
	require.True(t, result.Pass)

	calls := rec.Calls()
	methods := make([]string, len(calls))
	for i, c := range calls {
		methods[i] = c.Method
	}
	assert.Equal(t, []string{
		rte.MethodInitialize, rte.MethodGetValue, rte.MethodSetValue, rte.MethodSetValue,
		rte.MethodCommit, rte.MethodTerminate, rte.MethodGetValue,
	}, methods)
	assert.Equal(t, "sess-basic", calls[2].SessionID)
	assert.Len(t, rec.Broadcasts(), 3)
}

func TestRun_RestoreRejectsInvalidValue(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_restore
description: restore values go through validation
restore:
  - element: cmi.completion_status
    value: finished
steps:
  - call: Initialize
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cmi.completion_status")
}

func TestRun_Determinism(t *testing.T) {
	s := loadTestScenario(t, "resume_with_persist")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(first.Trace)
	require.NoError(t, err)
	b, err := MarshalTrace(second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
