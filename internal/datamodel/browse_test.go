package datamodel

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowseSession_Lifecycle(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.False(t, m.InBrowseMode())
	assert.True(t, m.ShouldPersistData())

	s := m.CreateBrowseSessionData(BrowseOptions{SessionID: "sess-1"})
	assert.Equal(t, "sess-1", s.ID)
	assert.Equal(t, DefaultBrowseTimeout, s.Timeout)
	assert.True(t, m.InBrowseMode())
	assert.False(t, m.ShouldPersistData())

	m.DestroyBrowseSessionData()
	_, ok := m.BrowseSession()
	assert.False(t, ok)
	assert.False(t, m.InBrowseMode())
}

func TestBrowseSession_GeneratedID(t *testing.T) {
	m, _, _ := newTestModel(t)

	s := m.CreateBrowseSessionData(BrowseOptions{})
	assert.True(t, strings.HasPrefix(s.ID, "browse_"), s.ID)
}

func TestBrowseSession_RecordsOperationsAndTempData(t *testing.T) {
	m, _, clk := newTestModel(t)
	m.CreateBrowseSessionData(BrowseOptions{SessionID: "b"})

	clk.Advance(time.Minute)
	require.NoError(t, m.SetValue("cmi.location", "p1"))
	_, _ = m.GetValue("cmi.location")

	s, ok := m.BrowseSession()
	require.True(t, ok)
	assert.Equal(t, map[string]string{"cmi.location": "p1"}, s.TempData)
	require.Len(t, s.Operations, 2)
	assert.Equal(t, "SetValue", s.Operations[0].Operation)
	assert.Equal(t, "GetValue", s.Operations[1].Operation)
	assert.Equal(t, clk.Now(), s.LastActivity)
}

func TestBrowseSession_StaleTimerKeepsActiveSession(t *testing.T) {
	m, _, clk := newTestModel(t)
	m.CreateBrowseSessionData(BrowseOptions{SessionID: "b", Timeout: time.Minute})

	clk.Advance(50 * time.Second)
	_, _ = m.GetValue("cmi.location")
	// A real timer can fire while the operation above holds the lock and
	// run right after it.
	m.expireBrowseSession()

	s, ok := m.BrowseSession()
	require.True(t, ok, "session touched just before the stale timer must survive")
	assert.Equal(t, clk.Now().Add(time.Minute), s.ExpiresAt())

	clk.Advance(time.Minute)
	_, ok = m.BrowseSession()
	assert.False(t, ok)
}

func TestBrowseSession_ExpiresAfterInactivity(t *testing.T) {
	m, _, clk := newTestModel(t)
	m.CreateBrowseSessionData(BrowseOptions{SessionID: "b"})

	clk.Advance(DefaultBrowseTimeout - time.Second)
	_, ok := m.BrowseSession()
	require.True(t, ok)

	clk.Advance(time.Second)
	_, ok = m.BrowseSession()
	assert.False(t, ok)
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestBrowseSession_ActivityResetsTimer(t *testing.T) {
	m, _, clk := newTestModel(t)
	m.CreateBrowseSessionData(BrowseOptions{SessionID: "b", Timeout: 10 * time.Minute})

	clk.Advance(9 * time.Minute)
	_, _ = m.GetValue("cmi.mode")
	clk.Advance(9 * time.Minute)

	_, ok := m.BrowseSession()
	require.True(t, ok, "activity should have restarted the timer")

	clk.Advance(time.Minute)
	_, ok = m.BrowseSession()
	assert.False(t, ok)
}

func TestBrowseSession_OperationLogBounded(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.CreateBrowseSessionData(BrowseOptions{SessionID: "b"})

	for range maxBrowseOperations + 10 {
		_, _ = m.GetValue("cmi.location")
	}

	s, _ := m.BrowseSession()
	assert.Len(t, s.Operations, maxBrowseOperations)
}

func TestInBrowseMode_FromCmiMode(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.NoError(t, m.SetInternalValue("cmi.mode", "browse"))

	assert.True(t, m.InBrowseMode())
	assert.False(t, m.ShouldPersistData())
}

func TestShouldPersistData_MemoryOnly(t *testing.T) {
	m, _, _ := newTestModel(t, WithMemoryOnly(true))

	assert.False(t, m.InBrowseMode())
	assert.False(t, m.ShouldPersistData())
}

func TestReset_DestroysBrowseSession(t *testing.T) {
	m, _, clk := newTestModel(t)
	m.CreateBrowseSessionData(BrowseOptions{SessionID: "b"})

	m.Reset()

	_, ok := m.BrowseSession()
	assert.False(t, ok)
	assert.Equal(t, 0, clk.PendingTimers())
}
