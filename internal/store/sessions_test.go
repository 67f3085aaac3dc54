package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/errorstate"
	"github.com/roach88/scormrte/internal/rte"
	"github.com/roach88/scormrte/internal/testutil"
)

func testSnapshot(sessionID, learnerID, location string, at time.Time) rte.Snapshot {
	rec := datamodel.NewRecord()
	rec.Fields["id"] = "q1"
	rec.Lists = map[string][]map[string]string{"objectives": {{"id": "obj-1"}}}
	return rte.Snapshot{
		SessionID: sessionID,
		Timestamp: at,
		Data: datamodel.Data{
			CoreData: map[string]string{
				"cmi.learner_id": learnerID,
				"cmi.location":   location,
			},
			Interactions:        []datamodel.Record{rec},
			Objectives:          []datamodel.Record{},
			CommentsFromLearner: []datamodel.Record{},
			CommentsFromLMS:     []datamodel.Record{},
		},
		ErrorState: errorstate.Snapshot{LastError: "0", State: "running"},
		LaunchMode: rte.ModeNormal,
	}
}

func TestRegisterAndListSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	start := testutil.FakeEpoch

	require.NoError(t, s.RegisterSession(ctx, rte.SessionHandle{SessionID: "b", LearnerID: "l1", LaunchMode: "normal", StartedAt: start.Add(time.Minute)}))
	require.NoError(t, s.RegisterSession(ctx, rte.SessionHandle{SessionID: "a", LearnerID: "l2", LaunchMode: "browse", StartedAt: start}))
	require.NoError(t, s.UnregisterSession(ctx, "a"))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, "browse", sessions[0].LaunchMode)
	assert.False(t, sessions[0].Active)
	require.NotNil(t, sessions[0].EndedAt)
	assert.Equal(t, testutil.FakeEpoch, *sessions[0].EndedAt)

	assert.Equal(t, "b", sessions[1].ID)
	assert.True(t, sessions[1].Active)
	assert.Nil(t, sessions[1].EndedAt)
	assert.Equal(t, start.Add(time.Minute), sessions[1].StartedAt)
}

func TestRegisterSession_ReactivatesExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	h := rte.SessionHandle{SessionID: "a", LaunchMode: "normal", StartedAt: testutil.FakeEpoch}

	require.NoError(t, s.RegisterSession(ctx, h))
	require.NoError(t, s.UnregisterSession(ctx, "a"))
	require.NoError(t, s.RegisterSession(ctx, h))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Active)
	assert.Nil(t, sessions[0].EndedAt)
}

func TestUnregisterSession_Unknown(t *testing.T) {
	s := createTestStore(t)
	err := s.UnregisterSession(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestListSessions_Empty(t *testing.T) {
	s := createTestStore(t)
	sessions, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestPersistAndReadSnapshots(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RegisterSession(ctx, rte.SessionHandle{SessionID: "s1", StartedAt: testutil.FakeEpoch, LaunchMode: "normal"}))

	first := testSnapshot("s1", "l1", "p1", testutil.FakeEpoch)
	second := testSnapshot("s1", "l1", "p2", testutil.FakeEpoch.Add(time.Second))
	for _, snap := range []rte.Snapshot{first, second} {
		ok, err := s.PersistSessionData(ctx, "s1", snap)
		require.NoError(t, err)
		require.True(t, ok)
	}

	snaps, err := s.Snapshots(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, first, snaps[0])
	assert.Equal(t, second, snaps[1])

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sessions[0].Snapshots)
}

func TestPersistSessionData_CanonicalPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.PersistSessionData(ctx, "s1", testSnapshot("s1", "l1", "<b>", testutil.FakeEpoch))
	require.NoError(t, err)

	var payload string
	require.NoError(t, s.db.QueryRow("SELECT payload FROM snapshots").Scan(&payload))
	assert.Contains(t, payload, `"cmi.location":"<b>"`)
	assert.Less(t, strings.Index(payload, `"browseMode"`), strings.Index(payload, `"data"`), "keys are sorted")
}

func TestLatestSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, found, err := s.LatestSnapshot(ctx, "l1")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.PersistSessionData(ctx, "s1", testSnapshot("s1", "l1", "old", testutil.FakeEpoch))
	require.NoError(t, err)
	_, err = s.PersistSessionData(ctx, "s2", testSnapshot("s2", "l2", "other learner", testutil.FakeEpoch))
	require.NoError(t, err)
	_, err = s.PersistSessionData(ctx, "s3", testSnapshot("s3", "l1", "new", testutil.FakeEpoch))
	require.NoError(t, err)

	snap, found, err := s.LatestSnapshot(ctx, "l1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "s3", snap.SessionID)
	assert.Equal(t, "new", snap.Data.CoreData["cmi.location"])
	require.Len(t, snap.Data.Interactions, 1)
	assert.Equal(t, "obj-1", snap.Data.Interactions[0].Lists["objectives"][0]["id"])
}

func TestStore_LearnerInfoOption(t *testing.T) {
	s := createTestStore(t, WithLearner(datamodel.LearnerInfo{ID: "l9", Name: "Lin"}))

	info, err := s.LearnerInfo(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "l9", info.ID)

	info.ID = "changed"
	again, _ := s.LearnerInfo(context.Background())
	assert.Equal(t, "l9", again.ID)
}
