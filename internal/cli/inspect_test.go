package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scormrte/internal/rte"
	"github.com/roach88/scormrte/internal/store"
)

func TestElements_Text(t *testing.T) {
	out, _, err := executeCommand(t, "elements", "--prefix", "cmi.location")
	require.NoError(t, err)

	assert.Contains(t, out, "ELEMENT")
	assert.Regexp(t, `(?m)^cmi\.location\s+RW\s+`, out)
}

func TestElements_JSON(t *testing.T) {
	out, _, err := executeCommand(t, "--format", "json", "elements", "--prefix", "cmi.interactions")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []ElementInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data)

	byName := map[string]ElementInfo{}
	for _, e := range resp.Data {
		byName[e.Element] = e
	}
	count, ok := byName["cmi.interactions._count"]
	require.True(t, ok)
	assert.Equal(t, "RO", count.Access)

	typ, ok := byName["cmi.interactions.n.type"]
	require.True(t, ok)
	assert.Contains(t, typ.Vocabulary, "true-false")
}

func TestElements_NoMatch(t *testing.T) {
	_, _, err := executeCommand(t, "elements", "--prefix", "cmi.nothing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestErrors_List(t *testing.T) {
	out, _, err := executeCommand(t, "errors")
	require.NoError(t, err)

	assert.Regexp(t, `(?m)^0\s+No Error\s+general$`, out)
	assert.Regexp(t, `(?m)^404\s+Data Model Element Is Read Only\s+data_model$`, out)
}

func TestErrors_Single(t *testing.T) {
	out, _, err := executeCommand(t, "--format", "json", "errors", "113")
	require.NoError(t, err)

	var resp struct {
		Data []ErrorCodeInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, ErrorCodeInfo{
		Code:     "113",
		Name:     "TERMINATION_AFTER_TERMINATION",
		Message:  "Termination After Termination",
		Category: "termination",
	}, resp.Data[0])
}

func TestErrors_Unknown(t *testing.T) {
	out, _, err := executeCommand(t, "--format", "json", "errors", "999")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

// seedDatabase runs one suspended attempt for learner-7 into a fresh database.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "rte.db")
	script := writeFile(t, dir, "attempt.jsonl", attemptScript)
	cfg := writeFile(t, dir, "launch.yaml", "launch:\n  learner_id: learner-7\n")

	opts := newRunOptions("text", "attempt-1")
	opts.Config = cfg
	opts.Database = db
	_, err := runScript(t, opts, script)
	require.NoError(t, err)
	return db
}

func TestSessions_List(t *testing.T) {
	db := seedDatabase(t)

	out, _, err := executeCommand(t, "sessions", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION")
	assert.Regexp(t, `(?m)^attempt-1\s+learner-7\s+normal\s+\S+\s+ended\s+\d+$`, out)

	out, _, err = executeCommand(t, "--format", "json", "sessions", "--db", db)
	require.NoError(t, err)
	var resp struct {
		Data []store.SessionRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "attempt-1", resp.Data[0].ID)
	assert.False(t, resp.Data[0].Active)
	assert.Positive(t, resp.Data[0].Snapshots)
}

func TestSessions_MissingDatabase(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.db")

	_, _, err := executeCommand(t, "sessions", "--db", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "inspection must not create a database")
}

func TestSessions_RequiresDB(t *testing.T) {
	_, _, err := executeCommand(t, "sessions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestSnapshot_Print(t *testing.T) {
	db := seedDatabase(t)

	out, _, err := executeCommand(t, "snapshot", "--db", db, "learner-7")
	require.NoError(t, err)

	var snap rte.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "attempt-1", snap.SessionID)
	assert.Equal(t, "page-9", snap.Data.CoreData["cmi.location"])
	assert.Equal(t, "q1=b", snap.Data.CoreData["cmi.suspend_data"])
}

func TestSnapshot_WriteFile(t *testing.T) {
	db := seedDatabase(t)
	path := filepath.Join(t.TempDir(), "snap.json")

	out, _, err := executeCommand(t, "--format", "json", "snapshot", "--db", db, "-o", path, "learner-7")
	require.NoError(t, err)
	assert.Contains(t, out, `"path":"`+path+`"`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var snap rte.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "attempt-1", snap.SessionID)
}

func TestSnapshot_UnknownLearner(t *testing.T) {
	db := seedDatabase(t)

	_, _, err := executeCommand(t, "snapshot", "--db", db, "learner-x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), `no snapshot for learner "learner-x"`)
}
