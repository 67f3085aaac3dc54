package testutil

// FixedSessionIDs hands out a predetermined session id on every call.
//
// Golden traces and persisted snapshots embed the session id, so scenarios
// that compare output byte-for-byte need a stable one. The id is typically
// set in the scenario YAML:
//
//	session_id: "test-session-0001"
//
// If id is empty, Generate() returns "test-session-default".
//
// Thread-safety: FixedSessionIDs is stateless and safe for concurrent use.
type FixedSessionIDs struct {
	id string
}

// NewFixedSessionIDs creates a generator that always returns id.
func NewFixedSessionIDs(id string) *FixedSessionIDs {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionIDs{id: id}
}

// Generate returns the fixed session id.
//
// Implements rte.SessionIDGenerator.
func (g *FixedSessionIDs) Generate() string {
	return g.id
}
