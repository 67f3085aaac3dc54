package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/roach88/scormrte/internal/canonical"
	"github.com/roach88/scormrte/internal/rte"
)

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID         string     `json:"id"`
	LearnerID  string     `json:"learnerId"`
	LaunchMode string     `json:"launchMode"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
	Active     bool       `json:"active"`
	Snapshots  int        `json:"snapshots"`
}

// RegisterSession records a live session. Registering an existing id
// reactivates it.
//
// Implements rte.SessionRegistry.
func (s *Store) RegisterSession(ctx context.Context, h rte.SessionHandle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, learner_id, launch_mode, started_at, active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			learner_id = excluded.learner_id,
			launch_mode = excluded.launch_mode,
			started_at = excluded.started_at,
			ended_at = NULL,
			active = 1
	`, h.SessionID, h.LearnerID, h.LaunchMode, formatTime(h.StartedAt))
	if err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

// UnregisterSession marks a session ended.
//
// Implements rte.SessionRegistry.
func (s *Store) UnregisterSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET active = 0, ended_at = ? WHERE id = ?
	`, formatTime(s.now()), sessionID)
	if err != nil {
		return fmt.Errorf("unregister session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("unregister session: unknown session %q", sessionID)
	}
	return nil
}

// PersistSessionData appends a snapshot. The payload is canonical JSON so
// identical sessions persist byte-identical rows.
//
// Implements rte.SessionRegistry.
func (s *Store) PersistSessionData(ctx context.Context, sessionID string, snap rte.Snapshot) (bool, error) {
	payload, err := canonical.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("persist session data: %w", err)
	}
	learnerID := snap.Data.CoreData["cmi.learner_id"]

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (session_id, learner_id, taken_at, payload)
		VALUES (?, ?, ?, ?)
	`, sessionID, learnerID, formatTime(snap.Timestamp), string(payload))
	if err != nil {
		return false, fmt.Errorf("persist session data: %w", err)
	}
	return true, nil
}

// ListSessions returns every session, oldest first.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.learner_id, s.launch_mode, s.started_at, s.ended_at, s.active,
			(SELECT COUNT(*) FROM snapshots p WHERE p.session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionRecord{}
	for rows.Next() {
		var (
			rec       SessionRecord
			startedAt string
			endedAt   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.LearnerID, &rec.LaunchMode, &startedAt, &endedAt, &rec.Active, &rec.Snapshots); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			t, err := parseTime(endedAt.String)
			if err != nil {
				return nil, err
			}
			rec.EndedAt = &t
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestSnapshot returns the most recent snapshot persisted for a learner.
// The bool result is false when the learner has none.
func (s *Store) LatestSnapshot(ctx context.Context, learnerID string) (rte.Snapshot, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM snapshots
		WHERE learner_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, learnerID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return rte.Snapshot{}, false, nil
	}
	if err != nil {
		return rte.Snapshot{}, false, fmt.Errorf("query latest snapshot: %w", err)
	}

	snap, err := decodeSnapshot(payload)
	if err != nil {
		return rte.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Snapshots returns every snapshot of a session in persistence order.
func (s *Store) Snapshots(ctx context.Context, sessionID string) ([]rte.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM snapshots
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []rte.Snapshot{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap, err := decodeSnapshot(payload)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

func decodeSnapshot(payload string) (rte.Snapshot, error) {
	var snap rte.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return rte.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
