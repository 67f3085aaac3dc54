package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/rte"
)

// BroadcastRecord is one row of the broadcasts table.
type BroadcastRecord struct {
	Seq     int64           `json:"seq"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sentAt"`
}

// StoreAPICall appends an API call to the audit log.
//
// Implements rte.TelemetrySink.
func (s *Store) StoreAPICall(ctx context.Context, call rte.APICall) error {
	params, err := json.Marshal(call.Parameters)
	if err != nil {
		return fmt.Errorf("store api call: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_calls
		(session_id, method, parameters, result, error_code, error_message, duration_ns, called_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		call.SessionID,
		call.Method,
		string(params),
		call.Result,
		call.ErrorCode,
		call.ErrorMessage,
		int64(call.Duration),
		formatTime(call.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("store api call: %w", err)
	}
	return nil
}

// StoreDataModelChange appends a change event. The full event, including
// truncation metadata, is kept in the payload column.
//
// Implements rte.TelemetrySink.
func (s *Store) StoreDataModelChange(ctx context.Context, ev datamodel.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("store data model change: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO data_model_changes
		(session_id, element, previous_value, new_value, source, changed_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		ev.SessionID,
		ev.Element,
		ev.Previous,
		ev.Value,
		ev.Source,
		formatTime(ev.Timestamp),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("store data model change: %w", err)
	}
	return nil
}

// Broadcast appends a broadcast to the log. The store has no live
// subscribers; the log lets later tooling replay what observers saw.
//
// Implements rte.TelemetrySink.
func (s *Store) Broadcast(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broadcast %s: %w", channel, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO broadcasts (channel, payload, sent_at) VALUES (?, ?, ?)
	`, channel, string(data), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("broadcast %s: %w", channel, err)
	}
	return nil
}

// APICalls returns the audit log of a session in call order.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) APICalls(ctx context.Context, sessionID string) ([]rte.APICall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, method, parameters, result, error_code, error_message, duration_ns, called_at
		FROM api_calls
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query api calls: %w", err)
	}
	defer rows.Close()

	calls := []rte.APICall{}
	for rows.Next() {
		var (
			call     rte.APICall
			params   string
			duration int64
			calledAt string
		)
		if err := rows.Scan(&call.SessionID, &call.Method, &params, &call.Result,
			&call.ErrorCode, &call.ErrorMessage, &duration, &calledAt); err != nil {
			return nil, fmt.Errorf("scan api call: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &call.Parameters); err != nil {
			return nil, fmt.Errorf("decode api call parameters: %w", err)
		}
		call.Duration = time.Duration(duration)
		if call.Timestamp, err = parseTime(calledAt); err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api calls: %w", err)
	}
	return calls, nil
}

// DataModelChanges returns the change log of a session in emission order.
func (s *Store) DataModelChanges(ctx context.Context, sessionID string) ([]datamodel.ChangeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM data_model_changes
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query data model changes: %w", err)
	}
	defer rows.Close()

	events := []datamodel.ChangeEvent{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan data model change: %w", err)
		}
		var ev datamodel.ChangeEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode data model change: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data model changes: %w", err)
	}
	return events, nil
}

// Broadcasts returns the broadcasts sent on channel, oldest first.
// An empty channel returns every broadcast.
func (s *Store) Broadcasts(ctx context.Context, channel string) ([]BroadcastRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, channel, payload, sent_at FROM broadcasts
		WHERE ? = '' OR channel = ?
		ORDER BY seq ASC
	`, channel, channel)
	if err != nil {
		return nil, fmt.Errorf("query broadcasts: %w", err)
	}
	defer rows.Close()

	out := []BroadcastRecord{}
	for rows.Next() {
		var (
			rec     BroadcastRecord
			payload string
			sentAt  string
		)
		if err := rows.Scan(&rec.Seq, &rec.Channel, &payload, &sentAt); err != nil {
			return nil, fmt.Errorf("scan broadcast: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		if rec.SentAt, err = parseTime(sentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate broadcasts: %w", err)
	}
	return out, nil
}
