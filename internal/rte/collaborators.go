package rte

import (
	"context"
	"time"

	"github.com/roach88/scormrte/internal/datamodel"
)

// Broadcast channels used with TelemetrySink.Broadcast.
const (
	ChannelDataModelUpdated = "scorm:data-model-updated"
	ChannelProgressUpdated  = "scorm:progress-updated"
	ChannelObjectiveUpdated = "scorm:objective-updated"
)

// SessionHandle describes a live session to the SessionRegistry.
type SessionHandle struct {
	SessionID  string    `json:"sessionId"`
	LearnerID  string    `json:"learnerId,omitempty"`
	LaunchMode string    `json:"launchMode"`
	StartedAt  time.Time `json:"startedAt"`
}

// SessionRegistry tracks live sessions and persists their data.
//
// Implemented by store.Store.
type SessionRegistry interface {
	RegisterSession(ctx context.Context, h SessionHandle) error
	UnregisterSession(ctx context.Context, sessionID string) error

	// PersistSessionData stores snap. A false result without an error means
	// the registry declined the snapshot.
	PersistSessionData(ctx context.Context, sessionID string, snap Snapshot) (bool, error)

	// LearnerInfo returns the current learner, or nil when unknown.
	LearnerInfo(ctx context.Context) (*datamodel.LearnerInfo, error)
}

// AsyncPersister is implemented by registries that persist in the
// background. The engine prefers it over PersistSessionData. The returned
// channel yields at most one error and is then closed; Commit reports
// success without waiting for it.
type AsyncPersister interface {
	PersistSessionDataAsync(ctx context.Context, sessionID string, snap Snapshot) <-chan error
}

// APICall is the audit record of one API function call.
type APICall struct {
	SessionID    string        `json:"sessionId"`
	Method       string        `json:"method"`
	Parameters   []string      `json:"parameters"`
	Result       string        `json:"result"`
	ErrorCode    string        `json:"errorCode"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Duration     time.Duration `json:"durationNs"`
	Timestamp    time.Time     `json:"timestamp"`
}

// TelemetrySink receives the engine's audit trail and broadcasts.
//
// Implemented by store.Store, telemetry.Metrics and telemetry.Fanout.
type TelemetrySink interface {
	StoreAPICall(ctx context.Context, call APICall) error
	StoreDataModelChange(ctx context.Context, ev datamodel.ChangeEvent) error
	Broadcast(ctx context.Context, channel string, payload any) error
}

// SequencingState is the navigation view published by the sequencer.
type SequencingState struct {
	// AvailableNavigation lists the request kinds currently valid:
	// "continue", "previous", "choice", "jump".
	AvailableNavigation []string `json:"availableNavigation"`

	// ChoiceTargets and JumpTargets list activity ids valid for
	// choice and jump requests.
	ChoiceTargets []string `json:"choiceTargets,omitempty"`
	JumpTargets   []string `json:"jumpTargets,omitempty"`

	CurrentActivity string `json:"currentActivity,omitempty"`
}

// SequencingService is the external sequencing and navigation engine.
type SequencingService interface {
	RefreshNavigationAvailability(ctx context.Context) error
	SequencingState(ctx context.Context) (SequencingState, error)
}

// DataModelUpdate is the payload of ChannelDataModelUpdated.
type DataModelUpdate struct {
	SessionID string         `json:"sessionId"`
	Data      datamodel.Data `json:"data"`
}

// ProgressUpdate is the payload of ChannelProgressUpdated and
// ChannelObjectiveUpdated.
type ProgressUpdate struct {
	SessionID string `json:"sessionId"`
	Element   string `json:"element"`
	Value     string `json:"value"`

	CompletionStatus string `json:"completionStatus"`
	SuccessStatus    string `json:"successStatus"`
	ScoreScaled      string `json:"scoreScaled,omitempty"`
}
