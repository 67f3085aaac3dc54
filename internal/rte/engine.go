package rte

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/scormrte/internal/clock"
	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/errorstate"
)

// Launch modes.
const (
	ModeNormal = "normal"
	ModeBrowse = "browse"
	ModeReview = "review"
)

// LMSComment is a comment seeded into cmi.comments_from_lms at launch.
type LMSComment struct {
	Comment   string `json:"comment"`
	Location  string `json:"location,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Launch holds the LMS-provided values seeded at Initialize.
// Empty fields are left at their schema defaults.
type Launch struct {
	Mode   string // normal, browse or review; empty means normal
	Credit string // credit or no-credit; empty means credit, or no-credit in browse mode

	Learner *datamodel.LearnerInfo

	LaunchData          string
	ScaledPassingScore  string
	CompletionThreshold string
	MaxTimeAllowed      string
	TimeLimitAction     string
	CommentsFromLMS     []LMSComment
}

// Engine is the run-time API for one content session.
//
// Thread-safety: not safe for concurrent use. One Engine belongs to one
// content session; the caller serializes API calls.
type Engine struct {
	es *errorstate.ErrorState
	dm *datamodel.DataModel

	clock  clock.Clock
	logger *slog.Logger
	ctx    context.Context
	ids    SessionIDGenerator

	registry   SessionRegistry
	telemetry  TelemetrySink
	sequencing SequencingService
	observer   datamodel.ChangeSink

	launch             Launch
	strictMode         bool
	maxCommitFrequency int
	memoryOnly         bool
	browseTimeout      time.Duration

	commits *commitLimiter

	sessionID           string
	startTime           time.Time
	registered          bool
	sessionTimeReported bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source for timestamps, the commit window and the
// browse inactivity timer.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithContext sets the context passed to collaborators. The API functions
// themselves take no context.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		if ctx != nil {
			e.ctx = ctx
		}
	}
}

// WithSessionIDs sets the session id generator.
//
// Default: UUIDv7Generator.
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithRegistry sets the session registry used for registration,
// persistence and learner lookup.
func WithRegistry(r SessionRegistry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithTelemetry sets the audit and broadcast sink.
func WithTelemetry(t TelemetrySink) Option {
	return func(e *Engine) { e.telemetry = t }
}

// WithSequencing sets the sequencing service consulted for navigation
// validity and refreshed on status changes.
func WithSequencing(s SequencingService) Option {
	return func(e *Engine) { e.sequencing = s }
}

// WithChangeObserver receives every data model change event in addition
// to the TelemetrySink.
func WithChangeObserver(s datamodel.ChangeSink) Option {
	return func(e *Engine) { e.observer = s }
}

// WithLaunch sets the launch values.
func WithLaunch(l Launch) Option {
	return func(e *Engine) { e.launch = l }
}

// WithStrictMode enables the commit rate limiter.
func WithStrictMode(strict bool) Option {
	return func(e *Engine) { e.strictMode = strict }
}

// WithMaxCommitFrequency sets the number of commits allowed per
// CommitWindow in strict mode.
//
// Default: 10 (DefaultMaxCommitFrequency)
func WithMaxCommitFrequency(n int) Option {
	return func(e *Engine) { e.maxCommitFrequency = n }
}

// WithMemoryOnly disables persistence regardless of launch mode.
func WithMemoryOnly(memoryOnly bool) Option {
	return func(e *Engine) { e.memoryOnly = memoryOnly }
}

// WithBrowseTimeout sets the browse-mode inactivity timeout.
//
// Default: 30 minutes (datamodel.DefaultBrowseTimeout)
func WithBrowseTimeout(d time.Duration) Option {
	return func(e *Engine) { e.browseTimeout = d }
}

// New creates an Engine in the NotInitialized state.
//
// Returns an *EngineError with ErrCodeInvalidOption when the options are
// malformed. That is the only fatal condition; everything after
// construction degrades to a SCORM error code.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		clock:              clock.Real{},
		logger:             slog.Default(),
		ctx:                context.Background(),
		ids:                UUIDv7Generator{},
		maxCommitFrequency: DefaultMaxCommitFrequency,
		browseTimeout:      datamodel.DefaultBrowseTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.validate(); err != nil {
		return nil, err
	}
	if e.launch.Mode == "" {
		e.launch.Mode = ModeNormal
	}

	e.es = errorstate.New(
		errorstate.WithLogger(e.logger),
		errorstate.WithNow(e.clock.Now),
	)
	e.dm = datamodel.New(
		datamodel.WithChangeSink(e),
		datamodel.WithClock(e.clock),
		datamodel.WithLogger(e.logger),
		datamodel.WithMemoryOnly(e.memoryOnly),
	)
	e.commits = newCommitLimiter(e.maxCommitFrequency, CommitWindow)
	return e, nil
}

func (e *Engine) validate() error {
	if e.maxCommitFrequency < 1 {
		return invalidOption("max commit frequency must be at least 1, got %d", e.maxCommitFrequency)
	}
	if e.browseTimeout <= 0 {
		return invalidOption("browse timeout must be positive, got %s", e.browseTimeout)
	}

	checks := []struct {
		element string
		value   string
	}{
		{"cmi.mode", e.launch.Mode},
		{"cmi.credit", e.launch.Credit},
		{"cmi.launch_data", e.launch.LaunchData},
		{"cmi.scaled_passing_score", e.launch.ScaledPassingScore},
		{"cmi.completion_threshold", e.launch.CompletionThreshold},
		{"cmi.max_time_allowed", e.launch.MaxTimeAllowed},
		{"cmi.time_limit_action", e.launch.TimeLimitAction},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		if err := datamodel.Validate(c.element, c.value); err != nil {
			return invalidOption("launch value for %s: %s", c.element, datamodel.DiagnosticOf(err))
		}
	}
	for i, c := range e.launch.CommentsFromLMS {
		if err := datamodel.Validate("cmi.comments_from_lms.0.comment", c.Comment); err != nil {
			return invalidOption("comments_from_lms[%d]: %s", i, datamodel.DiagnosticOf(err))
		}
		if c.Timestamp != "" {
			if err := datamodel.Validate("cmi.comments_from_lms.0.timestamp", c.Timestamp); err != nil {
				return invalidOption("comments_from_lms[%d]: %s", i, datamodel.DiagnosticOf(err))
			}
		}
	}
	return nil
}

// SessionID returns the id assigned by Initialize, or "" before it.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// State returns the lifecycle state.
func (e *Engine) State() errorstate.State {
	return e.es.State()
}

// LaunchMode returns the launch mode.
func (e *Engine) LaunchMode() string {
	return e.launch.Mode
}

// BrowseMode reports whether the session runs in browse mode.
func (e *Engine) BrowseMode() bool {
	return e.dm.InBrowseMode()
}

// LastError returns the current error code. Unlike GetLastError it is not
// an API call and is not reported to telemetry.
func (e *Engine) LastError() errorstate.Code {
	return e.es.LastError()
}

// History returns the recent SCORM errors, oldest first.
func (e *Engine) History() []errorstate.HistoryEntry {
	return e.es.History()
}

// CommitsInWindow returns the number of counted commits inside the
// current rate limiter window.
func (e *Engine) CommitsInWindow() int {
	return e.commits.InWindow(e.clock.Now())
}

// InternalValue reads element without the write-only gate.
func (e *Engine) InternalValue(element string) (string, error) {
	return e.dm.InternalValue(element)
}

// Restore loads previously persisted data before Initialize, so a
// suspended attempt can resume. Change events are not emitted.
func (e *Engine) Restore(data datamodel.Data) error {
	if st := e.es.State(); st != errorstate.NotInitialized {
		return &EngineError{
			Code:      ErrCodeInvalidState,
			Message:   fmt.Sprintf("restore requires a session that is not initialized, state is %s", st),
			SessionID: e.sessionID,
		}
	}
	e.dm.WithChangeContext(datamodel.ChangeContext{Source: datamodel.SourceRestore}, func() {
		e.dm.Restore(data)
	})
	e.logger.Info("session data restored",
		"interactions", len(data.Interactions),
		"objectives", len(data.Objectives),
	)
	return nil
}

// Reset discards all session state and returns to NotInitialized.
// A registered, unterminated session is unregistered first.
func (e *Engine) Reset() {
	if e.registered {
		e.unregister()
	}
	e.dm.Reset()
	e.es.Reset()
	e.commits.Reset()
	e.sessionID = ""
	e.startTime = time.Time{}
	e.sessionTimeReported = false
	e.logger.Debug("engine reset")
}
