package errorstate

import (
	"fmt"
	"log/slog"
	"time"
)

// State is the session lifecycle state.
type State int

const (
	NotInitialized State = iota
	Running
	Terminated
)

// String returns the snake_case name used in snapshots and logs.
func (s State) String() string {
	switch s {
	case NotInitialized:
		return "not_initialized"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Operation names an API function for legality checks.
type Operation string

const (
	OpInitialize Operation = "Initialize"
	OpTerminate  Operation = "Terminate"
	OpGetValue   Operation = "GetValue"
	OpSetValue   Operation = "SetValue"
	OpCommit     Operation = "Commit"
)

// Snapshot is the error register as embedded in persisted session data.
type Snapshot struct {
	LastError  string `json:"lastError"`
	Diagnostic string `json:"diagnostic,omitempty"`
	State      string `json:"sessionState"`
}

// ErrorState holds the last error, per-code diagnostics, the lifecycle state
// and a bounded error history.
//
// Not safe for concurrent use: one ErrorState belongs to exactly one engine.
type ErrorState struct {
	lastError      Code
	lastDiagnostic string
	diagnostics    map[Code]string
	state          State
	history        *History

	logger *slog.Logger
	now    func() time.Time
}

// Option configures an ErrorState.
type Option func(*ErrorState)

// WithLogger sets the logger used for coercion warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *ErrorState) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNow overrides the timestamp source for history entries.
func WithNow(now func() time.Time) Option {
	return func(s *ErrorState) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an ErrorState in NotInitialized with no error.
func New(opts ...Option) *ErrorState {
	s := &ErrorState{
		diagnostics: make(map[Code]string),
		history:     NewHistory(DefaultHistoryCapacity),
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetError records code as the current error.
//
// Unknown codes are coerced to GeneralException with a logged warning;
// the original value is kept in the diagnostic so it is not lost.
func (s *ErrorState) SetError(code Code, diagnostic, context string) {
	if !code.Known() {
		s.logger.Warn("unknown error code coerced to general exception",
			"code", int(code),
			"context", context,
		)
		if diagnostic == "" {
			diagnostic = fmt.Sprintf("unknown error code %d", int(code))
		} else {
			diagnostic = fmt.Sprintf("%s (unknown error code %d)", diagnostic, int(code))
		}
		code = GeneralException
	}

	s.lastError = code
	s.lastDiagnostic = diagnostic
	if diagnostic != "" {
		s.diagnostics[code] = diagnostic
	}

	if code != NoError {
		s.history.Add(HistoryEntry{
			Code:       code,
			Diagnostic: diagnostic,
			Context:    context,
			Timestamp:  s.now(),
		})
	}
}

// ClearError resets the register to NoError.
func (s *ErrorState) ClearError() {
	s.lastError = NoError
	s.lastDiagnostic = ""
}

// LastError returns the current error code.
func (s *ErrorState) LastError() Code {
	return s.lastError
}

// ErrorString returns the taxonomy message for code, or "" when unknown.
func (s *ErrorState) ErrorString(code Code) string {
	d, ok := definitions[code]
	if !ok {
		return ""
	}
	return d.Message
}

// Diagnostic returns detail for code.
//
// For the current error the diagnostic of the failing call is returned.
// For other known codes the most recent diagnostic recorded for that code is
// returned, falling back to the category default. Unknown codes yield "".
func (s *ErrorState) Diagnostic(code Code) string {
	d, ok := definitions[code]
	if !ok {
		return ""
	}
	if code == s.lastError && s.lastDiagnostic != "" {
		return s.lastDiagnostic
	}
	if msg, ok := s.diagnostics[code]; ok {
		return msg
	}
	if code == NoError {
		return ""
	}
	return categoryDiagnostics[d.Category]
}

// LastDiagnostic returns the diagnostic of the current error.
func (s *ErrorState) LastDiagnostic() string {
	return s.Diagnostic(s.lastError)
}

// State returns the lifecycle state.
func (s *ErrorState) State() State {
	return s.state
}

// SetState moves the lifecycle to st. Terminated is final: any attempt to
// leave it is ignored and logged.
func (s *ErrorState) SetState(st State) {
	if s.state == Terminated && st != Terminated {
		s.logger.Warn("ignoring transition out of terminated state", "to", st.String())
		return
	}
	s.state = st
}

// ValidateSessionState checks that op may run in the current state.
// On failure it records the operation-specific error code and returns false.
func (s *ErrorState) ValidateSessionState(required State, op Operation) bool {
	if s.state == required {
		return true
	}

	context := string(op)
	switch op {
	case OpInitialize:
		switch s.state {
		case Running:
			s.SetError(AlreadyInitialized, "Initialize has already been called for this session", context)
		case Terminated:
			s.SetError(ContentInstanceTerminated, "the session has already been terminated", context)
		default:
			s.SetError(GeneralInitializationFailure, "session is not in a state that allows Initialize", context)
		}
	case OpTerminate:
		switch s.state {
		case NotInitialized:
			s.SetError(TerminationBeforeInit, "Terminate called before Initialize", context)
		case Terminated:
			s.SetError(TerminationAfterTermination, "Terminate has already been called for this session", context)
		default:
			s.SetError(GeneralTerminationFailure, "session is not in a state that allows Terminate", context)
		}
	default:
		var why string
		switch s.state {
		case NotInitialized:
			why = "the session has not been initialized"
		case Terminated:
			why = "the session has been terminated"
		default:
			why = fmt.Sprintf("the session is %s", s.state)
		}
		s.SetError(GeneralException, fmt.Sprintf("%s is not allowed: %s", op, why), context)
	}
	return false
}

// History returns the recorded errors, oldest first.
func (s *ErrorState) History() []HistoryEntry {
	return s.history.Entries()
}

// Snapshot captures the register for persistence.
func (s *ErrorState) Snapshot() Snapshot {
	return Snapshot{
		LastError:  s.lastError.String(),
		Diagnostic: s.lastDiagnostic,
		State:      s.state.String(),
	}
}

// Reset returns the ErrorState to its freshly constructed form.
// History is kept; it is diagnostic only.
func (s *ErrorState) Reset() {
	s.lastError = NoError
	s.lastDiagnostic = ""
	s.diagnostics = make(map[Code]string)
	s.state = NotInitialized
}
