package harness

// Trace event types.
const (
	EventCall    = "call"
	EventAdvance = "advance"
	EventFinal   = "final"
)

// TraceEvent is one line of a scenario trace.
type TraceEvent struct {
	Step int    `json:"step"`
	Type string `json:"type"`

	// Call events.
	Method     string   `json:"method,omitempty"`
	Args       []string `json:"args,omitempty"`
	Result     string   `json:"result,omitempty"`
	Error      string   `json:"error,omitempty"`
	Changes    []Change `json:"changes,omitempty"`
	Broadcasts []string `json:"broadcasts,omitempty"`

	// Advance events.
	Advance string `json:"advance,omitempty"`

	// Final event.
	State     string            `json:"state,omitempty"`
	Values    map[string]string `json:"values,omitempty"`
	Snapshots *int              `json:"snapshots,omitempty"`
}

// Change is a data model change observed during a call.
type Change struct {
	Element string `json:"element"`
	From    string `json:"from"`
	To      string `json:"to"`
	Source  string `json:"source"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect, error and final check matched.
	Pass bool `json:"pass"`

	// Trace holds one event per step plus the final event.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
