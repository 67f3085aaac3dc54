package datamodel

import (
	"time"
	"unicode/utf8"
)

// MaxEventValueBytes bounds the values carried in a ChangeEvent. Longer
// values are cut on a rune boundary and described by a Truncation.
// The stored value itself is never truncated.
const MaxEventValueBytes = 4096

// Source tags for change contexts.
const (
	SourceDefault     = "datamodel"
	SourceAPISetValue = "api:SetValue"
	SourceSessionInit = "internal:session-init"
	SourceTerminate   = "internal:terminate"
	SourceRestore     = "internal:restore"
	SourceLearnerInfo = "internal:learner-info"
	SourceLaunch      = "internal:launch"
)

// ChangeContext attributes a batch of writes to one logical source.
type ChangeContext struct {
	Source    string
	SessionID string
}

// Truncation describes a value shortened for an event payload.
type Truncation struct {
	OriginalLength int `json:"originalLength"`
	OriginalBytes  int `json:"originalBytes"`
}

// ChangeEvent reports one effective mutation of the data model.
type ChangeEvent struct {
	Element   string    `json:"element"`
	Previous  string    `json:"previousValue"`
	Value     string    `json:"newValue"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	SessionID string    `json:"sessionId,omitempty"`

	Collection string `json:"collection,omitempty"`
	Index      *int   `json:"index,omitempty"`
	SubIndex   *int   `json:"subIndex,omitempty"` // position in a nested list such as correct_responses
	Property   string `json:"property,omitempty"`

	PreviousTruncated *Truncation `json:"previousTruncated,omitempty"`
	ValueTruncated    *Truncation `json:"valueTruncated,omitempty"`
}

// ChangeSink receives change events synchronously.
type ChangeSink interface {
	DataModelChanged(ev ChangeEvent)
}

// ChangeSinkFunc adapts a function to ChangeSink.
type ChangeSinkFunc func(ev ChangeEvent)

// DataModelChanged calls f(ev).
func (f ChangeSinkFunc) DataModelChanged(ev ChangeEvent) { f(ev) }

// PushChangeContext makes ctx the active context until the matching pop.
func (m *DataModel) PushChangeContext(ctx ChangeContext) {
	m.contexts = append(m.contexts, ctx)
}

// PopChangeContext removes the innermost context. Popping an empty stack is a no-op.
func (m *DataModel) PopChangeContext() {
	if len(m.contexts) == 0 {
		return
	}
	m.contexts = m.contexts[:len(m.contexts)-1]
}

// WithChangeContext runs fn with ctx active and pops it afterwards, even if fn panics.
func (m *DataModel) WithChangeContext(ctx ChangeContext, fn func()) {
	m.PushChangeContext(ctx)
	defer m.PopChangeContext()
	fn()
}

// SetSuppressChangeEvents enables or disables event emission entirely.
func (m *DataModel) SetSuppressChangeEvents(suppress bool) {
	m.suppressEvents = suppress
}

func (m *DataModel) currentContext() ChangeContext {
	if len(m.contexts) == 0 {
		return ChangeContext{Source: SourceDefault}
	}
	return m.contexts[len(m.contexts)-1]
}

// emitChange reports a mutation when the value actually changed.
func (m *DataModel) emitChange(addr Address, previous, value string) {
	if m.suppressEvents || m.sink == nil || previous == value {
		return
	}

	ctx := m.currentContext()
	ev := ChangeEvent{
		Element:   addr.Element,
		Timestamp: m.clock.Now(),
		Source:    ctx.Source,
		SessionID: ctx.SessionID,
	}
	ev.Previous, ev.PreviousTruncated = truncateForEvent(previous)
	ev.Value, ev.ValueTruncated = truncateForEvent(value)

	if addr.Kind == KindField {
		idx := addr.Index
		ev.Collection = addr.Collection.Name()
		ev.Index = &idx
		ev.Property = addr.Property
		if addr.Nested() {
			sub := addr.SubIndex
			ev.SubIndex = &sub
		}
	}

	m.sink.DataModelChanged(ev)
}

func truncateForEvent(s string) (string, *Truncation) {
	if len(s) <= MaxEventValueBytes {
		return s, nil
	}
	cut := MaxEventValueBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], &Truncation{
		OriginalLength: utf8.RuneCountInString(s),
		OriginalBytes:  len(s),
	}
}
