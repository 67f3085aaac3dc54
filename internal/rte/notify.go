package rte

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/scormrte/internal/datamodel"
)

// DataModelChanged forwards data model change events to the telemetry sink
// and the change observer. It implements datamodel.ChangeSink.
func (e *Engine) DataModelChanged(ev datamodel.ChangeEvent) {
	if ev.SessionID == "" {
		ev.SessionID = e.sessionID
	}
	if e.telemetry != nil {
		e.safely("store data model change", func() error {
			return e.telemetry.StoreDataModelChange(e.ctx, ev)
		})
	}
	if e.observer != nil {
		e.safely("notify change observer", func() error {
			e.observer.DataModelChanged(ev)
			return nil
		})
	}
}

// afterSet dispatches the notifications that follow a successful SetValue.
func (e *Engine) afterSet(element, value string) {
	if e.telemetry != nil {
		update := DataModelUpdate{SessionID: e.sessionID, Data: e.dm.AllData()}
		e.safely("broadcast data model", func() error {
			return e.telemetry.Broadcast(e.ctx, ChannelDataModelUpdated, update)
		})
	}

	channel, tracked := progressChannel(element)
	if !tracked {
		return
	}
	if e.telemetry != nil {
		update := e.progressUpdate(element, value)
		e.safely("broadcast progress", func() error {
			return e.telemetry.Broadcast(e.ctx, channel, update)
		})
	}
	if e.sequencing != nil && finalizesStatus(element, value) {
		e.safely("refresh navigation availability", func() error {
			return e.sequencing.RefreshNavigationAvailability(e.ctx)
		})
	}
}

// progressChannel reports whether element drives progress broadcasts.
func progressChannel(element string) (string, bool) {
	switch {
	case element == "cmi.completion_status", element == "cmi.success_status":
		return ChannelProgressUpdated, true
	case strings.HasPrefix(element, "cmi.objectives."):
		return ChannelObjectiveUpdated, true
	}
	return "", false
}

// finalizesStatus reports whether the write settles a completion or
// success status, which may change what navigation is available.
func finalizesStatus(element, value string) bool {
	switch {
	case strings.HasSuffix(element, ".completion_status") || element == "cmi.completion_status":
		return value == "completed"
	case strings.HasSuffix(element, ".success_status") || element == "cmi.success_status":
		return value == "passed" || value == "failed"
	}
	return false
}

func (e *Engine) progressUpdate(element, value string) ProgressUpdate {
	completion, _ := e.dm.InternalValue("cmi.completion_status")
	success, _ := e.dm.InternalValue("cmi.success_status")
	scaled, _ := e.dm.InternalValue("cmi.score.scaled")
	return ProgressUpdate{
		SessionID:        e.sessionID,
		Element:          element,
		Value:            value,
		CompletionStatus: completion,
		SuccessStatus:    success,
		ScoreScaled:      scaled,
	}
}

// navigationValid answers adl.nav.request_valid.* from the sequencer.
func (e *Engine) navigationValid(addr datamodel.Address) (string, error) {
	state, err := e.sequencing.SequencingState(e.ctx)
	if err != nil {
		e.logger.Warn("sequencing state unavailable", "element", addr.Element, "error", err)
		return "unknown", nil
	}
	if !slices.Contains(state.AvailableNavigation, addr.NavRequest) {
		return "false", nil
	}
	switch addr.NavRequest {
	case "choice":
		return boolResult(slices.Contains(state.ChoiceTargets, addr.NavTarget)), nil
	case "jump":
		return boolResult(slices.Contains(state.JumpTargets, addr.NavTarget)), nil
	}
	return "true", nil
}

// safely runs a collaborator call, logging its error or panic.
// It reports whether fn succeeded.
func (e *Engine) safely(what string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("collaborator panicked", "call", what, "session_id", e.sessionID, "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		e.logger.Warn("collaborator call failed", "call", what, "session_id", e.sessionID, "error", err)
		return false
	}
	return true
}
