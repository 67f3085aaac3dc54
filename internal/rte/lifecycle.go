package rte

import (
	"fmt"
	"strconv"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/errorstate"
)

func (e *Engine) initialize(param string) bool {
	if !e.checkEmptyParam(MethodInitialize, param) {
		return false
	}
	if !e.es.ValidateSessionState(errorstate.NotInitialized, errorstate.OpInitialize) {
		return false
	}

	e.sessionID = e.ids.Generate()
	e.startTime = e.clock.Now()
	e.sessionTimeReported = false
	browse := e.launch.Mode == ModeBrowse

	var err error
	e.dm.WithChangeContext(datamodel.ChangeContext{Source: datamodel.SourceSessionInit, SessionID: e.sessionID}, func() {
		err = e.seedSession(browse)
	})
	if err != nil {
		e.logger.Error("session bootstrap failed", "session_id", e.sessionID, "error", err)
		e.es.SetError(errorstate.GeneralInitializationFailure, err.Error(), MethodInitialize)
		return false
	}

	if browse {
		e.dm.CreateBrowseSessionData(datamodel.BrowseOptions{
			SessionID: e.sessionID,
			Timeout:   e.browseTimeout,
		})
	}

	e.es.SetState(errorstate.Running)
	e.es.ClearError()
	e.register()

	e.logger.Info("session initialized",
		"session_id", e.sessionID,
		"mode", e.launch.Mode,
		"entry", e.entry(),
	)
	return true
}

// seedSession writes the launch values and the bootstrap elements.
func (e *Engine) seedSession(browse bool) error {
	learner := e.launch.Learner
	if learner == nil && e.registry != nil {
		e.safely("learner info lookup", func() error {
			info, err := e.registry.LearnerInfo(e.ctx)
			learner = info
			return err
		})
	}
	if learner != nil {
		if err := e.dm.SetLearnerInfo(*learner); err != nil {
			return fmt.Errorf("learner info: %w", err)
		}
	}

	credit := e.launch.Credit
	if credit == "" {
		credit = "credit"
		if browse {
			credit = "no-credit"
		}
	}

	seeds := []struct {
		element string
		value   string
	}{
		{"cmi.mode", e.launch.Mode},
		{"cmi.credit", credit},
		{"cmi.entry", e.computeEntry(browse)},
		{"cmi.launch_data", e.launch.LaunchData},
		{"cmi.scaled_passing_score", e.launch.ScaledPassingScore},
		{"cmi.completion_threshold", e.launch.CompletionThreshold},
		{"cmi.max_time_allowed", e.launch.MaxTimeAllowed},
		{"cmi.time_limit_action", e.launch.TimeLimitAction},
	}
	for _, s := range seeds {
		if s.value == "" {
			continue
		}
		if err := e.dm.SetInternalValue(s.element, s.value); err != nil {
			return fmt.Errorf("seed %s: %w", s.element, err)
		}
	}

	base := e.dm.Count(datamodel.CommentsFromLMS)
	for i, c := range e.launch.CommentsFromLMS {
		prefix := "cmi.comments_from_lms." + strconv.Itoa(base+i) + "."
		fields := []struct{ prop, value string }{
			{"comment", c.Comment},
			{"location", c.Location},
			{"timestamp", c.Timestamp},
		}
		for _, f := range fields {
			if f.value == "" && f.prop != "comment" {
				continue
			}
			if err := e.dm.SetInternalValue(prefix+f.prop, f.value); err != nil {
				return fmt.Errorf("seed comment %d: %w", i, err)
			}
		}
	}
	return nil
}

// computeEntry returns resume when a suspended, incomplete attempt was
// restored. Browse mode always starts ab-initio since nothing persists.
func (e *Engine) computeEntry(browse bool) string {
	if browse {
		return "ab-initio"
	}
	suspend, _ := e.dm.InternalValue("cmi.suspend_data")
	completion, _ := e.dm.InternalValue("cmi.completion_status")
	if suspend != "" && completion != "completed" {
		return "resume"
	}
	return "ab-initio"
}

func (e *Engine) entry() string {
	v, _ := e.dm.InternalValue("cmi.entry")
	return v
}

func (e *Engine) terminate(param string) bool {
	if !e.checkEmptyParam(MethodTerminate, param) {
		return false
	}
	if !e.es.ValidateSessionState(errorstate.Running, errorstate.OpTerminate) {
		return false
	}

	e.dm.WithChangeContext(datamodel.ChangeContext{Source: datamodel.SourceTerminate, SessionID: e.sessionID}, func() {
		e.recordSessionTime()
	})
	e.es.ClearError()

	// Final commit: not counted by the rate limiter, failure is logged only.
	// It runs before the Terminated transition so the snapshot still reads
	// as a live session.
	if e.dm.ShouldPersistData() {
		if err := e.persist(); err != nil {
			e.logger.Warn("final commit failed", "session_id", e.sessionID, "error", err)
		}
	} else {
		e.dm.DestroyBrowseSessionData()
	}
	e.es.SetState(errorstate.Terminated)

	e.unregister()
	e.logger.Info("session terminated", "session_id", e.sessionID)
	return true
}

// recordSessionTime stores the elapsed session time unless the content
// reported its own, then adds it to cmi.total_time.
func (e *Engine) recordSessionTime() {
	if !e.sessionTimeReported {
		elapsed := FormatDuration(e.clock.Now().Sub(e.startTime))
		if err := e.dm.SetInternalValue("cmi.session_time", elapsed); err != nil {
			e.logger.Warn("could not record session time", "error", err)
		}
	}

	sessionRaw, _ := e.dm.InternalValue("cmi.session_time")
	totalRaw, _ := e.dm.InternalValue("cmi.total_time")
	session, err := ParseDuration(sessionRaw)
	if err != nil {
		e.logger.Warn("unparseable session time", "value", sessionRaw, "error", err)
		return
	}
	total, err := ParseDuration(totalRaw)
	if err != nil {
		e.logger.Warn("unparseable total time, restarting from zero", "value", totalRaw, "error", err)
		total = 0
	}
	if err := e.dm.SetInternalValue("cmi.total_time", FormatDuration(total+session)); err != nil {
		e.logger.Warn("could not record total time", "error", err)
	}
}

// persist hands the snapshot to the registry. Browse and memory-only
// sessions skip persistence and report success.
func (e *Engine) persist() error {
	if !e.dm.ShouldPersistData() {
		e.logger.Debug("persistence skipped", "session_id", e.sessionID, "browse", e.dm.InBrowseMode())
		return nil
	}
	if e.registry == nil {
		return nil
	}

	snap := e.Snapshot()
	if async, ok := e.registry.(AsyncPersister); ok {
		done := async.PersistSessionDataAsync(e.ctx, e.sessionID, snap)
		go e.awaitPersist(e.sessionID, done)
		return nil
	}

	ok, err := e.registry.PersistSessionData(e.ctx, e.sessionID, snap)
	if err != nil {
		return &EngineError{Code: ErrCodePersistFailed, Message: "persist session data", SessionID: e.sessionID, Err: err}
	}
	if !ok {
		return &EngineError{Code: ErrCodePersistFailed, Message: "registry declined session data", SessionID: e.sessionID}
	}
	return nil
}

// awaitPersist logs an asynchronous persistence failure. The commit that
// started it has already reported success.
func (e *Engine) awaitPersist(sessionID string, done <-chan error) {
	if done == nil {
		return
	}
	if err := <-done; err != nil {
		e.logger.Error("asynchronous persist failed", "session_id", sessionID, "error", err)
	}
}

func (e *Engine) register() {
	if e.registry == nil {
		return
	}
	learnerID, _ := e.dm.InternalValue("cmi.learner_id")
	h := SessionHandle{
		SessionID:  e.sessionID,
		LearnerID:  learnerID,
		LaunchMode: e.launch.Mode,
		StartedAt:  e.startTime,
	}
	if e.safely("register session", func() error { return e.registry.RegisterSession(e.ctx, h) }) {
		e.registered = true
	}
}

func (e *Engine) unregister() {
	if e.registry == nil || !e.registered {
		return
	}
	e.registered = false
	e.safely("unregister session", func() error { return e.registry.UnregisterSession(e.ctx, e.sessionID) })
}
