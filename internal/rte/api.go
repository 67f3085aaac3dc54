package rte

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/errorstate"
)

// API function names, as recorded in telemetry and error contexts.
const (
	MethodInitialize     = "Initialize"
	MethodTerminate      = "Terminate"
	MethodGetValue       = "GetValue"
	MethodSetValue       = "SetValue"
	MethodCommit         = "Commit"
	MethodGetLastError   = "GetLastError"
	MethodGetErrorString = "GetErrorString"
	MethodGetDiagnostic  = "GetDiagnostic"
)

const (
	resultTrue  = "true"
	resultFalse = "false"
)

func boolResult(ok bool) string {
	if ok {
		return resultTrue
	}
	return resultFalse
}

// Initialize begins the session. The parameter must be "".
func (e *Engine) Initialize(param string) (result string) {
	defer e.finishCall(MethodInitialize, []string{param}, e.clock.Now(), &result, resultFalse)
	return boolResult(e.initialize(param))
}

// Terminate ends the session. The parameter must be "".
func (e *Engine) Terminate(param string) (result string) {
	defer e.finishCall(MethodTerminate, []string{param}, e.clock.Now(), &result, resultFalse)
	return boolResult(e.terminate(param))
}

// GetValue returns the value of element, or "" on any error.
func (e *Engine) GetValue(element string) (result string) {
	defer e.finishCall(MethodGetValue, []string{element}, e.clock.Now(), &result, "")
	return e.getValue(element)
}

// SetValue stores value in element.
func (e *Engine) SetValue(element, value string) (result string) {
	defer e.finishCall(MethodSetValue, []string{element, value}, e.clock.Now(), &result, resultFalse)
	return boolResult(e.setValue(element, value))
}

// Commit persists the session data. The parameter must be "".
func (e *Engine) Commit(param string) (result string) {
	defer e.finishCall(MethodCommit, []string{param}, e.clock.Now(), &result, resultFalse)
	return boolResult(e.commit(param))
}

// GetLastError returns the numeric code of the last error.
func (e *Engine) GetLastError() (result string) {
	defer e.finishCall(MethodGetLastError, nil, e.clock.Now(), &result, strconv.Itoa(int(errorstate.GeneralException)))
	return e.es.LastError().String()
}

// GetErrorString returns the message of code, or "" if code is unknown.
func (e *Engine) GetErrorString(code string) (result string) {
	defer e.finishCall(MethodGetErrorString, []string{code}, e.clock.Now(), &result, "")
	c, ok := errorstate.ParseCode(code)
	if !ok {
		return ""
	}
	return e.es.ErrorString(c)
}

// GetDiagnostic returns diagnostic detail for code. An empty code means
// the last error. Unknown codes yield "".
func (e *Engine) GetDiagnostic(code string) (result string) {
	defer e.finishCall(MethodGetDiagnostic, []string{code}, e.clock.Now(), &result, "")
	if code == "" {
		return e.es.LastDiagnostic()
	}
	c, ok := errorstate.ParseCode(code)
	if !ok {
		return ""
	}
	return e.es.Diagnostic(c)
}

// finishCall is deferred by every API function. It converts a panic into
// a general exception plus the failure value, then records the call.
func (e *Engine) finishCall(method string, params []string, start time.Time, result *string, failure string) {
	if r := recover(); r != nil {
		e.logger.Error("recovered panic in API call",
			"method", method,
			"panic", r,
			"stack", string(debug.Stack()),
		)
		e.es.SetError(errorstate.GeneralException, fmt.Sprintf("internal error in %s: %v", method, r), method)
		*result = failure
	}

	code := e.es.LastError()
	call := APICall{
		SessionID:  e.sessionID,
		Method:     method,
		Parameters: params,
		Result:     *result,
		ErrorCode:  code.String(),
		Duration:   e.clock.Now().Sub(start),
		Timestamp:  start,
	}
	if call.Parameters == nil {
		call.Parameters = []string{}
	}
	if code != errorstate.NoError {
		call.ErrorMessage = e.es.ErrorString(code)
	}
	e.logger.Debug("api call",
		"method", method,
		"result", call.Result,
		"error_code", call.ErrorCode,
	)
	if e.telemetry != nil {
		e.safely("store api call", func() error {
			return e.telemetry.StoreAPICall(e.ctx, call)
		})
	}
}

// checkEmptyParam enforces the "" parameter contract of Initialize,
// Terminate and Commit.
func (e *Engine) checkEmptyParam(method, param string) bool {
	if param == "" {
		return true
	}
	e.es.SetError(errorstate.GeneralArgumentError,
		fmt.Sprintf("%s expects an empty string parameter, got %q", method, param), method)
	return false
}

func (e *Engine) getValue(element string) string {
	if element == "" {
		e.es.SetError(errorstate.GeneralGetFailure, "GetValue requires an element name", MethodGetValue)
		return ""
	}
	if !e.es.ValidateSessionState(errorstate.Running, errorstate.OpGetValue) {
		return ""
	}

	var value string
	addr, err := datamodel.Parse(element)
	switch {
	case err != nil:
		// Still routed through the model so browse activity is recorded.
		value, err = e.dm.GetValue(element)
	case addr.Kind == datamodel.KindNavValid && e.sequencing != nil:
		value, err = e.navigationValid(addr)
	default:
		value, err = e.dm.Get(addr)
	}
	if err != nil {
		e.es.SetError(datamodel.CodeOf(err), datamodel.DiagnosticOf(err), MethodGetValue)
		return ""
	}

	e.es.ClearError()
	return value
}

func (e *Engine) setValue(element, value string) bool {
	if element == "" {
		e.es.SetError(errorstate.GeneralSetFailure, "SetValue requires an element name", MethodSetValue)
		return false
	}
	if !e.es.ValidateSessionState(errorstate.Running, errorstate.OpSetValue) {
		return false
	}

	var err error
	e.dm.WithChangeContext(datamodel.ChangeContext{Source: datamodel.SourceAPISetValue, SessionID: e.sessionID}, func() {
		err = e.dm.SetValue(element, value)
	})
	if err != nil {
		e.es.SetError(datamodel.CodeOf(err), datamodel.DiagnosticOf(err), MethodSetValue)
		return false
	}

	if element == "cmi.session_time" {
		e.sessionTimeReported = true
	}
	e.es.ClearError()
	e.afterSet(element, value)
	return true
}

func (e *Engine) commit(param string) bool {
	if !e.checkEmptyParam(MethodCommit, param) {
		return false
	}
	if !e.es.ValidateSessionState(errorstate.Running, errorstate.OpCommit) {
		return false
	}

	if e.strictMode {
		if err := e.commits.Allow(e.clock.Now()); err != nil {
			e.logger.Warn("commit rejected", "session_id", e.sessionID, "error", err)
			e.es.SetError(errorstate.GeneralException, err.Error(), MethodCommit)
			return false
		}
	}

	if err := e.persist(); err != nil {
		e.es.SetError(errorstate.GeneralCommitFailure, err.Error(), MethodCommit)
		return false
	}

	e.es.ClearError()
	return true
}
