package datamodel

import (
	"errors"
	"fmt"

	"github.com/roach88/scormrte/internal/errorstate"
)

// ElementError is returned by reads and writes that SCORM reports through
// the error register. Code is the SCORM error code to record.
type ElementError struct {
	Code       errorstate.Code
	Element    string
	Diagnostic string
}

// Error implements the error interface.
func (e *ElementError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("%d: %s (element=%s)", int(e.Code), e.Diagnostic, e.Element)
	}
	return fmt.Sprintf("%d: %s", int(e.Code), e.Diagnostic)
}

func newElementError(code errorstate.Code, element, format string, args ...any) *ElementError {
	return &ElementError{Code: code, Element: element, Diagnostic: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the SCORM code carried by err.
// Returns NoError for nil and GeneralException for errors of any other type.
func CodeOf(err error) errorstate.Code {
	if err == nil {
		return errorstate.NoError
	}
	var ee *ElementError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return errorstate.GeneralException
}

// DiagnosticOf extracts the diagnostic carried by err, or err.Error().
func DiagnosticOf(err error) string {
	if err == nil {
		return ""
	}
	var ee *ElementError
	if errors.As(err, &ee) {
		return ee.Diagnostic
	}
	return err.Error()
}
