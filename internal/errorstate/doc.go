// Package errorstate tracks the SCORM 2004 error register and the session
// lifecycle of a single content attempt.
//
// ErrorState is the sole arbiter of whether an API call is currently legal.
// The lifecycle is a three-state machine:
//
//	NotInitialized --Initialize--> Running --Terminate--> Terminated
//
// Terminated is final. Illegal transitions leave the state unchanged and
// record the SCORM error code that the content will see through
// GetLastError.
//
// The package also owns the static error taxonomy (code, name, message,
// category) used by GetErrorString and the category default diagnostics
// used by GetDiagnostic.
package errorstate
