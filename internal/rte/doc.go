// Package rte implements the SCORM 2004 run-time API.
//
// An Engine serves exactly one content session. It exposes the eight API
// functions (Initialize, Terminate, GetValue, SetValue, Commit, GetLastError,
// GetErrorString, GetDiagnostic) with their string-typed contract and composes
// an errorstate.ErrorState with a datamodel.DataModel behind them.
//
// Every API function follows the same shape:
//
//  1. Check the literal parameter contract (most parameters must be "").
//  2. Ask the ErrorState whether the call is legal in the current state.
//  3. Perform the operation.
//  4. Clear or set the error register.
//  5. Return "true"/"false" or the value itself.
//  6. Record an API call entry with the TelemetrySink, success or not.
//
// Nothing panics across the API boundary. A panic inside an API function is
// recovered, recorded as a general exception and turned into the function's
// failure value.
//
// Collaborators (SessionRegistry, TelemetrySink, SequencingService) are
// optional. Their failures are logged and never change an API result, with
// one exception: a synchronous persistence failure during Commit sets 391.
//
// Concurrency: an Engine is not safe for concurrent use. The only goroutines
// it starts wait on AsyncPersister results and log failures.
package rte
