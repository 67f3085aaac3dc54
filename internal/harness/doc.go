// Package harness replays scripted SCO sessions against a real rte.Engine
// and records what happened as a deterministic trace.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: resume_after_suspend
//	description: "What this scenario validates"
//	session_id: sess-resume
//	persist: true
//	launch:
//	  learner_id: learner-1
//	engine:
//	  strict_mode: true
//	restore:
//	  - element: cmi.suspend_data
//	    value: page=7
//	steps:
//	  - call: Initialize
//	    expect: "true"
//	  - call: SetValue
//	    args: [cmi.location, page-3]
//	    expect: "true"
//	    error: "0"
//	  - advance: 20m
//	  - call: Terminate
//	final:
//	  state: terminated
//	  values:
//	    cmi.total_time: PT0H20M0S
//
// A step either calls one of the eight API functions or advances the fake
// clock. expect and error are optional; a mismatch fails the scenario but
// the remaining steps still run so the trace stays complete.
//
// # Deterministic Testing
//
// Every run uses a fake clock starting at testutil.FakeEpoch, a fixed
// session id and, with persist: true, a fresh in-memory SQLite store.
// Traces are canonical JSON lines, so they can be compared byte-for-byte
// against golden files with RunWithGolden.
package harness
