// Package clock provides the wall-clock seam used by the run-time environment.
//
// The engine itself never reads time.Now directly. Session timing, the commit
// rate window and the browse-mode inactivity timer all go through Clock so
// tests can substitute testutil.FakeClock and advance time deterministically.
package clock
