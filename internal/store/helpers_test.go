package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/scormrte/internal/testutil"
)

// createTestStore opens a store in a temp dir, stamped by a fake clock.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	clk := testutil.NewFakeClock()
	s, err := Open(path, append([]Option{WithNow(clk.Now)}, opts...)...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
