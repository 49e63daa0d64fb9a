package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/poser/internal/ir"
)

var testEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temp dir with a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	calls := 0
	s.now = func() time.Time {
		calls++
		return testEpoch.Add(time.Duration(calls) * time.Second)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates the n-th session record, one minute apart.
func createTestRecord(n int) ir.SessionRecord {
	return ir.SessionRecord{
		ID:             fmt.Sprintf("s-%03d", n),
		Timestamp:      testEpoch.Add(time.Duration(n) * time.Minute),
		TensionSec:     n,
		TotalSec:       n * 2,
		PosesCompleted: 1,
		Reason:         ir.ReasonComplete,
		Routine:        "Classic symmetry loop",
	}
}
