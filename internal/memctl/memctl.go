// Package memctl resolves the -m memory budget against real system
// memory and provides cooperative, in-process memory accounting for
// workers that cannot rely on an OS-level rlimit the way the original
// Python implementation does (see SPEC_FULL.md §5).
package memctl

import (
	"fmt"

	"github.com/pbnjay/memory"

	xerrors "warcidx/internal/errors"
)

const megabyte = 1024 * 1024

// Budget is the resolved memory plan for one indexer run.
type Budget struct {
	// TotalMB is the memory cap requested via -m.
	TotalMB int64
	// PerWorkerMB is TotalMB/(maxWorkers+1), the share given to each
	// worker plus the coordinator itself.
	PerWorkerMB int64
}

// Resolve validates limitMB against total system memory (mirroring
// eutils/utils.go's use of memory.TotalMemory()) and computes the
// per-worker share described in spec.md §4.3 ("Per-worker memory
// limit"). maxWorkers must be >= 1.
func Resolve(limitMB int64, maxWorkers int) (Budget, error) {
	if limitMB <= 0 {
		return Budget{}, xerrors.NewConfigError("memory_limit", fmt.Sprintf("%d", limitMB),
			fmt.Errorf("must be positive"))
	}
	total := memory.TotalMemory()
	if total > 0 && uint64(limitMB)*megabyte > total {
		return Budget{}, xerrors.NewMemoryError(
			fmt.Sprintf("-m %dMB exceeds total system memory (%dMB)", limitMB, total/megabyte))
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return Budget{
		TotalMB:     limitMB,
		PerWorkerMB: limitMB / int64(maxWorkers+1),
	}, nil
}

// Guard tracks an estimated byte count against a worker's share of the
// budget. It never calls a real allocator or rlimit; it is the
// cooperative substitute described in SPEC_FULL.md §5 — exceeding it
// causes the caller to flush early rather than to actually run out of
// memory.
type Guard struct {
	limitBytes int64
	used       int64
}

// NewGuard creates a Guard for a worker given its share of the budget
// in megabytes.
func NewGuard(perWorkerMB int64) *Guard {
	return &Guard{limitBytes: perWorkerMB * megabyte}
}

// Add accounts for n more estimated bytes of in-memory state (e.g. a
// newly appended posting). Returns true once usage has reached or
// exceeded the guard's budget and the caller should flush.
func (g *Guard) Add(n int) bool {
	g.used += int64(n)
	return g.used >= g.limitBytes
}

// Reset clears accounted usage after a flush.
func (g *Guard) Reset() {
	g.used = 0
}

// Used returns the current estimated byte usage.
func (g *Guard) Used() int64 { return g.used }
