package cpg

import "github.com/corosync/corosync-go/pkg/corosync/internal/backend"

// SetEngineForTest makes Initialize use e and returns a function restoring
// the previous engine.
func SetEngineForTest(e backend.CpgEngine) (restore func()) {
	prev := newEngine
	newEngine = func() (backend.CpgEngine, error) { return e, nil }
	return func() { newEngine = prev }
}

// RegisteredHandles returns the number of handles in the registry.
func RegisteredHandles() int {
	return registry.Len()
}

// Raw returns the native handle value of h.
func (h *Handle) Raw() uint64 {
	return h.raw
}
