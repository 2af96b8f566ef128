package backend_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
)

func TestRegistryLifecycle(t *testing.T) {
	r := backend.NewRegistry[string]()
	assert.Equal(t, 0, r.Len())

	r.Insert(7, "seven")
	v, ok := r.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, "seven", v)

	// A recycled raw handle replaces the stale entry.
	r.Insert(7, "again")
	v, _ = r.Lookup(7)
	assert.Equal(t, "again", v)
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Remove(7))
	assert.False(t, r.Remove(7))
	_, ok = r.Lookup(7)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryConcurrent(t *testing.T) {
	r := backend.NewRegistry[int]()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(raw uint64) {
			defer wg.Done()
			r.Insert(raw, int(raw))
			if v, ok := r.Lookup(raw); !ok || v != int(raw) {
				t.Errorf("lookup %d = %d, %v", raw, v, ok)
			}
			r.Remove(raw)
		}(uint64(i))
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}
