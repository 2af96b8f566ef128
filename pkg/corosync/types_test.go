package corosync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeIDString(t *testing.T) {
	assert.Equal(t, "0", NodeID(0).String())
	assert.Equal(t, "4294967295", NodeID(0xffffffff).String())
}

func TestDispatchFlags(t *testing.T) {
	for _, f := range []DispatchFlags{DispatchOne, DispatchAll, DispatchBlocking, DispatchOneNonblocking} {
		assert.True(t, f.Valid(), f.String())
		assert.NotEqual(t, "unknown", f.String())
	}
	assert.False(t, DispatchFlags(0).Valid())
	assert.False(t, DispatchFlags(5).Valid())
	assert.Equal(t, "unknown", DispatchFlags(5).String())
}
