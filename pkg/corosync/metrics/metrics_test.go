package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	before := testutil.ToFloat64(NativeCalls.WithLabelValues("cpg", "cpg_join", "CS_OK"))
	ObserveCall("cpg", "cpg_join", "CS_OK")
	ObserveCall("cpg", "cpg_join", "CS_OK")
	after := testutil.ToFloat64(NativeCalls.WithLabelValues("cpg", "cpg_join", "CS_OK"))
	assert.Equal(t, before+2, after)
}

func TestRegisterWithRejectsDuplicates(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterWith(reg))
	require.Error(t, RegisterWith(reg))

	OpenHandles.WithLabelValues("cfg").Set(1)
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["corosync_open_handles"])
}

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}
