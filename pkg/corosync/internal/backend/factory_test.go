package backend_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
)

func TestOverrideRedirectsConstructors(t *testing.T) {
	errCfg := errors.New("cfg override")
	restore := backend.Override(func() (backend.CfgEngine, error) { return nil, errCfg }, nil)

	_, err := backend.NewCfg()
	assert.ErrorIs(t, err, errCfg)

	if corosync.Native != "linked" {
		_, err = backend.NewCpg()
		assert.ErrorIs(t, err, corosync.ErrNotBuilt, "nil constructor keeps the native engine")
	}

	restore()
	if corosync.Native != "linked" {
		_, err = backend.NewCfg()
		require.ErrorIs(t, err, corosync.ErrNotBuilt)
	}
}

func TestOverrideRestoresPreviousOverride(t *testing.T) {
	errOuter := errors.New("outer")
	errInner := errors.New("inner")

	restoreOuter := backend.Override(nil, func() (backend.CpgEngine, error) { return nil, errOuter })
	defer restoreOuter()
	restoreInner := backend.Override(nil, func() (backend.CpgEngine, error) { return nil, errInner })

	_, err := backend.NewCpg()
	assert.ErrorIs(t, err, errInner)

	restoreInner()
	_, err = backend.NewCpg()
	assert.ErrorIs(t, err, errOuter)
}
