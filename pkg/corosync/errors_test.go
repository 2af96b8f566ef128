package corosync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReturnsNilOnOK(t *testing.T) {
	require.NoError(t, Check("cpg_join", CsOK))
}

func TestCheckWrapsCode(t *testing.T) {
	err := Check("cpg_join", CsErrTryAgain)
	require.Error(t, err)
	assert.True(t, errors.Is(err, CsErrTryAgain))
	assert.False(t, errors.Is(err, CsErrLibrary))
	assert.Equal(t, "corosync: cpg_join: CS_ERR_TRY_AGAIN", err.Error())

	var op *OpError
	require.ErrorAs(t, err, &op)
	assert.Equal(t, "cpg_join", op.Op)
}

func TestInvalidParamMatchesCode(t *testing.T) {
	err := InvalidParam("cpg_join", "group name is %d bytes", 300)
	assert.ErrorIs(t, err, CsErrInvalidParam)
	assert.Equal(t, ClassInvalidParam, ClassOf(err))
	assert.Contains(t, err.Error(), "300 bytes")
}

func TestErrorfKeepsCode(t *testing.T) {
	err := Errorf("cpg_membership_get", CsErrLibrary, "%d members exceed capacity", 200)
	assert.ErrorIs(t, err, CsErrLibrary)
	assert.Equal(t, ClassLibrary, ClassOf(err))
	assert.Equal(t, "corosync: cpg_membership_get: CS_ERR_LIBRARY: 200 members exceed capacity", err.Error())
}

func TestClassOf(t *testing.T) {
	cases := []struct {
		err  error
		want Class
	}{
		{nil, ClassNone},
		{errors.New("plain"), ClassOther},
		{Check("x", CsErrInvalidParam), ClassInvalidParam},
		{Check("x", CsErrLibrary), ClassLibrary},
		{Check("x", CsErrBadHandle), ClassNotFound},
		{Check("x", CsErrNoSections), ClassNotFound},
		{Check("x", CsErrAccess), ClassAccess},
		{Check("x", CsErrNameTooLong), ClassResource},
		{Check("x", CsErrTooManyGroups), ClassResource},
		{Check("x", CsErrTryAgain), ClassTryAgain},
		{fmt.Errorf("wrapped: %w", Check("x", CsErrBusy)), ClassTryAgain},
		{Check("x", CsError(999)), ClassOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassOf(tc.err), "err=%v", tc.err)
	}
}

func TestIsTryAgain(t *testing.T) {
	assert.True(t, IsTryAgain(Check("cpg_mcast_joined", CsErrTryAgain)))
	assert.False(t, IsTryAgain(Check("cpg_mcast_joined", CsErrAccess)))
	assert.False(t, IsTryAgain(ErrNotBuilt))
}

func TestUnknownCodeString(t *testing.T) {
	assert.Equal(t, "CS_ERR_UNKNOWN(42)", CsError(42).Error())
	assert.Equal(t, "CS_ERR_NO_SECTIONS", CsErrNoSections.Error())
}
