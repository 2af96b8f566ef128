package cpg_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/cpg"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
	"github.com/corosync/corosync-go/pkg/corosync/internal/mockengine"
	"github.com/corosync/corosync-go/pkg/corosync/logging"
	"github.com/corosync/corosync-go/pkg/corosync/metrics"
)

// recorder renders every callback as one line so whole sequences compare
// easily.
type recorder struct {
	events []string
}

func (r *recorder) handler() cpg.HandlerFuncs {
	return cpg.HandlerFuncs{
		DeliverFunc: func(_ *cpg.Handle, group string, node corosync.NodeID, pid uint32, msg []byte) {
			r.events = append(r.events, fmt.Sprintf("deliver %s %d/%d %s", group, node, pid, msg))
		},
		ConfchgFunc: func(_ *cpg.Handle, group string, members, left, joined []cpg.Address) {
			r.events = append(r.events, fmt.Sprintf("confchg %s members=%s left=%s joined=%s",
				group, addrs(members), addrs(left), addrs(joined)))
		},
		TotemConfchgFunc: func(_ *cpg.Handle, ring cpg.RingID, members []corosync.NodeID) {
			r.events = append(r.events, fmt.Sprintf("totem ring=%d/%d members=%v", ring.NodeID, ring.Seq, members))
		},
	}
}

func addrs(list []cpg.Address) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = fmt.Sprintf("%d/%d", a.NodeID, a.PID)
		if a.Reason != cpg.ReasonUndefined {
			parts[i] += ":" + a.Reason.String()
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// open initializes a handle that lives on the given node and pid.
func open(t *testing.T, c *mockengine.Cluster, node, pid uint32, h cpg.Handler, opts ...cpg.Option) *cpg.Handle {
	t.Helper()
	restore := cpg.SetEngineForTest(c.Cpg(node, pid))
	defer restore()
	handle, err := cpg.Initialize(h, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Finalize() })
	return handle
}

func TestInitializeRejectsNilHandler(t *testing.T) {
	_, err := cpg.Initialize(nil)
	assert.ErrorIs(t, err, corosync.CsErrInvalidParam)
}

func TestInitializeNotBuilt(t *testing.T) {
	if corosync.Native != "stub" {
		t.Skip("native bindings linked")
	}
	_, err := cpg.Initialize(cpg.HandlerFuncs{})
	assert.ErrorIs(t, err, corosync.ErrNotBuilt)
}

func TestRegistryInvariantAndDoubleFinalize(t *testing.T) {
	c := mockengine.New()
	before := cpg.RegisteredHandles()

	restore := cpg.SetEngineForTest(c.Cpg(1, 10))
	h, err := cpg.Initialize(cpg.HandlerFuncs{})
	restore()
	require.NoError(t, err)
	assert.Equal(t, before+1, cpg.RegisteredHandles())

	require.NoError(t, h.Finalize())
	assert.Equal(t, before, cpg.RegisteredHandles())
	assert.Equal(t, 0, c.OpenConns())

	err = h.Finalize()
	assert.ErrorIs(t, err, corosync.CsErrBadHandle)
	assert.Equal(t, corosync.ClassNotFound, corosync.ClassOf(err))

	assert.ErrorIs(t, h.Join("g"), corosync.CsErrBadHandle)
	assert.ErrorIs(t, h.Dispatch(corosync.DispatchAll), corosync.CsErrBadHandle)
}

func TestFinalizeFailureKeepsRegistration(t *testing.T) {
	c := mockengine.New()
	before := cpg.RegisteredHandles()
	restore := cpg.SetEngineForTest(c.Cpg(1, 10))
	h, err := cpg.Initialize(cpg.HandlerFuncs{})
	restore()
	require.NoError(t, err)

	c.FailNext("cpg_finalize", corosync.CsErrTryAgain)
	require.Error(t, h.Finalize())
	assert.Equal(t, before+1, cpg.RegisteredHandles())
	require.NoError(t, h.Finalize())
	assert.Equal(t, before, cpg.RegisteredHandles())
}

func TestDispatchDeterminism(t *testing.T) {
	c := mockengine.New()
	ra, rb, rc := &recorder{}, &recorder{}, &recorder{}
	a := open(t, c, 1, 100, ra.handler())
	b := open(t, c, 2, 200, rb.handler())
	x := open(t, c, 3, 300, rc.handler())

	require.NoError(t, a.Join("grp"))
	require.NoError(t, b.Join("grp"))
	require.NoError(t, x.Join("grp"))
	require.NoError(t, x.Leave("grp"))
	require.NoError(t, a.McastJoined(cpg.GuaranteeAgreed, []byte("ping")))

	require.NoError(t, a.Dispatch(corosync.DispatchAll))
	assert.Equal(t, []string{
		"confchg grp members=[1/100] left=[] joined=[1/100:join]",
		"confchg grp members=[1/100 2/200] left=[] joined=[2/200:join]",
		"confchg grp members=[1/100 2/200 3/300] left=[] joined=[3/300:join]",
		"confchg grp members=[1/100 2/200] left=[3/300:leave] joined=[]",
		"deliver grp 1/100 ping",
	}, ra.events)

	require.NoError(t, b.Dispatch(corosync.DispatchAll))
	assert.Equal(t, ra.events[1:], rb.events)

	require.NoError(t, x.Dispatch(corosync.DispatchAll))
	assert.Equal(t, []string{
		"confchg grp members=[1/100 2/200 3/300] left=[] joined=[3/300:join]",
		"confchg grp members=[1/100 2/200] left=[3/300:leave] joined=[]",
	}, rc.events)
}

func TestDispatchOneRunsSingleCallback(t *testing.T) {
	c := mockengine.New()
	r := &recorder{}
	h := open(t, c, 1, 10, r.handler())
	require.NoError(t, h.Join("g"))
	require.NoError(t, h.McastJoinedv(cpg.GuaranteeFIFO, []byte("a"), []byte("b")))

	require.NoError(t, h.Dispatch(corosync.DispatchOne))
	assert.Len(t, r.events, 1)
	require.NoError(t, h.Dispatch(corosync.DispatchOneNonblocking))
	assert.Equal(t, "deliver g 1/10 ab", r.events[1])

	err := h.Dispatch(corosync.DispatchOneNonblocking)
	assert.True(t, corosync.IsTryAgain(err))
}

func TestInitialTotemConf(t *testing.T) {
	c := mockengine.New()
	r := &recorder{}
	h := open(t, c, 2, 20, r.handler(), cpg.WithInitialTotemConf())
	require.NoError(t, h.Join("g"))
	require.NoError(t, h.Dispatch(corosync.DispatchAll))
	require.NotEmpty(t, r.events)
	assert.True(t, strings.HasPrefix(r.events[0], "totem ring=2/"), r.events[0])
	assert.Contains(t, r.events[0], "members=[2]")
}

func TestBlockingDispatchDeliversOwnMessage(t *testing.T) {
	c := mockengine.New()
	before := cpg.RegisteredHandles()
	payload := []byte("0123456789")

	var (
		local     corosync.NodeID
		delivered int
		finalErr  error
	)
	h := open(t, c, 1, 10, cpg.HandlerFuncs{
		DeliverFunc: func(h *cpg.Handle, group string, node corosync.NodeID, pid uint32, msg []byte) {
			delivered++
			assert.Equal(t, "test-group", group)
			assert.Equal(t, local, node)
			assert.Equal(t, uint32(10), pid)
			assert.Equal(t, payload, msg)
			finalErr = h.Finalize()
		},
	})
	id, err := h.LocalGet()
	require.NoError(t, err)
	local = id
	assert.Equal(t, corosync.NodeID(1), local)

	require.NoError(t, h.Join("test-group"))
	require.NoError(t, h.McastJoined(cpg.GuaranteeSafe, payload))

	require.NoError(t, h.Dispatch(corosync.DispatchBlocking))
	assert.Equal(t, 1, delivered)
	require.NoError(t, finalErr)
	assert.Equal(t, before, cpg.RegisteredHandles())
	assert.Zero(t, c.OpenConns())
	assert.ErrorIs(t, h.Dispatch(corosync.DispatchAll), corosync.CsErrBadHandle)
}

func TestConfchgKeepsListsAndReasons(t *testing.T) {
	c := mockengine.New()
	e := c.Cpg(1, 10)
	var got struct {
		group                 string
		members, left, joined []cpg.Address
	}
	restore := cpg.SetEngineForTest(e)
	h, err := cpg.Initialize(cpg.HandlerFuncs{
		ConfchgFunc: func(_ *cpg.Handle, group string, members, left, joined []cpg.Address) {
			got.group = group
			got.members, got.left, got.joined = members, left, joined
		},
	})
	restore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Finalize() })

	name, err := backend.NewCpgName("ring")
	require.NoError(t, err)
	e.Callbacks().Confchg(h.Raw(), &name,
		[]backend.CpgAddress{{NodeID: 1, PID: 10}, {NodeID: 3, PID: 30}, {NodeID: 2, PID: 20}},
		[]backend.CpgAddress{{NodeID: 4, PID: 40, Reason: backend.CpgReasonNodeDown}},
		[]backend.CpgAddress{
			{NodeID: 3, PID: 30, Reason: backend.CpgReasonJoin},
			{NodeID: 2, PID: 20, Reason: backend.CpgReasonJoin},
		})

	assert.Equal(t, "ring", got.group)
	require.Len(t, got.members, 3)
	require.Len(t, got.joined, 2)
	require.Len(t, got.left, 1)
	assert.Equal(t, []cpg.Address{
		{NodeID: 1, PID: 10, Reason: cpg.ReasonUndefined},
		{NodeID: 3, PID: 30, Reason: cpg.ReasonUndefined},
		{NodeID: 2, PID: 20, Reason: cpg.ReasonUndefined},
	}, got.members)
	assert.Equal(t, []cpg.Address{
		{NodeID: 3, PID: 30, Reason: cpg.ReasonJoin},
		{NodeID: 2, PID: 20, Reason: cpg.ReasonJoin},
	}, got.joined)
	assert.Equal(t, []cpg.Address{{NodeID: 4, PID: 40, Reason: cpg.ReasonNodeDown}}, got.left)
	assert.Equal(t, "nodedown", got.left[0].Reason.String())
}

func TestCallbackForUnknownHandleIsDropped(t *testing.T) {
	c := mockengine.New()
	e := c.Cpg(1, 10)
	restore := cpg.SetEngineForTest(e)
	called := false
	h, err := cpg.Initialize(cpg.HandlerFuncs{
		DeliverFunc: func(*cpg.Handle, string, corosync.NodeID, uint32, []byte) { called = true },
	})
	restore()
	require.NoError(t, err)
	stale := h.Raw()
	require.NoError(t, h.Finalize())

	var buf bytes.Buffer
	logging.SetDefault(logging.New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	t.Cleanup(func() { logging.SetDefault(nil) })

	before := testutil.ToFloat64(metrics.CallbacksDropped.WithLabelValues("cpg", "deliver"))
	name, err := backend.NewCpgName("g")
	require.NoError(t, err)
	e.Callbacks().Deliver(stale, &name, 1, 10, []byte("late"))
	e.Callbacks().Confchg(stale, &name, nil, nil, nil)
	e.Callbacks().TotemConfchg(stale, backend.CpgRingID{}, nil)

	assert.False(t, called)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CallbacksDropped.WithLabelValues("cpg", "deliver")))
	assert.Contains(t, buf.String(), "callback for unknown handle dropped")
	assert.NotContains(t, buf.String(), "late")
}

func TestGroupNameValidation(t *testing.T) {
	c := mockengine.New()
	h := open(t, c, 1, 10, cpg.HandlerFuncs{})

	tests := []struct {
		name  string
		group string
		ok    bool
	}{
		{"empty", "", true},
		{"max", strings.Repeat("n", cpg.CpgNameMax), true},
		{"too long", strings.Repeat("n", cpg.CpgNameMax+1), false},
		{"embedded nul", "a\x00b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Join(tt.group)
			if tt.ok {
				require.NoError(t, err)
				require.NoError(t, h.Leave(tt.group))
				return
			}
			assert.ErrorIs(t, err, corosync.CsErrInvalidParam)
			_, err = h.MembershipGet(tt.group)
			assert.ErrorIs(t, err, corosync.CsErrInvalidParam)
			_, err = h.IterationStart(tt.group, cpg.IterOneGroup)
			assert.ErrorIs(t, err, corosync.CsErrInvalidParam)
		})
	}
}

func TestMembershipAndQueries(t *testing.T) {
	c := mockengine.New()
	a := open(t, c, 1, 10, cpg.HandlerFuncs{}, cpg.WithContext(0xfeed))
	b := open(t, c, 2, 20, cpg.HandlerFuncs{})
	require.NoError(t, a.Join("g"))
	require.NoError(t, b.Join("g"))

	members, err := a.MembershipGet("g")
	require.NoError(t, err)
	assert.Equal(t, []cpg.Address{{NodeID: 1, PID: 10}, {NodeID: 2, PID: 20}}, members)

	members, err = a.MembershipGet("nobody")
	require.NoError(t, err)
	assert.Empty(t, members)

	id, err := b.LocalGet()
	require.NoError(t, err)
	assert.Equal(t, corosync.NodeID(2), id)

	v, err := a.ContextGet()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xfeed), v)
	require.NoError(t, a.ContextSet(7))
	v, err = a.ContextGet()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	c.SetMaxAtomicMsgsize(4096)
	size, err := a.MaxAtomicMsgsizeGet()
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), size)

	state, err := a.FlowControlStateGet()
	require.NoError(t, err)
	assert.Equal(t, cpg.FlowControlDisabled, state)
	c.SetFlowControl(true)
	state, err = a.FlowControlStateGet()
	require.NoError(t, err)
	assert.Equal(t, cpg.FlowControlEnabled, state)

	fd, err := a.FdGet()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fd, 0)
}

func TestMembershipOverflowIsLibraryError(t *testing.T) {
	c := mockengine.New()
	var handles []*cpg.Handle
	for i := 0; i <= backend.CpgMembersMax; i++ {
		h := open(t, c, 1, uint32(1000+i), cpg.HandlerFuncs{})
		require.NoError(t, h.Join("big"))
		handles = append(handles, h)
	}
	_, err := handles[0].MembershipGet("big")
	assert.ErrorIs(t, err, corosync.CsErrLibrary)
	assert.Equal(t, corosync.ClassLibrary, corosync.ClassOf(err))
}

func TestMcastValidation(t *testing.T) {
	c := mockengine.New()
	h := open(t, c, 1, 10, cpg.HandlerFuncs{})

	assert.ErrorIs(t, h.McastJoined(cpg.Guarantee(42), []byte("x")), corosync.CsErrInvalidParam)
	assert.ErrorIs(t, h.McastJoinedv(cpg.GuaranteeSafe), corosync.CsErrInvalidParam)
	// Not joined to any group.
	assert.ErrorIs(t, h.McastJoined(cpg.GuaranteeSafe, []byte("x")), corosync.CsErrNotExist)
}

func TestGuaranteeParsing(t *testing.T) {
	for _, g := range []cpg.Guarantee{cpg.GuaranteeUnordered, cpg.GuaranteeFIFO, cpg.GuaranteeAgreed, cpg.GuaranteeSafe} {
		parsed, err := cpg.ParseGuarantee(g.String())
		require.NoError(t, err)
		assert.Equal(t, g, parsed)
	}
	_, err := cpg.ParseGuarantee("eventually")
	assert.Error(t, err)
}
