package cpg

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
	"github.com/corosync/corosync-go/pkg/corosync/logging"
	"github.com/corosync/corosync-go/pkg/corosync/metrics"
)

const subsystem = "cpg"

// newEngine is replaced in tests.
var newEngine = backend.NewCpg

var registry = backend.NewRegistry[*Handle]()

// Handler receives libcpg notifications for a handle. Slices passed to a
// Handler are owned by the callee.
type Handler interface {
	// Deliver is called for every message multicast to a group the handle
	// belongs to, including its own.
	Deliver(h *Handle, group string, node corosync.NodeID, pid uint32, msg []byte)
	// Confchg is called when the membership of a joined group changes.
	Confchg(h *Handle, group string, members, left, joined []Address)
	// TotemConfchg is called when the totem ring changes.
	TotemConfchg(h *Handle, ring RingID, members []corosync.NodeID)
}

// HandlerFuncs adapts functions to Handler. Nil fields ignore the
// notification.
type HandlerFuncs struct {
	DeliverFunc      func(h *Handle, group string, node corosync.NodeID, pid uint32, msg []byte)
	ConfchgFunc      func(h *Handle, group string, members, left, joined []Address)
	TotemConfchgFunc func(h *Handle, ring RingID, members []corosync.NodeID)
}

func (f HandlerFuncs) Deliver(h *Handle, group string, node corosync.NodeID, pid uint32, msg []byte) {
	if f.DeliverFunc != nil {
		f.DeliverFunc(h, group, node, pid, msg)
	}
}

func (f HandlerFuncs) Confchg(h *Handle, group string, members, left, joined []Address) {
	if f.ConfchgFunc != nil {
		f.ConfchgFunc(h, group, members, left, joined)
	}
}

func (f HandlerFuncs) TotemConfchg(h *Handle, ring RingID, members []corosync.NodeID) {
	if f.TotemConfchgFunc != nil {
		f.TotemConfchgFunc(h, ring, members)
	}
}

// Option configures Initialize.
type Option func(*options)

type options struct {
	context      uint64
	initialTotem bool
	logger       logging.Logger
}

// WithContext stores an opaque value with the handle, readable through
// ContextGet.
func WithContext(v uint64) Option {
	return func(o *options) { o.context = v }
}

// WithInitialTotemConf asks the daemon to deliver the current ring as a
// TotemConfchg right after the first join.
func WithInitialTotemConf() Option {
	return func(o *options) { o.initialTotem = true }
}

// WithLogger sets the logger used for this handle.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Handle is a libcpg connection.
type Handle struct {
	raw     uint64
	eng     backend.CpgEngine
	handler Handler
	log     logging.Logger
	closed  atomic.Bool
}

// Initialize opens a libcpg connection using the v1 model.
func Initialize(handler Handler, opts ...Option) (*Handle, error) {
	const op = "cpg_model_initialize"
	if handler == nil {
		return nil, corosync.InvalidParam(op, "nil handler")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}

	eng, err := newEngine()
	if err != nil {
		return nil, err
	}
	var flags uint32
	if o.initialTotem {
		flags |= backend.CpgModelV1DeliverInitialTotemConf
	}
	raw, code := eng.Initialize(trampolines{}, flags, o.context)
	metrics.ObserveCall(subsystem, op, code.Error())
	if err := corosync.Check(op, code); err != nil {
		return nil, err
	}

	h := &Handle{
		raw:     raw,
		eng:     eng,
		handler: handler,
		log:     o.logger.With("subsystem", subsystem, "handle", raw),
	}
	registry.Insert(raw, h)
	metrics.OpenHandles.WithLabelValues(subsystem).Inc()
	return h, nil
}

func (h *Handle) call(op string, fn func() corosync.CsError) error {
	if h == nil || h.closed.Load() {
		return corosync.Check(op, corosync.CsErrBadHandle)
	}
	code := fn()
	metrics.ObserveCall(subsystem, op, code.Error())
	return corosync.Check(op, code)
}

// Finalize closes the connection. A second Finalize fails with
// CsErrBadHandle without reaching native code.
func (h *Handle) Finalize() error {
	const op = "cpg_finalize"
	if h == nil || !h.closed.CompareAndSwap(false, true) {
		return corosync.Check(op, corosync.CsErrBadHandle)
	}
	code := h.eng.Finalize(h.raw)
	metrics.ObserveCall(subsystem, op, code.Error())
	if err := corosync.Check(op, code); err != nil {
		h.closed.Store(false)
		return err
	}
	registry.Remove(h.raw)
	metrics.OpenHandles.WithLabelValues(subsystem).Dec()
	return nil
}

// FdGet returns a descriptor that becomes readable when callbacks are
// pending. It belongs to the library and must not be closed.
func (h *Handle) FdGet() (int, error) {
	fd := -1
	err := h.call("cpg_fd_get", func() corosync.CsError {
		var code corosync.CsError
		fd, code = h.eng.FdGet(h.raw)
		return code
	})
	return fd, err
}

// Dispatch runs pending callbacks according to flags.
func (h *Handle) Dispatch(flags corosync.DispatchFlags) error {
	const op = "cpg_dispatch"
	if !flags.Valid() {
		return corosync.InvalidParam(op, "unknown dispatch flags %d", uint32(flags))
	}
	start := time.Now()
	err := h.call(op, func() corosync.CsError {
		return h.eng.Dispatch(h.raw, flags)
	})
	metrics.DispatchDuration.WithLabelValues(subsystem, flags.String()).Observe(time.Since(start).Seconds())
	return err
}

// Join adds the process to group.
func (h *Handle) Join(group string) error {
	const op = "cpg_join"
	name, err := groupName(op, group)
	if err != nil {
		return err
	}
	return h.call(op, func() corosync.CsError {
		return h.eng.Join(h.raw, &name)
	})
}

// Leave removes the process from group.
func (h *Handle) Leave(group string) error {
	const op = "cpg_leave"
	name, err := groupName(op, group)
	if err != nil {
		return err
	}
	return h.call(op, func() corosync.CsError {
		return h.eng.Leave(h.raw, &name)
	})
}

// LocalGet returns the id of the local node.
func (h *Handle) LocalGet() (corosync.NodeID, error) {
	var id uint32
	err := h.call("cpg_local_get", func() corosync.CsError {
		var code corosync.CsError
		id, code = h.eng.LocalGet(h.raw)
		return code
	})
	return corosync.NodeID(id), err
}

// MembershipGet returns the current members of group.
func (h *Handle) MembershipGet(group string) ([]Address, error) {
	const op = "cpg_membership_get"
	name, err := groupName(op, group)
	if err != nil {
		return nil, err
	}
	buf := make([]backend.CpgAddress, backend.CpgMembersMax)
	var n int
	err = h.call(op, func() corosync.CsError {
		var code corosync.CsError
		n, code = h.eng.MembershipGet(h.raw, &name, buf)
		return code
	})
	if err != nil {
		return nil, err
	}
	if n < 0 || n > len(buf) {
		return nil, corosync.Errorf(op, corosync.CsErrLibrary, "%d members exceed capacity %d", n, len(buf))
	}
	return addressesFromNative(buf[:n]), nil
}

// MaxAtomicMsgsizeGet returns the largest message that is sent without
// fragmentation.
func (h *Handle) MaxAtomicMsgsizeGet() (uint32, error) {
	var size uint32
	err := h.call("cpg_max_atomic_msgsize_get", func() corosync.CsError {
		var code corosync.CsError
		size, code = h.eng.MaxAtomicMsgsizeGet(h.raw)
		return code
	})
	return size, err
}

// ContextGet returns the value set by WithContext or ContextSet.
func (h *Handle) ContextGet() (uint64, error) {
	var v uint64
	err := h.call("cpg_context_get", func() corosync.CsError {
		var code corosync.CsError
		v, code = h.eng.ContextGet(h.raw)
		return code
	})
	return v, err
}

// ContextSet replaces the opaque context value.
func (h *Handle) ContextSet(v uint64) error {
	return h.call("cpg_context_set", func() corosync.CsError {
		return h.eng.ContextSet(h.raw, v)
	})
}

// FlowControlStateGet reports whether the daemon is throttling this
// process.
func (h *Handle) FlowControlStateGet() (FlowControlState, error) {
	const op = "cpg_flow_control_state_get"
	var v uint32
	err := h.call(op, func() corosync.CsError {
		var code corosync.CsError
		v, code = h.eng.FlowControlStateGet(h.raw)
		return code
	})
	if err != nil {
		return FlowControlDisabled, err
	}
	state, ok := flowControlFromNative(v)
	if !ok {
		return FlowControlDisabled, corosync.Errorf(op, corosync.CsErrLibrary, "unknown flow control state %d", v)
	}
	return state, nil
}

// McastJoined multicasts msg to every group the handle has joined.
func (h *Handle) McastJoined(g Guarantee, msg []byte) error {
	return h.McastJoinedv(g, msg)
}

// McastJoinedv multicasts the concatenation of bufs as one message.
func (h *Handle) McastJoinedv(g Guarantee, bufs ...[]byte) error {
	const op = "cpg_mcast_joined"
	v, ok := g.native()
	if !ok {
		return corosync.InvalidParam(op, "unknown guarantee %d", int(g))
	}
	if len(bufs) == 0 {
		return corosync.InvalidParam(op, "no buffers")
	}
	size := 0
	for _, b := range bufs {
		size += len(b)
	}
	err := h.call(op, func() corosync.CsError {
		return h.eng.McastJoined(h.raw, v, bufs)
	})
	if err == nil {
		h.logger().Debug(context.Background(), "multicast sent",
			"guarantee", g.String(), "size", size, logging.Redacted("payload"))
	}
	return err
}

func (h *Handle) logger() logging.Logger {
	if h.log == nil {
		return logging.Default()
	}
	return h.log
}

func dropped(kind string, raw uint64) {
	metrics.CallbacksDropped.WithLabelValues(subsystem, kind).Inc()
	logging.Default().Debug(context.Background(), "callback for unknown handle dropped",
		"subsystem", subsystem, "kind", kind, "handle", raw)
}
