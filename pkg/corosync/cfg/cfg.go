package cfg

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
	"github.com/corosync/corosync-go/pkg/corosync/logging"
	"github.com/corosync/corosync-go/pkg/corosync/metrics"
)

const subsystem = "cfg"

// newEngine is replaced in tests.
var newEngine = backend.NewCfg

var registry = backend.NewRegistry[*Handle]()

// Handler receives libcfg notifications for a handle.
type Handler interface {
	// Shutdown is called when a node asks the cluster to shut down and the
	// handle is tracking. Answer with ReplyToShutdown.
	Shutdown(h *Handle, flags ShutdownFlags)
}

// ShutdownFunc adapts a function to Handler.
type ShutdownFunc func(h *Handle, flags ShutdownFlags)

func (f ShutdownFunc) Shutdown(h *Handle, flags ShutdownFlags) {
	f(h, flags)
}

// Option configures Initialize.
type Option func(*options)

type options struct {
	logger logging.Logger
}

// WithLogger sets the logger used for this handle. The package default from
// logging.Default is used otherwise.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Handle is a libcfg connection. It is safe for concurrent use; callbacks
// run on the goroutine calling Dispatch.
type Handle struct {
	raw     uint64
	eng     backend.CfgEngine
	handler Handler
	log     logging.Logger
	closed  atomic.Bool
}

// Initialize opens a libcfg connection. handler may be nil when the caller
// never tracks shutdown requests.
func Initialize(handler Handler, opts ...Option) (*Handle, error) {
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
	raw, code := eng.Initialize(trampolines{})
	metrics.ObserveCall(subsystem, "corosync_cfg_initialize", code.Error())
	if err := corosync.Check("corosync_cfg_initialize", code); err != nil {
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
// CsErrBadHandle without reaching native code. When the native call fails
// the handle stays registered and usable.
func (h *Handle) Finalize() error {
	const op = "corosync_cfg_finalize"
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
	err := h.call("corosync_cfg_fd_get", func() corosync.CsError {
		var code corosync.CsError
		fd, code = h.eng.FdGet(h.raw)
		return code
	})
	return fd, err
}

// Dispatch runs pending callbacks according to flags.
func (h *Handle) Dispatch(flags corosync.DispatchFlags) error {
	const op = "corosync_cfg_dispatch"
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

// LocalGet returns the id of the local node.
func (h *Handle) LocalGet() (corosync.NodeID, error) {
	var id uint32
	err := h.call("corosync_cfg_local_get", func() corosync.CsError {
		var code corosync.CsError
		id, code = h.eng.LocalGet(h.raw)
		return code
	})
	return corosync.NodeID(id), err
}

// ReloadConfig asks every node to reload corosync.conf.
func (h *Handle) ReloadConfig() error {
	return h.call("corosync_cfg_reload_config", func() corosync.CsError {
		return h.eng.ReloadConfig(h.raw)
	})
}

// ReopenLogFiles asks the local daemon to reopen its log files.
func (h *Handle) ReopenLogFiles() error {
	return h.call("corosync_cfg_reopen_log_files", func() corosync.CsError {
		return h.eng.ReopenLogFiles(h.raw)
	})
}

// KillNode asks node to leave the cluster. reason is logged by the daemon.
func (h *Handle) KillNode(node corosync.NodeID, reason string) error {
	const op = "corosync_cfg_kill_node"
	if strings.IndexByte(reason, 0) >= 0 {
		return corosync.InvalidParam(op, "reason contains NUL byte")
	}
	return h.call(op, func() corosync.CsError {
		return h.eng.KillNode(h.raw, uint32(node), reason)
	})
}

// TryShutdown starts the shutdown protocol for the local node.
func (h *Handle) TryShutdown(flags ShutdownFlags) error {
	const op = "corosync_cfg_try_shutdown"
	v, ok := flags.native()
	if !ok {
		return corosync.InvalidParam(op, "unknown shutdown flags %d", int(flags))
	}
	return h.call(op, func() corosync.CsError {
		return h.eng.TryShutdown(h.raw, v)
	})
}

// ReplyToShutdown answers a Shutdown notification.
func (h *Handle) ReplyToShutdown(reply ShutdownReply) error {
	const op = "corosync_cfg_replyto_shutdown"
	v, ok := reply.native()
	if !ok {
		return corosync.InvalidParam(op, "unknown shutdown reply %d", int(reply))
	}
	return h.call(op, func() corosync.CsError {
		return h.eng.ReplyToShutdown(h.raw, v)
	})
}

// NodeStatusGet returns the status of node in the requested layout.
func (h *Handle) NodeStatusGet(node corosync.NodeID, version NodeStatusVersion) (NodeStatus, error) {
	const op = "corosync_cfg_node_status_get"
	v, ok := version.native()
	if !ok {
		return NodeStatus{}, corosync.InvalidParam(op, "unsupported node status version %d", int(version))
	}
	var st backend.CfgNodeStatusV1
	err := h.call(op, func() corosync.CsError {
		return h.eng.NodeStatusGet(h.raw, uint32(node), v, &st)
	})
	if err != nil {
		return NodeStatus{}, err
	}
	return nodeStatusFromNative(&st), nil
}

// TrackStart subscribes the handle to shutdown notifications.
func (h *Handle) TrackStart(flags TrackFlags) error {
	return h.call("corosync_cfg_trackstart", func() corosync.CsError {
		return h.eng.TrackStart(h.raw, uint8(flags))
	})
}

// TrackStop cancels TrackStart.
func (h *Handle) TrackStop() error {
	return h.call("corosync_cfg_trackstop", func() corosync.CsError {
		return h.eng.TrackStop(h.raw)
	})
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
