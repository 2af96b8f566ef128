package cfg

import (
	"context"

	"github.com/corosync/corosync-go/pkg/corosync/metrics"
)

// trampolines routes native notifications to the registered Handle.
type trampolines struct{}

func (trampolines) Shutdown(raw uint64, flags uint32) {
	h, ok := registry.Lookup(raw)
	if !ok {
		dropped("shutdown", raw)
		return
	}
	metrics.Callbacks.WithLabelValues(subsystem, "shutdown").Inc()
	decoded := shutdownFlagsFromNative(flags)
	h.logger().Debug(context.Background(), "shutdown requested", "flags", decoded.String())
	if h.handler == nil {
		return
	}
	h.handler.Shutdown(h, decoded)
}
