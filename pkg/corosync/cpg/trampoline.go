package cpg

import (
	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
	"github.com/corosync/corosync-go/pkg/corosync/metrics"
)

// trampolines routes native notifications to the registered Handle. The
// registry lock is released before anything is decoded or called.
type trampolines struct{}

func (trampolines) Deliver(raw uint64, group *backend.CpgName, nodeid, pid uint32, msg []byte) {
	h, ok := registry.Lookup(raw)
	if !ok {
		dropped("deliver", raw)
		return
	}
	metrics.Callbacks.WithLabelValues(subsystem, "deliver").Inc()
	h.handler.Deliver(h, group.String(), corosync.NodeID(nodeid), pid, msg)
}

func (trampolines) Confchg(raw uint64, group *backend.CpgName, members, left, joined []backend.CpgAddress) {
	h, ok := registry.Lookup(raw)
	if !ok {
		dropped("confchg", raw)
		return
	}
	metrics.Callbacks.WithLabelValues(subsystem, "confchg").Inc()
	h.handler.Confchg(h, group.String(),
		addressesFromNative(members),
		addressesFromNative(left),
		addressesFromNative(joined))
}

func (trampolines) TotemConfchg(raw uint64, ring backend.CpgRingID, members []uint32) {
	h, ok := registry.Lookup(raw)
	if !ok {
		dropped("totem_confchg", raw)
		return
	}
	metrics.Callbacks.WithLabelValues(subsystem, "totem_confchg").Inc()
	var ids []corosync.NodeID
	if len(members) > 0 {
		ids = make([]corosync.NodeID, len(members))
		for i, m := range members {
			ids[i] = corosync.NodeID(m)
		}
	}
	h.handler.TotemConfchg(h, RingID{NodeID: corosync.NodeID(ring.NodeID), Seq: ring.Seq}, ids)
}
