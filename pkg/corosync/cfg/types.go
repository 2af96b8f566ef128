package cfg

import (
	"fmt"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
)

// ShutdownFlags says how insistent a shutdown request is.
type ShutdownFlags int

const (
	// ShutdownRequest asks tracking clients and honors a refusal.
	ShutdownRequest ShutdownFlags = iota
	// ShutdownRegardless asks tracking clients but shuts down anyway.
	ShutdownRegardless
	// ShutdownImmediate shuts down without asking.
	ShutdownImmediate
)

func (f ShutdownFlags) String() string {
	switch f {
	case ShutdownRequest:
		return "request"
	case ShutdownRegardless:
		return "regardless"
	case ShutdownImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("ShutdownFlags(%d)", int(f))
	}
}

// ParseShutdownFlags parses the String form of a ShutdownFlags value.
func ParseShutdownFlags(s string) (ShutdownFlags, error) {
	switch s {
	case "request":
		return ShutdownRequest, nil
	case "regardless":
		return ShutdownRegardless, nil
	case "immediate":
		return ShutdownImmediate, nil
	}
	return 0, fmt.Errorf("unknown shutdown mode %q", s)
}

func (f ShutdownFlags) native() (uint32, bool) {
	switch f {
	case ShutdownRequest:
		return backend.CfgShutdownFlagRequest, true
	case ShutdownRegardless:
		return backend.CfgShutdownFlagRegardless, true
	case ShutdownImmediate:
		return backend.CfgShutdownFlagImmediate, true
	}
	return 0, false
}

// shutdownFlagsFromNative decodes the flags of a shutdown notification.
// Values this package does not know are reported as ShutdownRequest, the
// variant that still lets the handler refuse.
func shutdownFlagsFromNative(v uint32) ShutdownFlags {
	switch v {
	case backend.CfgShutdownFlagRegardless:
		return ShutdownRegardless
	case backend.CfgShutdownFlagImmediate:
		return ShutdownImmediate
	default:
		return ShutdownRequest
	}
}

// ShutdownReply answers a shutdown notification.
type ShutdownReply int

const (
	ShutdownReplyNo ShutdownReply = iota
	ShutdownReplyYes
)

func (r ShutdownReply) String() string {
	switch r {
	case ShutdownReplyNo:
		return "no"
	case ShutdownReplyYes:
		return "yes"
	default:
		return fmt.Sprintf("ShutdownReply(%d)", int(r))
	}
}

func (r ShutdownReply) native() (uint32, bool) {
	switch r {
	case ShutdownReplyNo:
		return backend.CfgShutdownReplyNo, true
	case ShutdownReplyYes:
		return backend.CfgShutdownReplyYes, true
	}
	return 0, false
}

// TrackFlags modify TrackStart. libcfg defines no flags yet.
type TrackFlags uint8

const TrackNone TrackFlags = TrackFlags(backend.CfgTrackNone)

// NodeStatusVersion selects the layout of a node status query.
type NodeStatusVersion int

const NodeStatusV1 NodeStatusVersion = 1

func (v NodeStatusVersion) native() (uint32, bool) {
	if v == NodeStatusV1 {
		return backend.CfgNodeStatusV1Version, true
	}
	return 0, false
}

// LinkStatus describes one knet link towards a node.
type LinkStatus struct {
	Enabled      bool
	Connected    bool
	DynConnected bool
	MTU          uint32
	SrcIPAddr    string
	DstIPAddr    string
}

// NodeStatus is the status of a node as seen from the local node. All
// backend.CfgMaxLinks link slots are reported; unused slots are disabled.
type NodeStatus struct {
	Version    NodeStatusVersion
	NodeID     corosync.NodeID
	Reachable  bool
	Remote     bool
	External   bool
	OnwireMin  uint8
	OnwireMax  uint8
	OnwireVer  uint8
	LinkStatus [backend.CfgMaxLinks]LinkStatus
}

func nodeStatusFromNative(st *backend.CfgNodeStatusV1) NodeStatus {
	out := NodeStatus{
		Version:   NodeStatusVersion(st.Version),
		NodeID:    corosync.NodeID(st.NodeID),
		Reachable: backend.Bool(st.Reachable),
		Remote:    backend.Bool(st.Remote),
		External:  backend.Bool(st.External),
		OnwireMin: st.OnwireMin,
		OnwireMax: st.OnwireMax,
		OnwireVer: st.OnwireVer,
	}
	for i := range st.LinkStatus {
		l := &st.LinkStatus[i]
		out.LinkStatus[i] = LinkStatus{
			Enabled:      backend.Bool(l.Enabled),
			Connected:    backend.Bool(l.Connected),
			DynConnected: backend.Bool(l.DynConnected),
			MTU:          l.MTU,
			SrcIPAddr:    backend.FixedString(l.SrcIPAddr[:]),
			DstIPAddr:    backend.FixedString(l.DstIPAddr[:]),
		}
	}
	return out
}
