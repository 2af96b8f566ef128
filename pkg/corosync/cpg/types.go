package cpg

import (
	"fmt"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
)

// CpgNameMax is the longest group name in bytes.
const CpgNameMax = backend.CpgNameLenMax - 1

// Guarantee selects the delivery ordering of a multicast.
type Guarantee int

const (
	GuaranteeUnordered Guarantee = iota
	GuaranteeFIFO
	GuaranteeAgreed
	GuaranteeSafe
)

func (g Guarantee) String() string {
	switch g {
	case GuaranteeUnordered:
		return "unordered"
	case GuaranteeFIFO:
		return "fifo"
	case GuaranteeAgreed:
		return "agreed"
	case GuaranteeSafe:
		return "safe"
	default:
		return fmt.Sprintf("Guarantee(%d)", int(g))
	}
}

// ParseGuarantee parses the String form of a Guarantee.
func ParseGuarantee(s string) (Guarantee, error) {
	switch s {
	case "unordered":
		return GuaranteeUnordered, nil
	case "fifo":
		return GuaranteeFIFO, nil
	case "agreed":
		return GuaranteeAgreed, nil
	case "safe":
		return GuaranteeSafe, nil
	}
	return 0, fmt.Errorf("unknown guarantee %q", s)
}

func (g Guarantee) native() (uint32, bool) {
	switch g {
	case GuaranteeUnordered:
		return backend.CpgTypeUnordered, true
	case GuaranteeFIFO:
		return backend.CpgTypeFIFO, true
	case GuaranteeAgreed:
		return backend.CpgTypeAgreed, true
	case GuaranteeSafe:
		return backend.CpgTypeSafe, true
	}
	return 0, false
}

// Reason explains why an address appears in a configuration change.
type Reason int

const (
	ReasonUndefined Reason = iota
	ReasonJoin
	ReasonLeave
	ReasonNodeDown
	ReasonNodeUp
	ReasonProcDown
)

func (r Reason) String() string {
	switch r {
	case ReasonJoin:
		return "join"
	case ReasonLeave:
		return "leave"
	case ReasonNodeDown:
		return "nodedown"
	case ReasonNodeUp:
		return "nodeup"
	case ReasonProcDown:
		return "procdown"
	default:
		return "undefined"
	}
}

// reasonFromNative decodes cpg_reason. Unknown values are ReasonUndefined.
func reasonFromNative(v uint32) Reason {
	switch v {
	case backend.CpgReasonJoin:
		return ReasonJoin
	case backend.CpgReasonLeave:
		return ReasonLeave
	case backend.CpgReasonNodeDown:
		return ReasonNodeDown
	case backend.CpgReasonNodeUp:
		return ReasonNodeUp
	case backend.CpgReasonProcDown:
		return ReasonProcDown
	default:
		return ReasonUndefined
	}
}

// Address identifies a group member.
type Address struct {
	NodeID corosync.NodeID
	PID    uint32
	Reason Reason
}

func addressesFromNative(in []backend.CpgAddress) []Address {
	if len(in) == 0 {
		return nil
	}
	out := make([]Address, len(in))
	for i, a := range in {
		out[i] = Address{
			NodeID: corosync.NodeID(a.NodeID),
			PID:    a.PID,
			Reason: reasonFromNative(a.Reason),
		}
	}
	return out
}

// RingID identifies a totem ring configuration.
type RingID struct {
	NodeID corosync.NodeID
	Seq    uint64
}

// FlowControlState reports whether the daemon is throttling senders.
type FlowControlState int

const (
	FlowControlDisabled FlowControlState = iota
	FlowControlEnabled
)

func (s FlowControlState) String() string {
	if s == FlowControlEnabled {
		return "enabled"
	}
	return "disabled"
}

func flowControlFromNative(v uint32) (FlowControlState, bool) {
	switch v {
	case backend.CpgFlowControlDisabled:
		return FlowControlDisabled, true
	case backend.CpgFlowControlEnabled:
		return FlowControlEnabled, true
	}
	return 0, false
}

// IterationType selects what an Iterator enumerates.
type IterationType int

const (
	// IterNameOnly yields one record per group with only Group set.
	IterNameOnly IterationType = iota
	// IterOneGroup yields the members of one group.
	IterOneGroup
	// IterAll yields the members of every group. The group argument is
	// ignored.
	IterAll
)

func (t IterationType) String() string {
	switch t {
	case IterNameOnly:
		return "name_only"
	case IterOneGroup:
		return "one_group"
	case IterAll:
		return "all"
	default:
		return fmt.Sprintf("IterationType(%d)", int(t))
	}
}

func (t IterationType) native() (uint32, bool) {
	switch t {
	case IterNameOnly:
		return backend.CpgIterationNameOnly, true
	case IterOneGroup:
		return backend.CpgIterationOneGroup, true
	case IterAll:
		return backend.CpgIterationAll, true
	}
	return 0, false
}

// IterationRecord is one element of a group iteration.
type IterationRecord struct {
	Group  string
	NodeID corosync.NodeID
	PID    uint32
}

func recordFromNative(d *backend.CpgIterationDescription) IterationRecord {
	return IterationRecord{
		Group:  d.Group.String(),
		NodeID: corosync.NodeID(d.NodeID),
		PID:    d.PID,
	}
}

// groupName validates s and converts it to its native form.
func groupName(op, s string) (backend.CpgName, error) {
	n, err := backend.NewCpgName(s)
	if err != nil {
		return backend.CpgName{}, corosync.InvalidParam(op, "group name: %v", err)
	}
	return n, nil
}
