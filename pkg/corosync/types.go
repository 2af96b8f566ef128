package corosync

import "strconv"

// NodeID identifies a cluster node.
type NodeID uint32

func (n NodeID) String() string {
	return strconv.FormatUint(uint64(n), 10)
}

// DispatchFlags selects how many queued callbacks a Dispatch call runs and
// whether it waits for them. The values match cs_dispatch_flags_t.
type DispatchFlags uint32

const (
	// DispatchOne waits for a callback and runs exactly one.
	DispatchOne DispatchFlags = 1
	// DispatchAll runs every callback queued at the time of the call.
	DispatchAll DispatchFlags = 2
	// DispatchBlocking keeps waiting for and running callbacks until the
	// handle is finalized, typically from inside a callback.
	DispatchBlocking DispatchFlags = 3
	// DispatchOneNonblocking runs at most one queued callback and returns
	// immediately.
	DispatchOneNonblocking DispatchFlags = 4
)

// Valid reports whether f is one of the defined dispatch modes.
func (f DispatchFlags) Valid() bool {
	return f >= DispatchOne && f <= DispatchOneNonblocking
}

func (f DispatchFlags) String() string {
	switch f {
	case DispatchOne:
		return "one"
	case DispatchAll:
		return "all"
	case DispatchBlocking:
		return "blocking"
	case DispatchOneNonblocking:
		return "one_nonblocking"
	default:
		return "unknown"
	}
}
