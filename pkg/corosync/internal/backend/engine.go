package backend

import "github.com/corosync/corosync-go/pkg/corosync"

// Track flags for corosync_cfg_trackstart. libcfg defines none yet.
const CfgTrackNone uint8 = 0

// CfgCallbacks receives libcfg notifications for every handle in the
// process. handle is the raw native handle the notification belongs to.
type CfgCallbacks interface {
	Shutdown(handle uint64, flags uint32)
}

// CfgEngine is the libcfg call surface. Every method returns the native
// result code unchanged.
type CfgEngine interface {
	Initialize(cb CfgCallbacks) (uint64, corosync.CsError)
	Finalize(handle uint64) corosync.CsError
	FdGet(handle uint64) (int, corosync.CsError)
	Dispatch(handle uint64, flags corosync.DispatchFlags) corosync.CsError
	LocalGet(handle uint64) (uint32, corosync.CsError)
	ReloadConfig(handle uint64) corosync.CsError
	ReopenLogFiles(handle uint64) corosync.CsError
	KillNode(handle uint64, nodeid uint32, reason string) corosync.CsError
	TryShutdown(handle uint64, flags uint32) corosync.CsError
	ReplyToShutdown(handle uint64, reply uint32) corosync.CsError
	NodeStatusGet(handle uint64, nodeid uint32, version uint32, out *CfgNodeStatusV1) corosync.CsError
	TrackStart(handle uint64, flags uint8) corosync.CsError
	TrackStop(handle uint64) corosync.CsError
}

// CpgCallbacks receives libcpg notifications for every handle in the
// process. Slices and names are copies owned by the callee.
type CpgCallbacks interface {
	Deliver(handle uint64, group *CpgName, nodeid, pid uint32, msg []byte)
	Confchg(handle uint64, group *CpgName, members, left, joined []CpgAddress)
	TotemConfchg(handle uint64, ring CpgRingID, members []uint32)
}

// CpgEngine is the libcpg call surface. Every method returns the native
// result code unchanged.
type CpgEngine interface {
	// Initialize opens a model v1 session. context is stored verbatim and
	// returned by ContextGet.
	Initialize(cb CpgCallbacks, flags uint32, context uint64) (uint64, corosync.CsError)
	Finalize(handle uint64) corosync.CsError
	FdGet(handle uint64) (int, corosync.CsError)
	Dispatch(handle uint64, flags corosync.DispatchFlags) corosync.CsError
	Join(handle uint64, group *CpgName) corosync.CsError
	Leave(handle uint64, group *CpgName) corosync.CsError
	LocalGet(handle uint64) (uint32, corosync.CsError)
	// MembershipGet fills out and returns the member count the native side
	// declared, which may exceed len(out).
	MembershipGet(handle uint64, group *CpgName, out []CpgAddress) (int, corosync.CsError)
	MaxAtomicMsgsizeGet(handle uint64) (uint32, corosync.CsError)
	ContextGet(handle uint64) (uint64, corosync.CsError)
	ContextSet(handle uint64, context uint64) corosync.CsError
	FlowControlStateGet(handle uint64) (uint32, corosync.CsError)
	McastJoined(handle uint64, guarantee uint32, bufs [][]byte) corosync.CsError
	// IterationInitialize opens a cursor. group is nil for
	// CpgIterationAll.
	IterationInitialize(handle uint64, iterType uint32, group *CpgName) (uint64, corosync.CsError)
	IterationNext(iter uint64, out *CpgIterationDescription) corosync.CsError
	IterationFinalize(iter uint64) corosync.CsError
}
