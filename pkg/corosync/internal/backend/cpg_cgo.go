//go:build linux && cgo && corosync

package backend

/*
#cgo LDFLAGS: -lcpg
#include <stdlib.h>
#include <stdint.h>
#include <sys/uio.h>
#include <corosync/cpg.h>

extern cs_error_t corosync_go_cpg_initialize(cpg_handle_t *handle, unsigned int flags, uint64_t context);
extern cs_error_t corosync_go_cpg_context_get(cpg_handle_t handle, uint64_t *context);
extern cs_error_t corosync_go_cpg_context_set(cpg_handle_t handle, uint64_t context);
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/corosync/corosync-go/pkg/corosync"
)

// Enumeration values taken from cpg.h.
const (
	CpgModelV1                        uint32 = C.CPG_MODEL_V1
	CpgModelV1DeliverInitialTotemConf uint32 = C.CPG_MODEL_V1_DELIVER_INITIAL_TOTEM_CONF

	CpgTypeUnordered uint32 = C.CPG_TYPE_UNORDERED
	CpgTypeFIFO      uint32 = C.CPG_TYPE_FIFO
	CpgTypeAgreed    uint32 = C.CPG_TYPE_AGREED
	CpgTypeSafe      uint32 = C.CPG_TYPE_SAFE

	CpgReasonUndefined uint32 = C.CPG_REASON_UNDEFINED
	CpgReasonJoin      uint32 = C.CPG_REASON_JOIN
	CpgReasonLeave     uint32 = C.CPG_REASON_LEAVE
	CpgReasonNodeDown  uint32 = C.CPG_REASON_NODEDOWN
	CpgReasonNodeUp    uint32 = C.CPG_REASON_NODEUP
	CpgReasonProcDown  uint32 = C.CPG_REASON_PROCDOWN

	CpgIterationNameOnly uint32 = C.CPG_ITERATION_NAME_ONLY
	CpgIterationOneGroup uint32 = C.CPG_ITERATION_ONE_GROUP
	CpgIterationAll      uint32 = C.CPG_ITERATION_ALL

	CpgFlowControlDisabled uint32 = C.CPG_FLOW_CONTROL_DISABLED
	CpgFlowControlEnabled  uint32 = C.CPG_FLOW_CONTROL_ENABLED
)

type cpgSinkHolder struct{ cb CpgCallbacks }

// cpgSink is shared by every cpg handle; the trampolines only know the raw
// handle and the subsystem package resolves it.
var cpgSink atomic.Pointer[cpgSinkHolder]

func init() {
	corosync.Native = "linked"
}

type nativeCpg struct{}

// openCpg returns the libcpg engine.
func openCpg() (CpgEngine, error) {
	return nativeCpg{}, nil
}

func cpgNameToC(n *CpgName) C.struct_cpg_name {
	var c C.struct_cpg_name
	c.length = C.uint32_t(n.Length)
	for i, b := range n.Value {
		c.value[i] = C.char(b)
	}
	return c
}

func cpgNameFromC(c *C.struct_cpg_name) CpgName {
	var n CpgName
	if c == nil {
		return n
	}
	n.Length = uint32(c.length)
	for i := range n.Value {
		n.Value[i] = byte(c.value[i])
	}
	return n
}

func cpgAddressesFromC(list *C.struct_cpg_address, entries C.size_t) []CpgAddress {
	if list == nil || entries == 0 {
		return nil
	}
	src := unsafe.Slice(list, int(entries))
	out := make([]CpgAddress, len(src))
	for i := range src {
		out[i] = CpgAddress{
			NodeID: uint32(src[i].nodeid),
			PID:    uint32(src[i].pid),
			Reason: uint32(src[i].reason),
		}
	}
	return out
}

//export corosyncGoCpgDeliver
func corosyncGoCpgDeliver(handle C.cpg_handle_t, group *C.struct_cpg_name, nodeid C.uint32_t, pid C.uint32_t, msg unsafe.Pointer, msgLen C.size_t) {
	sink := cpgSink.Load()
	if sink == nil {
		return
	}
	name := cpgNameFromC(group)
	var data []byte
	if msg != nil && msgLen > 0 {
		data = append([]byte(nil), unsafe.Slice((*byte)(msg), int(msgLen))...)
	}
	sink.cb.Deliver(uint64(handle), &name, uint32(nodeid), uint32(pid), data)
}

//export corosyncGoCpgConfchg
func corosyncGoCpgConfchg(handle C.cpg_handle_t, group *C.struct_cpg_name,
	members *C.struct_cpg_address, nMembers C.size_t,
	left *C.struct_cpg_address, nLeft C.size_t,
	joined *C.struct_cpg_address, nJoined C.size_t) {
	sink := cpgSink.Load()
	if sink == nil {
		return
	}
	name := cpgNameFromC(group)
	sink.cb.Confchg(uint64(handle), &name,
		cpgAddressesFromC(members, nMembers),
		cpgAddressesFromC(left, nLeft),
		cpgAddressesFromC(joined, nJoined))
}

//export corosyncGoCpgTotemConfchg
func corosyncGoCpgTotemConfchg(handle C.cpg_handle_t, ringNode C.uint32_t, ringSeq C.uint64_t, entries C.uint32_t, members *C.uint32_t) {
	sink := cpgSink.Load()
	if sink == nil {
		return
	}
	var ids []uint32
	if members != nil && entries > 0 {
		src := unsafe.Slice(members, int(entries))
		ids = make([]uint32, len(src))
		for i := range src {
			ids[i] = uint32(src[i])
		}
	}
	sink.cb.TotemConfchg(uint64(handle), CpgRingID{NodeID: uint32(ringNode), Seq: uint64(ringSeq)}, ids)
}

func (nativeCpg) Initialize(cb CpgCallbacks, flags uint32, context uint64) (uint64, corosync.CsError) {
	cpgSink.Store(&cpgSinkHolder{cb: cb})
	var h C.cpg_handle_t
	rc := C.corosync_go_cpg_initialize(&h, C.uint(flags), C.uint64_t(context))
	return uint64(h), corosync.CsError(rc)
}

func (nativeCpg) Finalize(handle uint64) corosync.CsError {
	return corosync.CsError(C.cpg_finalize(C.cpg_handle_t(handle)))
}

func (nativeCpg) FdGet(handle uint64) (int, corosync.CsError) {
	var fd C.int
	rc := C.cpg_fd_get(C.cpg_handle_t(handle), &fd)
	return int(fd), corosync.CsError(rc)
}

func (nativeCpg) Dispatch(handle uint64, flags corosync.DispatchFlags) corosync.CsError {
	return corosync.CsError(C.cpg_dispatch(C.cpg_handle_t(handle), C.cs_dispatch_flags_t(flags)))
}

func (nativeCpg) Join(handle uint64, group *CpgName) corosync.CsError {
	cname := cpgNameToC(group)
	return corosync.CsError(C.cpg_join(C.cpg_handle_t(handle), &cname))
}

func (nativeCpg) Leave(handle uint64, group *CpgName) corosync.CsError {
	cname := cpgNameToC(group)
	return corosync.CsError(C.cpg_leave(C.cpg_handle_t(handle), &cname))
}

func (nativeCpg) LocalGet(handle uint64) (uint32, corosync.CsError) {
	var nodeid C.uint
	rc := C.cpg_local_get(C.cpg_handle_t(handle), &nodeid)
	return uint32(nodeid), corosync.CsError(rc)
}

func (nativeCpg) MembershipGet(handle uint64, group *CpgName, out []CpgAddress) (int, corosync.CsError) {
	cname := cpgNameToC(group)
	var list [CpgMembersMax]C.struct_cpg_address
	entries := C.int(CpgMembersMax)
	rc := C.cpg_membership_get(C.cpg_handle_t(handle), &cname, &list[0], &entries)
	if rc != C.CS_OK {
		return 0, corosync.CsError(rc)
	}
	n := int(entries)
	for i := 0; i < n && i < len(out) && i < len(list); i++ {
		out[i] = CpgAddress{
			NodeID: uint32(list[i].nodeid),
			PID:    uint32(list[i].pid),
			Reason: uint32(list[i].reason),
		}
	}
	return n, corosync.CsOK
}

func (nativeCpg) MaxAtomicMsgsizeGet(handle uint64) (uint32, corosync.CsError) {
	var size C.uint32_t
	rc := C.cpg_max_atomic_msgsize_get(C.cpg_handle_t(handle), &size)
	return uint32(size), corosync.CsError(rc)
}

func (nativeCpg) ContextGet(handle uint64) (uint64, corosync.CsError) {
	var ctx C.uint64_t
	rc := C.corosync_go_cpg_context_get(C.cpg_handle_t(handle), &ctx)
	return uint64(ctx), corosync.CsError(rc)
}

func (nativeCpg) ContextSet(handle uint64, context uint64) corosync.CsError {
	return corosync.CsError(C.corosync_go_cpg_context_set(C.cpg_handle_t(handle), C.uint64_t(context)))
}

func (nativeCpg) FlowControlStateGet(handle uint64) (uint32, corosync.CsError) {
	var state C.cpg_flow_control_state_t
	rc := C.cpg_flow_control_state_get(C.cpg_handle_t(handle), &state)
	return uint32(state), corosync.CsError(rc)
}

// McastJoined copies every buffer into C memory so the iovec array never
// holds Go pointers.
func (nativeCpg) McastJoined(handle uint64, guarantee uint32, bufs [][]byte) corosync.CsError {
	n := len(bufs)
	if n == 0 {
		return corosync.CsErrInvalidParam
	}
	iov := (*C.struct_iovec)(C.calloc(C.size_t(n), C.size_t(unsafe.Sizeof(C.struct_iovec{}))))
	if iov == nil {
		return corosync.CsErrNoMemory
	}
	defer C.free(unsafe.Pointer(iov))

	vec := unsafe.Slice(iov, n)
	for i, b := range bufs {
		if len(b) == 0 {
			continue
		}
		p := C.CBytes(b)
		defer C.free(p)
		vec[i].iov_base = p
		vec[i].iov_len = C.size_t(len(b))
	}
	rc := C.cpg_mcast_joined(C.cpg_handle_t(handle), C.cpg_guarantee_t(guarantee), iov, C.uint(n))
	return corosync.CsError(rc)
}

func (nativeCpg) IterationInitialize(handle uint64, iterType uint32, group *CpgName) (uint64, corosync.CsError) {
	var (
		cname C.struct_cpg_name
		cptr  *C.struct_cpg_name
		iter  C.cpg_iteration_handle_t
	)
	if group != nil {
		cname = cpgNameToC(group)
		cptr = &cname
	}
	rc := C.cpg_iteration_initialize(C.cpg_handle_t(handle), C.cpg_iteration_type_t(iterType), cptr, &iter)
	return uint64(iter), corosync.CsError(rc)
}

func (nativeCpg) IterationNext(iter uint64, out *CpgIterationDescription) corosync.CsError {
	var desc C.struct_cpg_iteration_description_t
	rc := C.cpg_iteration_next(C.cpg_iteration_handle_t(iter), &desc)
	if rc == C.CS_OK {
		out.Group = cpgNameFromC(&desc.group)
		out.NodeID = uint32(desc.nodeid)
		out.PID = uint32(desc.pid)
	}
	return corosync.CsError(rc)
}

func (nativeCpg) IterationFinalize(iter uint64) corosync.CsError {
	return corosync.CsError(C.cpg_iteration_finalize(C.cpg_iteration_handle_t(iter)))
}
