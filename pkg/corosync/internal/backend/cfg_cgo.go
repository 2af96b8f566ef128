//go:build linux && cgo && corosync

package backend

/*
#cgo LDFLAGS: -lcfg
#include <stdlib.h>
#include <stdint.h>
#include <corosync/cfg.h>

extern cs_error_t corosync_go_cfg_initialize(corosync_cfg_handle_t *handle);
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/corosync/corosync-go/pkg/corosync"
)

const (
	CfgShutdownFlagRequest    uint32 = C.COROSYNC_CFG_SHUTDOWN_FLAG_REQUEST
	CfgShutdownFlagRegardless uint32 = C.COROSYNC_CFG_SHUTDOWN_FLAG_REGARDLESS
	CfgShutdownFlagImmediate  uint32 = C.COROSYNC_CFG_SHUTDOWN_FLAG_IMMEDIATE

	CfgShutdownReplyNo  uint32 = C.COROSYNC_CFG_SHUTDOWN_FLAG_NO
	CfgShutdownReplyYes uint32 = C.COROSYNC_CFG_SHUTDOWN_FLAG_YES

	CfgNodeStatusV1Version uint32 = C.CFG_NODE_STATUS_V1
)

type cfgSinkHolder struct{ cb CfgCallbacks }

var cfgSink atomic.Pointer[cfgSinkHolder]

type nativeCfg struct{}

// openCfg returns the libcfg engine.
func openCfg() (CfgEngine, error) {
	return nativeCfg{}, nil
}

//export corosyncGoCfgShutdown
func corosyncGoCfgShutdown(handle C.corosync_cfg_handle_t, flags C.uint32_t) {
	sink := cfgSink.Load()
	if sink == nil {
		return
	}
	sink.cb.Shutdown(uint64(handle), uint32(flags))
}

func (nativeCfg) Initialize(cb CfgCallbacks) (uint64, corosync.CsError) {
	cfgSink.Store(&cfgSinkHolder{cb: cb})
	var h C.corosync_cfg_handle_t
	rc := C.corosync_go_cfg_initialize(&h)
	return uint64(h), corosync.CsError(rc)
}

func (nativeCfg) Finalize(handle uint64) corosync.CsError {
	return corosync.CsError(C.corosync_cfg_finalize(C.corosync_cfg_handle_t(handle)))
}

func (nativeCfg) FdGet(handle uint64) (int, corosync.CsError) {
	var fd C.int32_t
	rc := C.corosync_cfg_fd_get(C.corosync_cfg_handle_t(handle), &fd)
	return int(fd), corosync.CsError(rc)
}

func (nativeCfg) Dispatch(handle uint64, flags corosync.DispatchFlags) corosync.CsError {
	return corosync.CsError(C.corosync_cfg_dispatch(C.corosync_cfg_handle_t(handle), C.cs_dispatch_flags_t(flags)))
}

func (nativeCfg) LocalGet(handle uint64) (uint32, corosync.CsError) {
	var nodeid C.uint
	rc := C.corosync_cfg_local_get(C.corosync_cfg_handle_t(handle), &nodeid)
	return uint32(nodeid), corosync.CsError(rc)
}

func (nativeCfg) ReloadConfig(handle uint64) corosync.CsError {
	return corosync.CsError(C.corosync_cfg_reload_config(C.corosync_cfg_handle_t(handle)))
}

func (nativeCfg) ReopenLogFiles(handle uint64) corosync.CsError {
	return corosync.CsError(C.corosync_cfg_reopen_log_files(C.corosync_cfg_handle_t(handle)))
}

func (nativeCfg) KillNode(handle uint64, nodeid uint32, reason string) corosync.CsError {
	creason := C.CString(reason)
	defer C.free(unsafe.Pointer(creason))
	return corosync.CsError(C.corosync_cfg_kill_node(C.corosync_cfg_handle_t(handle), C.uint(nodeid), creason))
}

func (nativeCfg) TryShutdown(handle uint64, flags uint32) corosync.CsError {
	return corosync.CsError(C.corosync_cfg_try_shutdown(C.corosync_cfg_handle_t(handle), C.corosync_cfg_shutdown_flags_t(flags)))
}

func (nativeCfg) ReplyToShutdown(handle uint64, reply uint32) corosync.CsError {
	return corosync.CsError(C.corosync_cfg_replyto_shutdown(C.corosync_cfg_handle_t(handle), C.corosync_cfg_shutdown_reply_flags_t(reply)))
}

func (nativeCfg) NodeStatusGet(handle uint64, nodeid uint32, version uint32, out *CfgNodeStatusV1) corosync.CsError {
	var st C.struct_corosync_cfg_node_status_v1
	rc := C.corosync_cfg_node_status_get(C.corosync_cfg_handle_t(handle), C.uint(nodeid),
		C.corosync_cfg_node_status_version_t(version), unsafe.Pointer(&st))
	if rc != C.CS_OK {
		return corosync.CsError(rc)
	}
	out.Version = uint32(st.version)
	out.NodeID = uint32(st.nodeid)
	out.Reachable = uint8(st.reachable)
	out.Remote = uint8(st.remote)
	out.External = uint8(st.external)
	out.OnwireMin = uint8(st.onwire_min)
	out.OnwireMax = uint8(st.onwire_max)
	out.OnwireVer = uint8(st.onwire_ver)
	for i := 0; i < CfgMaxLinks; i++ {
		src := &st.link_status[i]
		dst := &out.LinkStatus[i]
		dst.Enabled = uint8(src.enabled)
		dst.Connected = uint8(src.connected)
		dst.DynConnected = uint8(src.dynconnected)
		dst.MTU = uint32(src.mtu)
		for j := 0; j < CfgMaxHostLen; j++ {
			dst.SrcIPAddr[j] = byte(src.src_ipaddr[j])
			dst.DstIPAddr[j] = byte(src.dst_ipaddr[j])
		}
	}
	return corosync.CsOK
}

func (nativeCfg) TrackStart(handle uint64, flags uint8) corosync.CsError {
	return corosync.CsError(C.corosync_cfg_trackstart(C.corosync_cfg_handle_t(handle), C.uint8_t(flags)))
}

func (nativeCfg) TrackStop(handle uint64) corosync.CsError {
	return corosync.CsError(C.corosync_cfg_trackstop(C.corosync_cfg_handle_t(handle)))
}
