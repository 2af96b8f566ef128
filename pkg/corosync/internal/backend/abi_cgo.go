//go:build linux && cgo && corosync

package backend

/*
#include <stddef.h>
#include <corosync/cpg.h>
#include <corosync/cfg.h>
*/
import "C"

import "unsafe"

// Layout describes the size and selected field offsets of a native struct.
type Layout struct {
	Size    uintptr
	Offsets map[string]uintptr
}

// NativeLayouts reports the layout of the native structs mirrored in types.go
// as seen by the C compiler.
func NativeLayouts() map[string]Layout {
	var (
		name C.struct_cpg_name
		addr C.struct_cpg_address
		ring C.struct_cpg_ring_id
		desc C.struct_cpg_iteration_description_t
		link C.struct_corosync_knet_link_status_v1
		node C.struct_corosync_cfg_node_status_v1
	)
	return map[string]Layout{
		"cpg_name": {
			Size: unsafe.Sizeof(name),
			Offsets: map[string]uintptr{
				"length": unsafe.Offsetof(name.length),
				"value":  unsafe.Offsetof(name.value),
			},
		},
		"cpg_address": {
			Size: unsafe.Sizeof(addr),
			Offsets: map[string]uintptr{
				"nodeid": unsafe.Offsetof(addr.nodeid),
				"pid":    unsafe.Offsetof(addr.pid),
				"reason": unsafe.Offsetof(addr.reason),
			},
		},
		"cpg_ring_id": {
			Size: unsafe.Sizeof(ring),
			Offsets: map[string]uintptr{
				"nodeid": unsafe.Offsetof(ring.nodeid),
				"seq":    unsafe.Offsetof(ring.seq),
			},
		},
		"cpg_iteration_description_t": {
			Size: unsafe.Sizeof(desc),
			Offsets: map[string]uintptr{
				"group":  unsafe.Offsetof(desc.group),
				"nodeid": unsafe.Offsetof(desc.nodeid),
				"pid":    unsafe.Offsetof(desc.pid),
			},
		},
		"corosync_knet_link_status_v1": {
			Size: unsafe.Sizeof(link),
			Offsets: map[string]uintptr{
				"enabled":    unsafe.Offsetof(link.enabled),
				"mtu":        unsafe.Offsetof(link.mtu),
				"src_ipaddr": unsafe.Offsetof(link.src_ipaddr),
				"dst_ipaddr": unsafe.Offsetof(link.dst_ipaddr),
			},
		},
		"corosync_cfg_node_status_v1": {
			Size: unsafe.Sizeof(node),
			Offsets: map[string]uintptr{
				"version":     unsafe.Offsetof(node.version),
				"nodeid":      unsafe.Offsetof(node.nodeid),
				"onwire_ver":  unsafe.Offsetof(node.onwire_ver),
				"link_status": unsafe.Offsetof(node.link_status),
			},
		},
	}
}

// MirrorLayouts reports the same layouts for the Go mirrors.
func MirrorLayouts() map[string]Layout {
	var (
		name CpgName
		addr CpgAddress
		ring CpgRingID
		desc CpgIterationDescription
		link KnetLinkStatusV1
		node CfgNodeStatusV1
	)
	return map[string]Layout{
		"cpg_name": {
			Size: unsafe.Sizeof(name),
			Offsets: map[string]uintptr{
				"length": unsafe.Offsetof(name.Length),
				"value":  unsafe.Offsetof(name.Value),
			},
		},
		"cpg_address": {
			Size: unsafe.Sizeof(addr),
			Offsets: map[string]uintptr{
				"nodeid": unsafe.Offsetof(addr.NodeID),
				"pid":    unsafe.Offsetof(addr.PID),
				"reason": unsafe.Offsetof(addr.Reason),
			},
		},
		"cpg_ring_id": {
			Size: unsafe.Sizeof(ring),
			Offsets: map[string]uintptr{
				"nodeid": unsafe.Offsetof(ring.NodeID),
				"seq":    unsafe.Offsetof(ring.Seq),
			},
		},
		"cpg_iteration_description_t": {
			Size: unsafe.Sizeof(desc),
			Offsets: map[string]uintptr{
				"group":  unsafe.Offsetof(desc.Group),
				"nodeid": unsafe.Offsetof(desc.NodeID),
				"pid":    unsafe.Offsetof(desc.PID),
			},
		},
		"corosync_knet_link_status_v1": {
			Size: unsafe.Sizeof(link),
			Offsets: map[string]uintptr{
				"enabled":    unsafe.Offsetof(link.Enabled),
				"mtu":        unsafe.Offsetof(link.MTU),
				"src_ipaddr": unsafe.Offsetof(link.SrcIPAddr),
				"dst_ipaddr": unsafe.Offsetof(link.DstIPAddr),
			},
		},
		"corosync_cfg_node_status_v1": {
			Size: unsafe.Sizeof(node),
			Offsets: map[string]uintptr{
				"version":     unsafe.Offsetof(node.Version),
				"nodeid":      unsafe.Offsetof(node.NodeID),
				"onwire_ver":  unsafe.Offsetof(node.OnwireVer),
				"link_status": unsafe.Offsetof(node.LinkStatus),
			},
		},
	}
}

// NativeConstants reports the header values of the enumerations the stub
// build hardcodes.
func NativeConstants() map[string]uint32 {
	return map[string]uint32{
		"CS_OK":                                  uint32(C.CS_OK),
		"CS_ERR_TRY_AGAIN":                       uint32(C.CS_ERR_TRY_AGAIN),
		"CS_ERR_INVALID_PARAM":                   uint32(C.CS_ERR_INVALID_PARAM),
		"CS_ERR_BAD_HANDLE":                      uint32(C.CS_ERR_BAD_HANDLE),
		"CS_ERR_NO_SECTIONS":                     uint32(C.CS_ERR_NO_SECTIONS),
		"CS_ERR_TOO_MANY_GROUPS":                 uint32(C.CS_ERR_TOO_MANY_GROUPS),
		"CS_ERR_SECURITY":                        uint32(C.CS_ERR_SECURITY),
		"CS_DISPATCH_ONE":                        uint32(C.CS_DISPATCH_ONE),
		"CS_DISPATCH_ALL":                        uint32(C.CS_DISPATCH_ALL),
		"CS_DISPATCH_BLOCKING":                   uint32(C.CS_DISPATCH_BLOCKING),
		"CS_DISPATCH_ONE_NONBLOCKING":            uint32(C.CS_DISPATCH_ONE_NONBLOCKING),
		"CPG_MAX_NAME_LENGTH":                    uint32(C.CPG_MAX_NAME_LENGTH),
		"CPG_MEMBERS_MAX":                        uint32(C.CPG_MEMBERS_MAX),
		"CFG_MAX_LINKS":                          uint32(C.CFG_MAX_LINKS),
		"CFG_MAX_HOST_LEN":                       uint32(C.CFG_MAX_HOST_LEN),
		"CPG_MODEL_V1_DELIVER_INITIAL_TOTEM_CONF": uint32(C.CPG_MODEL_V1_DELIVER_INITIAL_TOTEM_CONF),
	}
}
