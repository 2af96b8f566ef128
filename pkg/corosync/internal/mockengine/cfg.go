package mockengine

import (
	"strings"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
)

// CfgEngine is a backend.CfgEngine bound to one node of the cluster.
type CfgEngine struct {
	c      *Cluster
	nodeID uint32
}

// Cfg returns an engine whose connections belong to node nodeID.
func (c *Cluster) Cfg(nodeID uint32) *CfgEngine {
	return &CfgEngine{c: c, nodeID: nodeID}
}

// Callbacks returns the callback set most recently passed to Initialize.
func (e *CfgEngine) Callbacks() backend.CfgCallbacks {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	return e.c.lastCfgCB
}

func (e *CfgEngine) lookup(op string, raw uint64) (*conn, corosync.CsError) {
	if code, ok := e.c.takeFailure(op); ok {
		return nil, code
	}
	cn := e.c.conns[raw]
	if cn == nil || cn.cfgCB == nil {
		return nil, corosync.CsErrBadHandle
	}
	return cn, corosync.CsOK
}

func (e *CfgEngine) Initialize(cb backend.CfgCallbacks) (uint64, corosync.CsError) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if code, ok := e.c.takeFailure("corosync_cfg_initialize"); ok {
		return 0, code
	}
	if cb == nil {
		return 0, corosync.CsErrInvalidParam
	}
	cn, code := e.c.openConn(e.nodeID, 0)
	if code != corosync.CsOK {
		return 0, code
	}
	cn.cfgCB = cb
	e.c.lastCfgCB = cb
	return cn.raw, corosync.CsOK
}

func (e *CfgEngine) Finalize(raw uint64) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("corosync_cfg_finalize", raw)
	if code != corosync.CsOK {
		return code
	}
	e.c.closeConn(cn)
	return corosync.CsOK
}

func (e *CfgEngine) FdGet(raw uint64) (int, corosync.CsError) {
	return e.c.fdGet("corosync_cfg_fd_get", raw)
}

func (e *CfgEngine) Dispatch(raw uint64, flags corosync.DispatchFlags) corosync.CsError {
	return e.c.dispatch("corosync_cfg_dispatch", raw, flags)
}

func (e *CfgEngine) LocalGet(raw uint64) (uint32, corosync.CsError) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("corosync_cfg_local_get", raw)
	if code != corosync.CsOK {
		return 0, code
	}
	return cn.nodeID, corosync.CsOK
}

func (e *CfgEngine) ReloadConfig(raw uint64) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("corosync_cfg_reload_config", raw); code != corosync.CsOK {
		return code
	}
	e.c.reloads++
	return corosync.CsOK
}

func (e *CfgEngine) ReopenLogFiles(raw uint64) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("corosync_cfg_reopen_log_files", raw); code != corosync.CsOK {
		return code
	}
	e.c.logReopens++
	return corosync.CsOK
}

func (e *CfgEngine) KillNode(raw uint64, nodeid uint32, reason string) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("corosync_cfg_kill_node", raw); code != corosync.CsOK {
		return code
	}
	if strings.IndexByte(reason, 0) >= 0 {
		return corosync.CsErrInvalidParam
	}
	if _, ok := e.c.nodes[nodeid]; !ok {
		return corosync.CsErrNotExist
	}
	e.c.killed = append(e.c.killed, Kill{NodeID: nodeid, Reason: reason})
	return corosync.CsOK
}

// TryShutdown records the attempt and, unless the shutdown is immediate,
// queues a shutdown callback for every tracking connection.
func (e *CfgEngine) TryShutdown(raw uint64, flags uint32) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("corosync_cfg_try_shutdown", raw); code != corosync.CsOK {
		return code
	}
	if flags > backend.CfgShutdownFlagImmediate {
		return corosync.CsErrInvalidParam
	}
	e.c.shutdowns = append(e.c.shutdowns, flags)
	if flags == backend.CfgShutdownFlagImmediate {
		return corosync.CsOK
	}
	for _, cn := range e.c.sortedConns() {
		if cn.cfgCB == nil || !cn.tracking {
			continue
		}
		dst := cn
		e.c.enqueue(dst, func() {
			dst.cfgCB.Shutdown(dst.raw, flags)
		})
	}
	return corosync.CsOK
}

func (e *CfgEngine) ReplyToShutdown(raw uint64, reply uint32) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("corosync_cfg_replyto_shutdown", raw); code != corosync.CsOK {
		return code
	}
	if reply > backend.CfgShutdownReplyYes {
		return corosync.CsErrInvalidParam
	}
	e.c.replies = append(e.c.replies, reply)
	return corosync.CsOK
}

func (e *CfgEngine) NodeStatusGet(raw uint64, nodeid uint32, version uint32, out *backend.CfgNodeStatusV1) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("corosync_cfg_node_status_get", raw); code != corosync.CsOK {
		return code
	}
	if version != backend.CfgNodeStatusV1Version {
		return corosync.CsErrNotSupported
	}
	st, ok := e.c.statuses[nodeid]
	if !ok {
		return corosync.CsErrNotExist
	}
	*out = st
	return corosync.CsOK
}

func (e *CfgEngine) TrackStart(raw uint64, flags uint8) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("corosync_cfg_trackstart", raw)
	if code != corosync.CsOK {
		return code
	}
	cn.tracking = true
	return corosync.CsOK
}

func (e *CfgEngine) TrackStop(raw uint64) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("corosync_cfg_trackstop", raw)
	if code != corosync.CsOK {
		return code
	}
	cn.tracking = false
	return corosync.CsOK
}

var (
	_ backend.CfgEngine = (*CfgEngine)(nil)
	_ backend.CpgEngine = (*CpgEngine)(nil)
)
