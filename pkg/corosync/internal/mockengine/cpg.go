package mockengine

import (
	"bytes"
	"sort"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
)

// CpgEngine is a backend.CpgEngine bound to one process of the cluster.
type CpgEngine struct {
	c      *Cluster
	nodeID uint32
	pid    uint32
}

// Cpg returns an engine whose connections belong to process pid on node
// nodeID.
func (c *Cluster) Cpg(nodeID, pid uint32) *CpgEngine {
	return &CpgEngine{c: c, nodeID: nodeID, pid: pid}
}

// Callbacks returns the callback set most recently passed to Initialize.
func (e *CpgEngine) Callbacks() backend.CpgCallbacks {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	return e.c.lastCpgCB
}

func (e *CpgEngine) lookup(op string, raw uint64) (*conn, corosync.CsError) {
	if code, ok := e.c.takeFailure(op); ok {
		return nil, code
	}
	cn := e.c.conns[raw]
	if cn == nil || cn.cpgCB == nil {
		return nil, corosync.CsErrBadHandle
	}
	return cn, corosync.CsOK
}

func (e *CpgEngine) Initialize(cb backend.CpgCallbacks, flags uint32, context uint64) (uint64, corosync.CsError) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if code, ok := e.c.takeFailure("cpg_model_initialize"); ok {
		return 0, code
	}
	if cb == nil {
		return 0, corosync.CsErrInvalidParam
	}
	cn, code := e.c.openConn(e.nodeID, e.pid)
	if code != corosync.CsOK {
		return 0, code
	}
	cn.cpgCB = cb
	cn.flags = flags
	cn.context = context
	e.c.lastCpgCB = cb
	return cn.raw, corosync.CsOK
}

func (e *CpgEngine) Finalize(raw uint64) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("cpg_finalize", raw)
	if code != corosync.CsOK {
		return code
	}
	for _, key := range e.c.sortedGroupKeys() {
		g := e.c.groups[key]
		if g.index(cn) >= 0 {
			e.c.removeMember(g, cn, backend.CpgReasonProcDown)
		}
	}
	e.c.closeConn(cn)
	return corosync.CsOK
}

func (e *CpgEngine) FdGet(raw uint64) (int, corosync.CsError) {
	return e.c.fdGet("cpg_fd_get", raw)
}

func (e *CpgEngine) Dispatch(raw uint64, flags corosync.DispatchFlags) corosync.CsError {
	return e.c.dispatch("cpg_dispatch", raw, flags)
}

func (e *CpgEngine) Join(raw uint64, name *backend.CpgName) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("cpg_join", raw)
	if code != corosync.CsOK {
		return code
	}
	key := name.String()
	g := e.c.groups[key]
	if g == nil {
		g = &group{name: *name}
		e.c.groups[key] = g
	}
	if g.index(cn) >= 0 {
		return corosync.CsErrExist
	}
	if cn.flags&backend.CpgModelV1DeliverInitialTotemConf != 0 && !cn.totemSent {
		e.c.enqueueTotemLocked(cn)
	}
	g.members = append(g.members, cn)
	joined := []backend.CpgAddress{address(cn, backend.CpgReasonJoin)}
	e.c.enqueueConfchg(g, g.members, nil, joined)
	return corosync.CsOK
}

func (e *CpgEngine) Leave(raw uint64, name *backend.CpgName) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("cpg_leave", raw)
	if code != corosync.CsOK {
		return code
	}
	g := e.c.groups[name.String()]
	if g == nil || g.index(cn) < 0 {
		return corosync.CsErrNotExist
	}
	e.c.removeMember(g, cn, backend.CpgReasonLeave)
	return corosync.CsOK
}

func (e *CpgEngine) LocalGet(raw uint64) (uint32, corosync.CsError) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("cpg_local_get", raw)
	if code != corosync.CsOK {
		return 0, code
	}
	return cn.nodeID, corosync.CsOK
}

// MembershipGet reports the full member count even when out is shorter, the
// way a misbehaving library would.
func (e *CpgEngine) MembershipGet(raw uint64, name *backend.CpgName, out []backend.CpgAddress) (int, corosync.CsError) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("cpg_membership_get", raw); code != corosync.CsOK {
		return 0, code
	}
	g := e.c.groups[name.String()]
	if g == nil {
		return 0, corosync.CsOK
	}
	for i, m := range g.members {
		if i >= len(out) {
			break
		}
		out[i] = address(m, backend.CpgReasonUndefined)
	}
	return len(g.members), corosync.CsOK
}

func (e *CpgEngine) MaxAtomicMsgsizeGet(raw uint64) (uint32, corosync.CsError) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("cpg_max_atomic_msgsize_get", raw); code != corosync.CsOK {
		return 0, code
	}
	return e.c.maxMsgsize, corosync.CsOK
}

func (e *CpgEngine) ContextGet(raw uint64) (uint64, corosync.CsError) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("cpg_context_get", raw)
	if code != corosync.CsOK {
		return 0, code
	}
	return cn.context, corosync.CsOK
}

func (e *CpgEngine) ContextSet(raw uint64, context uint64) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("cpg_context_set", raw)
	if code != corosync.CsOK {
		return code
	}
	cn.context = context
	return corosync.CsOK
}

func (e *CpgEngine) FlowControlStateGet(raw uint64) (uint32, corosync.CsError) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("cpg_flow_control_state_get", raw); code != corosync.CsOK {
		return 0, code
	}
	return e.c.flowControl, corosync.CsOK
}

// McastJoined delivers the concatenated buffers to every member of every
// group the sender belongs to, the sender included.
func (e *CpgEngine) McastJoined(raw uint64, guarantee uint32, bufs [][]byte) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	cn, code := e.lookup("cpg_mcast_joined", raw)
	if code != corosync.CsOK {
		return code
	}
	if guarantee > backend.CpgTypeSafe || len(bufs) == 0 {
		return corosync.CsErrInvalidParam
	}
	msg := bytes.Join(bufs, nil)
	sent := false
	for _, key := range e.c.sortedGroupKeys() {
		g := e.c.groups[key]
		if g.index(cn) < 0 {
			continue
		}
		sent = true
		if e.c.suspended {
			continue
		}
		name := g.name
		for _, m := range g.members {
			dst := m
			nodeID, pid := cn.nodeID, cn.pid
			payload := append([]byte(nil), msg...)
			e.c.enqueue(dst, func() {
				dst.cpgCB.Deliver(dst.raw, &name, nodeID, pid, payload)
			})
		}
	}
	if !sent {
		return corosync.CsErrNotExist
	}
	return corosync.CsOK
}

func (e *CpgEngine) IterationInitialize(raw uint64, iterType uint32, name *backend.CpgName) (uint64, corosync.CsError) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, code := e.lookup("cpg_iteration_initialize", raw); code != corosync.CsOK {
		return 0, code
	}
	var records []backend.CpgIterationDescription
	switch iterType {
	case backend.CpgIterationNameOnly:
		for _, key := range e.c.sortedGroupKeys() {
			records = append(records, backend.CpgIterationDescription{Group: e.c.groups[key].name})
		}
	case backend.CpgIterationOneGroup:
		if name == nil {
			return 0, corosync.CsErrInvalidParam
		}
		if g := e.c.groups[name.String()]; g != nil {
			records = g.describe()
		}
	case backend.CpgIterationAll:
		if name != nil {
			return 0, corosync.CsErrInvalidParam
		}
		for _, key := range e.c.sortedGroupKeys() {
			records = append(records, e.c.groups[key].describe()...)
		}
	default:
		return 0, corosync.CsErrInvalidParam
	}
	e.c.next++
	e.c.iters[e.c.next] = &cursor{records: records}
	return e.c.next, corosync.CsOK
}

func (e *CpgEngine) IterationNext(iter uint64, out *backend.CpgIterationDescription) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if code, ok := e.c.takeFailure("cpg_iteration_next"); ok {
		return code
	}
	cur := e.c.iters[iter]
	if cur == nil {
		return corosync.CsErrBadHandle
	}
	if cur.pos >= len(cur.records) {
		return corosync.CsErrNoSections
	}
	*out = cur.records[cur.pos]
	cur.pos++
	return corosync.CsOK
}

// IterationFinalize releases the cursor even when a failure is injected, so
// tests can observe exactly one release per cursor.
func (e *CpgEngine) IterationFinalize(iter uint64) corosync.CsError {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, ok := e.c.iters[iter]; !ok {
		return corosync.CsErrBadHandle
	}
	delete(e.c.iters, iter)
	e.c.itersClosed++
	if code, ok := e.c.takeFailure("cpg_iteration_finalize"); ok {
		return code
	}
	return corosync.CsOK
}

func address(cn *conn, reason uint32) backend.CpgAddress {
	return backend.CpgAddress{NodeID: cn.nodeID, PID: cn.pid, Reason: reason}
}

func (g *group) index(cn *conn) int {
	for i, m := range g.members {
		if m == cn {
			return i
		}
	}
	return -1
}

func (g *group) describe() []backend.CpgIterationDescription {
	out := make([]backend.CpgIterationDescription, 0, len(g.members))
	for _, m := range g.members {
		out = append(out, backend.CpgIterationDescription{Group: g.name, NodeID: m.nodeID, PID: m.pid})
	}
	return out
}

func (c *Cluster) sortedGroupKeys() []string {
	keys := make([]string, 0, len(c.groups))
	for k, g := range c.groups {
		if len(g.members) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (c *Cluster) joinedAny(cn *conn) bool {
	for _, g := range c.groups {
		if g.index(cn) >= 0 {
			return true
		}
	}
	return false
}

// removeMember drops cn from g and notifies the remaining members and cn
// itself.
func (c *Cluster) removeMember(g *group, cn *conn, reason uint32) {
	i := g.index(cn)
	g.members = append(g.members[:i:i], g.members[i+1:]...)
	left := []backend.CpgAddress{address(cn, reason)}
	recipients := append(append([]*conn(nil), g.members...), cn)
	c.enqueueConfchgTo(recipients, g, g.members, left, nil)
}

func (c *Cluster) enqueueConfchg(g *group, members []*conn, left, joined []backend.CpgAddress) {
	c.enqueueConfchgTo(g.members, g, members, left, joined)
}

func (c *Cluster) enqueueConfchgTo(recipients []*conn, g *group, members []*conn, left, joined []backend.CpgAddress) {
	list := make([]backend.CpgAddress, 0, len(members))
	for _, m := range members {
		list = append(list, address(m, backend.CpgReasonUndefined))
	}
	name := g.name
	for _, r := range recipients {
		dst := r
		if dst.closed {
			continue
		}
		c.enqueue(dst, func() {
			dst.cpgCB.Confchg(dst.raw, &name, list, left, joined)
		})
	}
}

func (c *Cluster) enqueueTotemLocked(cn *conn) {
	ring := backend.CpgRingID{NodeID: c.lowestNode(), Seq: c.ringSeq}
	members := c.ringMembers()
	cn.totemSent = true
	c.enqueue(cn, func() {
		cn.cpgCB.TotemConfchg(cn.raw, ring, members)
	})
}

func (c *Cluster) lowestNode() uint32 {
	ids := c.ringMembers()
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}
