package mockengine

import (
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
)

const firstHandle uint64 = 0x1a2b0000

// Cluster is the shared state behind every engine it creates.
type Cluster struct {
	mu sync.Mutex

	next   uint64
	conns  map[uint64]*conn
	groups map[string]*group
	iters  map[uint64]*cursor
	nodes  map[uint32]struct{}

	ringSeq     uint64
	maxMsgsize  uint32
	flowControl uint32
	statuses    map[uint32]backend.CfgNodeStatusV1
	failures    map[string]corosync.CsError

	killed      []Kill
	shutdowns   []uint32
	replies     []uint32
	reloads     int
	logReopens  int
	itersClosed int
	suspended   bool
	lastCpgCB   backend.CpgCallbacks
	lastCfgCB   backend.CfgCallbacks
}

// Kill records a kill-node request.
type Kill struct {
	NodeID uint32
	Reason string
}

type group struct {
	name    backend.CpgName
	members []*conn
}

type cursor struct {
	records []backend.CpgIterationDescription
	pos     int
}

type conn struct {
	raw    uint64
	nodeID uint32
	pid    uint32

	queue  []func()
	notify chan struct{}
	done   chan struct{}
	rfd    int
	wfd    int
	closed bool

	cpgCB     backend.CpgCallbacks
	cfgCB     backend.CfgCallbacks
	flags     uint32
	context   uint64
	totemSent bool
	tracking  bool
}

// New returns an empty cluster.
func New() *Cluster {
	return &Cluster{
		next:       firstHandle,
		conns:      make(map[uint64]*conn),
		groups:     make(map[string]*group),
		iters:      make(map[uint64]*cursor),
		nodes:      make(map[uint32]struct{}),
		ringSeq:    4,
		maxMsgsize: 1 << 20,
		statuses:   make(map[uint32]backend.CfgNodeStatusV1),
		failures:   make(map[string]corosync.CsError),
	}
}

// FailNext makes the next call of op return code.
func (c *Cluster) FailNext(op string, code corosync.CsError) {
	c.mu.Lock()
	c.failures[op] = code
	c.mu.Unlock()
}

// SetMaxAtomicMsgsize sets the value reported by cpg_max_atomic_msgsize_get.
func (c *Cluster) SetMaxAtomicMsgsize(n uint32) {
	c.mu.Lock()
	c.maxMsgsize = n
	c.mu.Unlock()
}

// SetFlowControl sets the value reported by cpg_flow_control_state_get.
func (c *Cluster) SetFlowControl(enabled bool) {
	c.mu.Lock()
	if enabled {
		c.flowControl = backend.CpgFlowControlEnabled
	} else {
		c.flowControl = backend.CpgFlowControlDisabled
	}
	c.mu.Unlock()
}

// SuspendDeliveries makes cpg_mcast_joined accept messages without
// delivering them, as when the token cannot make it around the ring.
func (c *Cluster) SuspendDeliveries(suspend bool) {
	c.mu.Lock()
	c.suspended = suspend
	c.mu.Unlock()
}

// SetNodeStatus sets the status returned for nodeid.
func (c *Cluster) SetNodeStatus(nodeid uint32, st backend.CfgNodeStatusV1) {
	c.mu.Lock()
	c.statuses[nodeid] = st
	c.mu.Unlock()
}

// OpenConns returns the number of connections not yet finalized.
func (c *Cluster) OpenConns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// OpenIterations returns the number of cursors not yet finalized.
func (c *Cluster) OpenIterations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.iters)
}

// IterationsFinalized returns how many cursors were released.
func (c *Cluster) IterationsFinalized() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itersClosed
}

// Pending returns the number of callbacks queued for raw.
func (c *Cluster) Pending(raw uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cn := c.conns[raw]; cn != nil {
		return len(cn.queue)
	}
	return 0
}

// Killed returns the kill-node requests seen so far.
func (c *Cluster) Killed() []Kill {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Kill(nil), c.killed...)
}

// Shutdowns returns the flags of every shutdown attempt.
func (c *Cluster) Shutdowns() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint32(nil), c.shutdowns...)
}

// Replies returns every shutdown reply received.
func (c *Cluster) Replies() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint32(nil), c.replies...)
}

// Reloads returns how many times the configuration was reloaded.
func (c *Cluster) Reloads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloads
}

// LogReopens returns how many times log files were reopened.
func (c *Cluster) LogReopens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logReopens
}

// RingChange starts a new ring made of every node seen so far and notifies
// each cpg connection that belongs to at least one group.
func (c *Cluster) RingChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ringSeq += 4
	for _, cn := range c.sortedConns() {
		if cn.cpgCB != nil && c.joinedAny(cn) {
			c.enqueueTotemLocked(cn)
		}
	}
}

// takeFailure consumes an injected failure for op. c.mu must be held.
func (c *Cluster) takeFailure(op string) (corosync.CsError, bool) {
	code, ok := c.failures[op]
	if ok {
		delete(c.failures, op)
	}
	return code, ok
}

func (c *Cluster) openConn(nodeID, pid uint32) (*conn, corosync.CsError) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, corosync.CsErrNoResources
	}
	c.next++
	cn := &conn{
		raw:    c.next,
		nodeID: nodeID,
		pid:    pid,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		rfd:    fds[0],
		wfd:    fds[1],
	}
	c.conns[cn.raw] = cn
	c.nodes[nodeID] = struct{}{}
	return cn, corosync.CsOK
}

func (c *Cluster) closeConn(cn *conn) {
	cn.closed = true
	cn.queue = nil
	close(cn.done)
	_ = unix.Close(cn.rfd)
	_ = unix.Close(cn.wfd)
	delete(c.conns, cn.raw)
}

func (c *Cluster) sortedConns() []*conn {
	out := make([]*conn, 0, len(c.conns))
	for _, cn := range c.conns {
		out = append(out, cn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].raw < out[j].raw })
	return out
}

// enqueue queues fn for cn. The descriptor holds one byte while the queue
// is non-empty, so it stays readable however many callbacks are queued.
// c.mu must be held.
func (c *Cluster) enqueue(cn *conn, fn func()) {
	if cn.closed {
		return
	}
	if len(cn.queue) == 0 {
		_, _ = unix.Write(cn.wfd, []byte{1})
	}
	cn.queue = append(cn.queue, fn)
	select {
	case cn.notify <- struct{}{}:
	default:
	}
}

func (c *Cluster) pop(cn *conn) (func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cn.closed || len(cn.queue) == 0 {
		return nil, false
	}
	fn := cn.queue[0]
	cn.queue[0] = nil
	cn.queue = cn.queue[1:]
	if len(cn.queue) == 0 {
		drain(cn.rfd)
	}
	return fn, true
}

// drain empties the non-blocking read end of a wakeup pipe.
func drain(fd int) {
	var b [64]byte
	for {
		n, err := unix.Read(fd, b[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// wait blocks until cn has a queued callback or is finalized. It reports
// false once cn is finalized.
func (c *Cluster) wait(cn *conn) bool {
	for {
		c.mu.Lock()
		closed, ready := cn.closed, len(cn.queue) > 0
		c.mu.Unlock()
		if closed {
			return false
		}
		if ready {
			return true
		}
		select {
		case <-cn.notify:
		case <-cn.done:
			return false
		}
	}
}

// dispatch runs queued callbacks with the lock released.
func (c *Cluster) dispatch(op string, raw uint64, flags corosync.DispatchFlags) corosync.CsError {
	c.mu.Lock()
	if code, ok := c.takeFailure(op); ok {
		c.mu.Unlock()
		return code
	}
	cn := c.conns[raw]
	c.mu.Unlock()
	if cn == nil {
		return corosync.CsErrBadHandle
	}

	switch flags {
	case corosync.DispatchOne:
		if !c.wait(cn) {
			return corosync.CsOK
		}
		if fn, ok := c.pop(cn); ok {
			fn()
		}
	case corosync.DispatchOneNonblocking:
		fn, ok := c.pop(cn)
		if !ok {
			return corosync.CsErrTryAgain
		}
		fn()
	case corosync.DispatchAll:
		for {
			fn, ok := c.pop(cn)
			if !ok {
				break
			}
			fn()
		}
	case corosync.DispatchBlocking:
		// Runs until the connection is finalized, from a callback or
		// another goroutine.
		for c.wait(cn) {
			if fn, ok := c.pop(cn); ok {
				fn()
			}
		}
	default:
		return corosync.CsErrInvalidParam
	}
	return corosync.CsOK
}

func (c *Cluster) fdGet(op string, raw uint64) (int, corosync.CsError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if code, ok := c.takeFailure(op); ok {
		return -1, code
	}
	cn := c.conns[raw]
	if cn == nil {
		return -1, corosync.CsErrBadHandle
	}
	return cn.rfd, corosync.CsOK
}

func (c *Cluster) ringMembers() []uint32 {
	ids := make([]uint32, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
