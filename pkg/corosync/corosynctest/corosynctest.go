// Package corosynctest runs the cfg and cpg bindings against an in-memory
// cluster instead of a corosync daemon.
//
//	c := corosynctest.Start(t, 1, 100)
//	h, err := cpg.Initialize(handler) // connected to c as node 1, pid 100
//
// Start replaces the native engines for the whole process until the test
// ends, so tests using it must not run in parallel.
package corosynctest

import (
	"sync"
	"testing"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/cfg"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
	"github.com/corosync/corosync-go/pkg/corosync/internal/mockengine"
)

// Cluster is an in-memory corosync cluster.
type Cluster struct {
	c *mockengine.Cluster

	mu   sync.Mutex
	node uint32
	pid  uint32
}

// Kill records a KillNode request.
type Kill struct {
	Node   corosync.NodeID
	Reason string
}

// Start installs a new cluster for the duration of tb. Handles opened by
// cfg.Initialize and cpg.Initialize connect to it as node and pid.
func Start(tb testing.TB, node corosync.NodeID, pid uint32) *Cluster {
	tb.Helper()
	c := &Cluster{c: mockengine.New(), node: uint32(node), pid: pid}
	restore := backend.Override(
		func() (backend.CfgEngine, error) {
			node, _ := c.identity()
			return c.c.Cfg(node), nil
		},
		func() (backend.CpgEngine, error) {
			node, pid := c.identity()
			return c.c.Cpg(node, pid), nil
		},
	)
	tb.Cleanup(restore)
	return c
}

func (c *Cluster) identity() (uint32, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.node, c.pid
}

// As makes handles opened afterwards connect as node and pid. Handles that
// are already open keep their identity.
func (c *Cluster) As(node corosync.NodeID, pid uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.node, c.pid = uint32(node), pid
}

// FailNext makes the next call of op, named as in the C API, fail with code.
func (c *Cluster) FailNext(op string, code corosync.CsError) {
	c.c.FailNext(op, code)
}

// SuspendDeliveries makes McastJoined succeed without delivering anything
// until it is called again with false.
func (c *Cluster) SuspendDeliveries(suspend bool) {
	c.c.SuspendDeliveries(suspend)
}

// SetNodeStatus makes node known to NodeStatusGet. Link 0 is reported
// enabled and connected when reachable is true.
func (c *Cluster) SetNodeStatus(node corosync.NodeID, reachable bool) {
	st := backend.CfgNodeStatusV1{
		Version:   backend.CfgNodeStatusV1Version,
		NodeID:    uint32(node),
		OnwireMin: 2,
		OnwireMax: 3,
		OnwireVer: 3,
	}
	if reachable {
		st.Reachable = 1
		st.LinkStatus[0].Enabled = 1
		st.LinkStatus[0].Connected = 1
		st.LinkStatus[0].MTU = 1397
	}
	c.c.SetNodeStatus(uint32(node), st)
}

// OpenConns returns how many connections are open.
func (c *Cluster) OpenConns() int {
	return c.c.OpenConns()
}

// OpenIterations returns how many iteration cursors are open.
func (c *Cluster) OpenIterations() int {
	return c.c.OpenIterations()
}

// Killed returns the KillNode requests seen so far.
func (c *Cluster) Killed() []Kill {
	var out []Kill
	for _, k := range c.c.Killed() {
		out = append(out, Kill{Node: corosync.NodeID(k.NodeID), Reason: k.Reason})
	}
	return out
}

// Shutdowns returns the flags of every TryShutdown call.
func (c *Cluster) Shutdowns() []cfg.ShutdownFlags {
	var out []cfg.ShutdownFlags
	for _, v := range c.c.Shutdowns() {
		switch v {
		case backend.CfgShutdownFlagRegardless:
			out = append(out, cfg.ShutdownRegardless)
		case backend.CfgShutdownFlagImmediate:
			out = append(out, cfg.ShutdownImmediate)
		default:
			out = append(out, cfg.ShutdownRequest)
		}
	}
	return out
}

// Replies returns every ReplyToShutdown answer.
func (c *Cluster) Replies() []cfg.ShutdownReply {
	var out []cfg.ShutdownReply
	for _, v := range c.c.Replies() {
		if v == backend.CfgShutdownReplyYes {
			out = append(out, cfg.ShutdownReplyYes)
		} else {
			out = append(out, cfg.ShutdownReplyNo)
		}
	}
	return out
}

// Reloads returns how many times ReloadConfig was called.
func (c *Cluster) Reloads() int {
	return c.c.Reloads()
}

// LogReopens returns how many times ReopenLogFiles was called.
func (c *Cluster) LogReopens() int {
	return c.c.LogReopens()
}

// RingChange starts a new totem ring and notifies every connection that
// belongs to a group.
func (c *Cluster) RingChange() {
	c.c.RingChange()
}
