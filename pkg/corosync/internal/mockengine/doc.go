// Package mockengine provides in-memory cfg and cpg engines for testing.
//
// A Cluster plays the part of the corosync daemon: it hands out raw handles,
// keeps process group membership, queues callbacks per connection and runs
// them from Dispatch on the caller's goroutine, the way the native libraries
// do. Each connection owns a non-blocking pipe whose read end is returned by
// FdGet and is readable exactly while callbacks are queued, so event loops
// can be exercised without a running daemon.
//
// # Usage
//
//	c := mockengine.New()
//	a := c.Cpg(1, 100) // node 1, pid 100
//	b := c.Cpg(2, 200) // node 2, pid 200
//
// Engines created from the same cluster see each other's joins and
// multicasts.
//
// # Failure injection
//
// FailNext makes the next call of a native operation, named as in the C
// API ("cpg_join", "cpg_iteration_finalize", ...), return the given status
// without side effects. Callbacks returns the callback set most recently
// registered with an engine, so tests can deliver callbacks for raw handles
// that were never initialized or are already finalized.
//
// # Limitations
//
//   - Single process; "nodes" are labels on engines
//   - No ordering guarantees beyond enqueue order, all guarantees behave alike
//   - Flow control is a settable flag
package mockengine
