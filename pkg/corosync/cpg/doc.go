// Package cpg binds libcpg, the corosync closed process group API.
//
// A process joins named groups and multicasts messages to every member.
// The daemon delivers messages in the order selected by the Guarantee and
// reports membership changes; this package only moves data between Go and
// the native library.
//
// # Lifecycle
//
//	h, err := cpg.Initialize(cpg.HandlerFuncs{
//	    DeliverFunc: func(h *cpg.Handle, group string, node corosync.NodeID, pid uint32, msg []byte) {
//	        // msg is owned by the callee
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer h.Finalize()
//
//	if err := h.Join("example"); err != nil {
//	    return err
//	}
//	if err := h.McastJoined(cpg.GuaranteeAgreed, []byte("hello")); err != nil {
//	    return err
//	}
//	err = h.Dispatch(corosync.DispatchOne)
//
// Callbacks run on the goroutine that calls Dispatch, never concurrently for
// the same handle unless the caller dispatches from several goroutines.
//
// # Group names
//
// Names are at most CpgNameMax bytes and must not contain NUL bytes. Longer
// names fail with corosync.CsErrInvalidParam before reaching native code.
//
// # Iteration
//
// IterationStart returns an Iterator that owns a native cursor. The cursor is
// released exactly once: when the sequence ends, when Next fails, or on
// Close, whichever comes first.
//
//	it, err := h.IterationStart("", cpg.IterAll)
//	if err != nil {
//	    return err
//	}
//	for rec := range it.All() {
//	    fmt.Println(rec.Group, rec.NodeID, rec.PID)
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
package cpg
