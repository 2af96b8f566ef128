// Package cfg binds libcfg, the corosync configuration and control API.
//
// A Handle is a connection to the local corosync daemon. It can query the
// local node id and node status, reload the configuration, reopen log files,
// kill a node, and take part in the cluster shutdown protocol:
//
//	h, err := cfg.Initialize(cfg.ShutdownFunc(func(h *cfg.Handle, f cfg.ShutdownFlags) {
//	    _ = h.ReplyToShutdown(cfg.ShutdownReplyYes)
//	}))
//	if err != nil {
//	    return err
//	}
//	defer h.Finalize()
//
//	if err := h.TrackStart(cfg.TrackNone); err != nil {
//	    return err
//	}
//	for {
//	    if err := h.Dispatch(corosync.DispatchOne); err != nil {
//	        return err
//	    }
//	}
//
// Shutdown notifications run on the goroutine that calls Dispatch. Use
// FdGet with the loop package to integrate a handle into an event loop.
package cfg
