// Package corosync holds the types shared by the corosync client bindings:
// node identifiers, dispatch flags and the cs_error_t result code taxonomy.
//
// The bindings themselves live in the subpackages:
//
//   - cfg: cluster configuration and control (shutdown, node status, logs)
//   - cpg: closed process groups (join, leave, multicast, membership)
//   - loop: integrates a handle's pollable descriptor with a context
//
// The native libraries are only linked when building with cgo on Linux and
// the "corosync" build tag:
//
//	go build -tags corosync ./...
//
// Without the tag every Initialize call fails with ErrNotBuilt, so
// downstream projects can compile and unit test without libcpg or libcfg
// installed.
//
// # Errors
//
// Every native result code is returned as a CsError wrapped in an OpError
// naming the native call. Use errors.Is against the CsError constants or
// ClassOf for the broader taxonomy:
//
//	if err := h.Join("test-group"); err != nil {
//	    if corosync.ClassOf(err) == corosync.ClassTryAgain {
//	        // back off and retry
//	    }
//	    return err
//	}
//
// The bindings never retry on their own.
package corosync
