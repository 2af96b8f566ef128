// Package backend hosts the thin cgo layer that links the Go API to libcpg
// and libcfg.
//
// The package has three parts:
//
//   - Go mirrors of the native structures (CpgName, CpgAddress,
//     CfgNodeStatusV1, ...) plus the fixed-buffer text conversions, which
//     compile everywhere.
//   - The handle Registry the subsystem packages use to route callbacks.
//   - The CfgEngine and CpgEngine implementations. The real ones live behind
//     the "linux && cgo && corosync" build constraint; every other build gets
//     stubs that report corosync.ErrNotBuilt. Override redirects NewCfg
//     and NewCpg to other engines, such as the in-memory ones used by
//     corosynctest.
//
// Native callbacks enter through C trampolines in trampolines.c, are copied
// into mirrors by the //export functions and handed to the CfgCallbacks or
// CpgCallbacks registered at initialize time. Nothing in this package holds a
// lock while native code runs.
package backend
