package backend

import "sync/atomic"

type factories struct {
	cfg func() (CfgEngine, error)
	cpg func() (CpgEngine, error)
}

var override atomic.Pointer[factories]

// NewCfg returns the libcfg engine, or the installed override.
func NewCfg() (CfgEngine, error) {
	if f := override.Load(); f != nil && f.cfg != nil {
		return f.cfg()
	}
	return openCfg()
}

// NewCpg returns the libcpg engine, or the installed override.
func NewCpg() (CpgEngine, error) {
	if f := override.Load(); f != nil && f.cpg != nil {
		return f.cpg()
	}
	return openCpg()
}

// Override makes NewCfg and NewCpg call the given constructors instead of
// the native ones. A nil constructor keeps the native engine for that
// subsystem. The returned function restores the previous state.
func Override(cfg func() (CfgEngine, error), cpg func() (CpgEngine, error)) (restore func()) {
	prev := override.Swap(&factories{cfg: cfg, cpg: cpg})
	return func() { override.Store(prev) }
}
