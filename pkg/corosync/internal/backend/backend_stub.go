//go:build !linux || !cgo || !corosync

package backend

import "github.com/corosync/corosync-go/pkg/corosync"

// Enumeration values as published in cpg.h and cfg.h. The cgo build takes
// them from the headers instead.
const (
	CpgModelV1                        uint32 = 1
	CpgModelV1DeliverInitialTotemConf uint32 = 0x01

	CpgTypeUnordered uint32 = 0
	CpgTypeFIFO      uint32 = 1
	CpgTypeAgreed    uint32 = 2
	CpgTypeSafe      uint32 = 3

	CpgReasonUndefined uint32 = 0
	CpgReasonJoin      uint32 = 1
	CpgReasonLeave     uint32 = 2
	CpgReasonNodeDown  uint32 = 3
	CpgReasonNodeUp    uint32 = 4
	CpgReasonProcDown  uint32 = 5

	CpgIterationNameOnly uint32 = 1
	CpgIterationOneGroup uint32 = 2
	CpgIterationAll      uint32 = 3

	CpgFlowControlDisabled uint32 = 0
	CpgFlowControlEnabled  uint32 = 1

	CfgShutdownFlagRequest    uint32 = 0
	CfgShutdownFlagRegardless uint32 = 1
	CfgShutdownFlagImmediate  uint32 = 2

	CfgShutdownReplyNo  uint32 = 0
	CfgShutdownReplyYes uint32 = 1

	CfgNodeStatusV1Version uint32 = 1
)

// openCfg reports that libcfg is not linked into this build.
func openCfg() (CfgEngine, error) {
	return nil, corosync.ErrNotBuilt
}

// openCpg reports that libcpg is not linked into this build.
func openCpg() (CpgEngine, error) {
	return nil, corosync.ErrNotBuilt
}
