package backend

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Native buffer and array bounds from cpg.h and cfg.h.
const (
	CpgNameLenMax = 128 // CPG_MAX_NAME_LENGTH, terminator included
	CpgMembersMax = 128 // CPG_MEMBERS_MAX
	CfgMaxLinks   = 8   // CFG_MAX_LINKS
	CfgMaxHostLen = 256 // CFG_MAX_HOST_LEN
)

var (
	// ErrTooLong reports text that does not fit its native buffer together
	// with the terminator.
	ErrTooLong = errors.New("text does not fit native buffer")

	// ErrEmbeddedNUL reports text containing a NUL byte, which the native
	// side would silently truncate.
	ErrEmbeddedNUL = errors.New("text contains NUL byte")
)

// CpgName mirrors struct cpg_name.
type CpgName struct {
	Length uint32
	Value  [CpgNameLenMax]byte
}

// NewCpgName converts s into a zero padded cpg_name.
func NewCpgName(s string) (CpgName, error) {
	var n CpgName
	if err := PutFixedString(n.Value[:], s); err != nil {
		return CpgName{}, err
	}
	n.Length = uint32(len(s))
	return n, nil
}

// String decodes the name. The declared length bounds the scan when it is
// plausible; the first NUL always ends it.
func (n *CpgName) String() string {
	buf := n.Value[:]
	if int(n.Length) < len(buf) {
		buf = buf[:n.Length]
	}
	return FixedString(buf)
}

// CpgAddress mirrors struct cpg_address.
type CpgAddress struct {
	NodeID uint32
	PID    uint32
	Reason uint32
}

// CpgRingID mirrors struct cpg_ring_id.
type CpgRingID struct {
	NodeID uint32
	Seq    uint64
}

// CpgIterationDescription mirrors struct cpg_iteration_description_t.
type CpgIterationDescription struct {
	Group  CpgName
	NodeID uint32
	PID    uint32
}

// KnetLinkStatusV1 mirrors struct corosync_knet_link_status_v1.
type KnetLinkStatusV1 struct {
	Enabled      uint8
	Connected    uint8
	DynConnected uint8
	MTU          uint32
	SrcIPAddr    [CfgMaxHostLen]byte
	DstIPAddr    [CfgMaxHostLen]byte
}

// CfgNodeStatusV1 mirrors struct corosync_cfg_node_status_v1.
type CfgNodeStatusV1 struct {
	Version    uint32
	NodeID     uint32
	Reachable  uint8
	Remote     uint8
	External   uint8
	OnwireMin  uint8
	OnwireMax  uint8
	OnwireVer  uint8
	LinkStatus [CfgMaxLinks]KnetLinkStatusV1
}

// Bool decodes a one byte native flag.
func Bool(b uint8) bool {
	return b != 0
}

// PutFixedString copies s into dst and zero fills the remainder. dst must
// keep room for the terminator.
func PutFixedString(dst []byte, s string) error {
	if len(s) > len(dst)-1 {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLong, len(s), len(dst)-1)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return ErrEmbeddedNUL
	}
	n := copy(dst, s)
	clear(dst[n:])
	return nil
}

// FixedString decodes a native text buffer up to the first NUL or the end of
// buf. Invalid UTF-8 is replaced rather than rejected.
func FixedString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return strings.ToValidUTF8(string(buf), "\uFFFD")
}
