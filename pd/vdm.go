package pd

// MaxVdmObjects is the most data objects a VDM can carry, header
// included.
const MaxVdmObjects = 7

// VdmHeader is the first data object of a vendor defined message.
type VdmHeader uint32

func (h VdmHeader) Svid() uint16 { return uint16(h >> 16) }

func (h VdmHeader) Structured() bool { return h&(1<<15) != 0 }

func (h VdmHeader) CommandType() uint8 { return uint8(h>>6) & 0x3 }

func (h VdmHeader) Command() uint8 { return uint8(h) & 0x1f }

// Structured VDM command types.
const (
	VdmCmdTypeInitiator uint8 = 0
	VdmCmdTypeAck       uint8 = 1
	VdmCmdTypeNak       uint8 = 2
	VdmCmdTypeBusy      uint8 = 3
)

// Structured VDM commands.
const (
	VdmCmdDiscoverIdentity uint8 = 1
	VdmCmdDiscoverSvids    uint8 = 2
	VdmCmdDiscoverModes    uint8 = 3
	VdmCmdEnterMode        uint8 = 4
	VdmCmdExitMode         uint8 = 5
	VdmCmdAttention        uint8 = 6
)

// Vdm is a vendor defined message. Objects[0] is the VDM header,
// Count is the number of valid objects.
type Vdm struct {
	Count   uint8
	Objects [MaxVdmObjects]uint32
}

// NewVdm builds a Vdm from raw data objects. Extra objects beyond
// MaxVdmObjects are dropped.
func NewVdm(objects ...uint32) Vdm {
	var v Vdm
	for _, o := range objects {
		if v.Count >= MaxVdmObjects {
			break
		}
		v.Objects[v.Count] = o
		v.Count++
	}
	return v
}

// Header returns the VDM header, or 0 for an empty message.
func (v Vdm) Header() VdmHeader {
	if v.Count == 0 {
		return 0
	}
	return VdmHeader(v.Objects[0])
}

func (v Vdm) None() bool { return v.Count == 0 }
