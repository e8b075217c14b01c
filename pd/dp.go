package pd

// DpStatus mirrors the DisplayPort alt mode status VDO.
type DpStatus uint32

func (s DpStatus) DfpdConnected() bool { return s&(1<<0) != 0 }

func (s DpStatus) UfpdConnected() bool { return s&(1<<1) != 0 }

func (s DpStatus) PowerLow() bool { return s&(1<<2) != 0 }

func (s DpStatus) Enabled() bool { return s&(1<<3) != 0 }

func (s DpStatus) MultiFunction() bool { return s&(1<<4) != 0 }

func (s DpStatus) HpdState() bool { return s&(1<<7) != 0 }

func (s DpStatus) IrqHpd() bool { return s&(1<<8) != 0 }

// DpPinAssignment selects the DP alt mode pin configuration.
type DpPinAssignment uint8

const (
	DpPinNone DpPinAssignment = iota
	DpPinC
	DpPinD
	DpPinE
)

func (p DpPinAssignment) String() string {
	switch p {
	case DpPinC:
		return "C"
	case DpPinD:
		return "D"
	case DpPinE:
		return "E"
	default:
		return "none"
	}
}

// DpConfig selects the desired DisplayPort alt mode configuration.
type DpConfig struct {
	Enable        bool
	PinAssignment DpPinAssignment
	// UfpD requests the UFP_D role instead of DFP_D.
	UfpD bool
}
