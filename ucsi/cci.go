package ucsi

import "typeccode-go/pd"

// Cci is the decoded Command Complete Indicator register. The PPM
// writes it after every command and on asynchronous events, the OPM
// reads it to learn what happened.
type Cci struct {
	// ConnectorChange is the 1-based connector with an unacknowledged
	// change, 0 when none is indicated.
	ConnectorChange uint8
	// DataLen is the length in bytes of the response written to the
	// message-in region.
	DataLen uint8

	NotSupported  bool
	Cancelled     bool
	ResetComplete bool
	Busy          bool
	AckCommand    bool
	Error         bool
	CmdComplete   bool
}

// CCI register bit positions.
const (
	cciConnectorChangeShift = 1
	cciConnectorChangeMask  = 0x7f
	cciDataLenShift         = 8
	cciDataLenMask          = 0xff
	cciNotSupportedBit      = 1 << 25
	cciCancelCompleteBit    = 1 << 26
	cciResetCompleteBit     = 1 << 27
	cciBusyBit              = 1 << 28
	cciAckCommandBit        = 1 << 29
	cciErrorBit             = 1 << 30
	cciCmdCompleteBit       = 1 << 31
)

// NewErrorCci returns the CCI for a failed command. The error bit is
// raised together with command complete so the OPM can follow up with
// GET_ERROR_STATUS.
func NewErrorCci() Cci {
	return Cci{Error: true, CmdComplete: true}
}

// NewResetCompleteCci returns the CCI indicating a finished PPM_RESET.
func NewResetCompleteCci() Cci {
	return Cci{ResetComplete: true}
}

// NewBusyCci returns the CCI for a command received while another is
// still in flight.
func NewBusyCci() Cci {
	return Cci{Busy: true}
}

// SetConnectorChange stores a 0-based port as the register's 1-based
// connector change field.
func (c *Cci) SetConnectorChange(port pd.GlobalPortID) {
	c.ConnectorChange = uint8(port) + 1
}

// Encode packs the CCI into its 32-bit register layout.
func (c Cci) Encode() uint32 {
	raw := uint32(c.ConnectorChange&cciConnectorChangeMask) << cciConnectorChangeShift
	raw |= uint32(c.DataLen) << cciDataLenShift
	if c.NotSupported {
		raw |= cciNotSupportedBit
	}
	if c.Cancelled {
		raw |= cciCancelCompleteBit
	}
	if c.ResetComplete {
		raw |= cciResetCompleteBit
	}
	if c.Busy {
		raw |= cciBusyBit
	}
	if c.AckCommand {
		raw |= cciAckCommandBit
	}
	if c.Error {
		raw |= cciErrorBit
	}
	if c.CmdComplete {
		raw |= cciCmdCompleteBit
	}
	return raw
}

// DecodeCci unpacks a raw CCI register value.
func DecodeCci(raw uint32) Cci {
	return Cci{
		ConnectorChange: uint8(raw>>cciConnectorChangeShift) & cciConnectorChangeMask,
		DataLen:         uint8(raw >> cciDataLenShift),
		NotSupported:    raw&cciNotSupportedBit != 0,
		Cancelled:       raw&cciCancelCompleteBit != 0,
		ResetComplete:   raw&cciResetCompleteBit != 0,
		Busy:            raw&cciBusyBit != 0,
		AckCommand:      raw&cciAckCommandBit != 0,
		Error:           raw&cciErrorBit != 0,
		CmdComplete:     raw&cciCmdCompleteBit != 0,
	}
}
