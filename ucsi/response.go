package ucsi

// Response is the PPM's answer to one UCSI command.
type Response struct {
	// NotifyOpm asks the transport to raise the OPM notification
	// interrupt for this CCI.
	NotifyOpm bool
	Cci       Cci
	// Data is the typed response payload (Capability,
	// ConnectorCapability, ConnectorStatus), nil when the command
	// returns none.
	Data any
}

// ErrorStatus is the GET_ERROR_STATUS error details bitmap. It keeps
// the reason of the last failed command until the next failure
// overwrites it.
type ErrorStatus uint16

const (
	ErrorUnrecognizedCommand  ErrorStatus = 1 << 0
	ErrorNonExistentConnector ErrorStatus = 1 << 1
	ErrorInvalidParameters    ErrorStatus = 1 << 2
	ErrorIncompatiblePartner  ErrorStatus = 1 << 3
	ErrorCcCommunication      ErrorStatus = 1 << 4
	ErrorDeadBatteryContract  ErrorStatus = 1 << 5
	ErrorContractNegotiation  ErrorStatus = 1 << 6
)

// Register widths of the message-in payloads, per UCSI 1.2.
const (
	capabilityDataLen          = 16
	connectorCapabilityDataLen = 4
	connectorStatusDataLen     = 9
	errorStatusDataLen         = 2
)

// DataLen returns the wire length of a response payload for the CCI
// data length field.
func DataLen(data any) uint8 {
	switch data.(type) {
	case nil:
		return 0
	case Capability, *Capability:
		return capabilityDataLen
	case ConnectorCapability, *ConnectorCapability:
		return connectorCapabilityDataLen
	case ConnectorStatus, *ConnectorStatus:
		return connectorStatusDataLen
	case ErrorStatus, *ErrorStatus:
		return errorStatusDataLen
	default:
		return 0
	}
}
