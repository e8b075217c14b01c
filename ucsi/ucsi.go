// Package ucsi implements the platform policy manager (PPM) side of
// the USB Type-C Connector System Software Interface: the wire level
// register layouts and the command acknowledge state machine that sits
// between the OPM driver and the port controllers.
package ucsi

import "typeccode-go/pd"

// CommandCode is a UCSI command opcode.
type CommandCode uint8

const (
	CodePpmReset               CommandCode = 0x01
	CodeCancel                 CommandCode = 0x02
	CodeConnectorReset         CommandCode = 0x03
	CodeAckCcCi                CommandCode = 0x04
	CodeSetNotificationEnable  CommandCode = 0x05
	CodeGetCapability          CommandCode = 0x06
	CodeGetConnectorCapability CommandCode = 0x07
	CodeGetConnectorStatus     CommandCode = 0x12
	CodeGetErrorStatus         CommandCode = 0x13
)

var codeNames = map[CommandCode]string{
	CodePpmReset:               "PPM_RESET",
	CodeCancel:                 "CANCEL",
	CodeConnectorReset:         "CONNECTOR_RESET",
	CodeAckCcCi:                "ACK_CC_CI",
	CodeSetNotificationEnable:  "SET_NOTIFICATION_ENABLE",
	CodeGetCapability:          "GET_CAPABILITY",
	CodeGetConnectorCapability: "GET_CONNECTOR_CAPABILITY",
	CodeGetConnectorStatus:     "GET_CONNECTOR_STATUS",
	CodeGetErrorStatus:         "GET_ERROR_STATUS",
}

func (c CommandCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "UNKNOWN"
}

// PpmScoped reports whether the command is handled entirely by the
// PPM without touching a specific connector.
func (c CommandCode) PpmScoped() bool {
	switch c {
	case CodePpmReset, CodeCancel, CodeAckCcCi, CodeSetNotificationEnable,
		CodeGetCapability, CodeGetErrorStatus:
		return true
	default:
		return false
	}
}

// Ack carries the ACK_CC_CI payload bits.
type Ack struct {
	// ConnectorChange acknowledges the currently indicated connector
	// change.
	ConnectorChange bool
	// CommandComplete acknowledges the last completed command.
	CommandComplete bool
}

// ResetType selects the CONNECTOR_RESET flavor.
type ResetType uint8

const (
	ResetHard ResetType = iota
	ResetData
)

func (r ResetType) String() string {
	if r == ResetData {
		return "data"
	}
	return "hard"
}

// Command is a decoded UCSI command. Port addresses connector scoped
// commands and is ignored for PPM scoped ones.
type Command struct {
	Code CommandCode
	Port pd.GlobalPortID

	// Ack is valid for CodeAckCcCi.
	Ack Ack
	// Enable is valid for CodeSetNotificationEnable.
	Enable NotificationEnable
	// Reset is valid for CodeConnectorReset.
	Reset ResetType
}
