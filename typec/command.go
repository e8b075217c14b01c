package typec

import (
	"typeccode-go/pd"
	"typeccode-go/ucsi"
)

// Command is a request sent to a controller wrapper through its
// registry device.
type Command interface{ isCommand() }

// Response is the wrapper's reply to a Command.
type Response interface{ isResponse() }

// ControllerOp selects a controller scoped operation.
type ControllerOp uint8

const (
	// OpControllerStatus reads the controller status.
	OpControllerStatus ControllerOp = iota
	// OpControllerSyncState re-derives wrapper state from hardware.
	OpControllerSyncState
	// OpControllerReset resets the controller chip.
	OpControllerReset
)

// ControllerCommand addresses the controller as a whole.
type ControllerCommand struct {
	Op ControllerOp
}

// ControllerResponse answers a ControllerCommand.
type ControllerResponse struct {
	Err    error
	Status ControllerStatus
}

// PortOp selects a port scoped operation.
type PortOp uint8

const (
	// OpPortStatus reads the port status. Cached selects the
	// wrapper's snapshot instead of a hardware read.
	OpPortStatus PortOp = iota
	// OpClearEvents returns and clears the port's pending events.
	OpClearEvents
	// OpGetPdAlert pops the oldest pending PD alert, if any.
	OpGetPdAlert
	// OpSetMaxSinkVoltage limits sink contracts to MaxVoltageMv,
	// 0 clears the limit.
	OpSetMaxSinkVoltage
	// OpSetUnconstrainedPower advertises unconstrained power.
	OpSetUnconstrainedPower
	// OpClearDeadBatteryFlag leaves dead battery boot mode.
	OpClearDeadBatteryFlag
	// OpGetOtherVdm reads the last received non-attention VDM.
	OpGetOtherVdm
	// OpGetAttnVdm reads the last received attention VDM.
	OpGetAttnVdm
	// OpSendVdm transmits a VDM to the partner.
	OpSendVdm
	// OpGetDpStatus reads the DisplayPort alt mode status.
	OpGetDpStatus
	// OpSetDpConfig applies a DisplayPort alt mode configuration.
	OpSetDpConfig
	// OpExecuteDrst runs a data role swap reset.
	OpExecuteDrst
	// OpGetRetimerFwUpdateState reads the retimer update gate.
	OpGetRetimerFwUpdateState
	// OpSetRetimerFwUpdateState opens the retimer update gate.
	OpSetRetimerFwUpdateState
	// OpClearRetimerFwUpdateState closes the retimer update gate.
	OpClearRetimerFwUpdateState
	// OpSetRetimerCompliance puts the retimer in compliance mode.
	OpSetRetimerCompliance
	// OpReconfigureRetimer re-runs retimer configuration.
	OpReconfigureRetimer
)

// PortCommand addresses one port of the wrapper's controller. Port is
// a global port id, the wrapper translates to its local index.
type PortCommand struct {
	Port pd.GlobalPortID
	Op   PortOp

	// Cached applies to OpPortStatus.
	Cached bool
	// MaxVoltageMv applies to OpSetMaxSinkVoltage.
	MaxVoltageMv uint16
	// Unconstrained applies to OpSetUnconstrainedPower.
	Unconstrained bool
	// Vdm applies to OpSendVdm.
	Vdm pd.Vdm
	// DpConfig applies to OpSetDpConfig.
	DpConfig pd.DpConfig
}

// PortResponse answers a PortCommand. Only the field matching the
// command's op is meaningful.
type PortResponse struct {
	Err error

	Status          PortStatus
	Events          PortEventKind
	Alert           *pd.Ado
	Vdm             pd.Vdm
	DpStatus        pd.DpStatus
	RetimerFwUpdate bool
}

// LpmCommand carries a connector scoped UCSI command to the wrapper.
type LpmCommand struct {
	Cmd ucsi.Command
}

// LpmResponse answers an LpmCommand.
type LpmResponse struct {
	Err error
}

func (ControllerCommand) isCommand() {}

func (PortCommand) isCommand() {}

func (LpmCommand) isCommand() {}

func (ControllerResponse) isResponse() {}

func (PortResponse) isResponse() {}

func (LpmResponse) isResponse() {}

// PortErr builds a failed port response.
func PortErr(err error) PortResponse { return PortResponse{Err: pd.AsPd(err)} }
