// services/usbc/controller.go
package usbc

import (
	"context"

	"typeccode-go/pd"
	"typeccode-go/typec"
	"typeccode-go/ucsi"
)

// Controller is the hardware interface a port controller driver
// implements. All port arguments are controller local indices, the
// wrapper owns the translation to global ports.
//
// Methods are called from the wrapper goroutine only, drivers do not
// need internal locking beyond what their bus transport requires.
type Controller interface {
	// WaitPortEvent blocks until the controller signals pending port
	// events, ctx cancellation or a transport fault.
	WaitPortEvent(ctx context.Context) error
	// ClearPortEvents returns and clears the port's pending events.
	ClearPortEvents(port pd.LocalPortID) (typec.PortEventKind, error)
	// GetPortStatus reads a fresh port status snapshot.
	GetPortStatus(port pd.LocalPortID) (typec.PortStatus, error)

	// EnableSinkPath switches the sink power path on or off.
	EnableSinkPath(port pd.LocalPortID, enable bool) error
	// SetMaxSinkVoltage limits sink contracts to maxMv, 0 clears the
	// limit. The controller renegotiates if the active contract
	// violates the new limit.
	SetMaxSinkVoltage(port pd.LocalPortID, maxMv uint16) error
	// SetUnconstrainedPower updates the unconstrained bit advertised
	// in our source capabilities.
	SetUnconstrainedPower(port pd.LocalPortID, unconstrained bool) error
	// ClearDeadBatteryFlag leaves dead battery boot mode.
	ClearDeadBatteryFlag(port pd.LocalPortID) error

	// GetPdAlert pops the oldest received alert, nil when none.
	GetPdAlert(port pd.LocalPortID) (*pd.Ado, error)
	// GetOtherVdm reads the last received non-attention VDM.
	GetOtherVdm(port pd.LocalPortID) (pd.Vdm, error)
	// GetAttnVdm reads the last received attention VDM.
	GetAttnVdm(port pd.LocalPortID) (pd.Vdm, error)
	// SendVdm transmits a VDM to the port partner.
	SendVdm(port pd.LocalPortID, vdm pd.Vdm) error

	// GetDpStatus reads the DisplayPort alt mode status.
	GetDpStatus(port pd.LocalPortID) (pd.DpStatus, error)
	// SetDpConfig applies a DisplayPort alt mode configuration.
	SetDpConfig(port pd.LocalPortID, cfg pd.DpConfig) error

	// ExecuteDrst runs a data role swap reset on the port.
	ExecuteDrst(port pd.LocalPortID) error
	// ConnectorReset performs a UCSI connector reset.
	ConnectorReset(port pd.LocalPortID, reset ucsi.ResetType) error

	// Retimer firmware update gate and compliance controls.
	GetRetimerFwUpdateState(port pd.LocalPortID) (bool, error)
	SetRetimerFwUpdateState(port pd.LocalPortID) error
	ClearRetimerFwUpdateState(port pd.LocalPortID) error
	SetRetimerCompliance(port pd.LocalPortID) error
	ReconfigureRetimer(port pd.LocalPortID) error

	// ControllerStatus reads a controller level status snapshot.
	ControllerStatus() (typec.ControllerStatus, error)
	// Reset resets the controller chip.
	Reset() error
}
