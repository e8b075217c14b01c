package typec

import "typeccode-go/pd"

// PortStatus is a snapshot of one port's connection state as read
// from its controller.
type PortStatus struct {
	// Contract is the explicit PD contract, RoleNone when none.
	Contract pd.Contract `json:"contract"`
	// AvailableSinkContract is the capability the partner offers us as
	// a sink, nil when nothing is offered.
	AvailableSinkContract *pd.PowerCapability `json:"available_sink_contract,omitempty"`

	ConnectionPresent bool `json:"connection_present"`
	DebugConnection   bool `json:"debug_connection"`
	Epr               bool `json:"epr"`
	// UnconstrainedPower mirrors the partner source PDO's
	// unconstrained power bit.
	UnconstrainedPower bool `json:"unconstrained_power"`
}

// Connected reports a plugged, non-debug connection.
func (s PortStatus) Connected() bool {
	return s.ConnectionPresent && !s.DebugConnection
}

// DebugAccessory reports a plugged debug accessory connection.
func (s PortStatus) DebugAccessory() bool {
	return s.ConnectionPresent && s.DebugConnection
}

// ControllerMode is the firmware execution mode of a controller.
type ControllerMode uint8

const (
	ModeUnknown ControllerMode = iota
	ModeBoot
	ModeApp
)

func (m ControllerMode) String() string {
	switch m {
	case ModeBoot:
		return "boot"
	case ModeApp:
		return "app"
	default:
		return "unknown"
	}
}

// ControllerStatus is a controller level status snapshot.
type ControllerStatus struct {
	Mode        ControllerMode `json:"mode"`
	ValidFwBank bool           `json:"valid_fw_bank"`
	FwVersion   uint32         `json:"fw_version"`
	// DeadBattery flags ports that booted in dead battery mode.
	DeadBattery PortPending `json:"dead_battery"`
}
