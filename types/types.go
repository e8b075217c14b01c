// Package types defines the payloads services exchange over the bus.
// Everything here is JSON friendly so payloads can cross a transport
// unchanged.
package types

// ServiceState is the coarse lifecycle state a service publishes on
// its state topic.
type ServiceState string

const (
	StateBooting  ServiceState = "booting"
	StateReady    ServiceState = "ready"
	StateDegraded ServiceState = "degraded"
	StateError    ServiceState = "error"
)

// StateInfo is the retained payload of a service state topic.
type StateInfo struct {
	Service string       `json:"service"`
	State   ServiceState `json:"state"`
	Detail  string       `json:"detail,omitempty"`
	TS      int64        `json:"ts"`
}

// UcsiCciMessage announces an asynchronous CCI towards the OPM. Port
// is the 0-based global port whose connector change is indicated.
// NotifyOpm is false when the OPM asked for silent operation.
type UcsiCciMessage struct {
	Port      uint8 `json:"port"`
	NotifyOpm bool  `json:"notify_opm"`
	TS        int64 `json:"ts"`
}

// DebugAccessoryMessage announces a debug accessory plug change on a
// global port.
type DebugAccessoryMessage struct {
	Port      uint8 `json:"port"`
	Connected bool  `json:"connected"`
	TS        int64 `json:"ts"`
}

// PortNotificationMessage forwards a one-shot port notification
// (VDM attention, PD alert, alt mode changes) to bus listeners.
type PortNotificationMessage struct {
	Port  uint8    `json:"port"`
	Names []string `json:"names"`
	TS    int64    `json:"ts"`
}

// UnconstrainedMessage is the power policy's retained broadcast of
// the system's unconstrained power situation.
type UnconstrainedMessage struct {
	// Unconstrained is true while the active consumer contract comes
	// from an unconstrained source.
	Unconstrained bool `json:"unconstrained"`
	// Available counts attached partners currently offering
	// unconstrained power.
	Available int   `json:"available"`
	TS        int64 `json:"ts"`
}

// HeartbeatInfo is the periodic liveness payload.
type HeartbeatInfo struct {
	Service string `json:"service"`
	Seq     uint32 `json:"seq"`
	TS      int64  `json:"ts"`
}

// BatteryTelemetryMessage is the battery service's retained telemetry
// broadcast.
type BatteryTelemetryMessage struct {
	VbatMilliV int32 `json:"vbat_mv"`
	IbatMilliA int32 `json:"ibat_ma"`
	VinMilliV  int32 `json:"vin_mv"`
	DieMilliC  int32 `json:"die_mc"`
	Charging   bool  `json:"charging"`
	TS         int64 `json:"ts"`
}
