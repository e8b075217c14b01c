package ucsi

// NotificationEnable is the SET_NOTIFICATION_ENABLE bitmap. Bit
// positions match ConnectorStatusChange so enabled-change filtering is
// a plain mask.
type NotificationEnable uint16

const (
	NotifyCmdComplete                NotificationEnable = 1 << 0
	NotifyExternalSupplyChange       NotificationEnable = 1 << 1
	NotifyPowerOpModeChange          NotificationEnable = 1 << 2
	NotifyAttention                  NotificationEnable = 1 << 3
	NotifyProviderCapabilityChange   NotificationEnable = 1 << 5
	NotifyNegotiatedPowerLevelChange NotificationEnable = 1 << 6
	NotifyPdResetComplete            NotificationEnable = 1 << 7
	NotifySupportedCamChange         NotificationEnable = 1 << 8
	NotifyBatteryChargingChange      NotificationEnable = 1 << 9
	NotifyConnectorPartnerChange     NotificationEnable = 1 << 11
	NotifyPowerDirectionChange       NotificationEnable = 1 << 12
	NotifyConnectChange              NotificationEnable = 1 << 14
	NotifyError                      NotificationEnable = 1 << 15
)

func (n NotificationEnable) Has(flag NotificationEnable) bool { return n&flag != 0 }

func (n NotificationEnable) None() bool { return n == 0 }

// ConnectorStatusChange accumulates per-connector status change bits
// as reported in GET_CONNECTOR_STATUS.
type ConnectorStatusChange uint16

const (
	StatusExternalSupplyChange       ConnectorStatusChange = 1 << 1
	StatusPowerOpModeChange          ConnectorStatusChange = 1 << 2
	StatusAttention                  ConnectorStatusChange = 1 << 3
	StatusProviderCapabilityChange   ConnectorStatusChange = 1 << 5
	StatusNegotiatedPowerLevelChange ConnectorStatusChange = 1 << 6
	StatusPdResetComplete            ConnectorStatusChange = 1 << 7
	StatusSupportedCamChange         ConnectorStatusChange = 1 << 8
	StatusBatteryChargingChange      ConnectorStatusChange = 1 << 9
	StatusConnectorPartnerChange     ConnectorStatusChange = 1 << 11
	StatusPowerDirectionChange       ConnectorStatusChange = 1 << 12
	StatusConnectChange              ConnectorStatusChange = 1 << 14
	StatusError                      ConnectorStatusChange = 1 << 15
)

func (c ConnectorStatusChange) Has(flag ConnectorStatusChange) bool { return c&flag != 0 }

func (c ConnectorStatusChange) None() bool { return c == 0 }

// FilterEnabled drops change bits whose notification is not enabled.
func (c ConnectorStatusChange) FilterEnabled(enabled NotificationEnable) ConnectorStatusChange {
	return c & ConnectorStatusChange(enabled)
}

var statusChangeNames = []struct {
	bit  ConnectorStatusChange
	name string
}{
	{StatusExternalSupplyChange, "external_supply"},
	{StatusPowerOpModeChange, "power_op_mode"},
	{StatusAttention, "attention"},
	{StatusProviderCapabilityChange, "provider_caps"},
	{StatusNegotiatedPowerLevelChange, "negotiated_power_level"},
	{StatusPdResetComplete, "pd_reset_complete"},
	{StatusSupportedCamChange, "supported_cam"},
	{StatusBatteryChargingChange, "battery_charging"},
	{StatusConnectorPartnerChange, "connector_partner"},
	{StatusPowerDirectionChange, "power_direction"},
	{StatusConnectChange, "connect"},
	{StatusError, "error"},
}

// Names returns the set change names, for logs and console output.
func (c ConnectorStatusChange) Names() []string {
	var out []string
	for _, n := range statusChangeNames {
		if c.Has(n.bit) {
			out = append(out, n.name)
		}
	}
	return out
}

// ParseNotification maps a console name back to its enable bit.
func ParseNotification(name string) (NotificationEnable, bool) {
	if name == "cmd_complete" {
		return NotifyCmdComplete, true
	}
	for _, n := range statusChangeNames {
		if n.name == name {
			return NotificationEnable(n.bit), true
		}
	}
	return 0, false
}
