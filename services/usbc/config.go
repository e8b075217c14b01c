// services/usbc/config.go
package usbc

import (
	"typeccode-go/pd"
	"typeccode-go/typec"
	"typeccode-go/ucsi"
	"typeccode-go/x/mathx"
)

// Unconstrained sink reporting modes.
const (
	SinkAuto      = "auto"      // mirror the partner's unconstrained bit
	SinkThreshold = "threshold" // unconstrained when the offer reaches threshold_mw
	SinkNever     = "never"
)

// WrapperConfig tunes a single controller wrapper.
type WrapperConfig struct {
	UnconstrainedSink string `json:"unconstrained_sink"`
	ThresholdMw       uint32 `json:"threshold_mw"`
	AlertQueueLen     int    `json:"alert_queue_len"`
}

// Validate normalises zero values and rejects nonsense.
func (c *WrapperConfig) Validate() error {
	if c.UnconstrainedSink == "" {
		c.UnconstrainedSink = SinkAuto
	}
	switch c.UnconstrainedSink {
	case SinkAuto, SinkNever:
	case SinkThreshold:
		if c.ThresholdMw == 0 {
			return pd.ErrInvalidParams
		}
	default:
		return pd.ErrInvalidParams
	}
	if c.AlertQueueLen == 0 {
		c.AlertQueueLen = 4
	}
	c.AlertQueueLen = mathx.Clamp(c.AlertQueueLen, 1, 16)
	return nil
}

// offerUnconstrained decides the unconstrained bit reported to the
// power policy for a consumer offer taken from status.
func (c *WrapperConfig) offerUnconstrained(status typec.PortStatus) bool {
	switch c.UnconstrainedSink {
	case SinkThreshold:
		cap := status.AvailableSinkContract
		return cap != nil && cap.MilliWatts() >= c.ThresholdMw
	case SinkNever:
		return false
	default:
		return status.UnconstrainedPower
	}
}

// Config holds the Type-C service configuration.
type Config struct {
	// Capability is reported for the UCSI GET_CAPABILITY command.
	// NumConnectors is overwritten from the live registry.
	Capability ucsi.Capability `json:"capability"`
	// PortCapabilities overrides GET_CONNECTOR_CAPABILITY per global
	// port. Ports beyond the slice get DefaultConnectorCapability.
	PortCapabilities []ucsi.ConnectorCapability `json:"port_capabilities,omitempty"`
}

// DefaultCapability mirrors what the stock firmware reports.
func DefaultCapability() ucsi.Capability {
	return ucsi.Capability{
		Attributes:             0x00004044,
		OptionalFeatures:       0x0000be,
		NumAltModes:            1,
		BcdBatteryChargingSpec: 0x0120,
		BcdUsbPdSpec:           0x0300,
		BcdTypeCSpec:           0x0120,
	}
}

// DefaultConnectorCapability describes a dual role data, dual role
// power connector capable of all four swap directions.
func DefaultConnectorCapability() ucsi.ConnectorCapability {
	return ucsi.ConnectorCapability{
		OperationMode: ucsi.OpModeRpOnly | ucsi.OpModeRdOnly | ucsi.OpModeDrp,
		Provider:      true,
		Consumer:      true,
		SwapToDfp:     true,
		SwapToUfp:     true,
		SwapToSrc:     true,
		SwapToSnk:     true,
	}
}

// ConnectorCapability resolves the capability reported for port.
func (c *Config) ConnectorCapability(port pd.GlobalPortID) ucsi.ConnectorCapability {
	if int(port) < len(c.PortCapabilities) {
		return c.PortCapabilities[port]
	}
	return DefaultConnectorCapability()
}

// Validate fills capability defaults when the config is empty.
func (c *Config) Validate() error {
	zero := ucsi.Capability{}
	if c.Capability == zero {
		c.Capability = DefaultCapability()
	}
	return nil
}
