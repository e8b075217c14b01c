package ucsi

// Capability is the GET_CAPABILITY response descriptor.
type Capability struct {
	Attributes             uint32 `json:"attributes"`
	NumConnectors          uint8  `json:"num_connectors"`
	OptionalFeatures       uint32 `json:"optional_features"`
	NumAltModes            uint8  `json:"num_alt_modes"`
	BcdBatteryChargingSpec uint16 `json:"bcd_battery_charging_spec"`
	BcdUsbPdSpec           uint16 `json:"bcd_usb_pd_spec"`
	BcdTypeCSpec           uint16 `json:"bcd_type_c_spec"`
}

// OperationModeFlags describes a connector's supported operation
// modes in GET_CONNECTOR_CAPABILITY.
type OperationModeFlags uint8

const (
	OpModeRpOnly         OperationModeFlags = 1 << 0
	OpModeRdOnly         OperationModeFlags = 1 << 1
	OpModeDrp            OperationModeFlags = 1 << 2
	OpModeAnalogAudio    OperationModeFlags = 1 << 3
	OpModeDebugAccessory OperationModeFlags = 1 << 4
	OpModeUsb2           OperationModeFlags = 1 << 5
	OpModeUsb3           OperationModeFlags = 1 << 6
	OpModeAltMode        OperationModeFlags = 1 << 7
)

func (m OperationModeFlags) Has(flag OperationModeFlags) bool { return m&flag != 0 }

// ConnectorCapability is the GET_CONNECTOR_CAPABILITY response.
type ConnectorCapability struct {
	OperationMode OperationModeFlags `json:"operation_mode"`
	Provider      bool               `json:"provider"`
	Consumer      bool               `json:"consumer"`
	SwapToDfp     bool               `json:"swap_to_dfp"`
	SwapToUfp     bool               `json:"swap_to_ufp"`
	SwapToSrc     bool               `json:"swap_to_src"`
	SwapToSnk     bool               `json:"swap_to_snk"`
}

// PowerOpMode is the connector's power operation mode in
// GET_CONNECTOR_STATUS.
type PowerOpMode uint8

const (
	OpModeNone        PowerOpMode = 0
	OpModeUsbDefault  PowerOpMode = 1
	OpModeBc          PowerOpMode = 2
	OpModePd          PowerOpMode = 3
	OpModeTypeC1500mA PowerOpMode = 4
	OpModeTypeC3000mA PowerOpMode = 5
)

func (m PowerOpMode) String() string {
	switch m {
	case OpModeUsbDefault:
		return "usb_default"
	case OpModeBc:
		return "bc"
	case OpModePd:
		return "pd"
	case OpModeTypeC1500mA:
		return "typec_1.5a"
	case OpModeTypeC3000mA:
		return "typec_3a"
	default:
		return "none"
	}
}

// ConnectorPartnerType classifies the attached partner.
type ConnectorPartnerType uint8

const (
	PartnerNone         ConnectorPartnerType = 0
	PartnerDfp          ConnectorPartnerType = 1
	PartnerUfp          ConnectorPartnerType = 2
	PartnerPoweredCable ConnectorPartnerType = 3
	PartnerPoweredNoUfp ConnectorPartnerType = 4
	PartnerDebugAcc     ConnectorPartnerType = 5
	PartnerAudioAdapter ConnectorPartnerType = 6
)

// ConnectorStatus is the GET_CONNECTOR_STATUS response.
type ConnectorStatus struct {
	StatusChange  ConnectorStatusChange `json:"status_change"`
	PowerOpMode   PowerOpMode           `json:"power_op_mode"`
	ConnectStatus bool                  `json:"connect_status"`

	// PowerDirection is true when the connector is sourcing power.
	PowerDirection bool                 `json:"power_direction"`
	PartnerType    ConnectorPartnerType `json:"partner_type"`

	// RequestDataObject is the raw RDO of the active contract, 0 when
	// no explicit contract is in place.
	RequestDataObject uint32 `json:"request_data_object"`
	BatteryCharging   bool   `json:"battery_charging"`
}
