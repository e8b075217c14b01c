package ltc4015

const (
	// 7-bit I2C address (1101_000b).
	AddressDefault = 0x68

	// SMBus Alert Response Address. A device holding SMBALERT low
	// answers a read here with its own 8-bit read address.
	araAddress = 0x0C

	// --- Register sub-addresses (16-bit word registers) ---

	// Config / control
	regConfigBits      = 0x14 // R/W
	regIinLimitSetting = 0x15 // R/W, (code+1)*500 µV across RSNSI
	regVinUvclSetting  = 0x16 // R/W, (code+1)*4.6875 mV
	regIChargeTarget   = 0x1A // R/W, (code+1)*1 mV across RSNSB

	// Readouts / status
	regChargerState = 0x34 // R
	regChargeStatus = 0x35 // R
	regSystemStatus = 0x39 // R
	regVBAT         = 0x3A // R
	regVIN          = 0x3B // R
	regVSYS         = 0x3C // R
	regIBAT         = 0x3D // R
	regIIN          = 0x3E // R
	regDieTemp      = 0x3F // R
	regChemCells    = 0x43 // R, chem code bits 11:8, cell count bits 3:0
	regMeasSysValid = 0x4A // R, bit0
)

// ConfigBits is the CONFIG_BITS register (0x14).
type ConfigBits uint16

const (
	CfgEnQCount       ConfigBits = 1 << 2
	CfgMpptEnI2C      ConfigBits = 1 << 3
	CfgForceMeasSysOn ConfigBits = 1 << 4
	CfgRunBSR         ConfigBits = 1 << 5
	CfgSuspendCharger ConfigBits = 1 << 8
)

func (b ConfigBits) Has(flag ConfigBits) bool { return b&flag != 0 }

// ChargerState is the CHARGER_STATE readout (0x34). At most one bit is
// set at a time.
type ChargerState uint16

const (
	StateBatShortFault      ChargerState = 1 << 0
	StateBatMissingFault    ChargerState = 1 << 1
	StateMaxChargeTimeFault ChargerState = 1 << 2
	StateCOverXTerm         ChargerState = 1 << 3
	StateTimerTerm          ChargerState = 1 << 4
	StateNtcPause           ChargerState = 1 << 5
	StateCcCvCharge         ChargerState = 1 << 6
	StatePrecharge          ChargerState = 1 << 7
	StateChargerSuspended   ChargerState = 1 << 8
	StateAbsorbCharge       ChargerState = 1 << 9
	StateEqualizeCharge     ChargerState = 1 << 10
)

func (s ChargerState) Has(flag ChargerState) bool { return s&flag != 0 }

// Charging reports whether an active charge phase is running.
func (s ChargerState) Charging() bool {
	return s&(StatePrecharge|StateCcCvCharge|StateAbsorbCharge|StateEqualizeCharge) != 0
}

// Faulted reports battery faults that stop charging.
func (s ChargerState) Faulted() bool {
	return s&(StateBatShortFault|StateBatMissingFault|StateMaxChargeTimeFault) != 0
}

// ChargeStatus is the CHARGE_STATUS readout (0x35). Bits are only
// meaningful while a charge phase is active.
type ChargeStatus uint16

const (
	StatusConstantVoltage ChargeStatus = 1 << 0
	StatusConstantCurrent ChargeStatus = 1 << 1
	StatusIinLimitActive  ChargeStatus = 1 << 2
	StatusVinUvclActive   ChargeStatus = 1 << 3
)

func (s ChargeStatus) Has(flag ChargeStatus) bool { return s&flag != 0 }

// SystemStatus is the SYSTEM_STATUS readout (0x39).
type SystemStatus uint16

const (
	SysIntVccGt2p8V    SystemStatus = 1 << 0
	SysIntVccGt4p3V    SystemStatus = 1 << 1
	SysVinGtVbat       SystemStatus = 1 << 2
	SysVinOvlo         SystemStatus = 1 << 3
	SysThermalShutdown SystemStatus = 1 << 4
	SysNoRt            SystemStatus = 1 << 5
	SysOkToCharge      SystemStatus = 1 << 6
	SysCellCountError  SystemStatus = 1 << 8
	SysDrvccGood       SystemStatus = 1 << 9
	SysEqualizeReq     SystemStatus = 1 << 10
	SysMpptEnPin       SystemStatus = 1 << 11
	SysChargerEnabled  SystemStatus = 1 << 13
)

func (s SystemStatus) Has(flag SystemStatus) bool { return s&flag != 0 }
