// Package tps6699x provides constants for the register map subset and
// 4CC command vocabulary of the TPS6699x USB PD controllers.
package tps6699x

const (
	// 7-bit I2C addresses of the two port instances (ADDR pin low).
	AddressPortA = 0x20
	AddressPortB = 0x24

	// --- Register IDs (block read/write protocol) ---

	// Controller scoped, any port address answers.
	regMode      = 0x03 // R, 4 ASCII bytes
	regCmd1      = 0x08 // R/W, 4CC command
	regData1     = 0x09 // R/W, command argument and result buffer
	regVersion   = 0x0F // R, 4 bytes
	regBootFlags = 0x2D // R, 4 bytes

	// Port scoped.
	regIntEvent     = 0x14 // R, 8 bytes
	regIntMask      = 0x16 // R/W, 8 bytes
	regIntClear     = 0x18 // W, 8 bytes, write 1 to clear
	regStatus       = 0x1A // R, 4 bytes
	regPortControl  = 0x29 // R/W, 4 bytes
	regRxSourceCaps = 0x30 // R, count byte + up to 7 PDOs
	regActivePdo    = 0x34 // R, 6 bytes, granted source PDO first
	regAutoSink     = 0x37 // R/W, 4 bytes, sink negotiation limits
	regPowerStatus  = 0x3F // R, 2 bytes
	regPdStatus     = 0x40 // R, 4 bytes
	regDpStatus     = 0x58 // R, 4 bytes, DP status VDO
	regDpConfig     = 0x59 // R/W, 4 bytes
	regRxAttnVdm    = 0x60 // R, count byte + VDOs, clears on read
	regRxOtherVdm   = 0x61 // R, count byte + VDOs, clears on read
	regRetimerCtl   = 0x64 // R/W, 4 bytes
	regRxAdo        = 0x74 // R, 4 bytes, clears on read
)

// Block transfer bounds. DATA1 is the largest register.
const (
	maxBlockLen = 64
	intEventLen = 8
)

// 4CC commands written to regCmd1. The register reads zero once the
// task has finished and cmdUnknown when the firmware does not know the
// command.
const (
	cmdReset             = "GAID"
	cmdDataReset         = "DRST"
	cmdHardReset         = "HRST"
	cmdSinkReady         = "SRDY"
	cmdSinkResign        = "SRYR"
	cmdRenegotiate       = "ANeg"
	cmdClearDeadBattery  = "DBfg"
	cmdSendVdm           = "VDMs"
	cmdRetimerCompliance = "RTCm"
	cmdRetimerReconfig   = "RTrc"
)

// cmdUnknown is regCmd1's little-endian "!CMD" answer.
const cmdUnknown = 0x444D4321

// Task return codes, first byte of regData1 after completion.
const (
	taskSuccess  = 0x00
	taskTimedOut = 0x01
	taskRejected = 0x03
)

// Status register fields.
type Status uint32

const (
	stPlugPresent   Status = 1 << 0
	stOrientation   Status = 1 << 4
	stSourcingPower Status = 1 << 5
	stDataRoleDfp   Status = 1 << 6
)

func (s Status) Has(flag Status) bool { return s&flag != 0 }

// ConnState returns the connection state field (bits 1..3).
func (s Status) ConnState() uint8 { return uint8(s>>1) & 0x7 }

// Connection state codes.
const (
	connNone  = 0
	connPort  = 1
	connDebug = 2
	connAudio = 3
)

// PowerStatus register fields.
type PowerStatus uint16

const (
	pwConnection PowerStatus = 1 << 0
	pwSinking    PowerStatus = 1 << 1
)

func (p PowerStatus) Has(flag PowerStatus) bool { return p&flag != 0 }

// PdStatus register fields.
type PdStatus uint32

const (
	pdExplicitContract PdStatus = 1 << 10
	pdEprMode          PdStatus = 1 << 11
)

func (p PdStatus) Has(flag PdStatus) bool { return p&flag != 0 }

// BootFlags register fields.
type BootFlags uint32

const (
	bfAppValid BootFlags = 1 << 0
	// Dead battery boot flags start here, one bit per port.
	bfDeadBatteryShift = 8
)

func (b BootFlags) Has(flag BootFlags) bool { return b&flag != 0 }

// PortControl register fields.
type PortControl uint32

const (
	ctlUnconstrained PortControl = 1 << 6
)

// RetimerCtl register fields.
type RetimerCtl uint32

const (
	rtFwUpdateMode RetimerCtl = 1 << 0
)

// AutoSink register fields (byte 2).
const autoSinkLimitEnable = 1 << 0

// EventBits is the low word of the interrupt event register.
type EventBits uint32

const (
	EvtPdHardReset         EventBits = 1 << 1
	EvtPlugEvent           EventBits = 1 << 3
	EvtPowerSwapDone       EventBits = 1 << 4
	EvtDataSwapDone        EventBits = 1 << 5
	EvtSinkTransitionDone  EventBits = 1 << 6
	EvtNewConsumerContract EventBits = 1 << 14
	EvtNewProviderContract EventBits = 1 << 15
	EvtAltModeEntered      EventBits = 1 << 17
	EvtPdAlert             EventBits = 1 << 20
	EvtAttentionVdm        EventBits = 1 << 21
	EvtOtherVdm            EventBits = 1 << 22
	EvtDpStatus            EventBits = 1 << 23
	EvtCustomModeEntered   EventBits = 1 << 24
	EvtCustomModeExited    EventBits = 1 << 25
	EvtDiscoverModeDone    EventBits = 1 << 26
	EvtCmdComplete         EventBits = 1 << 30
)

func (b EventBits) Has(flag EventBits) bool { return b&flag != 0 }
