package tps6699x

import (
	"typeccode-go/pd"
	"typeccode-go/typec"
)

// Little-endian codec helpers.

func leU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putLeU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Fixed supply PDO fields (USB PD r3.1, 6.4.1.2).

const (
	pdoKindMask      = 0x3 << 30
	pdoKindFixed     = 0x0 << 30
	pdoUnconstrained = 1 << 27
)

func pdoIsFixed(pdo uint32) bool { return pdo&pdoKindMask == pdoKindFixed }

// decodeFixedPdo extracts voltage and maximum current of a fixed
// supply PDO. 50 mV and 10 mA units.
func decodeFixedPdo(pdo uint32) pd.PowerCapability {
	return pd.PowerCapability{
		VoltageMv: uint16((pdo >> 10 & 0x3FF) * 50),
		CurrentMa: uint16((pdo & 0x3FF) * 10),
	}
}

// Event word to port event mapping, ordered by bit position.
var eventMap = []struct {
	bit EventBits
	ev  typec.PortEventKind
}{
	{EvtPdHardReset, typec.EventPdHardReset},
	{EvtPlugEvent, typec.EventPlugInsertedOrRemoved},
	{EvtPowerSwapDone, typec.EventPowerSwapCompleted},
	{EvtDataSwapDone, typec.EventDataSwapCompleted},
	{EvtSinkTransitionDone, typec.EventSinkReady},
	{EvtNewConsumerContract, typec.EventNewPowerContractAsConsumer},
	{EvtNewProviderContract, typec.EventNewPowerContractAsProvider},
	{EvtAltModeEntered, typec.EventAltModeEntered},
	{EvtPdAlert, typec.EventPdAlert},
	{EvtAttentionVdm, typec.EventAttentionReceived},
	{EvtOtherVdm, typec.EventOtherVdmReceived},
	{EvtDpStatus, typec.EventDpStatusUpdate},
	{EvtCustomModeEntered, typec.EventCustomModeEntered},
	{EvtCustomModeExited, typec.EventCustomModeExited},
	{EvtDiscoverModeDone, typec.EventDiscoverModeCompleted},
}

// allEvents is the interrupt mask the driver programs: every decoded
// event, command completion excluded (polled through CMD1).
var allEvents = func() EventBits {
	var out EventBits
	for _, m := range eventMap {
		out |= m.bit
	}
	return out
}()

// PortEvents maps chip event bits to the subsystem's port events.
func (b EventBits) PortEvents() typec.PortEventKind {
	var out typec.PortEventKind
	for _, m := range eventMap {
		if b.Has(m.bit) {
			out |= m.ev
		}
	}
	return out
}
