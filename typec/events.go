package typec

import "typeccode-go/pd"

// PortEventKind is a bitset of independent per-port conditions. The
// low half carries status changes that warrant a fresh port status,
// the high half carries one-shot notifications.
type PortEventKind uint32

const (
	EventPlugInsertedOrRemoved PortEventKind = 1 << iota
	EventNewPowerContractAsConsumer
	EventNewPowerContractAsProvider
	EventPowerSwapCompleted
	EventDataSwapCompleted
	EventAltModeEntered
	EventPdHardReset
	EventSinkReady
)

const (
	EventCustomModeEntered PortEventKind = 1 << (16 + iota)
	EventCustomModeExited
	EventOtherVdmReceived
	EventAttentionReceived
	EventDiscoverModeCompleted
	EventDpStatusUpdate
	EventPdAlert
)

const (
	statusEventMask       PortEventKind = 0x0000ffff
	notificationEventMask PortEventKind = 0xffff0000
)

func (e PortEventKind) Has(flag PortEventKind) bool { return e&flag != 0 }

func (e PortEventKind) None() bool { return e == 0 }

// StatusChanged returns the status change subset of the events.
func (e PortEventKind) StatusChanged() PortEventKind { return e & statusEventMask }

// Notifications returns the notification subset of the events.
func (e PortEventKind) Notifications() PortEventKind { return e & notificationEventMask }

var eventNames = []struct {
	bit  PortEventKind
	name string
}{
	{EventPlugInsertedOrRemoved, "plug"},
	{EventNewPowerContractAsConsumer, "consumer_contract"},
	{EventNewPowerContractAsProvider, "provider_contract"},
	{EventPowerSwapCompleted, "power_swap"},
	{EventDataSwapCompleted, "data_swap"},
	{EventAltModeEntered, "alt_mode"},
	{EventPdHardReset, "pd_hard_reset"},
	{EventSinkReady, "sink_ready"},
	{EventCustomModeEntered, "custom_mode_entered"},
	{EventCustomModeExited, "custom_mode_exited"},
	{EventOtherVdmReceived, "other_vdm"},
	{EventAttentionReceived, "attention_vdm"},
	{EventDiscoverModeCompleted, "discover_mode"},
	{EventDpStatusUpdate, "dp_status"},
	{EventPdAlert, "pd_alert"},
}

// Names returns the set event names, for logs and console output.
func (e PortEventKind) Names() []string {
	var out []string
	for _, n := range eventNames {
		if e.Has(n.bit) {
			out = append(out, n.name)
		}
	}
	return out
}

// PortPending is a bitmap of global ports with at least one pending
// event.
type PortPending uint32

func (p *PortPending) Pend(port pd.GlobalPortID) { *p |= 1 << port }

func (p *PortPending) ClearPort(port pd.GlobalPortID) { *p &^= 1 << port }

func (p PortPending) IsPending(port pd.GlobalPortID) bool { return p&(1<<port) != 0 }

func (p PortPending) None() bool { return p == 0 }

// Union merges another pending set into p.
func (p *PortPending) Union(other PortPending) { *p |= other }

// Lowest returns the lowest pending port.
func (p PortPending) Lowest() (pd.GlobalPortID, bool) {
	return p.LowestFrom(0)
}

// LowestFrom returns the lowest pending port at or above from.
func (p PortPending) LowestFrom(from pd.GlobalPortID) (pd.GlobalPortID, bool) {
	for i := int(from); i < 32; i++ {
		if p&(1<<i) != 0 {
			return pd.GlobalPortID(i), true
		}
	}
	return 0, false
}
