// Package policy arbitrates system power among attached ports. Each
// port registers a device that reports attach state and offered sink
// capabilities, the engine connects the best offer and broadcasts the
// unconstrained power situation on the bus.
package policy

import (
	"typeccode-go/bus"
	"typeccode-go/pd"
)

// ID identifies a power device, by convention the global port id.
type ID uint8

// StateKind is a power device's connection state.
type StateKind uint8

const (
	// Detached has no partner attached.
	Detached StateKind = iota
	// Idle is attached with no active contract.
	Idle
	// ConnectedConsumer is drawing power from the partner.
	ConnectedConsumer
	// ConnectedProvider is supplying power to the partner.
	ConnectedProvider
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case ConnectedConsumer:
		return "connected_consumer"
	case ConnectedProvider:
		return "connected_provider"
	default:
		return "detached"
	}
}

// ConsumerPowerCapability is a partner's offer to power us.
type ConsumerPowerCapability struct {
	Capability pd.PowerCapability `json:"capability"`
	// Unconstrained is true when the offer counts as unconstrained
	// power for platform policy.
	Unconstrained bool `json:"unconstrained"`
}

// TopicUnconstrained carries the retained types.UnconstrainedMessage
// broadcast.
func TopicUnconstrained() bus.Topic {
	return bus.T("power", "policy", "unconstrained")
}
