package pd

// PowerCapability is a negotiated or offered power level.
type PowerCapability struct {
	VoltageMv uint16 `json:"voltage_mv"`
	CurrentMa uint16 `json:"current_ma"`
}

// MilliWatts returns the capability's power in mW.
func (c PowerCapability) MilliWatts() uint32 {
	return uint32(c.VoltageMv) * uint32(c.CurrentMa) / 1000
}

// Epr reports whether the capability needs extended power range
// signaling (above 20 V).
func (c PowerCapability) Epr() bool { return c.VoltageMv > 20000 }

// ContractRole is the local port's role in an explicit contract.
type ContractRole uint8

const (
	RoleNone ContractRole = iota
	RoleSink
	RoleSource
)

func (r ContractRole) String() string {
	switch r {
	case RoleSink:
		return "sink"
	case RoleSource:
		return "source"
	default:
		return "none"
	}
}

// Contract is an explicit PD power contract. Role is RoleNone when no
// contract is in place, in which case Capability is meaningless.
type Contract struct {
	Role       ContractRole    `json:"role"`
	Capability PowerCapability `json:"capability"`
}

// SinkContract builds a consumer-side contract.
func SinkContract(cap PowerCapability) Contract {
	return Contract{Role: RoleSink, Capability: cap}
}

// SourceContract builds a provider-side contract.
func SourceContract(cap PowerCapability) Contract {
	return Contract{Role: RoleSource, Capability: cap}
}

func (c Contract) None() bool { return c.Role == RoleNone }

func (c Contract) IsSink() bool { return c.Role == RoleSink }

func (c Contract) IsSource() bool { return c.Role == RoleSource }
