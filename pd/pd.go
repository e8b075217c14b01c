// Package pd holds the base USB Power Delivery types shared by the
// controller drivers, the port wrappers and the Type-C service.
package pd

import "time"

// ControllerID identifies a PD controller chip.
type ControllerID uint8

// LocalPortID is a port index within a single controller (0..N-1).
type LocalPortID uint8

// GlobalPortID is a system-wide port index assigned at registration.
type GlobalPortID uint8

// MaxSupportedPorts bounds the global port namespace.
const MaxSupportedPorts = 4

// Source transition times after accepting a new sink contract.
// The source must be ready to supply power within these bounds
// (tSrcTransReq, USB PD r3.1).
const (
	TSrcTransReqSpr = 330 * time.Millisecond
	TSrcTransReqEpr = 1020 * time.Millisecond
)
