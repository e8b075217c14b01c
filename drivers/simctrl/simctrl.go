// drivers/simctrl/simctrl.go
//
// Package simctrl is a scripted in-memory port controller for host
// builds. Simulations and the interactive shell feed attach, contract
// and alert events through Push while the port wrapper drives the
// same interface it uses against real silicon.
package simctrl

import (
	"context"
	"sync"

	"typeccode-go/pd"
	"typeccode-go/typec"
	"typeccode-go/ucsi"
)

// Controller holds per port scripted state. All exported methods are
// safe for concurrent use, the script side and the wrapper goroutine
// run independently.
type Controller struct {
	mu     sync.Mutex
	signal chan struct{}
	fw     uint32

	events []typec.PortEventKind
	status []typec.PortStatus
	sink   []bool
	uncon  []bool
	alerts [][]pd.Ado
	resets int
}

// New creates a controller with the given port count reporting fw as
// its firmware version.
func New(ports int, fw uint32) *Controller {
	return &Controller{
		signal: make(chan struct{}, 8),
		fw:     fw,
		events: make([]typec.PortEventKind, ports),
		status: make([]typec.PortStatus, ports),
		sink:   make([]bool, ports),
		uncon:  make([]bool, ports),
		alerts: make([][]pd.Ado, ports),
	}
}

// Push merges ev into the port's pending events, replaces its status
// and wakes the wrapper.
func (c *Controller) Push(port int, ev typec.PortEventKind, status typec.PortStatus) {
	c.mu.Lock()
	c.events[port] |= ev
	c.status[port] = status
	c.mu.Unlock()
	c.signal <- struct{}{}
}

// PushAlert queues an alert and raises the PD alert event.
func (c *Controller) PushAlert(port int, ado pd.Ado) {
	c.mu.Lock()
	c.alerts[port] = append(c.alerts[port], ado)
	st := c.status[port]
	c.mu.Unlock()
	c.Push(port, typec.EventPdAlert, st)
}

// SinkEnabled reports the scripted sink path switch.
func (c *Controller) SinkEnabled(port int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink[port]
}

// Unconstrained reports the advertised unconstrained bit.
func (c *Controller) Unconstrained(port int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uncon[port]
}

// Resets reports how many chip resets the wrapper requested.
func (c *Controller) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

func (c *Controller) WaitPortEvent(ctx context.Context) error {
	select {
	case <-c.signal:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) ClearPortEvents(port pd.LocalPortID) (typec.PortEventKind, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev := c.events[port]
	c.events[port] = 0
	return ev, nil
}

func (c *Controller) GetPortStatus(port pd.LocalPortID) (typec.PortStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status[port], nil
}

func (c *Controller) EnableSinkPath(port pd.LocalPortID, enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink[port] = enable
	return nil
}

func (c *Controller) SetMaxSinkVoltage(pd.LocalPortID, uint16) error { return nil }

func (c *Controller) SetUnconstrainedPower(port pd.LocalPortID, unconstrained bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uncon[port] = unconstrained
	return nil
}

func (c *Controller) ClearDeadBatteryFlag(pd.LocalPortID) error { return nil }

func (c *Controller) GetPdAlert(port pd.LocalPortID) (*pd.Ado, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.alerts[port]) == 0 {
		return nil, nil
	}
	ado := c.alerts[port][0]
	c.alerts[port] = c.alerts[port][1:]
	return &ado, nil
}

func (c *Controller) GetOtherVdm(pd.LocalPortID) (pd.Vdm, error) { return pd.Vdm{}, nil }

func (c *Controller) GetAttnVdm(pd.LocalPortID) (pd.Vdm, error) { return pd.Vdm{}, nil }

func (c *Controller) SendVdm(pd.LocalPortID, pd.Vdm) error { return nil }

func (c *Controller) GetDpStatus(pd.LocalPortID) (pd.DpStatus, error) { return 0, nil }

func (c *Controller) SetDpConfig(pd.LocalPortID, pd.DpConfig) error { return nil }

func (c *Controller) ExecuteDrst(pd.LocalPortID) error { return nil }

func (c *Controller) ConnectorReset(pd.LocalPortID, ucsi.ResetType) error { return nil }

func (c *Controller) GetRetimerFwUpdateState(pd.LocalPortID) (bool, error) { return false, nil }

func (c *Controller) SetRetimerFwUpdateState(pd.LocalPortID) error { return nil }

func (c *Controller) ClearRetimerFwUpdateState(pd.LocalPortID) error { return nil }

func (c *Controller) SetRetimerCompliance(pd.LocalPortID) error { return nil }

func (c *Controller) ReconfigureRetimer(pd.LocalPortID) error { return nil }

func (c *Controller) ControllerStatus() (typec.ControllerStatus, error) {
	return typec.ControllerStatus{Mode: typec.ModeApp, ValidFwBank: true, FwVersion: c.fw}, nil
}

func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
	return nil
}
