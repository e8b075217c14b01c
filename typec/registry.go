// Package typec wires port controller wrappers to the Type-C service:
// a registry of controller devices, the command channels between them
// and the per-port event bookkeeping.
package typec

import (
	"context"
	"sync"
	"time"

	"typeccode-go/pd"
)

// MaxControllerPorts bounds ports per controller.
const MaxControllerPorts = 2

// DefaultTimeout bounds a single command exchange with a wrapper.
const DefaultTimeout = 250 * time.Millisecond

// Device is a registered controller's communication endpoint. The
// wrapper owns the receive side of the command channel, everyone else
// talks to it through Execute.
type Device struct {
	id    pd.ControllerID
	ports []pd.GlobalPortID

	commands  chan Command
	responses chan Response
}

// NewDevice builds a device for a controller owning the given global
// ports, in local port order.
func NewDevice(id pd.ControllerID, ports []pd.GlobalPortID) (*Device, error) {
	if len(ports) == 0 || len(ports) > MaxControllerPorts {
		return nil, pd.ErrInvalidParams
	}
	for _, p := range ports {
		if int(p) >= pd.MaxSupportedPorts {
			return nil, pd.ErrInvalidPort
		}
	}
	return &Device{
		id:        id,
		ports:     ports,
		commands:  make(chan Command, 1),
		responses: make(chan Response, 1),
	}, nil
}

func (d *Device) ID() pd.ControllerID { return d.id }

func (d *Device) NumPorts() int { return len(d.ports) }

// Ports returns the device's global ports in local order. The slice
// is shared, callers must not modify it.
func (d *Device) Ports() []pd.GlobalPortID { return d.ports }

func (d *Device) HasPort(port pd.GlobalPortID) bool {
	for _, p := range d.ports {
		if p == port {
			return true
		}
	}
	return false
}

// LocalPort translates a global port to the controller local index.
func (d *Device) LocalPort(port pd.GlobalPortID) (pd.LocalPortID, error) {
	for i, p := range d.ports {
		if p == port {
			return pd.LocalPortID(i), nil
		}
	}
	return 0, pd.ErrInvalidPort
}

// GlobalPort translates a controller local index to its global port.
func (d *Device) GlobalPort(local pd.LocalPortID) (pd.GlobalPortID, error) {
	if int(local) >= len(d.ports) {
		return 0, pd.ErrInvalidPort
	}
	return d.ports[local], nil
}

// Commands is the wrapper's receive side.
func (d *Device) Commands() <-chan Command { return d.commands }

// Respond sends the wrapper's reply for the command just taken from
// Commands.
func (d *Device) Respond(r Response) {
	d.responses <- r
}

// Execute runs one command exchange with the wrapper. A dead or
// saturated wrapper surfaces as ErrTimeout through ctx.
func (d *Device) Execute(ctx context.Context, cmd Command) (Response, error) {
	// drop a stale reply left by a timed out exchange
	select {
	case <-d.responses:
	default:
	}
	select {
	case d.commands <- cmd:
	case <-ctx.Done():
		return nil, pd.ErrTimeout
	}
	select {
	case r := <-d.responses:
		return r, nil
	case <-ctx.Done():
		return nil, pd.ErrTimeout
	}
}

// Registry tracks all registered controller devices and aggregates
// their port event signals.
type Registry struct {
	mu      sync.Mutex
	devices []*Device
	pending PortPending

	wake     chan struct{}
	external chan *Request
}

func NewRegistry() *Registry {
	return &Registry{
		wake:     make(chan struct{}, 1),
		external: make(chan *Request, 1),
	}
}

// Register adds a device. Controller ids and global ports must be
// unique across the registry.
func (r *Registry) Register(d *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.devices {
		if other.id == d.id {
			return pd.ErrInUse
		}
		for _, p := range d.ports {
			if other.HasPort(p) {
				return pd.ErrInUse
			}
		}
	}
	r.devices = append(r.devices, d)
	return nil
}

// ByController looks up a device by controller id.
func (r *Registry) ByController(id pd.ControllerID) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.id == id {
			return d, true
		}
	}
	return nil, false
}

// ByPort looks up the device owning a global port.
func (r *Registry) ByPort(port pd.GlobalPortID) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.HasPort(port) {
			return d, true
		}
	}
	return nil, false
}

// NumPorts counts all registered ports.
func (r *Registry) NumPorts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.devices {
		n += len(d.ports)
	}
	return n
}

// NotifyPorts marks ports as having pending events and wakes the
// service. Safe from any goroutine, never blocks.
func (r *Registry) NotifyPorts(p PortPending) {
	if p.None() {
		return
	}
	r.mu.Lock()
	r.pending.Union(p)
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Wake signals that TakePortEvents has something to deliver. Spurious
// wakes are possible, an empty take is not an error.
func (r *Registry) Wake() <-chan struct{} { return r.wake }

// TakePortEvents atomically returns and clears the pending port set.
func (r *Registry) TakePortEvents() PortPending {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pending
	r.pending = 0
	return p
}
