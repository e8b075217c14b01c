package policy

import (
	"context"
	"sync"

	"typeccode-go/pd"
)

// RequestKind selects a power path operation executed by the device's
// port wrapper.
type RequestKind uint8

const (
	// ReqConnectConsumer enables the sink power path.
	ReqConnectConsumer RequestKind = iota
	// ReqDisconnect disables the power path.
	ReqDisconnect
)

// Request travels from the engine to the wrapper owning the device.
type Request struct {
	Device     *Device
	Kind       RequestKind
	Capability pd.PowerCapability

	resp chan error
}

// Respond completes the request. Called exactly once by the wrapper.
func (r *Request) Respond(err error) {
	r.resp <- err
}

// Device is one port's power policy endpoint. The port wrapper drives
// attach state, the engine drives contract state through requests.
type Device struct {
	id       ID
	requests chan<- *Request

	mu       sync.Mutex
	kind     StateKind
	consumer *ConsumerPowerCapability
	active   pd.PowerCapability

	wake chan<- struct{}
}

// NewDevice creates a device whose power path requests are served on
// the given channel.
func NewDevice(id ID, requests chan<- *Request) *Device {
	return &Device{id: id, requests: requests}
}

func (d *Device) ID() ID { return d.id }

// State returns the current kind and offered consumer capability.
// The capability pointer is a private copy.
func (d *Device) State() (StateKind, *ConsumerPowerCapability) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.consumer == nil {
		return d.kind, nil
	}
	c := *d.consumer
	return d.kind, &c
}

func (d *Device) StateKind() StateKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kind
}

// ActiveCapability is the capability of the running consumer
// contract, zero when not connected.
func (d *Device) ActiveCapability() pd.PowerCapability {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Attach moves a detached device to idle.
func (d *Device) Attach() error {
	d.mu.Lock()
	if d.kind != Detached {
		d.mu.Unlock()
		return pd.ErrInvalidMode
	}
	d.kind = Idle
	d.mu.Unlock()
	d.notify()
	return nil
}

// Detach drops the device back to detached from any state and clears
// the offered capability.
func (d *Device) Detach() error {
	d.mu.Lock()
	d.kind = Detached
	d.consumer = nil
	d.active = pd.PowerCapability{}
	d.mu.Unlock()
	d.notify()
	return nil
}

// NotifyConsumerPowerCapability records the partner's offer. nil
// withdraws it. Valid while idle or connected as consumer.
func (d *Device) NotifyConsumerPowerCapability(cap *ConsumerPowerCapability) error {
	d.mu.Lock()
	if d.kind != Idle && d.kind != ConnectedConsumer {
		d.mu.Unlock()
		return pd.ErrInvalidMode
	}
	if cap == nil {
		d.consumer = nil
	} else {
		c := *cap
		d.consumer = &c
	}
	d.mu.Unlock()
	d.notify()
	return nil
}

// ConnectConsumer asks the wrapper to enable the sink path and, on
// success, marks the device connected. Engine side.
func (d *Device) ConnectConsumer(ctx context.Context, cap pd.PowerCapability) error {
	if err := d.exchange(ctx, &Request{Device: d, Kind: ReqConnectConsumer, Capability: cap, resp: make(chan error, 1)}); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.kind != Idle && d.kind != ConnectedConsumer {
		// Detached while the request was in flight.
		return pd.ErrInvalidMode
	}
	d.kind = ConnectedConsumer
	d.active = cap
	return nil
}

// Disconnect asks the wrapper to disable the power path and returns
// the device to idle. Engine side.
func (d *Device) Disconnect(ctx context.Context) error {
	if err := d.exchange(ctx, &Request{Device: d, Kind: ReqDisconnect, resp: make(chan error, 1)}); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.kind == ConnectedConsumer || d.kind == ConnectedProvider {
		d.kind = Idle
	}
	d.active = pd.PowerCapability{}
	return nil
}

func (d *Device) exchange(ctx context.Context, req *Request) error {
	select {
	case d.requests <- req:
	case <-ctx.Done():
		return pd.ErrTimeout
	}
	select {
	case err := <-req.resp:
		return err
	case <-ctx.Done():
		return pd.ErrTimeout
	}
}

func (d *Device) bindWake(wake chan<- struct{}) {
	d.mu.Lock()
	d.wake = wake
	d.mu.Unlock()
	d.notify()
}

// notify wakes the engine. Coalescing, never blocks.
func (d *Device) notify() {
	d.mu.Lock()
	wake := d.wake
	d.mu.Unlock()
	if wake == nil {
		return
	}
	select {
	case wake <- struct{}{}:
	default:
	}
}
