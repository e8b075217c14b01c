package policy

import (
	"context"
	"sync"
	"time"

	"typeccode-go/bus"
	"typeccode-go/pd"
	"typeccode-go/types"
	"typeccode-go/x/timex"
)

// RequestTimeout bounds one power path request to a wrapper.
const RequestTimeout = 250 * time.Millisecond

// Engine connects the highest power consumer offer among all
// registered devices and broadcasts unconstrained power changes.
type Engine struct {
	conn *bus.Connection

	mu      sync.Mutex
	devices []*Device

	wake chan struct{}
	last *types.UnconstrainedMessage
}

// NewEngine creates an engine publishing on conn. conn may be nil in
// tests that do not care about broadcasts.
func NewEngine(conn *bus.Connection) *Engine {
	return &Engine{conn: conn, wake: make(chan struct{}, 1)}
}

// Register adds a device and schedules an evaluation.
func (e *Engine) Register(d *Device) error {
	e.mu.Lock()
	for _, other := range e.devices {
		if other.id == d.id {
			e.mu.Unlock()
			return pd.ErrInUse
		}
	}
	e.devices = append(e.devices, d)
	e.mu.Unlock()
	d.bindWake(e.wake)
	return nil
}

// Run evaluates policy whenever a device changes until ctx ends.
func (e *Engine) Run(ctx context.Context) {
	println("[policy] engine running")
	for {
		select {
		case <-ctx.Done():
			println("[policy] engine stopped")
			return
		case <-e.wake:
			e.evaluate(ctx)
		}
	}
}

// Kick schedules an evaluation, for callers outside the device path.
func (e *Engine) Kick() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) snapshot() []*Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Device, len(e.devices))
	copy(out, e.devices)
	return out
}

func (e *Engine) evaluate(ctx context.Context) {
	devices := e.snapshot()

	var current, best *Device
	var bestCap ConsumerPowerCapability
	var bestMw uint32
	for _, d := range devices {
		kind, offer := d.State()
		if kind == ConnectedConsumer {
			current = d
		}
		if offer == nil {
			continue
		}
		mw := offer.Capability.MilliWatts()
		// Prefer the incumbent on ties to avoid flapping.
		if best == nil || mw > bestMw || (mw == bestMw && kind == ConnectedConsumer) {
			best, bestCap, bestMw = d, *offer, mw
		}
	}

	switch {
	case best == nil && current != nil:
		println("[policy] no consumer offers, disconnecting device", int(current.id))
		e.request(ctx, current, func(c context.Context) error { return current.Disconnect(c) })
	case best != nil && best != current:
		if current != nil {
			println("[policy] switching consumer from device", int(current.id), "to", int(best.id))
			e.request(ctx, current, func(c context.Context) error { return current.Disconnect(c) })
		} else {
			println("[policy] connecting consumer device", int(best.id))
		}
		e.request(ctx, best, func(c context.Context) error { return best.ConnectConsumer(c, bestCap.Capability) })
	case best != nil && best == current && bestCap.Capability != best.ActiveCapability():
		// Same device, renegotiated offer. Reconnect in place.
		println("[policy] renegotiating consumer device", int(best.id))
		e.request(ctx, best, func(c context.Context) error { return best.ConnectConsumer(c, bestCap.Capability) })
	}

	e.publishUnconstrained(devices)
}

func (e *Engine) request(ctx context.Context, d *Device, f func(context.Context) error) {
	rctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	if err := f(rctx); err != nil {
		println("[policy] device", int(d.id), "request failed:", err.Error())
	}
}

func (e *Engine) publishUnconstrained(devices []*Device) {
	msg := types.UnconstrainedMessage{TS: timex.NowMs()}
	for _, d := range devices {
		kind, offer := d.State()
		if offer == nil || !offer.Unconstrained {
			continue
		}
		msg.Available++
		if kind == ConnectedConsumer {
			msg.Unconstrained = true
		}
	}

	if e.last != nil && e.last.Unconstrained == msg.Unconstrained && e.last.Available == msg.Available {
		return
	}
	e.last = &msg
	println("[policy] unconstrained:", msg.Unconstrained, "available:", msg.Available)
	if e.conn != nil {
		e.conn.Publish(e.conn.NewMessage(TopicUnconstrained(), msg, true))
	}
}
