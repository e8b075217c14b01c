// services/battery/service_test.go
package battery

import (
	"context"
	"sync"
	"testing"
	"time"

	"typeccode-go/bus"
	"typeccode-go/drivers/ltc4015"
	"typeccode-go/pd"
	"typeccode-go/power/policy"
	"typeccode-go/services/usbc"
	"typeccode-go/typec"
	"typeccode-go/types"
)

// fakeCharger records every programming call.
type fakeCharger struct {
	mu       sync.Mutex
	inputs   []int32
	targets  []int32
	suspends []bool
	snap     ltc4015.Snapshot
}

func (f *fakeCharger) SetIinLimit_mA(mA int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, mA)
	return nil
}

func (f *fakeCharger) SetIChargeTarget_mA(mA int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, mA)
	return nil
}

func (f *fakeCharger) SuspendCharger(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspends = append(f.suspends, on)
	return nil
}

func (f *fakeCharger) Snapshot() ltc4015.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

// last returns the most recent programming triple.
func (f *fakeCharger) last() (input, target int32, suspend, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 || len(f.targets) == 0 || len(f.suspends) == 0 {
		return 0, 0, false, false
	}
	return f.inputs[len(f.inputs)-1], f.targets[len(f.targets)-1], f.suspends[len(f.suspends)-1], true
}

// responder answers port status requests on the registry's external
// channel with a switchable status.
type responder struct {
	mu     sync.Mutex
	status map[pd.GlobalPortID]typec.PortStatus
}

func (r *responder) set(port pd.GlobalPortID, st typec.PortStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == nil {
		r.status = make(map[pd.GlobalPortID]typec.PortStatus)
	}
	r.status[port] = st
}

func (r *responder) run(ctx context.Context, reg *typec.Registry) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-reg.External():
			cmd, ok := req.Command.(typec.ExternalPortCommand)
			if !ok || cmd.Cmd.Op != typec.OpPortStatus {
				req.Respond(typec.PortResponse{})
				continue
			}
			r.mu.Lock()
			st := r.status[cmd.Cmd.Port]
			r.mu.Unlock()
			req.Respond(typec.PortResponse{Status: st})
		}
	}
}

type harness struct {
	conn *bus.Connection
	chg  *fakeCharger
	resp *responder
}

// startService brings up a two port registry, the stub responder and
// the battery loop. prep runs against the test connection before the
// service starts so retained messages replay into its subscriptions.
func startService(t *testing.T, prep func(conn *bus.Connection)) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := bus.NewBus(8)
	reg := typec.NewRegistry()
	dev, err := typec.NewDevice(0, []pd.GlobalPortID{0, 1})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	if err := reg.Register(dev); err != nil {
		t.Fatalf("Register: %v", err)
	}

	conn := b.NewConnection("test")
	if prep != nil {
		prep(conn)
	}

	chg := &fakeCharger{}
	resp := &responder{}
	go resp.run(ctx, reg)
	go Run(ctx, b.NewConnection("battery"), reg, chg)

	// The retained state publish follows the service's subscriptions,
	// so seeing it means later messages will be delivered.
	sub := conn.Subscribe(TopicState())
	select {
	case <-sub.Channel():
	case <-time.After(2 * time.Second):
		t.Fatal("battery service never came up")
	}
	conn.Unsubscribe(sub)

	return &harness{conn: conn, chg: chg, resp: resp}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func sinkStatus(mV, mA uint16) typec.PortStatus {
	return typec.PortStatus{
		ConnectionPresent: true,
		Contract:          pd.SinkContract(pd.PowerCapability{VoltageMv: mV, CurrentMa: mA}),
	}
}

func TestProgramsFromSinkContract(t *testing.T) {
	h := startService(t, func(conn *bus.Connection) {
		conn.Publish(conn.NewMessage(policy.TopicUnconstrained(),
			types.UnconstrainedMessage{Unconstrained: true, Available: 1}, true))
	})
	h.resp.set(0, sinkStatus(20000, 2250))
	h.conn.Publish(h.conn.NewMessage(usbc.TopicCci(), types.UcsiCciMessage{Port: 0}, false))

	waitFor(t, "contract programming", func() bool {
		in, target, suspend, ok := h.chg.last()
		return ok && in == 2250 && target == 2000 && !suspend
	})
}

func TestNoContractSuspendsCharger(t *testing.T) {
	h := startService(t, nil)

	waitFor(t, "conservative defaults", func() bool {
		in, _, suspend, ok := h.chg.last()
		return ok && in == noContractInputMa && suspend
	})
}

func TestConstrainedSourceHalvesChargeTarget(t *testing.T) {
	h := startService(t, nil)
	h.resp.set(0, sinkStatus(5000, 3000))
	h.conn.Publish(h.conn.NewMessage(usbc.TopicCci(), types.UcsiCciMessage{Port: 0}, false))

	waitFor(t, "gentle charge target", func() bool {
		in, target, suspend, ok := h.chg.last()
		return ok && in == 3000 && target == 1000 && !suspend
	})
}

func TestConfigCapsInputLimit(t *testing.T) {
	h := startService(t, func(conn *bus.Connection) {
		conn.Publish(conn.NewMessage(topicConfig(),
			map[string]any{"input_limit_ma": float64(1500)}, true))
	})
	h.resp.set(0, sinkStatus(20000, 2250))
	h.conn.Publish(h.conn.NewMessage(usbc.TopicCci(), types.UcsiCciMessage{Port: 0}, false))

	waitFor(t, "capped input limit", func() bool {
		in, _, _, ok := h.chg.last()
		return ok && in == 1500
	})
}

func TestConnectorChangeReevaluates(t *testing.T) {
	h := startService(t, nil)

	waitFor(t, "initial suspend", func() bool {
		_, _, suspend, ok := h.chg.last()
		return ok && suspend
	})

	h.resp.set(1, sinkStatus(9000, 1670))
	h.conn.Publish(h.conn.NewMessage(usbc.TopicCci(), types.UcsiCciMessage{Port: 1}, false))

	waitFor(t, "reprogram after connect", func() bool {
		in, _, suspend, ok := h.chg.last()
		return ok && in == 1670 && !suspend
	})
}

func TestTelemetryPublished(t *testing.T) {
	h := startService(t, func(conn *bus.Connection) {
		conn.Publish(conn.NewMessage(topicConfig(),
			map[string]any{"telemetry_interval": 0.02}, true))
	})
	h.chg.mu.Lock()
	h.chg.snap = ltc4015.Snapshot{
		Pack_mV: 10380,
		IBat_mA: 1500,
		Vin_mV:  20000,
		Die_mC:  45000,
		State:   ltc4015.StateCcCvCharge,
	}
	h.chg.mu.Unlock()

	sub := h.conn.Subscribe(TopicTelemetry())
	defer h.conn.Unsubscribe(sub)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-sub.Channel():
			tm, ok := m.Payload.(types.BatteryTelemetryMessage)
			if !ok {
				t.Fatalf("payload %T", m.Payload)
			}
			if tm.VbatMilliV != 10380 {
				// Snapshot raced the first publish, wait for the next.
				continue
			}
			if tm.IbatMilliA != 1500 || tm.VinMilliV != 20000 || tm.DieMilliC != 45000 || !tm.Charging {
				t.Fatalf("telemetry %+v", tm)
			}
			return
		case <-deadline:
			t.Fatal("no telemetry published")
		}
	}
}

func TestStatePublishedRetained(t *testing.T) {
	h := startService(t, nil)

	sub := h.conn.Subscribe(TopicState())
	defer h.conn.Unsubscribe(sub)

	select {
	case m := <-sub.Channel():
		info, ok := m.Payload.(types.StateInfo)
		if !ok || info.Service != "battery" || info.State != types.StateReady {
			t.Fatalf("state payload %+v", m.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no retained state")
	}
}
