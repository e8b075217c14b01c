// cmd/typec-sim/main.go
//go:build !(rp2040 || rp2350)

// Host simulation of the port management stack. Two scripted dual port
// controllers stand in for the TPS6699x pair while the scenario below
// walks attach, policy arbitration, alerts and detach. A monitor
// connection echoes bus traffic so the service interplay is visible.
package main

import (
	"context"
	"os"
	"sync"
	"time"

	"typeccode-go/bus"
	"typeccode-go/drivers/ltc4015"
	"typeccode-go/drivers/simctrl"
	"typeccode-go/pd"
	"typeccode-go/power/policy"
	"typeccode-go/services/battery"
	"typeccode-go/services/usbc"
	"typeccode-go/typec"
	"typeccode-go/ucsi"
	"typeccode-go/x/strconvx"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	println("[sim] bootstrapping bus and registry")
	b := bus.NewBus(16)
	reg := typec.NewRegistry()
	startMonitor(b)

	engine := policy.NewEngine(b.NewConnection("policy"))

	ctrl0 := simctrl.New(2, 0x010200)
	dev0, err := typec.NewDevice(0, []pd.GlobalPortID{0, 1})
	check(err, "device 0")
	w0, err := usbc.NewControllerWrapper(reg, dev0, ctrl0, engine, usbc.WrapperConfig{})
	check(err, "wrapper 0")

	ctrl1 := simctrl.New(2, 0x010201)
	dev1, err := typec.NewDevice(1, []pd.GlobalPortID{2, 3})
	check(err, "device 1")
	w1, err := usbc.NewControllerWrapper(reg, dev1, ctrl1, engine, usbc.WrapperConfig{})
	check(err, "wrapper 1")

	go engine.Run(ctx)
	go func() { _ = w0.Run(ctx) }()
	go func() { _ = w1.Run(ctx) }()
	go func() { _ = usbc.Run(ctx, b.NewConnection("usbc"), reg, usbc.Config{}) }()

	cfgConn := b.NewConnection("sim-config")
	cfgConn.Publish(cfgConn.NewMessage(bus.T("config", "battery"), map[string]any{
		"input_limit_ma":     float64(3000),
		"charge_ma":          float64(2000),
		"telemetry_interval": float64(1),
	}, true))
	go func() { _ = battery.Run(ctx, b.NewConnection("battery"), reg, newSimCharger()) }()

	time.Sleep(100 * time.Millisecond)

	step(1, "UCSI handshake")
	mustUcsi(ctx, reg, ucsi.Command{Code: ucsi.CodePpmReset})
	mustUcsi(ctx, reg, ucsi.Command{Code: ucsi.CodeSetNotificationEnable, Enable: 0xffff})
	resp := mustUcsi(ctx, reg, ucsi.Command{Code: ucsi.CodeGetCapability})
	if c, ok := resp.Data.(ucsi.Capability); ok {
		println("[sim] capability:", c.NumConnectors, "connectors")
	}

	step(2, "attach 5V/3A sink contract on port 0")
	ctrl0.Push(0, typec.EventPlugInsertedOrRemoved|typec.EventNewPowerContractAsConsumer,
		sinkStatus(5000, 3000))
	expect("sink path enabled on port 0", func() bool { return ctrl0.SinkEnabled(0) })

	step(3, "stronger 20V/5A offer appears on port 2")
	offer := sinkStatus(20000, 5000)
	offer.UnconstrainedPower = true
	ctrl1.Push(0, typec.EventPlugInsertedOrRemoved|typec.EventNewPowerContractAsConsumer, offer)
	expect("sink path moved to port 2", func() bool {
		return ctrl1.SinkEnabled(0) && !ctrl0.SinkEnabled(0)
	})

	step(4, "PD alert raised on port 0")
	ctrl0.PushAlert(0, pd.AlertOcp)
	expect("alert readable through the service", func() bool {
		ado, err := typec.GetPdAlert(ctx, reg, 0)
		if err != nil || ado == nil {
			return false
		}
		println("[sim] alert names:", join(ado.Names()))
		return ado.Has(pd.AlertOcp)
	})

	step(5, "UCSI reads connector status for port 2")
	resp = mustUcsi(ctx, reg, ucsi.Command{Code: ucsi.CodeGetConnectorStatus, Port: 2})
	if st, ok := resp.Data.(ucsi.ConnectorStatus); ok {
		println("[sim] connector 3 connected:", st.ConnectStatus)
	}

	step(6, "detach on port 2, policy falls back to port 0")
	ctrl1.Push(0, typec.EventPlugInsertedOrRemoved, typec.PortStatus{})
	expect("sink path back on port 0", func() bool { return ctrl0.SinkEnabled(0) })

	step(7, "debug accessory attach on port 1")
	ctrl0.Push(1, typec.EventPlugInsertedOrRemoved,
		typec.PortStatus{ConnectionPresent: true, DebugConnection: true})
	expect("debug accessory visible in status", func() bool {
		st, err := typec.GetPortStatus(ctx, reg, 1, true)
		return err == nil && st.DebugAccessory()
	})

	// Let one battery telemetry tick land before stopping.
	time.Sleep(1200 * time.Millisecond)
	println("[sim] scenario complete")
}

// -----------------------------------------------------------------------------
// scenario helpers
// -----------------------------------------------------------------------------

func step(n int, what string) {
	println("[sim] step", n, "-", what)
}

func check(err error, what string) {
	if err != nil {
		println("[sim] setup failed:", what, "-", err.Error())
		os.Exit(1)
	}
}

func expect(what string, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			println("[sim] ok:", what)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	println("[sim] FAILED:", what)
	os.Exit(1)
}

func mustUcsi(ctx context.Context, reg *typec.Registry, cmd ucsi.Command) ucsi.Response {
	cctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	resp, err := typec.ExecuteUcsiCommand(cctx, reg, cmd)
	if err != nil {
		println("[sim] ucsi", cmd.Code.String(), "failed:", err.Error())
		os.Exit(1)
	}
	if resp.Cci.Error {
		println("[sim] ucsi", cmd.Code.String(), "reported an error cci")
		os.Exit(1)
	}
	return resp
}

func sinkStatus(mv, ma uint16) typec.PortStatus {
	return typec.PortStatus{
		Contract:          pd.SinkContract(pd.PowerCapability{VoltageMv: mv, CurrentMa: ma}),
		ConnectionPresent: true,
	}
}

func join(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += " "
		}
		out += n
	}
	return out
}

// startMonitor echoes every bus message as a slash joined topic.
func startMonitor(b *bus.Bus) {
	conn := b.NewConnection("monitor")
	sub := conn.Subscribe(bus.T("#"))
	go func() {
		for m := range sub.Channel() {
			println("[monitor]", topicString(m.Topic))
		}
	}()
}

func topicString(t bus.Topic) string {
	out := ""
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			out += "/"
		}
		switch v := t.At(i).(type) {
		case string:
			out += v
		case int:
			out += strconvx.FormatInt(int64(v), 10)
		case uint32:
			out += strconvx.FormatInt(int64(v), 10)
		default:
			out += "?"
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// scripted charger
// -----------------------------------------------------------------------------

// simCharger narrates programming calls and reports a steady pack.
type simCharger struct {
	mu   sync.Mutex
	snap ltc4015.Snapshot
}

func newSimCharger() *simCharger {
	return &simCharger{snap: ltc4015.Snapshot{
		Pack_mV:    7400,
		PerCell_mV: 3700,
		Vin_mV:     5000,
		Vsys_mV:    5000,
		IBat_mA:    1200,
		Die_mC:     35000,
	}}
}

func (c *simCharger) SetIinLimit_mA(mA int32) error {
	println("[charger] input limit", mA, "mA")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.IIn_mA = mA
	return nil
}

func (c *simCharger) SetIChargeTarget_mA(mA int32) error {
	println("[charger] charge target", mA, "mA")
	return nil
}

func (c *simCharger) SuspendCharger(on bool) error {
	println("[charger] suspend", on)
	return nil
}

func (c *simCharger) Snapshot() ltc4015.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}
