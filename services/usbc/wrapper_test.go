// services/usbc/wrapper_test.go
package usbc

import (
	"context"
	"sync"
	"testing"
	"time"

	"typeccode-go/pd"
	"typeccode-go/power/policy"
	"typeccode-go/typec"
	"typeccode-go/ucsi"
)

// fakeController scripts a two port controller in memory.
type fakeController struct {
	mu     sync.Mutex
	signal chan struct{}

	events [2]typec.PortEventKind
	status [2]typec.PortStatus

	sink     [2]bool
	maxMv    [2]uint16
	uncon    [2]bool
	cleared  [2]bool
	alerts   [2][]pd.Ado
	otherVdm [2]pd.Vdm
	attnVdm  [2]pd.Vdm
	sentVdm  [2]pd.Vdm
	dpStatus [2]pd.DpStatus
	dpConfig [2]pd.DpConfig
	drst     [2]int
	retimer  [2]bool

	resetPort pd.LocalPortID
	resetType ucsi.ResetType
	resets    int
}

func newFakeController() *fakeController {
	return &fakeController{signal: make(chan struct{}, 8)}
}

// push queues events and a fresh status for a port, then signals the
// wrapper's event wait.
func (f *fakeController) push(port int, ev typec.PortEventKind, status typec.PortStatus) {
	f.mu.Lock()
	f.events[port] |= ev
	f.status[port] = status
	f.mu.Unlock()
	f.signal <- struct{}{}
}

func (f *fakeController) pushAlert(port int, ado pd.Ado) {
	f.mu.Lock()
	f.alerts[port] = append(f.alerts[port], ado)
	f.mu.Unlock()
	f.push(port, typec.EventPdAlert, f.portStatus(port))
}

func (f *fakeController) portStatus(port int) typec.PortStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[port]
}

func (f *fakeController) sinkEnabled(port int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sink[port]
}

func (f *fakeController) WaitPortEvent(ctx context.Context) error {
	select {
	case <-f.signal:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeController) ClearPortEvents(port pd.LocalPortID) (typec.PortEventKind, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev := f.events[port]
	f.events[port] = 0
	return ev, nil
}

func (f *fakeController) GetPortStatus(port pd.LocalPortID) (typec.PortStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[port], nil
}

func (f *fakeController) EnableSinkPath(port pd.LocalPortID, enable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink[port] = enable
	return nil
}

func (f *fakeController) SetMaxSinkVoltage(port pd.LocalPortID, maxMv uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxMv[port] = maxMv
	return nil
}

func (f *fakeController) SetUnconstrainedPower(port pd.LocalPortID, unconstrained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uncon[port] = unconstrained
	return nil
}

func (f *fakeController) ClearDeadBatteryFlag(port pd.LocalPortID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared[port] = true
	return nil
}

func (f *fakeController) GetPdAlert(port pd.LocalPortID) (*pd.Ado, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.alerts[port]) == 0 {
		return nil, nil
	}
	ado := f.alerts[port][0]
	f.alerts[port] = f.alerts[port][1:]
	return &ado, nil
}

func (f *fakeController) GetOtherVdm(port pd.LocalPortID) (pd.Vdm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otherVdm[port], nil
}

func (f *fakeController) GetAttnVdm(port pd.LocalPortID) (pd.Vdm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attnVdm[port], nil
}

func (f *fakeController) SendVdm(port pd.LocalPortID, vdm pd.Vdm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentVdm[port] = vdm
	return nil
}

func (f *fakeController) GetDpStatus(port pd.LocalPortID) (pd.DpStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dpStatus[port], nil
}

func (f *fakeController) SetDpConfig(port pd.LocalPortID, cfg pd.DpConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dpConfig[port] = cfg
	return nil
}

func (f *fakeController) ExecuteDrst(port pd.LocalPortID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drst[port]++
	return nil
}

func (f *fakeController) ConnectorReset(port pd.LocalPortID, reset ucsi.ResetType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetPort = port
	f.resetType = reset
	return nil
}

func (f *fakeController) GetRetimerFwUpdateState(port pd.LocalPortID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retimer[port], nil
}

func (f *fakeController) SetRetimerFwUpdateState(port pd.LocalPortID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retimer[port] = true
	return nil
}

func (f *fakeController) ClearRetimerFwUpdateState(port pd.LocalPortID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retimer[port] = false
	return nil
}

func (f *fakeController) SetRetimerCompliance(port pd.LocalPortID) error { return nil }

func (f *fakeController) ReconfigureRetimer(port pd.LocalPortID) error { return nil }

func (f *fakeController) ControllerStatus() (typec.ControllerStatus, error) {
	return typec.ControllerStatus{Mode: typec.ModeApp, ValidFwBank: true, FwVersion: 0x010203}, nil
}

func (f *fakeController) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func sinkStatus(mv, ma uint16) typec.PortStatus {
	return typec.PortStatus{
		Contract:          pd.SinkContract(pd.PowerCapability{VoltageMv: mv, CurrentMa: ma}),
		ConnectionPresent: true,
	}
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

// startWrapper wires a fake controller to a running wrapper and a
// running policy engine.
func startWrapper(t *testing.T) (*typec.Registry, *typec.Device, *fakeController, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := typec.NewRegistry()
	dev, err := typec.NewDevice(0, []pd.GlobalPortID{0, 1})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	fake := newFakeController()
	engine := policy.NewEngine(nil)
	w, err := NewControllerWrapper(reg, dev, fake, engine, WrapperConfig{})
	if err != nil {
		t.Fatalf("NewControllerWrapper: %v", err)
	}
	go engine.Run(ctx)
	go w.Run(ctx)
	return reg, dev, fake, ctx
}

func TestWrapperEnablesSinkPathForBestContract(t *testing.T) {
	reg, _, fake, _ := startWrapper(t)

	fake.push(0, typec.EventPlugInsertedOrRemoved|typec.EventNewPowerContractAsConsumer,
		sinkStatus(5000, 3000))
	waitFor(t, "sink path on port 0", func() bool { return fake.sinkEnabled(0) })

	// a stronger offer on port 1 takes over
	fake.push(1, typec.EventPlugInsertedOrRemoved|typec.EventNewPowerContractAsConsumer,
		sinkStatus(20000, 5000))
	waitFor(t, "sink path on port 1", func() bool { return fake.sinkEnabled(1) })
	waitFor(t, "sink path off port 0", func() bool { return !fake.sinkEnabled(0) })

	pending := reg.TakePortEvents()
	if !pending.IsPending(0) || !pending.IsPending(1) {
		t.Fatalf("pending = %b, want ports 0 and 1 flagged", pending)
	}
}

func TestWrapperSynthesisesSinkReadyOnTimeout(t *testing.T) {
	_, dev, fake, ctx := startWrapper(t)

	fake.push(0, typec.EventPlugInsertedOrRemoved|typec.EventNewPowerContractAsConsumer,
		sinkStatus(5000, 3000))

	var seen typec.PortEventKind
	waitFor(t, "synthesised sink ready", func() bool {
		ectx, cancel := context.WithTimeout(ctx, typec.DefaultTimeout)
		defer cancel()
		resp, err := dev.Execute(ectx, typec.PortCommand{Port: 0, Op: typec.OpClearEvents})
		if err != nil {
			return false
		}
		pr, ok := resp.(typec.PortResponse)
		if !ok {
			return false
		}
		seen |= pr.Events
		return seen.Has(typec.EventSinkReady)
	})
	if !seen.Has(typec.EventNewPowerContractAsConsumer) {
		t.Fatalf("events = %v, contract event missing", seen.Names())
	}
}

func TestWrapperServesPortCommands(t *testing.T) {
	_, dev, fake, ctx := startWrapper(t)

	exec := func(cmd typec.Command) typec.Response {
		t.Helper()
		ectx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		resp, err := dev.Execute(ectx, cmd)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		return resp
	}

	resp := exec(typec.PortCommand{Port: 1, Op: typec.OpSetMaxSinkVoltage, MaxVoltageMv: 9000})
	if pr := resp.(typec.PortResponse); pr.Err != nil {
		t.Fatalf("set max sink voltage: %v", pr.Err)
	}
	fake.mu.Lock()
	maxMv := fake.maxMv[1]
	fake.mu.Unlock()
	if maxMv != 9000 {
		t.Fatalf("maxMv = %d, want 9000", maxMv)
	}

	if pr := exec(typec.PortCommand{Port: 0, Op: typec.OpGetPdAlert}).(typec.PortResponse); pr.Alert != nil {
		t.Fatalf("alert = %v, want none queued", pr.Alert)
	}

	fake.pushAlert(0, pd.AlertBatteryStatusChange)
	waitFor(t, "queued alert", func() bool {
		pr := exec(typec.PortCommand{Port: 0, Op: typec.OpGetPdAlert}).(typec.PortResponse)
		return pr.Alert != nil && pr.Alert.Has(pd.AlertBatteryStatusChange)
	})

	lr := exec(typec.LpmCommand{Cmd: ucsi.Command{
		Code:  ucsi.CodeConnectorReset,
		Port:  1,
		Reset: ucsi.ResetData,
	}}).(typec.LpmResponse)
	if lr.Err != nil {
		t.Fatalf("connector reset: %v", lr.Err)
	}
	fake.mu.Lock()
	resetPort, resetType := fake.resetPort, fake.resetType
	fake.mu.Unlock()
	if resetPort != 1 || resetType != ucsi.ResetData {
		t.Fatalf("reset port %d type %v, want port 1 data", resetPort, resetType)
	}

	cr := exec(typec.ControllerCommand{Op: typec.OpControllerStatus}).(typec.ControllerResponse)
	if cr.Err != nil || cr.Status.Mode != typec.ModeApp || cr.Status.FwVersion != 0x010203 {
		t.Fatalf("controller status = %+v err %v", cr.Status, cr.Err)
	}

	pr := exec(typec.PortCommand{Port: 7, Op: typec.OpPortStatus}).(typec.PortResponse)
	if pr.Err != pd.ErrInvalidPort {
		t.Fatalf("err = %v, want %v", pr.Err, pd.ErrInvalidPort)
	}
}

func TestWrapperCachedStatusSkipsHardware(t *testing.T) {
	_, dev, fake, ctx := startWrapper(t)

	fake.push(0, typec.EventPlugInsertedOrRemoved|typec.EventNewPowerContractAsConsumer,
		sinkStatus(15000, 3000))
	waitFor(t, "cached contract", func() bool {
		ectx, cancel := context.WithTimeout(ctx, typec.DefaultTimeout)
		defer cancel()
		resp, err := dev.Execute(ectx, typec.PortCommand{Port: 0, Op: typec.OpPortStatus, Cached: true})
		if err != nil {
			return false
		}
		pr := resp.(typec.PortResponse)
		return pr.Err == nil && pr.Status.Contract.Capability.VoltageMv == 15000
	})

	// mutate hardware behind the cache, a cached read must not see it
	fake.mu.Lock()
	fake.status[0].Contract.Capability.VoltageMv = 9000
	fake.mu.Unlock()

	ectx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	resp, err := dev.Execute(ectx, typec.PortCommand{Port: 0, Op: typec.OpPortStatus, Cached: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if pr := resp.(typec.PortResponse); pr.Status.Contract.Capability.VoltageMv != 15000 {
		t.Fatalf("cached voltage = %d, want 15000", pr.Status.Contract.Capability.VoltageMv)
	}

	resp, err = dev.Execute(ectx, typec.PortCommand{Port: 0, Op: typec.OpPortStatus})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if pr := resp.(typec.PortResponse); pr.Status.Contract.Capability.VoltageMv != 9000 {
		t.Fatalf("fresh voltage = %d, want 9000", pr.Status.Contract.Capability.VoltageMv)
	}
}
