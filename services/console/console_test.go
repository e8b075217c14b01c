// services/console/console_test.go
package console

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"typeccode-go/bus"
	"typeccode-go/pd"
	"typeccode-go/services/usbc"
	"typeccode-go/typec"
	"typeccode-go/types"
	"typeccode-go/ucsi"
)

// testTransport is an in-memory console endpoint. Input arrives in
// chunks through a channel, output accumulates for inspection.
type testTransport struct {
	mu  sync.Mutex
	in  chan []byte
	out []byte
}

func newTestTransport() *testTransport {
	return &testTransport{in: make(chan []byte, 8)}
}

func (t *testTransport) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.out = append(t.out, b...)
	return len(b), nil
}

func (t *testTransport) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	select {
	case b := <-t.in:
		return copy(buf, b), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (t *testTransport) send(line string) {
	t.in <- []byte(line + "\n")
}

func (t *testTransport) output() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.out)
}

// responder stands in for the Type-C service on the registry's
// external channel and records what the console asked for.
type responder struct {
	mu    sync.Mutex
	ports []typec.PortCommand
	ucsis []ucsi.Command
}

func (r *responder) run(ctx context.Context, reg *typec.Registry) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-reg.External():
			switch cmd := req.Command.(type) {
			case typec.ExternalPortCommand:
				r.mu.Lock()
				r.ports = append(r.ports, cmd.Cmd)
				r.mu.Unlock()
				req.Respond(portAnswer(cmd.Cmd))
			case typec.ExternalControllerCommand:
				req.Respond(typec.ControllerResponse{Status: typec.ControllerStatus{
					Mode:        typec.ModeApp,
					ValidFwBank: true,
					FwVersion:   0x00010203,
				}})
			case typec.ExternalUcsiCommand:
				r.mu.Lock()
				r.ucsis = append(r.ucsis, cmd.Cmd)
				r.mu.Unlock()
				req.Respond(ucsiAnswer(cmd.Cmd))
			}
		}
	}
}

// portAnswer mimics a board with a 20 V sink contract on port 0 and
// nothing attached elsewhere.
func portAnswer(cmd typec.PortCommand) typec.PortResponse {
	switch cmd.Op {
	case typec.OpPortStatus:
		if cmd.Port != 0 {
			return typec.PortResponse{}
		}
		return typec.PortResponse{Status: typec.PortStatus{
			ConnectionPresent:  true,
			UnconstrainedPower: true,
			Contract:           pd.SinkContract(pd.PowerCapability{VoltageMv: 20000, CurrentMa: 2250}),
		}}
	case typec.OpGetPdAlert:
		ado := pd.AlertOcp
		return typec.PortResponse{Alert: &ado}
	default:
		return typec.PortResponse{}
	}
}

func ucsiAnswer(cmd ucsi.Command) ucsi.Response {
	resp := ucsi.Response{Cci: ucsi.Cci{CmdComplete: true}}
	switch cmd.Code {
	case ucsi.CodeGetCapability:
		c := ucsi.Capability{NumConnectors: 2, NumAltModes: 1, BcdUsbPdSpec: 0x0300, BcdTypeCSpec: 0x0200}
		resp.Cci.DataLen = ucsi.DataLen(c)
		resp.Data = c
	case ucsi.CodePpmReset:
		resp.Cci = ucsi.Cci{ResetComplete: true}
	}
	return resp
}

func (r *responder) lastPort() (typec.PortCommand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ports) == 0 {
		return typec.PortCommand{}, false
	}
	return r.ports[len(r.ports)-1], true
}

func (r *responder) lastUcsi() (ucsi.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ucsis) == 0 {
		return ucsi.Command{}, false
	}
	return r.ucsis[len(r.ucsis)-1], true
}

type harness struct {
	tr   *testTransport
	conn *bus.Connection
	resp *responder
}

func startConsole(t *testing.T) *harness {
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

	tr := newTestTransport()
	resp := &responder{}
	go resp.run(ctx, reg)
	go Run(ctx, b.NewConnection("console"), reg, Config{Transport: tr})

	h := &harness{tr: tr, conn: b.NewConnection("test"), resp: resp}
	waitOutput(t, tr, "typec console")
	return h
}

func waitOutput(t *testing.T, tr *testTransport, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(tr.output(), want) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("output %q never contained %q", tr.output(), want)
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

func TestStatusCommand(t *testing.T) {
	h := startConsole(t)

	h.tr.send("status 0")
	waitOutput(t, h.tr, "port 0: connected, sink 20000mV 2250mA, unconstrained")
}

func TestPortsListsEveryPort(t *testing.T) {
	h := startConsole(t)

	h.tr.send("ports")
	waitOutput(t, h.tr, "port 0: connected")
	waitOutput(t, h.tr, "port 1: disconnected")
}

func TestControllerCommand(t *testing.T) {
	h := startConsole(t)

	h.tr.send("controller")
	waitOutput(t, h.tr, "controller 0: mode app fw 00010203 valid true")
}

func TestAlertCommand(t *testing.T) {
	h := startConsole(t)

	h.tr.send("alert 0")
	waitOutput(t, h.tr, "alert 02000000: ocp")
}

func TestUcsiCapability(t *testing.T) {
	h := startConsole(t)

	h.tr.send("ucsi cap")
	waitOutput(t, h.tr, "complete")
	waitOutput(t, h.tr, "capability: connectors 2 altmodes 1 pd 300 typec 200")
}

func TestUcsiEnableParsesNames(t *testing.T) {
	h := startConsole(t)

	h.tr.send("ucsi enable connect attention")
	waitFor(t, "enable command", func() bool {
		cmd, ok := h.resp.lastUcsi()
		return ok && cmd.Code == ucsi.CodeSetNotificationEnable &&
			cmd.Enable == ucsi.NotifyConnectChange|ucsi.NotifyAttention
	})

	h.tr.send("ucsi enable 0x8001")
	waitFor(t, "numeric enable command", func() bool {
		cmd, ok := h.resp.lastUcsi()
		return ok && cmd.Enable == 0x8001
	})
}

func TestMaxVoltageRoutesToPort(t *testing.T) {
	h := startConsole(t)

	h.tr.send("maxv 1 15000")
	waitFor(t, "max voltage command", func() bool {
		cmd, ok := h.resp.lastPort()
		return ok && cmd.Op == typec.OpSetMaxSinkVoltage &&
			cmd.Port == 1 && cmd.MaxVoltageMv == 15000
	})
}

func TestUnknownCommandReportsError(t *testing.T) {
	h := startConsole(t)

	h.tr.send("frobnicate")
	waitOutput(t, h.tr, "error: unknown command")
}

func TestAsyncCciEcho(t *testing.T) {
	h := startConsole(t)

	h.conn.Publish(h.conn.NewMessage(usbc.TopicCci(),
		types.UcsiCciMessage{Port: 3, NotifyOpm: true}, false))
	waitOutput(t, h.tr, "[cci] connector change, port 3 notify true")
}
