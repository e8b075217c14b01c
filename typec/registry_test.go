package typec

import (
	"context"
	"testing"
	"time"

	"typeccode-go/pd"
)

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	d0, err := NewDevice(0, []pd.GlobalPortID{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Register(d0); err != nil {
		t.Fatal(err)
	}

	dup, _ := NewDevice(0, []pd.GlobalPortID{2})
	if err := r.Register(dup); err != pd.ErrInUse {
		t.Fatalf("duplicate controller id: err = %v", err)
	}

	overlap, _ := NewDevice(1, []pd.GlobalPortID{1})
	if err := r.Register(overlap); err != pd.ErrInUse {
		t.Fatalf("overlapping port: err = %v", err)
	}

	d1, _ := NewDevice(1, []pd.GlobalPortID{2, 3})
	if err := r.Register(d1); err != nil {
		t.Fatal(err)
	}
	if n := r.NumPorts(); n != 4 {
		t.Fatalf("NumPorts = %d, want 4", n)
	}
}

func TestDeviceValidation(t *testing.T) {
	if _, err := NewDevice(0, nil); err != pd.ErrInvalidParams {
		t.Fatalf("no ports: err = %v", err)
	}
	if _, err := NewDevice(0, []pd.GlobalPortID{0, 1, 2}); err != pd.ErrInvalidParams {
		t.Fatalf("too many ports: err = %v", err)
	}
	if _, err := NewDevice(0, []pd.GlobalPortID{pd.MaxSupportedPorts}); err != pd.ErrInvalidPort {
		t.Fatalf("port out of range: err = %v", err)
	}
}

func TestPortTranslation(t *testing.T) {
	d, err := NewDevice(3, []pd.GlobalPortID{2, 3})
	if err != nil {
		t.Fatal(err)
	}

	local, err := d.LocalPort(3)
	if err != nil || local != 1 {
		t.Fatalf("LocalPort(3) = %d, %v", local, err)
	}
	if _, err := d.LocalPort(0); err != pd.ErrInvalidPort {
		t.Fatalf("LocalPort(0) err = %v", err)
	}

	global, err := d.GlobalPort(0)
	if err != nil || global != 2 {
		t.Fatalf("GlobalPort(0) = %d, %v", global, err)
	}
	if _, err := d.GlobalPort(2); err != pd.ErrInvalidPort {
		t.Fatalf("GlobalPort(2) err = %v", err)
	}
}

func TestNotifyPortsCoalesces(t *testing.T) {
	r := NewRegistry()

	var a, b PortPending
	a.Pend(0)
	b.Pend(2)
	r.NotifyPorts(a)
	r.NotifyPorts(b)

	select {
	case <-r.Wake():
	case <-time.After(time.Second):
		t.Fatal("no wake after notify")
	}

	got := r.TakePortEvents()
	if !got.IsPending(0) || !got.IsPending(2) || got.IsPending(1) {
		t.Fatalf("pending = %#x", uint32(got))
	}
	if !r.TakePortEvents().None() {
		t.Fatal("second take not empty")
	}
}

func TestExecuteRoundTrip(t *testing.T) {
	d, err := NewDevice(0, []pd.GlobalPortID{0})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		cmd := <-d.Commands()
		pc, ok := cmd.(PortCommand)
		if !ok || pc.Op != OpPortStatus {
			d.Respond(PortErr(pd.ErrInvalidParams))
			return
		}
		d.Respond(PortResponse{Status: PortStatus{ConnectionPresent: true}})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := d.Execute(ctx, PortCommand{Port: 0, Op: OpPortStatus})
	if err != nil {
		t.Fatal(err)
	}
	pr, ok := resp.(PortResponse)
	if !ok || pr.Err != nil || !pr.Status.ConnectionPresent {
		t.Fatalf("unexpected response: %+v", resp)
	}
	<-done
}

func TestExecuteTimesOutWithoutWrapper(t *testing.T) {
	d, err := NewDevice(0, []pd.GlobalPortID{0})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// Command channel has capacity 1, so the send succeeds and the
	// receive is what expires.
	if _, err := d.Execute(ctx, PortCommand{Port: 0, Op: OpPortStatus}); err != pd.ErrTimeout {
		t.Fatalf("err = %v, want %v", err, pd.ErrTimeout)
	}
}

func TestExternalRoundTrip(t *testing.T) {
	r := NewRegistry()

	go func() {
		req := <-r.External()
		if _, ok := req.Command.(ExternalControllerCommand); !ok {
			req.Respond(ControllerResponse{Err: pd.ErrInvalidParams})
			return
		}
		req.Respond(ControllerResponse{Status: ControllerStatus{Mode: ModeApp}})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	status, err := GetControllerStatus(ctx, r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if status.Mode != ModeApp {
		t.Fatalf("mode = %v, want app", status.Mode)
	}
}
