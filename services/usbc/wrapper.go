// services/usbc/wrapper.go
package usbc

import (
	"context"
	"time"

	"typeccode-go/pd"
	"typeccode-go/power/policy"
	"typeccode-go/typec"
	"typeccode-go/ucsi"
)

// portState is the wrapper's bookkeeping for one local port.
type portState struct {
	status typec.PortStatus
	events typec.PortEventKind
	alerts []pd.Ado
	// sinkReadyBy is the deadline for the controller to report sink
	// ready after a consumer contract, zero when none is pending.
	sinkReadyBy time.Time
}

// ControllerWrapper owns one port controller. It serialises hardware
// access on a single goroutine, tracks per port state and serves
// commands from the Type-C service and requests from the power policy.
type ControllerWrapper struct {
	reg  *typec.Registry
	dev  *typec.Device
	ctrl Controller
	cfg  WrapperConfig

	requests chan *policy.Request
	devices  []*policy.Device
	ports    []*portState
}

// NewControllerWrapper registers dev with the registry and one power
// policy device per port with the engine.
func NewControllerWrapper(reg *typec.Registry, dev *typec.Device, ctrl Controller, engine *policy.Engine, cfg WrapperConfig) (*ControllerWrapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := reg.Register(dev); err != nil {
		return nil, err
	}
	w := &ControllerWrapper{
		reg:      reg,
		dev:      dev,
		ctrl:     ctrl,
		cfg:      cfg,
		requests: make(chan *policy.Request, 1),
	}
	for _, global := range dev.Ports() {
		d := policy.NewDevice(policy.ID(global), w.requests)
		if err := engine.Register(d); err != nil {
			return nil, err
		}
		w.devices = append(w.devices, d)
		w.ports = append(w.ports, &portState{})
	}
	return w, nil
}

// Run drives the controller until ctx ends. It is the only goroutine
// touching ctrl.
func (w *ControllerWrapper) Run(ctx context.Context) error {
	println("[usbc] wrapper running, controller", w.dev.ID())

	if err := w.syncState(); err != nil {
		println("[usbc] initial sync:", err.Error())
	}

	events := make(chan error, 1)
	go w.pumpEvents(ctx, events)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		drainTimer(timer)
	}

	for {
		resetTimer(timer, w.untilSinkReadyDeadline())

		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-events:
			if err != nil {
				println("[usbc] wait port event:", err.Error())
				return pd.Bus("wait port event", err)
			}
			w.processPortEvents()

		case req := <-w.requests:
			req.Respond(w.servePowerRequest(req))

		case cmd := <-w.dev.Commands():
			w.dev.Respond(w.serveCommand(cmd))

		case <-timer.C:
			w.expireSinkReady()
		}
	}
}

// pumpEvents turns the controller's blocking event wait into channel
// sends. Spurious signals are fine, event processing tolerates ports
// with nothing pending.
func (w *ControllerWrapper) pumpEvents(ctx context.Context, out chan<- error) {
	for {
		err := w.ctrl.WaitPortEvent(ctx)
		if ctx.Err() != nil {
			return
		}
		select {
		case out <- err:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// syncState re-reads every port and reconciles policy attach state,
// synthesising the events a cold observer is missing.
func (w *ControllerWrapper) syncState() error {
	var pending typec.PortPending
	for local := range w.ports {
		lp := pd.LocalPortID(local)
		status, err := w.ctrl.GetPortStatus(lp)
		if err != nil {
			return err
		}
		ps := w.ports[local]
		ps.status = status

		var ev typec.PortEventKind
		attached := w.devices[local].StateKind() != policy.Detached
		if status.Connected() != attached {
			ev |= typec.EventPlugInsertedOrRemoved
		}
		if status.Connected() && status.Contract.IsSink() {
			ev |= typec.EventNewPowerContractAsConsumer
		}
		if ev.None() {
			continue
		}
		w.handleStatusEvents(lp, ev, status)
		ps.events |= ev
		global, _ := w.dev.GlobalPort(lp)
		pending.Pend(global)
	}
	w.reg.NotifyPorts(pending)
	return nil
}

// processPortEvents collects and reacts to the controller's pending
// events, then wakes the service for the affected ports.
func (w *ControllerWrapper) processPortEvents() {
	var pending typec.PortPending
	for local := range w.ports {
		lp := pd.LocalPortID(local)
		ev, err := w.ctrl.ClearPortEvents(lp)
		if err != nil {
			println("[usbc] clear events:", err.Error())
			continue
		}
		if ev.None() {
			continue
		}
		ps := w.ports[local]
		if !ev.StatusChanged().None() {
			status, err := w.ctrl.GetPortStatus(lp)
			if err != nil {
				println("[usbc] port status:", err.Error())
			} else {
				ps.status = status
				w.handleStatusEvents(lp, ev, status)
			}
		}
		if ev.Has(typec.EventPdAlert) {
			w.queueAlert(lp)
		}
		ps.events |= ev
		global, _ := w.dev.GlobalPort(lp)
		pending.Pend(global)
	}
	w.reg.NotifyPorts(pending)
}

// handleStatusEvents runs the wrapper side effects of status changing
// events against a fresh status snapshot.
func (w *ControllerWrapper) handleStatusEvents(local pd.LocalPortID, ev typec.PortEventKind, status typec.PortStatus) {
	dev := w.devices[local]
	ps := w.ports[local]

	if ev.Has(typec.EventPlugInsertedOrRemoved) {
		if status.Connected() {
			if dev.StateKind() != policy.Detached {
				// replug without an observed removal
				dev.Detach()
			}
			dev.Attach()
		} else {
			dev.Detach()
			ps.sinkReadyBy = time.Time{}
			ps.alerts = ps.alerts[:0]
		}
	}

	if ev.Has(typec.EventNewPowerContractAsConsumer) && status.Contract.IsSink() {
		w.offerConsumer(local, status)
		if !ev.Has(typec.EventSinkReady) {
			wait := pd.TSrcTransReqSpr
			if status.Epr {
				wait = pd.TSrcTransReqEpr
			}
			ps.sinkReadyBy = time.Now().Add(wait)
		}
	}
	if ev.Has(typec.EventSinkReady) {
		ps.sinkReadyBy = time.Time{}
	}
	if ev.Has(typec.EventPdHardReset) {
		// contract is void, stop expecting the sink path
		ps.sinkReadyBy = time.Time{}
	}
	if ev.Has(typec.EventNewPowerContractAsProvider) {
		println("[usbc] provider contract, port", local)
	}
}

// offerConsumer reports the partner's sink offer to the power policy.
func (w *ControllerWrapper) offerConsumer(local pd.LocalPortID, status typec.PortStatus) {
	cap := status.Contract.Capability
	if status.AvailableSinkContract != nil {
		cap = *status.AvailableSinkContract
	}
	offer := policy.ConsumerPowerCapability{
		Capability:    cap,
		Unconstrained: w.cfg.offerUnconstrained(status),
	}
	dev := w.devices[local]
	if dev.StateKind() == policy.Detached {
		// contract observed before the plug event
		if err := dev.Attach(); err != nil {
			return
		}
	}
	if err := dev.NotifyConsumerPowerCapability(&offer); err != nil {
		println("[usbc] offer rejected, port", local, err.Error())
	}
}

func (w *ControllerWrapper) queueAlert(local pd.LocalPortID) {
	ado, err := w.ctrl.GetPdAlert(local)
	if err != nil {
		println("[usbc] pd alert:", err.Error())
		return
	}
	if ado == nil {
		return
	}
	ps := w.ports[local]
	if len(ps.alerts) >= w.cfg.AlertQueueLen {
		// full queue drops the oldest alert
		copy(ps.alerts, ps.alerts[1:])
		ps.alerts = ps.alerts[:len(ps.alerts)-1]
	}
	ps.alerts = append(ps.alerts, *ado)
}

// untilSinkReadyDeadline returns the wait until the earliest pending
// sink ready deadline, or an idle hour when none is armed.
func (w *ControllerWrapper) untilSinkReadyDeadline() time.Duration {
	var next time.Time
	for _, ps := range w.ports {
		if ps.sinkReadyBy.IsZero() {
			continue
		}
		if next.IsZero() || ps.sinkReadyBy.Before(next) {
			next = ps.sinkReadyBy
		}
	}
	if next.IsZero() {
		return time.Hour
	}
	return time.Until(next)
}

// expireSinkReady synthesises a sink ready event for every port whose
// controller missed its transition deadline.
func (w *ControllerWrapper) expireSinkReady() {
	now := time.Now()
	var pending typec.PortPending
	for local, ps := range w.ports {
		if ps.sinkReadyBy.IsZero() || ps.sinkReadyBy.After(now) {
			continue
		}
		ps.sinkReadyBy = time.Time{}
		println("[usbc] sink ready timeout, port", local)
		ps.events |= typec.EventSinkReady
		global, _ := w.dev.GlobalPort(pd.LocalPortID(local))
		pending.Pend(global)
	}
	w.reg.NotifyPorts(pending)
}

// servePowerRequest executes a power policy request on the hardware.
func (w *ControllerWrapper) servePowerRequest(req *policy.Request) error {
	local, err := w.dev.LocalPort(pd.GlobalPortID(req.Device.ID()))
	if err != nil {
		return err
	}
	switch req.Kind {
	case policy.ReqConnectConsumer:
		println("[usbc] sink path on, port", local, "mw", req.Capability.MilliWatts())
		return pd.AsPd(w.ctrl.EnableSinkPath(local, true))
	case policy.ReqDisconnect:
		println("[usbc] sink path off, port", local)
		return pd.AsPd(w.ctrl.EnableSinkPath(local, false))
	default:
		return pd.ErrInvalidParams
	}
}

func (w *ControllerWrapper) serveCommand(cmd typec.Command) typec.Response {
	switch c := cmd.(type) {
	case typec.ControllerCommand:
		return w.serveControllerCommand(c)
	case typec.PortCommand:
		return w.servePortCommand(c)
	case typec.LpmCommand:
		return typec.LpmResponse{Err: w.serveLpmCommand(c.Cmd)}
	default:
		return typec.PortErr(pd.ErrInvalidParams)
	}
}

func (w *ControllerWrapper) serveControllerCommand(c typec.ControllerCommand) typec.ControllerResponse {
	switch c.Op {
	case typec.OpControllerStatus:
		status, err := w.ctrl.ControllerStatus()
		return typec.ControllerResponse{Err: pd.AsPd(err), Status: status}
	case typec.OpControllerSyncState:
		return typec.ControllerResponse{Err: pd.AsPd(w.syncState())}
	case typec.OpControllerReset:
		return typec.ControllerResponse{Err: pd.AsPd(w.ctrl.Reset())}
	default:
		return typec.ControllerResponse{Err: pd.ErrUnsupported}
	}
}

func (w *ControllerWrapper) servePortCommand(c typec.PortCommand) typec.PortResponse {
	local, err := w.dev.LocalPort(c.Port)
	if err != nil {
		return typec.PortErr(err)
	}
	ps := w.ports[local]

	switch c.Op {
	case typec.OpPortStatus:
		if c.Cached {
			return typec.PortResponse{Status: ps.status}
		}
		status, err := w.ctrl.GetPortStatus(local)
		if err != nil {
			return typec.PortErr(err)
		}
		ps.status = status
		return typec.PortResponse{Status: status}

	case typec.OpClearEvents:
		ev := ps.events
		ps.events = 0
		return typec.PortResponse{Events: ev}

	case typec.OpGetPdAlert:
		if len(ps.alerts) == 0 {
			return typec.PortResponse{}
		}
		ado := ps.alerts[0]
		copy(ps.alerts, ps.alerts[1:])
		ps.alerts = ps.alerts[:len(ps.alerts)-1]
		return typec.PortResponse{Alert: &ado}

	case typec.OpSetMaxSinkVoltage:
		if c.MaxVoltageMv != 0 && ps.status.Contract.IsSink() &&
			ps.status.Contract.Capability.VoltageMv > c.MaxVoltageMv {
			println("[usbc] max sink voltage below active contract, port", local)
		}
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.SetMaxSinkVoltage(local, c.MaxVoltageMv))}

	case typec.OpSetUnconstrainedPower:
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.SetUnconstrainedPower(local, c.Unconstrained))}

	case typec.OpClearDeadBatteryFlag:
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.ClearDeadBatteryFlag(local))}

	case typec.OpGetOtherVdm:
		vdm, err := w.ctrl.GetOtherVdm(local)
		return typec.PortResponse{Err: pd.AsPd(err), Vdm: vdm}

	case typec.OpGetAttnVdm:
		vdm, err := w.ctrl.GetAttnVdm(local)
		return typec.PortResponse{Err: pd.AsPd(err), Vdm: vdm}

	case typec.OpSendVdm:
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.SendVdm(local, c.Vdm))}

	case typec.OpGetDpStatus:
		status, err := w.ctrl.GetDpStatus(local)
		return typec.PortResponse{Err: pd.AsPd(err), DpStatus: status}

	case typec.OpSetDpConfig:
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.SetDpConfig(local, c.DpConfig))}

	case typec.OpExecuteDrst:
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.ExecuteDrst(local))}

	case typec.OpGetRetimerFwUpdateState:
		on, err := w.ctrl.GetRetimerFwUpdateState(local)
		return typec.PortResponse{Err: pd.AsPd(err), RetimerFwUpdate: on}

	case typec.OpSetRetimerFwUpdateState:
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.SetRetimerFwUpdateState(local))}

	case typec.OpClearRetimerFwUpdateState:
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.ClearRetimerFwUpdateState(local))}

	case typec.OpSetRetimerCompliance:
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.SetRetimerCompliance(local))}

	case typec.OpReconfigureRetimer:
		return typec.PortResponse{Err: pd.AsPd(w.ctrl.ReconfigureRetimer(local))}

	default:
		return typec.PortErr(pd.ErrUnsupported)
	}
}

// serveLpmCommand executes a connector scoped UCSI command the PPM
// delegates to the low power manager.
func (w *ControllerWrapper) serveLpmCommand(cmd ucsi.Command) error {
	local, err := w.dev.LocalPort(cmd.Port)
	if err != nil {
		return err
	}
	switch cmd.Code {
	case ucsi.CodeConnectorReset:
		return pd.AsPd(w.ctrl.ConnectorReset(local, cmd.Reset))
	default:
		return pd.ErrUnsupported
	}
}

// resetTimer safely stops, drains, and resets a timer.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		drainTimer(t)
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
