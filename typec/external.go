package typec

import (
	"context"

	"typeccode-go/pd"
	"typeccode-go/ucsi"
)

// ExternalCommand is a request from outside the subsystem (console,
// OPM transport, platform tasks). It is processed by the Type-C
// service, not sent to a wrapper directly.
type ExternalCommand interface{ isExternalCommand() }

// ExternalControllerCommand targets one controller.
type ExternalControllerCommand struct {
	Controller pd.ControllerID
	Op         ControllerOp
}

// ExternalPortCommand targets one global port.
type ExternalPortCommand struct {
	Cmd PortCommand
}

// ExternalUcsiCommand feeds the PPM state machine.
type ExternalUcsiCommand struct {
	Cmd ucsi.Command
}

func (ExternalControllerCommand) isExternalCommand() {}

func (ExternalPortCommand) isExternalCommand() {}

func (ExternalUcsiCommand) isExternalCommand() {}

// Request pairs an external command with its reply slot. The service
// responds exactly once per request.
type Request struct {
	Command ExternalCommand
	resp    chan any
}

// Respond delivers the response. The payload type depends on the
// command: ControllerResponse, PortResponse or ucsi.Response.
func (r *Request) Respond(v any) {
	r.resp <- v
}

// External is the service's receive side for external requests.
func (r *Registry) External() <-chan *Request {
	return r.external
}

// ExecuteExternal submits an external command and waits for the
// service's response.
func (r *Registry) ExecuteExternal(ctx context.Context, cmd ExternalCommand) (any, error) {
	req := &Request{Command: cmd, resp: make(chan any, 1)}
	select {
	case r.external <- req:
	case <-ctx.Done():
		return nil, pd.ErrTimeout
	}
	select {
	case v := <-req.resp:
		return v, nil
	case <-ctx.Done():
		return nil, pd.ErrTimeout
	}
}

// ExecuteUcsiCommand runs one UCSI command through the PPM.
func ExecuteUcsiCommand(ctx context.Context, r *Registry, cmd ucsi.Command) (ucsi.Response, error) {
	v, err := r.ExecuteExternal(ctx, ExternalUcsiCommand{Cmd: cmd})
	if err != nil {
		return ucsi.Response{}, err
	}
	resp, ok := v.(ucsi.Response)
	if !ok {
		return ucsi.Response{}, pd.ErrInvalidResponse
	}
	return resp, nil
}

// GetControllerStatus reads a controller's status snapshot.
func GetControllerStatus(ctx context.Context, r *Registry, id pd.ControllerID) (ControllerStatus, error) {
	return controllerExchange(ctx, r, id, OpControllerStatus)
}

// SyncControllerState forces a wrapper to re-derive its state from
// hardware.
func SyncControllerState(ctx context.Context, r *Registry, id pd.ControllerID) error {
	_, err := controllerExchange(ctx, r, id, OpControllerSyncState)
	return err
}

// ResetController resets a controller chip.
func ResetController(ctx context.Context, r *Registry, id pd.ControllerID) error {
	_, err := controllerExchange(ctx, r, id, OpControllerReset)
	return err
}

func controllerExchange(ctx context.Context, r *Registry, id pd.ControllerID, op ControllerOp) (ControllerStatus, error) {
	v, err := r.ExecuteExternal(ctx, ExternalControllerCommand{Controller: id, Op: op})
	if err != nil {
		return ControllerStatus{}, err
	}
	resp, ok := v.(ControllerResponse)
	if !ok {
		return ControllerStatus{}, pd.ErrInvalidResponse
	}
	if resp.Err != nil {
		return ControllerStatus{}, resp.Err
	}
	return resp.Status, nil
}

// ExecutePortCommand runs one port command through the service.
func ExecutePortCommand(ctx context.Context, r *Registry, cmd PortCommand) (PortResponse, error) {
	v, err := r.ExecuteExternal(ctx, ExternalPortCommand{Cmd: cmd})
	if err != nil {
		return PortResponse{}, err
	}
	resp, ok := v.(PortResponse)
	if !ok {
		return PortResponse{}, pd.ErrInvalidResponse
	}
	return resp, resp.Err
}

// GetPortStatus reads a port's status, cached or fresh.
func GetPortStatus(ctx context.Context, r *Registry, port pd.GlobalPortID, cached bool) (PortStatus, error) {
	resp, err := ExecutePortCommand(ctx, r, PortCommand{Port: port, Op: OpPortStatus, Cached: cached})
	if err != nil {
		return PortStatus{}, err
	}
	return resp.Status, nil
}

// GetPdAlert pops the oldest pending PD alert for a port, nil when
// none is queued.
func GetPdAlert(ctx context.Context, r *Registry, port pd.GlobalPortID) (*pd.Ado, error) {
	resp, err := ExecutePortCommand(ctx, r, PortCommand{Port: port, Op: OpGetPdAlert})
	if err != nil {
		return nil, err
	}
	return resp.Alert, nil
}

// SetMaxSinkVoltage limits future sink contracts, 0 clears the limit.
func SetMaxSinkVoltage(ctx context.Context, r *Registry, port pd.GlobalPortID, maxMv uint16) error {
	_, err := ExecutePortCommand(ctx, r, PortCommand{Port: port, Op: OpSetMaxSinkVoltage, MaxVoltageMv: maxMv})
	return err
}

// SetUnconstrainedPower toggles the port's unconstrained power
// advertisement.
func SetUnconstrainedPower(ctx context.Context, r *Registry, port pd.GlobalPortID, unconstrained bool) error {
	_, err := ExecutePortCommand(ctx, r, PortCommand{Port: port, Op: OpSetUnconstrainedPower, Unconstrained: unconstrained})
	return err
}

// ClearDeadBatteryFlag leaves dead battery boot mode on a port.
func ClearDeadBatteryFlag(ctx context.Context, r *Registry, port pd.GlobalPortID) error {
	_, err := ExecutePortCommand(ctx, r, PortCommand{Port: port, Op: OpClearDeadBatteryFlag})
	return err
}
