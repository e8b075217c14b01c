// services/usbc/ucsi.go
package usbc

import (
	"context"

	"typeccode-go/pd"
	"typeccode-go/typec"
	"typeccode-go/types"
	"typeccode-go/ucsi"
	"typeccode-go/x/timex"
)

// ucsiState is the PPM bookkeeping that lives outside the state
// machine: the notification mask, the connector change round robin and
// the per port accumulated status change bits.
type ucsiState struct {
	machine ucsi.StateMachine
	enabled ucsi.NotificationEnable

	pending typec.PortPending
	// cursor is the port whose connector change is currently indicated
	// to the OPM, -1 when none. cursor is set exactly when pending is
	// non empty.
	cursor int

	statusChange [pd.MaxSupportedPorts]ucsi.ConnectorStatusChange
	lastError    ucsi.ErrorStatus
}

func newUcsiState() *ucsiState { return &ucsiState{cursor: -1} }

// processUcsiCommand feeds one OPM command through the state machine
// and performs whatever the resulting transition asks for.
func (s *service) processUcsiCommand(ctx context.Context, cmd ucsi.Command) ucsi.Response {
	u := s.ucsi
	out, err := u.machine.Consume(ucsi.CommandInput(cmd))
	if err != nil {
		println("[usbc] ucsi:", err.Error())
		return ucsi.Response{NotifyOpm: u.enabled.Has(ucsi.NotifyCmdComplete), Cci: ucsi.NewErrorCci()}
	}

	switch out.Kind {
	case ucsi.OutResetComplete:
		// Notifications are disabled until the OPM re-enables them.
		// Accumulated connector status survives the reset, it is LPM
		// state the OPM has not consumed yet.
		u.enabled = 0
		u.pending = 0
		u.cursor = -1
		println("[usbc] ucsi: ppm reset")
		return ucsi.Response{Cci: ucsi.NewResetCompleteCci()}

	case ucsi.OutNotifyBusy:
		return ucsi.Response{Cci: ucsi.NewBusyCci()}

	case ucsi.OutAckComplete:
		return s.completeAck(out.Ack)

	case ucsi.OutExecuteCommand:
		return s.executeUcsi(ctx, out.Cmd)

	default:
		return ucsi.Response{NotifyOpm: u.enabled.Has(ucsi.NotifyCmdComplete), Cci: ucsi.NewErrorCci()}
	}
}

// executeUcsi runs a command handler and completes the machine's
// executing phase.
func (s *service) executeUcsi(ctx context.Context, cmd ucsi.Command) ucsi.Response {
	u := s.ucsi
	data, err := s.runUcsiCommand(ctx, cmd)

	if out, merr := u.machine.Consume(ucsi.CompleteInput()); merr != nil || out.Kind != ucsi.OutNotifyCommandComplete {
		println("[usbc] ucsi: lost executing state for", cmd.Code.String())
		return ucsi.Response{Cci: ucsi.NewErrorCci()}
	}

	notify := u.enabled.Has(ucsi.NotifyCmdComplete)
	if err != nil {
		println("[usbc] ucsi:", cmd.Code.String(), "failed:", err.Error())
		u.lastError = ucsiErrorFor(err)
		cci := ucsi.NewErrorCci()
		if pd.Split(err) == pd.ErrUnsupported {
			cci = ucsi.Cci{NotSupported: true, CmdComplete: true}
		}
		return ucsi.Response{NotifyOpm: notify, Cci: cci}
	}
	return ucsi.Response{
		NotifyOpm: notify,
		Cci:       ucsi.Cci{CmdComplete: true, DataLen: ucsi.DataLen(data)},
		Data:      data,
	}
}

// runUcsiCommand dispatches an executable command to its handler.
func (s *service) runUcsiCommand(ctx context.Context, cmd ucsi.Command) (any, error) {
	switch cmd.Code {
	case ucsi.CodeSetNotificationEnable:
		s.setNotificationEnable(cmd.Enable)
		return nil, nil

	case ucsi.CodeGetCapability:
		cap := s.cfg.Capability
		cap.NumConnectors = uint8(s.reg.NumPorts())
		return cap, nil

	case ucsi.CodeGetConnectorCapability:
		if _, ok := s.reg.ByPort(cmd.Port); !ok {
			return nil, pd.ErrInvalidPort
		}
		return s.cfg.ConnectorCapability(cmd.Port), nil

	case ucsi.CodeGetConnectorStatus:
		return s.connectorStatus(cmd.Port)

	case ucsi.CodeGetErrorStatus:
		return s.ucsi.lastError, nil

	case ucsi.CodeConnectorReset:
		return nil, s.connectorReset(ctx, cmd)

	default:
		// CANCEL included, command execution here is synchronous so
		// there is never anything in flight to cancel.
		return nil, pd.ErrUnsupported
	}
}

// setNotificationEnable applies a new mask and re-pends every port
// whose accumulated changes just became visible.
func (s *service) setNotificationEnable(enable ucsi.NotificationEnable) {
	u := s.ucsi
	u.enabled = enable
	for i := 0; i < pd.MaxSupportedPorts; i++ {
		gp := pd.GlobalPortID(i)
		if u.pending.IsPending(gp) {
			continue
		}
		if u.statusChange[gp].FilterEnabled(enable).None() {
			continue
		}
		u.pending.Pend(gp)
	}
	s.kickConnectorChange()
}

// connectorStatus answers GET_CONNECTOR_STATUS from the service cache
// and hands over the accumulated change bits, clearing them.
func (s *service) connectorStatus(port pd.GlobalPortID) (any, error) {
	if _, ok := s.reg.ByPort(port); !ok {
		return nil, pd.ErrInvalidPort
	}
	u := s.ucsi
	cs := buildConnectorStatus(s.cache[port].status, u.statusChange[port])
	u.statusChange[port] = 0
	return cs, nil
}

// connectorReset delegates the reset to the port's wrapper.
func (s *service) connectorReset(ctx context.Context, cmd ucsi.Command) error {
	dev, ok := s.reg.ByPort(cmd.Port)
	if !ok {
		return pd.ErrInvalidPort
	}
	resp, err := dev.Execute(ctx, typec.LpmCommand{Cmd: cmd})
	if err != nil {
		return err
	}
	lr, ok := resp.(typec.LpmResponse)
	if !ok {
		return pd.ErrInvalidResponse
	}
	return lr.Err
}

// completeAck finishes an ACK_CC_CI exchange and, when a connector
// change was acknowledged, advances the round robin.
func (s *service) completeAck(ack ucsi.Ack) ucsi.Response {
	cci := ucsi.Cci{AckCommand: true}
	if ack.ConnectorChange {
		s.ackConnectorChange(&cci)
	} else if !ack.CommandComplete {
		println("[usbc] ucsi: ack with nothing to acknowledge")
	}
	return ucsi.Response{NotifyOpm: true, Cci: cci}
}

func (s *service) ackConnectorChange(cci *ucsi.Cci) {
	u := s.ucsi
	if u.cursor < 0 {
		println("[usbc] ucsi: connector change ack with none indicated")
		return
	}
	cur := pd.GlobalPortID(u.cursor)
	u.pending.ClearPort(cur)

	// round robin: continue from the port after the one just
	// acknowledged, wrapping to the lowest
	next, ok := u.pending.LowestFrom(cur + 1)
	if !ok {
		next, ok = u.pending.Lowest()
	}
	if !ok {
		u.cursor = -1
		return
	}
	u.cursor = int(next)
	cci.SetConnectorChange(next)
	s.publishCci(next)
}

// raiseStatusChange accumulates change bits for a port and starts a
// connector change indication when the change is visible under the
// current notification mask.
func (s *service) raiseStatusChange(port pd.GlobalPortID, change ucsi.ConnectorStatusChange) {
	u := s.ucsi
	u.statusChange[port] |= change
	if change.FilterEnabled(u.enabled).None() {
		return
	}
	u.pending.Pend(port)
	s.kickConnectorChange()
}

// kickConnectorChange indicates the lowest pending port when no
// indication is outstanding.
func (s *service) kickConnectorChange() {
	u := s.ucsi
	if u.cursor >= 0 {
		return
	}
	port, ok := u.pending.Lowest()
	if !ok {
		return
	}
	u.cursor = int(port)
	s.publishCci(port)
}

// publishCci announces an asynchronous connector change CCI on the
// bus. The OPM transport turns it into its interrupt mechanism.
func (s *service) publishCci(port pd.GlobalPortID) {
	s.conn.Publish(s.conn.NewMessage(TopicCci(), types.UcsiCciMessage{
		Port:      uint8(port),
		NotifyOpm: true,
		TS:        timex.NowMs(),
	}, false))
}

// portStatusChanged translates a batch of status changing port events
// into UCSI connector status change bits.
func (s *service) portStatusChanged(port pd.GlobalPortID, ev typec.PortEventKind) {
	var change ucsi.ConnectorStatusChange
	if ev.Has(typec.EventPlugInsertedOrRemoved) {
		change |= ucsi.StatusConnectChange
	}
	if ev.Has(typec.EventNewPowerContractAsConsumer) {
		change |= ucsi.StatusNegotiatedPowerLevelChange | ucsi.StatusPowerOpModeChange
	}
	if ev.Has(typec.EventNewPowerContractAsProvider) {
		change |= ucsi.StatusNegotiatedPowerLevelChange | ucsi.StatusPowerOpModeChange |
			ucsi.StatusPowerDirectionChange
	}
	if ev.Has(typec.EventPowerSwapCompleted) {
		change |= ucsi.StatusPowerDirectionChange
	}
	if ev.Has(typec.EventDataSwapCompleted) || ev.Has(typec.EventAltModeEntered) {
		change |= ucsi.StatusConnectorPartnerChange
	}
	if ev.Has(typec.EventPdHardReset) {
		change |= ucsi.StatusPdResetComplete
	}
	if ev.Has(typec.EventSinkReady) {
		change |= ucsi.StatusBatteryChargingChange
	}
	if change.None() {
		return
	}
	s.raiseStatusChange(port, change)
}

// portNotification translates one one-shot notification event.
func (s *service) portNotification(port pd.GlobalPortID, ev typec.PortEventKind) {
	var change ucsi.ConnectorStatusChange
	switch ev {
	case typec.EventCustomModeEntered, typec.EventCustomModeExited,
		typec.EventDiscoverModeCompleted, typec.EventOtherVdmReceived:
		change = ucsi.StatusSupportedCamChange
	case typec.EventAttentionReceived:
		change = ucsi.StatusAttention
	case typec.EventDpStatusUpdate:
		change = ucsi.StatusConnectorPartnerChange
	case typec.EventPdAlert:
		change = ucsi.StatusBatteryChargingChange
	default:
		return
	}
	s.raiseStatusChange(port, change)
}

// buildConnectorStatus derives the UCSI view of a cached port status.
// Partner data role is approximated from the power role, the
// controller does not expose it separately.
func buildConnectorStatus(status typec.PortStatus, change ucsi.ConnectorStatusChange) ucsi.ConnectorStatus {
	cs := ucsi.ConnectorStatus{
		StatusChange:  change,
		ConnectStatus: status.ConnectionPresent,
	}
	if !status.ConnectionPresent {
		return cs
	}
	switch {
	case status.DebugConnection:
		cs.PartnerType = ucsi.PartnerDebugAcc
	case status.Contract.IsSink():
		cs.PartnerType = ucsi.PartnerDfp
	case status.Contract.IsSource():
		cs.PartnerType = ucsi.PartnerUfp
	}
	if status.Contract.None() {
		cs.PowerOpMode = ucsi.OpModeUsbDefault
	} else {
		cs.PowerOpMode = ucsi.OpModePd
	}
	cs.PowerDirection = status.Contract.IsSource()
	cs.BatteryCharging = status.Contract.IsSink()
	return cs
}

// ucsiErrorFor maps an internal failure to GET_ERROR_STATUS details.
func ucsiErrorFor(err error) ucsi.ErrorStatus {
	switch pd.Split(err) {
	case pd.ErrInvalidPort, pd.ErrInvalidController:
		return ucsi.ErrorNonExistentConnector
	case pd.ErrUnsupported:
		return ucsi.ErrorUnrecognizedCommand
	case pd.ErrInvalidParams, pd.ErrInvalidMode:
		return ucsi.ErrorInvalidParameters
	default:
		return ucsi.ErrorCcCommunication
	}
}
