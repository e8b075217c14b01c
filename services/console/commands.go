// services/console/commands.go
package console

import (
	"context"
	"errors"

	"github.com/google/shlex"

	"typeccode-go/pd"
	"typeccode-go/typec"
	"typeccode-go/ucsi"
	"typeccode-go/x/conv"
	"typeccode-go/x/strconvx"
)

const helpText = `commands:
  ports                          list all ports
  status <port> [fresh]          port status, cached unless fresh
  controller [id]                controller status
  sync [id]                      re-derive controller state
  reset [id]                     reset the controller chip
  alert <port>                   pop the oldest PD alert
  maxv <port> <mv>               limit sink voltage, 0 clears
  unconstrained <port> on|off    advertise unconstrained power
  deadbattery <port>             clear the dead battery flag
  drst <port>                    data role swap reset
  vdm <port> attn|other          read a received VDM
  vdm <port> send <hex>...       transmit a VDM
  dp <port>                      DisplayPort status
  dp <port> enable c|d|e [ufpd]  enter DisplayPort alt mode
  dp <port> disable              leave DisplayPort alt mode
  retimer <port> get|set|clear|compliance|reconfig
  ucsi reset                     PPM_RESET
  ucsi enable <bits|names>...    SET_NOTIFICATION_ENABLE
  ucsi ack [cc] [cmd]            ACK_CC_CI
  ucsi cap                       GET_CAPABILITY
  ucsi concap <port>             GET_CONNECTOR_CAPABILITY
  ucsi status <port>             GET_CONNECTOR_STATUS
  ucsi errst                     GET_ERROR_STATUS
  ucsi connreset <port> [data]   CONNECTOR_RESET
`

var errUsage = errors.New("bad arguments, try 'help'")

func (s *Service) dispatch(ctx context.Context, line string) {
	args, err := shlex.Split(line)
	if err != nil {
		s.printf("parse error: %s\n", err.Error())
		return
	}
	if len(args) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()
	if err := s.runCommand(cctx, args[0], args[1:]); err != nil {
		s.printf("error: %s\n", err.Error())
	}
}

func (s *Service) runCommand(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		s.print(helpText)
		return nil
	case "ports":
		return s.cmdPorts(ctx)
	case "status":
		return s.cmdStatus(ctx, args)
	case "controller":
		return s.cmdController(ctx, args)
	case "sync":
		id, err := parseController(args)
		if err != nil {
			return err
		}
		return typec.SyncControllerState(ctx, s.reg, id)
	case "reset":
		id, err := parseController(args)
		if err != nil {
			return err
		}
		return typec.ResetController(ctx, s.reg, id)
	case "ucsi":
		return s.cmdUcsi(ctx, args)
	case "alert":
		return s.cmdAlert(ctx, args)
	case "vdm":
		return s.cmdVdm(ctx, args)
	case "dp":
		return s.cmdDp(ctx, args)
	case "maxv":
		return s.cmdMaxVoltage(ctx, args)
	case "unconstrained":
		return s.cmdUnconstrained(ctx, args)
	case "deadbattery":
		port, err := parsePortArgs(args)
		if err != nil {
			return err
		}
		return typec.ClearDeadBatteryFlag(ctx, s.reg, port)
	case "drst":
		port, err := parsePortArgs(args)
		if err != nil {
			return err
		}
		_, err = typec.ExecutePortCommand(ctx, s.reg, typec.PortCommand{Port: port, Op: typec.OpExecuteDrst})
		return err
	case "retimer":
		return s.cmdRetimer(ctx, args)
	default:
		return errors.New("unknown command, try 'help'")
	}
}

// -----------------------------------------------------------------------------
// Port and controller commands
// -----------------------------------------------------------------------------

func (s *Service) cmdPorts(ctx context.Context) error {
	n := s.reg.NumPorts()
	if n == 0 {
		s.print("no ports registered\n")
		return nil
	}
	for i := 0; i < n; i++ {
		st, err := typec.GetPortStatus(ctx, s.reg, pd.GlobalPortID(i), true)
		if err != nil {
			s.printf("port %d: %s\n", i, err.Error())
			continue
		}
		s.printPortStatus(i, st)
	}
	return nil
}

func (s *Service) cmdStatus(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	port, err := parsePort(args[0])
	if err != nil {
		return err
	}
	cached := !(len(args) > 1 && args[1] == "fresh")
	st, err := typec.GetPortStatus(ctx, s.reg, port, cached)
	if err != nil {
		return err
	}
	s.printPortStatus(int(port), st)
	return nil
}

func (s *Service) cmdController(ctx context.Context, args []string) error {
	id, err := parseController(args)
	if err != nil {
		return err
	}
	st, err := typec.GetControllerStatus(ctx, s.reg, id)
	if err != nil {
		return err
	}
	s.printf("controller %d: mode %s fw %s valid %t",
		int(id), st.Mode.String(), conv.U32Hex(st.FwVersion), st.ValidFwBank)
	if !st.DeadBattery.None() {
		s.printf(" deadbattery %x", uint32(st.DeadBattery))
	}
	s.print("\n")
	return nil
}

func (s *Service) cmdAlert(ctx context.Context, args []string) error {
	port, err := parsePortArgs(args)
	if err != nil {
		return err
	}
	ado, err := typec.GetPdAlert(ctx, s.reg, port)
	if err != nil {
		return err
	}
	if ado == nil {
		s.print("no alert pending\n")
		return nil
	}
	s.printf("alert %s:", conv.U32Hex(uint32(*ado)))
	for _, name := range ado.Names() {
		s.printf(" %s", name)
	}
	s.print("\n")
	return nil
}

func (s *Service) cmdMaxVoltage(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	port, err := parsePort(args[0])
	if err != nil {
		return err
	}
	mv, err := strconvx.ParseUint(args[1], 0, 16)
	if err != nil {
		return errors.New("bad voltage")
	}
	return typec.SetMaxSinkVoltage(ctx, s.reg, port, uint16(mv))
}

func (s *Service) cmdUnconstrained(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	port, err := parsePort(args[0])
	if err != nil {
		return err
	}
	on, err := parseOnOff(args[1])
	if err != nil {
		return err
	}
	return typec.SetUnconstrainedPower(ctx, s.reg, port, on)
}

func (s *Service) cmdVdm(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	port, err := parsePort(args[0])
	if err != nil {
		return err
	}
	switch args[1] {
	case "attn", "other":
		op := typec.OpGetAttnVdm
		if args[1] == "other" {
			op = typec.OpGetOtherVdm
		}
		resp, err := typec.ExecutePortCommand(ctx, s.reg, typec.PortCommand{Port: port, Op: op})
		if err != nil {
			return err
		}
		s.printVdm(resp.Vdm)
		return nil
	case "send":
		if len(args) < 3 {
			return errUsage
		}
		var objects []uint32
		for _, a := range args[2:] {
			v, err := strconvx.ParseUint(a, 0, 32)
			if err != nil {
				return errors.New("bad vdm object")
			}
			objects = append(objects, uint32(v))
		}
		_, err := typec.ExecutePortCommand(ctx, s.reg, typec.PortCommand{
			Port: port, Op: typec.OpSendVdm, Vdm: pd.NewVdm(objects...),
		})
		return err
	default:
		return errUsage
	}
}

func (s *Service) cmdDp(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	port, err := parsePort(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		resp, err := typec.ExecutePortCommand(ctx, s.reg, typec.PortCommand{Port: port, Op: typec.OpGetDpStatus})
		if err != nil {
			return err
		}
		st := resp.DpStatus
		s.printf("dp %s: enabled %t ufpd %t hpd %t mf %t\n",
			conv.U32Hex(uint32(st)), st.Enabled(), st.UfpdConnected(), st.HpdState(), st.MultiFunction())
		return nil
	}
	var cfg pd.DpConfig
	switch args[1] {
	case "disable":
	case "enable":
		if len(args) < 3 {
			return errUsage
		}
		cfg.Enable = true
		switch args[2] {
		case "c":
			cfg.PinAssignment = pd.DpPinC
		case "d":
			cfg.PinAssignment = pd.DpPinD
		case "e":
			cfg.PinAssignment = pd.DpPinE
		default:
			return errors.New("bad pin assignment")
		}
		cfg.UfpD = len(args) > 3 && args[3] == "ufpd"
	default:
		return errUsage
	}
	_, err = typec.ExecutePortCommand(ctx, s.reg, typec.PortCommand{Port: port, Op: typec.OpSetDpConfig, DpConfig: cfg})
	return err
}

func (s *Service) cmdRetimer(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	port, err := parsePort(args[0])
	if err != nil {
		return err
	}
	var op typec.PortOp
	switch args[1] {
	case "get":
		resp, err := typec.ExecutePortCommand(ctx, s.reg, typec.PortCommand{Port: port, Op: typec.OpGetRetimerFwUpdateState})
		if err != nil {
			return err
		}
		s.printf("retimer fw update %t\n", resp.RetimerFwUpdate)
		return nil
	case "set":
		op = typec.OpSetRetimerFwUpdateState
	case "clear":
		op = typec.OpClearRetimerFwUpdateState
	case "compliance":
		op = typec.OpSetRetimerCompliance
	case "reconfig":
		op = typec.OpReconfigureRetimer
	default:
		return errUsage
	}
	_, err = typec.ExecutePortCommand(ctx, s.reg, typec.PortCommand{Port: port, Op: op})
	return err
}

// -----------------------------------------------------------------------------
// UCSI commands
// -----------------------------------------------------------------------------

func (s *Service) cmdUcsi(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	var cmd ucsi.Command
	switch args[0] {
	case "reset":
		cmd.Code = ucsi.CodePpmReset
	case "enable":
		mask, err := parseEnable(args[1:])
		if err != nil {
			return err
		}
		cmd.Code = ucsi.CodeSetNotificationEnable
		cmd.Enable = mask
	case "ack":
		for _, a := range args[1:] {
			switch a {
			case "cc":
				cmd.Ack.ConnectorChange = true
			case "cmd":
				cmd.Ack.CommandComplete = true
			default:
				return errUsage
			}
		}
		if !cmd.Ack.ConnectorChange && !cmd.Ack.CommandComplete {
			return errUsage
		}
		cmd.Code = ucsi.CodeAckCcCi
	case "cap":
		cmd.Code = ucsi.CodeGetCapability
	case "concap", "status", "connreset":
		if len(args) < 2 {
			return errUsage
		}
		port, err := parsePort(args[1])
		if err != nil {
			return err
		}
		cmd.Port = port
		switch args[0] {
		case "concap":
			cmd.Code = ucsi.CodeGetConnectorCapability
		case "status":
			cmd.Code = ucsi.CodeGetConnectorStatus
		case "connreset":
			cmd.Code = ucsi.CodeConnectorReset
			if len(args) > 2 && args[2] == "data" {
				cmd.Reset = ucsi.ResetData
			}
		}
	case "errst":
		cmd.Code = ucsi.CodeGetErrorStatus
	default:
		return errUsage
	}

	resp, err := typec.ExecuteUcsiCommand(ctx, s.reg, cmd)
	if err != nil {
		return err
	}
	s.printCci(resp.Cci)
	if resp.Data != nil {
		s.printUcsiData(resp.Data)
	}
	return nil
}

// parseEnable accepts one numeric bitmap or a list of change names.
func parseEnable(args []string) (ucsi.NotificationEnable, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	if len(args) == 1 {
		if v, err := strconvx.ParseUint(args[0], 0, 16); err == nil {
			return ucsi.NotificationEnable(v), nil
		}
	}
	var mask ucsi.NotificationEnable
	for _, a := range args {
		bit, ok := ucsi.ParseNotification(a)
		if !ok {
			return 0, errors.New("unknown notification " + a)
		}
		mask |= bit
	}
	return mask, nil
}

// -----------------------------------------------------------------------------
// Printing
// -----------------------------------------------------------------------------

func (s *Service) printPortStatus(port int, st typec.PortStatus) {
	if !st.ConnectionPresent {
		s.printf("port %d: disconnected\n", port)
		return
	}
	if st.DebugConnection {
		s.printf("port %d: debug accessory\n", port)
		return
	}
	s.printf("port %d: connected", port)
	if !st.Contract.None() {
		s.printf(", %s %dmV %dmA", st.Contract.Role.String(),
			int(st.Contract.Capability.VoltageMv), int(st.Contract.Capability.CurrentMa))
	}
	if st.Epr {
		s.print(", epr")
	}
	if st.UnconstrainedPower {
		s.print(", unconstrained")
	}
	if c := st.AvailableSinkContract; c != nil {
		s.printf(", offer %dmV %dmA", int(c.VoltageMv), int(c.CurrentMa))
	}
	s.print("\n")
}

func (s *Service) printCci(cci ucsi.Cci) {
	s.printf("cci %s:", conv.U32Hex(cci.Encode()))
	if cci.CmdComplete {
		s.print(" complete")
	}
	if cci.Error {
		s.print(" error")
	}
	if cci.NotSupported {
		s.print(" not_supported")
	}
	if cci.Busy {
		s.print(" busy")
	}
	if cci.AckCommand {
		s.print(" ack")
	}
	if cci.ResetComplete {
		s.print(" reset_complete")
	}
	if cci.ConnectorChange != 0 {
		s.printf(" connector=%d", int(cci.ConnectorChange))
	}
	s.print("\n")
}

func (s *Service) printUcsiData(data any) {
	switch d := data.(type) {
	case ucsi.Capability:
		s.printf("capability: connectors %d altmodes %d pd %x typec %x\n",
			int(d.NumConnectors), int(d.NumAltModes), int(d.BcdUsbPdSpec), int(d.BcdTypeCSpec))
	case ucsi.ConnectorCapability:
		s.printf("connector: provider %t consumer %t swap dfp %t ufp %t src %t snk %t\n",
			d.Provider, d.Consumer, d.SwapToDfp, d.SwapToUfp, d.SwapToSrc, d.SwapToSnk)
	case ucsi.ConnectorStatus:
		s.printf("connector: connected %t sourcing %t opmode %s charging %t",
			d.ConnectStatus, d.PowerDirection, d.PowerOpMode.String(), d.BatteryCharging)
		if !d.StatusChange.None() {
			s.print(" changes")
			for _, name := range d.StatusChange.Names() {
				s.printf(" %s", name)
			}
		}
		if d.RequestDataObject != 0 {
			s.printf(" rdo %s", conv.U32Hex(d.RequestDataObject))
		}
		s.print("\n")
	case ucsi.ErrorStatus:
		s.printf("error status %x\n", uint32(d))
	}
}

func (s *Service) printVdm(vdm pd.Vdm) {
	if vdm.None() {
		s.print("no vdm pending\n")
		return
	}
	s.print("vdm:")
	for i := uint8(0); i < vdm.Count; i++ {
		s.printf(" %s", conv.U32Hex(vdm.Objects[i]))
	}
	s.print("\n")
}

// -----------------------------------------------------------------------------
// Argument parsing
// -----------------------------------------------------------------------------

func parsePort(arg string) (pd.GlobalPortID, error) {
	n, err := strconvx.Atoi(arg)
	if err != nil || n < 0 || n >= pd.MaxSupportedPorts {
		return 0, errors.New("bad port number")
	}
	return pd.GlobalPortID(n), nil
}

func parsePortArgs(args []string) (pd.GlobalPortID, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	return parsePort(args[0])
}

// parseController defaults to controller 0 when no id is given.
func parseController(args []string) (pd.ControllerID, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconvx.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, errors.New("bad controller id")
	}
	return pd.ControllerID(n), nil
}

func parseOnOff(arg string) (bool, error) {
	switch arg {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, errors.New("expected on or off")
	}
}
