package ucsi

import "typeccode-go/pd"

// ControlSize is the wire size of the CONTROL data structure: command
// byte, data length byte and six command specific bytes.
const ControlSize = 8

// EncodeControl packs the command into the CONTROL register layout the
// OPM writes. Connector numbers go on the wire 1-based.
func (c Command) EncodeControl() [ControlSize]byte {
	var b [ControlSize]byte
	b[0] = byte(c.Code)
	switch c.Code {
	case CodeConnectorReset:
		b[2] = connectorField(c.Port)
		if c.Reset == ResetHard {
			b[2] |= 0x80
		}
	case CodeAckCcCi:
		if c.Ack.ConnectorChange {
			b[2] |= 1 << 0
		}
		if c.Ack.CommandComplete {
			b[2] |= 1 << 1
		}
	case CodeSetNotificationEnable:
		b[2] = byte(c.Enable)
		b[3] = byte(c.Enable >> 8)
	case CodeGetConnectorCapability, CodeGetConnectorStatus:
		b[2] = connectorField(c.Port)
	}
	return b
}

// ParseControl decodes a CONTROL write into a Command. Connector
// scoped commands must carry a valid non-zero connector number.
func ParseControl(b []byte) (Command, error) {
	if len(b) < ControlSize {
		return Command{}, pd.ErrInvalidParams
	}
	cmd := Command{Code: CommandCode(b[0])}
	switch cmd.Code {
	case CodePpmReset, CodeCancel, CodeGetCapability, CodeGetErrorStatus:
		// PPM scoped, no parameters.

	case CodeConnectorReset:
		port, err := connectorPort(b[2] & 0x7f)
		if err != nil {
			return Command{}, err
		}
		cmd.Port = port
		cmd.Reset = ResetData
		if b[2]&0x80 != 0 {
			cmd.Reset = ResetHard
		}

	case CodeAckCcCi:
		cmd.Ack = Ack{
			ConnectorChange: b[2]&(1<<0) != 0,
			CommandComplete: b[2]&(1<<1) != 0,
		}

	case CodeSetNotificationEnable:
		cmd.Enable = NotificationEnable(b[2]) | NotificationEnable(b[3])<<8

	case CodeGetConnectorCapability, CodeGetConnectorStatus:
		port, err := connectorPort(b[2] & 0x7f)
		if err != nil {
			return Command{}, err
		}
		cmd.Port = port

	default:
		return Command{}, pd.ErrUnsupported
	}
	return cmd, nil
}

func connectorField(port pd.GlobalPortID) byte {
	return byte(port+1) & 0x7f
}

func connectorPort(conn byte) (pd.GlobalPortID, error) {
	if conn == 0 || int(conn) > pd.MaxSupportedPorts {
		return 0, pd.ErrInvalidPort
	}
	return pd.GlobalPortID(conn - 1), nil
}
