package tps6699x

import (
	"time"

	"typeccode-go/pd"
	"typeccode-go/ucsi"
)

// Command completion poll bounds. Most 4CC tasks finish in a few
// milliseconds, firmware update style tasks are not driven here.
const (
	cmdAttempts  = 100
	cmdPollEvery = time.Millisecond
)

// sinkPathSwitch selects the external sink power path for SRDY.
const sinkPathSwitch = 0x01

// exec runs one 4CC command: writes the arguments, writes the code,
// polls for completion and checks the task return code.
func (d *Device) exec(port pd.LocalPortID, cmd string, args []byte) error {
	if len(args) > 0 {
		if err := d.writeBlock(port, regData1, args); err != nil {
			return pd.Bus("write "+cmd+" args", err)
		}
	}
	if err := d.writeBlock(port, regCmd1, []byte(cmd)); err != nil {
		return pd.Bus("write "+cmd, err)
	}

	for i := 0; i < cmdAttempts; i++ {
		raw, err := d.readBlock(port, regCmd1, 4)
		if err != nil {
			return pd.Bus("poll "+cmd, err)
		}
		switch leU32(raw) {
		case 0:
			return d.taskResult(port, cmd)
		case cmdUnknown:
			return pd.ErrUnsupported
		}
		time.Sleep(cmdPollEvery)
	}
	return pd.ErrTimeout
}

func (d *Device) taskResult(port pd.LocalPortID, cmd string) error {
	raw, err := d.readBlock(port, regData1, 1)
	if err != nil {
		return pd.Bus("read "+cmd+" result", err)
	}
	switch raw[0] {
	case taskSuccess:
		return nil
	case taskTimedOut:
		return pd.ErrTimeout
	case taskRejected:
		return pd.ErrInvalidParams
	default:
		return pd.ErrFailed
	}
}

// ---------------- Power path and negotiation ----------------

func (d *Device) EnableSinkPath(port pd.LocalPortID, enable bool) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	if enable {
		return d.exec(port, cmdSinkReady, []byte{sinkPathSwitch})
	}
	return d.exec(port, cmdSinkResign, nil)
}

// SetMaxSinkVoltage programs the sink negotiation limit and
// renegotiates so an over-limit contract is replaced.
func (d *Device) SetMaxSinkVoltage(port pd.LocalPortID, maxMv uint16) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	var buf [4]byte
	putLeU16(buf[:2], maxMv)
	if maxMv != 0 {
		buf[2] = autoSinkLimitEnable
	}
	if err := d.writeBlock(port, regAutoSink, buf[:]); err != nil {
		return pd.Bus("write sink limit", err)
	}
	return d.exec(port, cmdRenegotiate, nil)
}

func (d *Device) SetUnconstrainedPower(port pd.LocalPortID, unconstrained bool) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	var set, clear uint32
	if unconstrained {
		set = uint32(ctlUnconstrained)
	} else {
		clear = uint32(ctlUnconstrained)
	}
	if err := d.modifyU32(port, regPortControl, set, clear); err != nil {
		return pd.Bus("write port control", err)
	}
	return nil
}

func (d *Device) ClearDeadBatteryFlag(port pd.LocalPortID) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	return d.exec(port, cmdClearDeadBattery, nil)
}

// ---------------- VDM transmit ----------------

func (d *Device) SendVdm(port pd.LocalPortID, vdm pd.Vdm) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	if vdm.Count == 0 || vdm.Count > pd.MaxVdmObjects {
		return pd.ErrInvalidParams
	}
	var buf [1 + 4*pd.MaxVdmObjects]byte
	buf[0] = vdm.Count
	for i := 0; i < int(vdm.Count); i++ {
		putLeU32(buf[1+4*i:], vdm.Objects[i])
	}
	return d.exec(port, cmdSendVdm, buf[:1+4*int(vdm.Count)])
}

// ---------------- Resets ----------------

func (d *Device) ExecuteDrst(port pd.LocalPortID) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	return d.exec(port, cmdDataReset, nil)
}

func (d *Device) ConnectorReset(port pd.LocalPortID, reset ucsi.ResetType) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	if reset == ucsi.ResetData {
		return d.exec(port, cmdDataReset, nil)
	}
	return d.exec(port, cmdHardReset, nil)
}

// Reset cold restarts the controller. The chip drops off the bus
// while it reboots, completion is not observable through CMD1.
func (d *Device) Reset() error {
	if err := d.writeBlock(0, regCmd1, []byte(cmdReset)); err != nil {
		return pd.Bus("write "+cmdReset, err)
	}
	return nil
}

// ---------------- Retimer ----------------

func (d *Device) GetRetimerFwUpdateState(port pd.LocalPortID) (bool, error) {
	if err := d.checkPort(port); err != nil {
		return false, err
	}
	v, err := d.readU32(port, regRetimerCtl)
	if err != nil {
		return false, pd.Bus("read retimer", err)
	}
	return RetimerCtl(v)&rtFwUpdateMode != 0, nil
}

func (d *Device) SetRetimerFwUpdateState(port pd.LocalPortID) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	if err := d.modifyU32(port, regRetimerCtl, uint32(rtFwUpdateMode), 0); err != nil {
		return pd.Bus("write retimer", err)
	}
	return nil
}

func (d *Device) ClearRetimerFwUpdateState(port pd.LocalPortID) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	if err := d.modifyU32(port, regRetimerCtl, 0, uint32(rtFwUpdateMode)); err != nil {
		return pd.Bus("write retimer", err)
	}
	return nil
}

func (d *Device) SetRetimerCompliance(port pd.LocalPortID) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	return d.exec(port, cmdRetimerCompliance, nil)
}

func (d *Device) ReconfigureRetimer(port pd.LocalPortID) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	return d.exec(port, cmdRetimerReconfig, nil)
}
