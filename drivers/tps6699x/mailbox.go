package tps6699x

import "typeccode-go/pd"

// RX mailboxes. Each holds the most recent message of its kind and
// clears on read, the matching event bit tells the wrapper when to
// collect.

func (d *Device) GetPdAlert(port pd.LocalPortID) (*pd.Ado, error) {
	if err := d.checkPort(port); err != nil {
		return nil, err
	}
	v, err := d.readU32(port, regRxAdo)
	if err != nil {
		return nil, pd.Bus("read alert", err)
	}
	if v == 0 {
		return nil, nil
	}
	ado := pd.Ado(v)
	return &ado, nil
}

func (d *Device) GetOtherVdm(port pd.LocalPortID) (pd.Vdm, error) {
	return d.readVdm(port, regRxOtherVdm)
}

func (d *Device) GetAttnVdm(port pd.LocalPortID) (pd.Vdm, error) {
	return d.readVdm(port, regRxAttnVdm)
}

func (d *Device) readVdm(port pd.LocalPortID, reg uint8) (pd.Vdm, error) {
	var vdm pd.Vdm
	if err := d.checkPort(port); err != nil {
		return vdm, err
	}
	raw, err := d.readBlock(port, reg, 1+4*pd.MaxVdmObjects)
	if err != nil {
		return vdm, pd.Bus("read vdm", err)
	}
	n := raw[0]
	if n > pd.MaxVdmObjects {
		n = pd.MaxVdmObjects
	}
	vdm.Count = n
	for i := 0; i < int(n); i++ {
		vdm.Objects[i] = leU32(raw[1+4*i:])
	}
	return vdm, nil
}

// ---------------- DisplayPort alt mode ----------------

func (d *Device) GetDpStatus(port pd.LocalPortID) (pd.DpStatus, error) {
	if err := d.checkPort(port); err != nil {
		return 0, err
	}
	v, err := d.readU32(port, regDpStatus)
	if err != nil {
		return 0, pd.Bus("read dp status", err)
	}
	return pd.DpStatus(v), nil
}

// SetDpConfig writes the pin assignment selection the policy engine
// in firmware applies on the next mode entry.
func (d *Device) SetDpConfig(port pd.LocalPortID, cfg pd.DpConfig) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	var v uint32
	if cfg.Enable {
		v |= 1 << 0
	}
	v |= uint32(cfg.PinAssignment&0x3) << 1
	if cfg.UfpD {
		v |= 1 << 3
	}
	if err := d.writeU32(port, regDpConfig, v); err != nil {
		return pd.Bus("write dp config", err)
	}
	return nil
}
