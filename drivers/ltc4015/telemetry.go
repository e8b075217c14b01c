package ltc4015

import "errors"

// Telemetry readouts in integer units. The measurement system must be
// running for these to mean anything, see MeasSystemValid.

func (d *Device) BatteryMilliVPerCell() (int32, error) {
	raw, err := d.readWord(regVBAT)
	if err != nil {
		return 0, err
	}
	// Li: 192,264 nV/LSB; lead-acid: 128,176 nV/LSB.
	nV := int64(192264)
	if d.chem == ChemLeadAcid {
		nV = 128176
	}
	return int32(int64(raw) * nV / 1_000_000), nil
}

func (d *Device) BatteryMilliVPack() (int32, error) {
	perCell, err := d.BatteryMilliVPerCell()
	if err != nil {
		return 0, err
	}
	if d.cells == 0 {
		return perCell, nil
	}
	return perCell * int32(d.cells), nil
}

func (d *Device) VinMilliV() (int32, error)  { return d.milliV1648(regVIN) }
func (d *Device) VsysMilliV() (int32, error) { return d.milliV1648(regVSYS) }

// VIN and VSYS share a 1.648 mV/LSB scale.
func (d *Device) milliV1648(reg byte) (int32, error) {
	raw, err := d.readWord(reg)
	if err != nil {
		return 0, err
	}
	return int32(int64(raw) * 1648 / 1000), nil
}

func (d *Device) IbatMilliA() (int32, error) { return d.milliA(regIBAT, d.rsnsB_uOhm) }
func (d *Device) IinMilliA() (int32, error)  { return d.milliA(regIIN, d.rsnsI_uOhm) }

// Current LSB is 1.46487 µV across the sense resistor.
func (d *Device) milliA(reg byte, rsns_uOhm uint32) (int32, error) {
	if rsns_uOhm == 0 {
		return 0, errors.New("sense resistor not set")
	}
	raw, err := d.readS16(reg)
	if err != nil {
		return 0, err
	}
	uA := int64(raw) * 1_464_870 / int64(rsns_uOhm)
	return int32(uA / 1000), nil
}

func (d *Device) DieMilliC() (int32, error) {
	raw, err := d.readS16(regDieTemp)
	if err != nil {
		return 0, err
	}
	return int32((int64(raw) - 12010) * 10000 / 456), nil
}

func (d *Device) MeasSystemValid() (bool, error) {
	v, err := d.readWord(regMeasSysValid)
	if err != nil {
		return false, err
	}
	return v&0x0001 != 0, nil
}

// Typed status readers.

func (d *Device) SystemStatus() (SystemStatus, error) {
	v, err := d.readWord(regSystemStatus)
	return SystemStatus(v), err
}

func (d *Device) ChargerState() (ChargerState, error) {
	v, err := d.readWord(regChargerState)
	return ChargerState(v), err
}

func (d *Device) ChargeStatus() (ChargeStatus, error) {
	v, err := d.readWord(regChargeStatus)
	return ChargeStatus(v), err
}

// Snapshot collects the telemetry one poll needs. Zero values remain
// where individual reads fail.
type Snapshot struct {
	Pack_mV    int32
	PerCell_mV int32
	Vin_mV     int32
	Vsys_mV    int32
	IBat_mA    int32
	IIn_mA     int32
	Die_mC     int32
	State      ChargerState
	Status     ChargeStatus
	System     SystemStatus
}

func (d *Device) Snapshot() Snapshot {
	var s Snapshot
	if v, e := d.BatteryMilliVPack(); e == nil {
		s.Pack_mV = v
	}
	if v, e := d.BatteryMilliVPerCell(); e == nil {
		s.PerCell_mV = v
	}
	if v, e := d.VinMilliV(); e == nil {
		s.Vin_mV = v
	}
	if v, e := d.VsysMilliV(); e == nil {
		s.Vsys_mV = v
	}
	if v, e := d.IbatMilliA(); e == nil {
		s.IBat_mA = v
	}
	if v, e := d.IinMilliA(); e == nil {
		s.IIn_mA = v
	}
	if v, e := d.DieMilliC(); e == nil {
		s.Die_mC = v
	}
	if v, e := d.ChargerState(); e == nil {
		s.State = v
	}
	if v, e := d.ChargeStatus(); e == nil {
		s.Status = v
	}
	if v, e := d.SystemStatus(); e == nil {
		s.System = v
	}
	return s
}
