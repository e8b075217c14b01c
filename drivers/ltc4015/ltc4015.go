// TinyGo driver for the LTC4015 multichemistry buck battery charger.
//
// Design notes (host interface):
// • SMBus read word / write word protocol, data little-endian (LOW
//   byte first).
// • Telemetry and limit conversions use integer arithmetic only, in
//   nV/µV/pV as needed to keep LSB scaling exact.
// • Chemistry and cell count come from pin straps unless the board
//   config pins them down.
// • Methods are not safe for concurrent use, serialise externally.

package ltc4015

import (
	"errors"

	"tinygo.org/x/drivers"
)

var ErrChemistryUnknown = errors.New("chemistry unknown")

// Chemistry selects the VBAT telemetry scaling.
type Chemistry uint8

const (
	ChemUnknown  Chemistry = iota
	ChemLithium            // VBAT LSB: 192.264 µV/cell
	ChemLeadAcid           // VBAT LSB: 128.176 µV/cell
)

// Config carries the board facts the conversions need. Zero valued
// fields fall back to the default address or to pin-strap detection.
type Config struct {
	Address    uint16
	RSNSB_uOhm uint32 // battery sense resistor
	RSNSI_uOhm uint32 // input sense resistor
	Cells      uint8
	Chem       Chemistry
}

type Device struct {
	i2c   drivers.I2C
	addr  uint16
	cells uint8
	chem  Chemistry

	rsnsB_uOhm uint32
	rsnsI_uOhm uint32

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{
		i2c:        i2c,
		addr:       addr,
		cells:      cfg.Cells,
		chem:       cfg.Chem,
		rsnsB_uOhm: cfg.RSNSB_uOhm,
		rsnsI_uOhm: cfg.RSNSI_uOhm,
	}
}

// Configure fills unset chemistry and cell count from the pin straps
// and forces the measurement system on so telemetry stays valid while
// the charger idles.
func (d *Device) Configure() error {
	if d.cells == 0 {
		n, err := d.DetectCells()
		if err != nil {
			return err
		}
		d.cells = n
	}
	if d.chem == ChemUnknown {
		c, err := d.DetectChemistry()
		if err != nil {
			return err
		}
		if c == ChemUnknown {
			return ErrChemistryUnknown
		}
		d.chem = c
	}
	return d.SetConfigBits(CfgForceMeasSysOn)
}

// Cells returns the configured or detected series cell count.
func (d *Device) Cells() uint8 { return d.cells }

// Chem returns the configured or detected chemistry.
func (d *Device) Chem() Chemistry { return d.chem }

// ---------------- Chemistry / cell detection ----------------

// DetectCells returns the pin-strapped cell count.
func (d *Device) DetectCells() (uint8, error) {
	v, err := d.readWord(regChemCells)
	if err != nil {
		return 0, err
	}
	return uint8(v & 0x000F), nil
}

// DetectChemistry returns the device-reported chemistry family.
func (d *Device) DetectChemistry() (Chemistry, error) {
	v, err := d.readWord(regChemCells)
	if err != nil {
		return ChemUnknown, err
	}
	switch (v >> 8) & 0x000F {
	case 0x7, 0x8:
		return ChemLeadAcid, nil
	case 0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6:
		return ChemLithium, nil // Li-Ion and LiFePO4 families
	default:
		return ChemUnknown, nil
	}
}

// ---------------- CONFIG_BITS control ----------------

func (d *Device) ReadConfig() (ConfigBits, error) {
	v, err := d.readWord(regConfigBits)
	return ConfigBits(v), err
}

func (d *Device) SetConfigBits(mask ConfigBits) error {
	return d.updateConfigBits(uint16(mask), 0)
}

func (d *Device) ClearConfigBits(mask ConfigBits) error {
	return d.updateConfigBits(0, uint16(mask))
}

// SuspendCharger pauses or resumes charging without touching the rest
// of CONFIG_BITS.
func (d *Device) SuspendCharger(on bool) error {
	if on {
		return d.SetConfigBits(CfgSuspendCharger)
	}
	return d.ClearConfigBits(CfgSuspendCharger)
}

func (d *Device) updateConfigBits(set, clear uint16) error {
	v, err := d.readWord(regConfigBits)
	if err != nil {
		return err
	}
	return d.writeWord(regConfigBits, (v|set)&^clear)
}

// ---------------- Input and charge programming ----------------

// SetIinLimit_mA programs the input current limit:
// (code+1)*500 µV across RSNSI, code 0..63.
func (d *Device) SetIinLimit_mA(mA int32) error {
	if d.rsnsI_uOhm == 0 {
		return errors.New("RSNSI_uOhm not set")
	}
	v_uV := (int64(mA) * int64(d.rsnsI_uOhm)) / 1000
	return d.writeWord(regIinLimitSetting, codePlusOne(v_uV, 500, 63))
}

// SetIChargeTarget_mA programs the charge current servo target:
// (code+1)*1 mV across RSNSB, code 0..31.
func (d *Device) SetIChargeTarget_mA(mA int32) error {
	if d.rsnsB_uOhm == 0 {
		return errors.New("RSNSB_uOhm not set")
	}
	v_uV := (int64(mA) * int64(d.rsnsB_uOhm)) / 1000
	return d.writeWord(regIChargeTarget, codePlusOne(v_uV, 1000, 31))
}

// ---------------- SMBALERT ----------------

// AcknowledgeAlert performs the SMBus ARA handshake. Returns true if
// the LTC4015 identified itself and released SMBALERT.
func (d *Device) AcknowledgeAlert() (bool, error) {
	var r [1]byte
	if err := d.i2c.Tx(araAddress, nil, r[:]); err != nil {
		return false, err
	}
	return r[0] == byte(d.addr<<1|1), nil
}

// ---------------- Low-level SMBus (READ/WRITE WORD) ----------------

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0]) | uint16(d.r[1])<<8, nil
}

func (d *Device) readS16(reg byte) (int16, error) {
	u, err := d.readWord(reg)
	return int16(u), err
}

func (d *Device) writeWord(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val)      // low
	d.w[2] = byte(val >> 8) // high
	return d.i2c.Tx(d.addr, d.w[:3], nil)
}

// codePlusOne quantises value onto a (code+1)*step scale, rounding to
// nearest and clamping to [0, max].
func codePlusOne(value, step, max int64) uint16 {
	if value < 0 {
		value = 0
	}
	code := (value + step/2) / step
	if code > 0 {
		code--
	}
	if code > max {
		code = max
	}
	return uint16(code)
}
