// drivers/ltc4015/ltc4015_test.go
package ltc4015

import (
	"errors"
	"testing"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*fakeBus)(nil)

type regWrite struct {
	reg byte
	val uint16
}

// fakeBus scripts the SMBus word protocol of one charger.
type fakeBus struct {
	regs   map[byte]uint16
	writes []regWrite
	ara    byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: make(map[byte]uint16), ara: 0xD1}
}

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	if addr == araAddress && len(w) == 0 && len(r) == 1 {
		r[0] = f.ara
		return nil
	}
	if addr != AddressDefault {
		return errors.New("unexpected address")
	}
	switch {
	case len(w) == 1 && len(r) == 2: // read word
		v := f.regs[w[0]]
		r[0] = byte(v)
		r[1] = byte(v >> 8)
	case len(w) == 3 && len(r) == 0: // write word
		v := uint16(w[1]) | uint16(w[2])<<8
		f.regs[w[0]] = v
		f.writes = append(f.writes, regWrite{reg: w[0], val: v})
	default:
		return errors.New("unexpected transfer")
	}
	return nil
}

func (f *fakeBus) lastWrite(t *testing.T, reg byte) uint16 {
	t.Helper()
	for i := len(f.writes) - 1; i >= 0; i-- {
		if f.writes[i].reg == reg {
			return f.writes[i].val
		}
	}
	t.Fatalf("no write to register %#02x", reg)
	return 0
}

func TestConfigureDetectsPinStraps(t *testing.T) {
	f := newFakeBus()
	f.regs[regChemCells] = 0x0803 // lead-acid programmable, 3 cells

	d := New(f, Config{RSNSB_uOhm: 4000, RSNSI_uOhm: 10000})
	if err := d.Configure(); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if d.Cells() != 3 {
		t.Fatalf("cells = %d, want 3", d.Cells())
	}
	if d.Chem() != ChemLeadAcid {
		t.Fatalf("chem = %d, want lead-acid", d.Chem())
	}
	if got := ConfigBits(f.regs[regConfigBits]); !got.Has(CfgForceMeasSysOn) {
		t.Fatalf("config bits = %#04x, want force_meas_sys_on set", uint16(got))
	}
}

func TestConfigureRejectsUnknownChemistry(t *testing.T) {
	f := newFakeBus()
	f.regs[regChemCells] = 0x0F02

	d := New(f, Config{RSNSB_uOhm: 4000, RSNSI_uOhm: 10000})
	if err := d.Configure(); !errors.Is(err, ErrChemistryUnknown) {
		t.Fatalf("configure err = %v, want ErrChemistryUnknown", err)
	}
}

func TestConfigKeepsPinnedValues(t *testing.T) {
	f := newFakeBus()
	f.regs[regChemCells] = 0x0801 // straps would say lead-acid, 1 cell

	d := New(f, Config{RSNSB_uOhm: 4000, RSNSI_uOhm: 10000, Cells: 2, Chem: ChemLithium})
	if err := d.Configure(); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if d.Cells() != 2 || d.Chem() != ChemLithium {
		t.Fatalf("cells=%d chem=%d, want pinned 2/lithium", d.Cells(), d.Chem())
	}
}

func TestInputLimitQuantisation(t *testing.T) {
	f := newFakeBus()
	d := New(f, Config{RSNSI_uOhm: 10000}) // 10 mΩ

	// 3 A over 10 mΩ is 30 mV, (59+1)*500 µV.
	if err := d.SetIinLimit_mA(3000); err != nil {
		t.Fatalf("set input limit: %v", err)
	}
	if got := f.lastWrite(t, regIinLimitSetting); got != 59 {
		t.Fatalf("input limit code = %d, want 59", got)
	}

	// Out of range clamps to the top code.
	if err := d.SetIinLimit_mA(100000); err != nil {
		t.Fatalf("set input limit: %v", err)
	}
	if got := f.lastWrite(t, regIinLimitSetting); got != 63 {
		t.Fatalf("input limit code = %d, want 63", got)
	}

	// Zero floors at the minimum code.
	if err := d.SetIinLimit_mA(0); err != nil {
		t.Fatalf("set input limit: %v", err)
	}
	if got := f.lastWrite(t, regIinLimitSetting); got != 0 {
		t.Fatalf("input limit code = %d, want 0", got)
	}
}

func TestChargeTargetQuantisation(t *testing.T) {
	f := newFakeBus()
	d := New(f, Config{RSNSB_uOhm: 4000}) // 4 mΩ

	// 2 A over 4 mΩ is 8 mV, (7+1)*1 mV.
	if err := d.SetIChargeTarget_mA(2000); err != nil {
		t.Fatalf("set charge target: %v", err)
	}
	if got := f.lastWrite(t, regIChargeTarget); got != 7 {
		t.Fatalf("charge target code = %d, want 7", got)
	}

	if err := d.SetIChargeTarget_mA(50000); err != nil {
		t.Fatalf("set charge target: %v", err)
	}
	if got := f.lastWrite(t, regIChargeTarget); got != 31 {
		t.Fatalf("charge target code = %d, want 31", got)
	}
}

func TestSettersRequireSenseResistor(t *testing.T) {
	d := New(newFakeBus(), Config{})
	if err := d.SetIinLimit_mA(1000); err == nil {
		t.Fatal("input limit accepted without RSNSI")
	}
	if err := d.SetIChargeTarget_mA(1000); err == nil {
		t.Fatal("charge target accepted without RSNSB")
	}
}

func TestSuspendChargerPreservesOtherBits(t *testing.T) {
	f := newFakeBus()
	f.regs[regConfigBits] = uint16(CfgForceMeasSysOn)
	d := New(f, Config{})

	if err := d.SuspendCharger(true); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	got := ConfigBits(f.regs[regConfigBits])
	if !got.Has(CfgSuspendCharger) || !got.Has(CfgForceMeasSysOn) {
		t.Fatalf("config bits = %#04x after suspend", uint16(got))
	}

	if err := d.SuspendCharger(false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	got = ConfigBits(f.regs[regConfigBits])
	if got.Has(CfgSuspendCharger) || !got.Has(CfgForceMeasSysOn) {
		t.Fatalf("config bits = %#04x after resume", uint16(got))
	}
}

func TestTelemetryScaling(t *testing.T) {
	f := newFakeBus()
	f.regs[regVBAT] = 18000
	f.regs[regVIN] = 12136
	ibat := int16(-5461)
	f.regs[regIBAT] = uint16(ibat)
	f.regs[regIIN] = 5461
	f.regs[regDieTemp] = 15000

	d := New(f, Config{RSNSB_uOhm: 4000, RSNSI_uOhm: 4000, Cells: 3, Chem: ChemLithium})

	if v, err := d.BatteryMilliVPerCell(); err != nil || v != 3460 {
		t.Fatalf("per cell = %d (%v), want 3460", v, err)
	}
	if v, err := d.BatteryMilliVPack(); err != nil || v != 10380 {
		t.Fatalf("pack = %d (%v), want 10380", v, err)
	}
	if v, err := d.VinMilliV(); err != nil || v != 20000 {
		t.Fatalf("vin = %d (%v), want 20000", v, err)
	}
	if v, err := d.IbatMilliA(); err != nil || v != -1999 {
		t.Fatalf("ibat = %d (%v), want -1999", v, err)
	}
	if v, err := d.IinMilliA(); err != nil || v != 1999 {
		t.Fatalf("iin = %d (%v), want 1999", v, err)
	}
	if v, err := d.DieMilliC(); err != nil || v != 65570 {
		t.Fatalf("die = %d (%v), want 65570", v, err)
	}
}

func TestLeadAcidVbatScale(t *testing.T) {
	f := newFakeBus()
	f.regs[regVBAT] = 18000

	d := New(f, Config{RSNSB_uOhm: 4000, RSNSI_uOhm: 4000, Cells: 6, Chem: ChemLeadAcid})
	if v, err := d.BatteryMilliVPerCell(); err != nil || v != 2307 {
		t.Fatalf("per cell = %d (%v), want 2307", v, err)
	}
}

func TestSnapshotCollects(t *testing.T) {
	f := newFakeBus()
	f.regs[regVBAT] = 18000
	f.regs[regVIN] = 12136
	f.regs[regVSYS] = 7000
	f.regs[regChargerState] = uint16(StateCcCvCharge)
	f.regs[regChargeStatus] = uint16(StatusConstantCurrent)
	f.regs[regSystemStatus] = uint16(SysChargerEnabled | SysVinGtVbat)

	d := New(f, Config{RSNSB_uOhm: 4000, RSNSI_uOhm: 4000, Cells: 3, Chem: ChemLithium})
	s := d.Snapshot()

	if s.Pack_mV != 10380 || s.Vin_mV != 20000 {
		t.Fatalf("snapshot voltages = %d/%d", s.Pack_mV, s.Vin_mV)
	}
	if !s.State.Charging() {
		t.Fatalf("state %#04x not charging", uint16(s.State))
	}
	if !s.Status.Has(StatusConstantCurrent) {
		t.Fatalf("status %#04x missing constant current", uint16(s.Status))
	}
	if !s.System.Has(SysChargerEnabled) {
		t.Fatalf("system %#04x missing charger enabled", uint16(s.System))
	}
}

func TestAcknowledgeAlert(t *testing.T) {
	f := newFakeBus()
	d := New(f, Config{})

	ok, err := d.AcknowledgeAlert()
	if err != nil || !ok {
		t.Fatalf("ack = %t (%v), want true", ok, err)
	}

	f.ara = 0x55 // some other device answered
	ok, err = d.AcknowledgeAlert()
	if err != nil || ok {
		t.Fatalf("ack = %t (%v), want false", ok, err)
	}
}

func TestMeasSystemValid(t *testing.T) {
	f := newFakeBus()
	d := New(f, Config{})

	if v, err := d.MeasSystemValid(); err != nil || v {
		t.Fatalf("valid = %t (%v), want false", v, err)
	}
	f.regs[regMeasSysValid] = 1
	if v, err := d.MeasSystemValid(); err != nil || !v {
		t.Fatalf("valid = %t (%v), want true", v, err)
	}
}
