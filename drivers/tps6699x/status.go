package tps6699x

import (
	"typeccode-go/pd"
	"typeccode-go/typec"
)

// maxSourcePdos bounds the RX source capabilities read.
const maxSourcePdos = 7

// GetPortStatus assembles a port snapshot from the status, power
// status, PD status and contract registers.
func (d *Device) GetPortStatus(port pd.LocalPortID) (typec.PortStatus, error) {
	var out typec.PortStatus
	if err := d.checkPort(port); err != nil {
		return out, err
	}

	st, err := d.readU32(port, regStatus)
	if err != nil {
		return out, pd.Bus("read status", err)
	}
	switch Status(st).ConnState() {
	case connNone:
		return out, nil
	case connDebug:
		out.ConnectionPresent = true
		out.DebugConnection = true
		return out, nil
	}
	out.ConnectionPresent = true

	pw, err := d.readU16(port, regPowerStatus)
	if err != nil {
		return out, pd.Bus("read power status", err)
	}
	pdst, err := d.readU32(port, regPdStatus)
	if err != nil {
		return out, pd.Bus("read pd status", err)
	}

	if PdStatus(pdst).Has(pdExplicitContract) {
		pdo, err := d.readActivePdo(port)
		if err != nil {
			return out, pd.Bus("read active contract", err)
		}
		cap := decodeFixedPdo(pdo)
		if PowerStatus(pw).Has(pwSinking) {
			out.Contract = pd.SinkContract(cap)
		} else {
			out.Contract = pd.SourceContract(cap)
		}
		out.UnconstrainedPower = pdo&pdoUnconstrained != 0
		out.Epr = PdStatus(pdst).Has(pdEprMode)
	}

	if PowerStatus(pw).Has(pwSinking) {
		offer, err := d.bestSourceOffer(port)
		if err != nil {
			return out, pd.Bus("read source caps", err)
		}
		out.AvailableSinkContract = offer
	}
	return out, nil
}

// readActivePdo returns the granted source PDO of the active
// contract. The register's trailing flag bytes are not used.
func (d *Device) readActivePdo(port pd.LocalPortID) (uint32, error) {
	raw, err := d.readBlock(port, regActivePdo, 6)
	if err != nil {
		return 0, err
	}
	return leU32(raw[:4]), nil
}

// bestSourceOffer picks the highest power fixed PDO the partner
// advertises, nil when the partner sent no capabilities yet.
func (d *Device) bestSourceOffer(port pd.LocalPortID) (*pd.PowerCapability, error) {
	raw, err := d.readBlock(port, regRxSourceCaps, 1+4*maxSourcePdos)
	if err != nil {
		return nil, err
	}
	n := int(raw[0])
	if n > maxSourcePdos {
		n = maxSourcePdos
	}
	var best *pd.PowerCapability
	for i := 0; i < n; i++ {
		pdo := leU32(raw[1+4*i:])
		if !pdoIsFixed(pdo) {
			continue
		}
		cap := decodeFixedPdo(pdo)
		if best == nil || cap.MilliWatts() > best.MilliWatts() {
			c := cap
			best = &c
		}
	}
	return best, nil
}

// ControllerStatus reads the firmware mode, version and boot flags.
func (d *Device) ControllerStatus() (typec.ControllerStatus, error) {
	var out typec.ControllerStatus

	mode, err := d.readBlock(0, regMode, 4)
	if err != nil {
		return out, pd.Bus("read mode", err)
	}
	out.Mode = decodeMode(mode)

	ver, err := d.readU32(0, regVersion)
	if err != nil {
		return out, pd.Bus("read version", err)
	}
	out.FwVersion = ver

	bf, err := d.readU32(0, regBootFlags)
	if err != nil {
		return out, pd.Bus("read boot flags", err)
	}
	out.ValidFwBank = BootFlags(bf).Has(bfAppValid)
	for i := range d.addrs {
		if BootFlags(bf).Has(1 << (bfDeadBatteryShift + i)) {
			out.DeadBattery |= 1 << i
		}
	}
	return out, nil
}

func decodeMode(raw []byte) typec.ControllerMode {
	switch string(raw[:4]) {
	case "APP ":
		return typec.ModeApp
	case "BOOT", "PTCH":
		return typec.ModeBoot
	default:
		return typec.ModeUnknown
	}
}
