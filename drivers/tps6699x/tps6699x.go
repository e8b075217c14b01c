// TinyGo driver for the TPS6699x dual port USB Type-C PD controllers.
//
// Design notes (host interface):
// • I2C block protocol: reads return a length byte then data, writes
//   send register, length, data.
// • One 7-bit address per port; controller scoped registers answer on
//   the port A address.
// • Commands are 4 character codes written to CMD1 with arguments in
//   DATA1; CMD1 reads zero on completion and the first DATA1 byte is
//   the task return code.
// • Port events arrive on the IRQ line and are read and cleared
//   through INT_EVENT/INT_CLEAR.

package tps6699x

import (
	"context"
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"typeccode-go/pd"
	"typeccode-go/typec"
	"typeccode-go/x/mathx"
)

var ErrShortRead = errors.New("short register read")

// ---------------- Configuration ----------------

type Config struct {
	// Addresses lists one 7-bit I2C address per local port.
	Addresses []uint16
	// PollEvery adds a periodic wake to WaitPortEvent for boards
	// without the IRQ line wired. Zero disables polling.
	PollEvery time.Duration
}

// DefaultConfig covers the stock dual port strapping.
func DefaultConfig() Config {
	return Config{Addresses: []uint16{AddressPortA, AddressPortB}}
}

func (c Config) Validate() error {
	if !mathx.Between(len(c.Addresses), 1, pd.MaxSupportedPorts) {
		return errors.New("Addresses must list 1..4 ports")
	}
	for _, a := range c.Addresses {
		if a == 0 || a > 0x7F {
			return errors.New("Addresses must be 7-bit and non-zero")
		}
	}
	return nil
}

// ---------------- Device ----------------

// Device represents one TPS6699x on an I2C bus. Register access is
// not internally locked, callers serialise on one goroutine.
type Device struct {
	i2c       drivers.I2C
	addrs     []uint16
	pollEvery time.Duration

	irq chan struct{}

	// Fixed buffers sized for the largest block transfer.
	w [maxBlockLen + 2]byte
	r [maxBlockLen + 1]byte
}

func New(i2c drivers.I2C, cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Device{
		i2c:       i2c,
		addrs:     cfg.Addresses,
		pollEvery: cfg.PollEvery,
		irq:       make(chan struct{}, 1),
	}, nil
}

func (d *Device) NumPorts() int { return len(d.addrs) }

// Configure programs the event mask so the chip raises its interrupt
// line for every event the driver decodes.
func (d *Device) Configure() error {
	var buf [intEventLen]byte
	putLeU32(buf[:4], uint32(allEvents))
	for local := range d.addrs {
		if err := d.writeBlock(pd.LocalPortID(local), regIntMask, buf[:]); err != nil {
			return pd.Bus("write event mask", err)
		}
	}
	return nil
}

// ---------------- Event wait ----------------

// NotifyIrq signals pending events. Safe from an interrupt handler,
// extra signals coalesce.
func (d *Device) NotifyIrq() {
	select {
	case d.irq <- struct{}{}:
	default:
	}
}

func (d *Device) WaitPortEvent(ctx context.Context) error {
	if d.pollEvery > 0 {
		timer := time.NewTimer(d.pollEvery)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.irq:
			return nil
		case <-timer.C:
			return nil
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.irq:
		return nil
	}
}

// ClearPortEvents reads the pending event word and writes it back to
// the clear register, so events raised in between survive.
func (d *Device) ClearPortEvents(port pd.LocalPortID) (typec.PortEventKind, error) {
	if err := d.checkPort(port); err != nil {
		return 0, err
	}
	raw, err := d.readBlock(port, regIntEvent, intEventLen)
	if err != nil {
		return 0, pd.Bus("read events", err)
	}
	bits := EventBits(leU32(raw))
	if bits == 0 {
		return 0, nil
	}
	var clr [intEventLen]byte
	putLeU32(clr[:4], uint32(bits))
	if err := d.writeBlock(port, regIntClear, clr[:]); err != nil {
		return 0, pd.Bus("clear events", err)
	}
	return bits.PortEvents(), nil
}

// ---------------- Low-level block I2C ----------------

func (d *Device) checkPort(port pd.LocalPortID) error {
	if int(port) >= len(d.addrs) {
		return pd.ErrInvalidPort
	}
	return nil
}

// readBlock reads n payload bytes of a register. The returned slice
// aliases the device scratch buffer, decode before the next transfer.
func (d *Device) readBlock(port pd.LocalPortID, reg uint8, n int) ([]byte, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addrs[port], d.w[:1], d.r[:n+1]); err != nil {
		return nil, err
	}
	if int(d.r[0]) < n {
		return nil, ErrShortRead
	}
	return d.r[1 : n+1], nil
}

func (d *Device) writeBlock(port pd.LocalPortID, reg uint8, data []byte) error {
	d.w[0] = reg
	d.w[1] = byte(len(data))
	copy(d.w[2:], data)
	return d.i2c.Tx(d.addrs[port], d.w[:2+len(data)], nil)
}

func (d *Device) readU32(port pd.LocalPortID, reg uint8) (uint32, error) {
	raw, err := d.readBlock(port, reg, 4)
	if err != nil {
		return 0, err
	}
	return leU32(raw), nil
}

func (d *Device) readU16(port pd.LocalPortID, reg uint8) (uint16, error) {
	raw, err := d.readBlock(port, reg, 2)
	if err != nil {
		return 0, err
	}
	return leU16(raw), nil
}

func (d *Device) writeU32(port pd.LocalPortID, reg uint8, v uint32) error {
	var buf [4]byte
	putLeU32(buf[:], v)
	return d.writeBlock(port, reg, buf[:])
}

// modifyU32 is the read-modify-write pattern for bitmask registers.
func (d *Device) modifyU32(port pd.LocalPortID, reg uint8, set, clear uint32) error {
	cur, err := d.readU32(port, reg)
	if err != nil {
		return err
	}
	return d.writeU32(port, reg, (cur|set)&^clear)
}
