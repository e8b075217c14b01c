// cmd/pico-typec-main/main.go
//go:build rp2040 || rp2350

// Firmware entry point for the pico-typec board: a dual port TPS6699x
// on I2C0 with its interrupt line on GP10, an LTC4015 charger on the
// same bus, the debug console on UART0 and the OPM link on UART1.
package main

import (
	"context"
	"errors"
	"io"
	"machine"
	"runtime"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"typeccode-go/bus"
	"typeccode-go/drivers/ltc4015"
	"typeccode-go/drivers/tps6699x"
	"typeccode-go/pd"
	"typeccode-go/power/policy"
	"typeccode-go/services/battery"
	"typeccode-go/services/config"
	"typeccode-go/services/console"
	"typeccode-go/services/heartbeat"
	"typeccode-go/services/opmlink"
	"typeccode-go/services/usbc"
	"typeccode-go/typec"
)

const (
	i2cSDA      = machine.Pin(8)
	i2cSCL      = machine.Pin(9)
	pdIrq       = machine.Pin(10)
	consoleBaud = 115200
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(3 * time.Second)
	println("[main] pico-typec booting")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico-typec")
	b := bus.NewBus(8)
	reg := typec.NewRegistry()
	startMonitor(b)

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{SDA: i2cSDA, SCL: i2cSCL, Frequency: 400_000}); err != nil {
		fatal("i2c configure", err)
	}

	pdc, err := tps6699x.New(i2c, tps6699x.DefaultConfig())
	if err != nil {
		fatal("tps6699x", err)
	}
	if err := pdc.Configure(); err != nil {
		fatal("tps6699x configure", err)
	}
	pdIrq.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	if err := pdIrq.SetInterrupt(machine.PinFalling, func(machine.Pin) { pdc.NotifyIrq() }); err != nil {
		fatal("irq pin", err)
	}

	engine := policy.NewEngine(b.NewConnection("policy"))
	dev, err := typec.NewDevice(0, []pd.GlobalPortID{0, 1})
	if err != nil {
		fatal("device", err)
	}
	w, err := usbc.NewControllerWrapper(reg, dev, pdc, engine, usbc.WrapperConfig{})
	if err != nil {
		fatal("wrapper", err)
	}
	go engine.Run(ctx)
	go func() { _ = w.Run(ctx) }()
	go func() { _ = usbc.Run(ctx, b.NewConnection("usbc"), reg, usbc.Config{}) }()

	// A missing charger keeps the board alive, ports still work.
	chg := ltc4015.New(i2c, ltc4015.Config{})
	if err := chg.Configure(); err != nil {
		println("[main] charger not responding:", err.Error())
	} else {
		go func() { _ = battery.Run(ctx, b.NewConnection("battery"), reg, chg) }()
	}

	hb := &heartbeat.Service{}
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		fatal("heartbeat", err)
	}

	opmlink.UARTDial = dialUart
	go func() { _ = opmlink.Run(ctx, b.NewConnection("opmlink"), reg) }()

	ct, err := console.NewUart(uartx.UART0, consoleBaud, machine.UART0_TX_PIN, machine.UART0_RX_PIN)
	if err != nil {
		fatal("console uart", err)
	}
	go func() { _ = console.Run(ctx, b.NewConnection("console"), reg, console.Config{Transport: ct}) }()

	// Config last so every subscriber is already listening, retained
	// delivery covers the rest.
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	for {
		time.Sleep(5 * time.Second)
		printMem()
	}
}

func fatal(what string, err error) {
	println("[main] fatal:", what, "-", err.Error())
	for {
		time.Sleep(time.Second)
	}
}

// startMonitor echoes service state and telemetry topics for the USB
// serial log. Heartbeat traffic doubles as the liveness blink.
func startMonitor(b *bus.Bus) {
	conn := b.NewConnection("monitor")
	sub := conn.Subscribe(bus.T("#"))
	go func() {
		for m := range sub.Channel() {
			printTopic("[monitor] <-", m.Topic)
		}
	}()
}

func printTopic(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			print("/")
		}
		switch v := t.At(i).(type) {
		case string:
			print(v)
		case int:
			print(v)
		case uint32:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

// -----------------------------------------------------------------------------
// OPM link UART plumbing
// -----------------------------------------------------------------------------

func dialUart(ctx context.Context, u opmlink.UARTConfig) (io.ReadWriteCloser, error) {
	hw, err := uartForTxPin(u.TxPin)
	if err != nil {
		return nil, err
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: uint32(u.Baud),
		TX:       machine.Pin(u.TxPin),
		RX:       machine.Pin(u.RxPin),
	}); err != nil {
		return nil, err
	}
	sctx, cancel := context.WithCancel(ctx)
	return &uartStream{u: hw, ctx: sctx, cancel: cancel}, nil
}

// uartForTxPin maps an RP2 TX pin to its UART instance. The console
// owns UART0's default pins, the link normally runs on UART1.
func uartForTxPin(tx int) (*uartx.UART, error) {
	switch tx {
	case 0, 12, 16:
		return uartx.UART0, nil
	case 4, 8:
		return uartx.UART1, nil
	}
	return nil, errors.New("no uart muxes tx to that pin")
}

type uartStream struct {
	u      *uartx.UART
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *uartStream) Read(p []byte) (int, error)  { return s.u.RecvSomeContext(s.ctx, p) }
func (s *uartStream) Write(p []byte) (int, error) { return s.u.Write(p) }
func (s *uartStream) Close() error                { s.cancel(); return nil }

// printMem prints a compact snapshot of TinyGo runtime memory stats.
// Uses builtin println to avoid fmt overhead and allocations.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
