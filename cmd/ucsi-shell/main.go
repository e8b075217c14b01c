// cmd/ucsi-shell/main.go
//go:build !(rp2040 || rp2350)

// Interactive console against scripted controllers on the process
// terminal. Four ports across two controllers, port 0 comes up with a
// 5V/3A sink contract so status commands have something to show.
// Try 'help', 'ports', 'status 0' or 'ucsi cap'.
package main

import (
	"context"
	"os"
	"time"

	"typeccode-go/bus"
	"typeccode-go/drivers/simctrl"
	"typeccode-go/pd"
	"typeccode-go/power/policy"
	"typeccode-go/services/console"
	"typeccode-go/services/usbc"
	"typeccode-go/typec"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(16)
	reg := typec.NewRegistry()
	engine := policy.NewEngine(b.NewConnection("policy"))

	ctrl0 := simctrl.New(2, 0x010200)
	dev0, err := typec.NewDevice(0, []pd.GlobalPortID{0, 1})
	check(err, "device 0")
	w0, err := usbc.NewControllerWrapper(reg, dev0, ctrl0, engine, usbc.WrapperConfig{})
	check(err, "wrapper 0")

	ctrl1 := simctrl.New(2, 0x010201)
	dev1, err := typec.NewDevice(1, []pd.GlobalPortID{2, 3})
	check(err, "device 1")
	w1, err := usbc.NewControllerWrapper(reg, dev1, ctrl1, engine, usbc.WrapperConfig{})
	check(err, "wrapper 1")

	go engine.Run(ctx)
	go func() { _ = w0.Run(ctx) }()
	go func() { _ = w1.Run(ctx) }()
	go func() { _ = usbc.Run(ctx, b.NewConnection("usbc"), reg, usbc.Config{}) }()

	ctrl0.Push(0, typec.EventPlugInsertedOrRemoved|typec.EventNewPowerContractAsConsumer,
		typec.PortStatus{
			Contract:          pd.SinkContract(pd.PowerCapability{VoltageMv: 5000, CurrentMa: 3000}),
			ConnectionPresent: true,
		})

	println("ucsi-shell: 2 scripted controllers, ports 0-3, port 0 attached")
	err = console.Run(ctx, b.NewConnection("console"), reg, console.Config{
		Transport:      console.NewStdio(),
		Prompt:         "typec> ",
		CommandTimeout: 2 * time.Second,
	})
	if err != nil {
		println("console:", err.Error())
		os.Exit(1)
	}
}

func check(err error, what string) {
	if err != nil {
		println("setup failed:", what, "-", err.Error())
		os.Exit(1)
	}
}
