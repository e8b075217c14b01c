// main.go
//
// Minimal smoke target: bus plus heartbeat only. The real entry points
// live under cmd/.
package main

import (
	"context"
	"time"

	"typeccode-go/bus"
	"typeccode-go/services/heartbeat"
	"typeccode-go/types"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	ctx := context.Background()
	b := bus.NewBus(8)

	hb := &heartbeat.Service{}
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		println("heartbeat start failed:", err.Error())
		return
	}

	conn := b.NewConnection("monitor")
	sub := conn.Subscribe(bus.T("heartbeat"))
	for m := range sub.Channel() {
		if info, ok := m.Payload.(types.HeartbeatInfo); ok {
			println("heartbeat", info.Service, "seq", info.Seq)
		}
	}
}
