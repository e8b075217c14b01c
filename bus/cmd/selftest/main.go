//go:build rp2040 || rp2350

// bus/cmd/selftest/main.go
//
// On-target smoke test for the bus. Flash to a Pico and watch the
// serial console: a solid LED means every check passed, blinking means
// at least one failed.
package main

import (
	"context"
	"time"

	"typeccode-go/bus"

	"machine"
)

type check struct {
	name string
	fn   func() bool
}

func main() {
	// Let USB CDC enumerate before printing.
	time.Sleep(250 * time.Millisecond)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.High()

	checks := []check{
		{"retained-replay", checkRetainedReplay},
		{"wildcard-single", checkWildcardSingle},
		{"wildcard-multi", checkWildcardMulti},
		{"request-reply", checkRequestReply},
		{"request-timeout", checkRequestTimeout},
		{"drop-oldest", checkDropOldest},
	}

	failed := 0
	println("[selftest] bus checks starting")
	for _, c := range checks {
		if c.fn() {
			println("[selftest] pass", c.name)
		} else {
			println("[selftest] FAIL", c.name)
			failed++
		}
		time.Sleep(10 * time.Millisecond)
	}
	println("[selftest] done,", len(checks)-failed, "passed,", failed, "failed")

	if failed == 0 {
		for {
			time.Sleep(time.Hour)
		}
	}
	for {
		led.High()
		time.Sleep(250 * time.Millisecond)
		led.Low()
		time.Sleep(250 * time.Millisecond)
	}
}

func checkRetainedReplay() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("selftest")
	c.Publish(b.NewMessage(bus.T("config", "usbc"), "cfg", true))
	sub := c.Subscribe(bus.T("config", "usbc"))
	return recvString(sub, "cfg", 100*time.Millisecond)
}

func checkWildcardSingle() bool {
	b := bus.NewBus(8)
	c := b.NewConnection("selftest")
	hit := c.Subscribe(bus.T("usbc", "port", "+", "status"))
	miss := c.Subscribe(bus.T("usbc", "port", "+", "notify"))
	c.Publish(b.NewMessage(bus.T("usbc", "port", 1, "status"), "s1", false))
	return recvString(hit, "s1", 200*time.Millisecond) && silent(miss, 60*time.Millisecond)
}

func checkWildcardMulti() bool {
	b := bus.NewBus(8)
	c := b.NewConnection("selftest")
	all := c.Subscribe(bus.T("state", "#"))
	c.Publish(b.NewMessage(bus.T("state", "usbc"), "up", false))
	c.Publish(b.NewMessage(bus.T("state", "opmlink", "detail"), "link", false))
	return recvString(all, "up", 200*time.Millisecond) &&
		recvString(all, "link", 200*time.Millisecond)
}

func checkRequestReply() bool {
	b := bus.NewBus(8)
	client := b.NewConnection("client")
	server := b.NewConnection("server")
	serve := server.Subscribe(bus.T("battery", "telemetry", "get"))
	go func() {
		if m, ok := <-serve.Channel(); ok {
			server.Reply(m, "soc 87", false)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	reply, err := client.RequestWait(ctx, b.NewMessage(bus.T("battery", "telemetry", "get"), nil, false))
	if err != nil {
		return false
	}
	s, ok := reply.Payload.(string)
	return ok && s == "soc 87"
}

func checkRequestTimeout() bool {
	b := bus.NewBus(4)
	client := b.NewConnection("client")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.RequestWait(ctx, b.NewMessage(bus.T("nobody", "home"), nil, false))
	return err != nil
}

func checkDropOldest() bool {
	b := bus.NewBus(2)
	c := b.NewConnection("selftest")
	sub := c.Subscribe(bus.T("usbc", "ucsi", "cci"))
	for i := 0; i < 5; i++ {
		c.Publish(b.NewMessage(bus.T("usbc", "ucsi", "cci"), i, false))
	}
	if v, ok := (<-sub.Channel()).Payload.(int); !ok || v != 3 {
		return false
	}
	if v, ok := (<-sub.Channel()).Payload.(int); !ok || v != 4 {
		return false
	}
	return sub.Dropped() == 3 && sub.Dropped() == 0
}

func recvString(sub *bus.Subscription, want string, d time.Duration) bool {
	select {
	case m := <-sub.Channel():
		s, ok := m.Payload.(string)
		return ok && s == want
	case <-time.After(d):
		return false
	}
}

func silent(sub *bus.Subscription, d time.Duration) bool {
	select {
	case <-sub.Channel():
		return false
	case <-time.After(d):
		return true
	}
}
