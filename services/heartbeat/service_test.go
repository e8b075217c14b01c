// services/heartbeat/service_test.go
package heartbeat

import (
	"context"
	"testing"
	"time"

	"typeccode-go/bus"
	"typeccode-go/types"
)

func TestHeartbeatPublishesTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := bus.NewBus(8)
	conn := b.NewConnection("test")

	// Retained config so the service picks up a fast interval as soon
	// as it subscribes.
	conn.Publish(conn.NewMessage(topicConfigHeartbeat, map[string]any{"interval": 0.02}, true))

	sub := conn.Subscribe(topicHeartbeat)
	defer conn.Unsubscribe(sub)

	svc := &Service{}
	if err := svc.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var last uint32
	deadline := time.After(2 * time.Second)
	for beats := 0; beats < 3; {
		select {
		case m := <-sub.Channel():
			hb, ok := m.Payload.(types.HeartbeatInfo)
			if !ok {
				t.Fatalf("payload type = %T, want HeartbeatInfo", m.Payload)
			}
			if hb.Service != "heartbeat" {
				t.Fatalf("service = %q", hb.Service)
			}
			if hb.Seq <= last {
				t.Fatalf("seq %d did not advance past %d", hb.Seq, last)
			}
			last = hb.Seq
			beats++
		case <-deadline:
			t.Fatal("timed out waiting for heartbeats")
		}
	}
}

func TestHeartbeatIgnoresBadConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := bus.NewBus(8)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(topicConfigHeartbeat, map[string]any{"interval": 0.02}, true))

	sub := conn.Subscribe(topicHeartbeat)
	defer conn.Unsubscribe(sub)

	svc := &Service{}
	if err := svc.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Junk config payloads must not stop the ticker.
	conn.Publish(conn.NewMessage(topicConfigHeartbeat, "not a map", false))
	conn.Publish(conn.NewMessage(topicConfigHeartbeat, map[string]any{"interval": -1.0}, false))

	deadline := time.After(2 * time.Second)
	for beats := 0; beats < 2; {
		select {
		case <-sub.Channel():
			beats++
		case <-deadline:
			t.Fatal("heartbeat stalled after bad config")
		}
	}
}
