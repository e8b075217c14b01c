package heartbeat

import (
	"context"
	"time"

	"typeccode-go/bus"
	"typeccode-go/types"
)

var (
	topicHeartbeat       = bus.Topic{"heartbeat"}
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
)

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	var seq uint32
	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case t := <-tick.C:
			seq++
			conn.Publish(conn.NewMessage(topicHeartbeat, types.HeartbeatInfo{
				Service: "heartbeat",
				Seq:     seq,
				TS:      t.UnixMilli(),
			}, false))
		case msg := <-cfgSub.Channel():
			// Change tick interval if needed. Interval is in seconds,
			// fractions allowed.
			if m, ok := msg.Payload.(map[string]any); ok {
				if interval, ok := m["interval"].(float64); ok && interval > 0 {
					tick.Reset(time.Duration(interval * float64(time.Second)))
					println("[heartbeat] interval set to", interval, "seconds")
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
