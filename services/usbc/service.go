// services/usbc/service.go
package usbc

import (
	"context"

	"typeccode-go/bus"
	"typeccode-go/pd"
	"typeccode-go/power/policy"
	"typeccode-go/typec"
	"typeccode-go/types"
	"typeccode-go/ucsi"
	"typeccode-go/x/conv"
	"typeccode-go/x/timex"
)

// Bus topics owned by the service.

func TopicState() bus.Topic { return bus.T("usbc", "state") }

func TopicCci() bus.Topic { return bus.T("usbc", "ucsi", "cci") }

func TopicDebugAccessory() bus.Topic { return bus.T("usbc", "debug_accessory") }

func TopicPortNotification() bus.Topic { return bus.T("usbc", "port", "notify") }

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run drives the Type-C service until ctx ends. It owns the UCSI PPM,
// the cross controller port cache and all external request handling.
// Controller wrappers must be registered on reg before or while the
// service runs, each on its own goroutine.
func Run(ctx context.Context, conn *bus.Connection, reg *typec.Registry, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s := &service{
		conn: conn,
		reg:  reg,
		cfg:  cfg,
		ucsi: newUcsiState(),
	}
	return s.loop(ctx)
}

type portCache struct {
	status typec.PortStatus
	known  bool
}

type service struct {
	conn *bus.Connection
	reg  *typec.Registry
	cfg  Config

	ucsi  *ucsiState
	cache [pd.MaxSupportedPorts]portCache
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) error {
	unconSub := s.conn.Subscribe(policy.TopicUnconstrained())
	defer s.conn.Unsubscribe(unconSub)

	s.publishState(types.StateReady, "")
	println("[usbc] service running,", s.reg.NumPorts(), "ports")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.reg.Wake():
			s.drainPortEvents(ctx)

		case req := <-s.reg.External():
			req.Respond(s.serveExternal(ctx, req.Command))

		case m := <-unconSub.Channel():
			if n := unconSub.Dropped(); n > 0 {
				println("[usbc] unconstrained feed lagged,", n, "dropped")
			}
			s.handleUnconstrained(m)
		}
	}
}

// drainPortEvents services every port the wrappers flagged since the
// last wake, in ascending global port order.
func (s *service) drainPortEvents(ctx context.Context) {
	pending := s.reg.TakePortEvents()
	for i := 0; i < pd.MaxSupportedPorts; i++ {
		gp := pd.GlobalPortID(i)
		if !pending.IsPending(gp) {
			continue
		}
		s.processPort(ctx, gp)
	}
}

// notificationEvents lists the one-shot notification bits in delivery
// order. Status changes are handled as one batch, notifications one at
// a time.
var notificationEvents = []typec.PortEventKind{
	typec.EventCustomModeEntered,
	typec.EventCustomModeExited,
	typec.EventOtherVdmReceived,
	typec.EventAttentionReceived,
	typec.EventDiscoverModeCompleted,
	typec.EventDpStatusUpdate,
	typec.EventPdAlert,
}

func (s *service) processPort(ctx context.Context, port pd.GlobalPortID) {
	dev, ok := s.reg.ByPort(port)
	if !ok {
		return
	}
	resp, err := dev.Execute(ctx, typec.PortCommand{Port: port, Op: typec.OpClearEvents})
	if err != nil {
		println("[usbc] take events failed, port", port, err.Error())
		return
	}
	pr, ok := resp.(typec.PortResponse)
	if !ok || pr.Err != nil {
		return
	}
	ev := pr.Events
	if ev.None() {
		return
	}
	println("[usbc] port", port, "events", conv.U32Hex(uint32(ev)))

	if !ev.StatusChanged().None() {
		sr, err := dev.Execute(ctx, typec.PortCommand{Port: port, Op: typec.OpPortStatus, Cached: true})
		if err == nil {
			if p, ok := sr.(typec.PortResponse); ok && p.Err == nil {
				s.updateCache(port, p.Status)
			}
		}
		s.portStatusChanged(port, ev.StatusChanged())
	}

	if n := ev.Notifications(); !n.None() {
		s.conn.Publish(s.conn.NewMessage(TopicPortNotification(), types.PortNotificationMessage{
			Port:  uint8(port),
			Names: n.Names(),
			TS:    timex.NowMs(),
		}, false))
		for _, bit := range notificationEvents {
			if n.Has(bit) {
				s.portNotification(port, bit)
			}
		}
	}
}

// updateCache stores a fresh port status and broadcasts debug
// accessory plug flips.
func (s *service) updateCache(port pd.GlobalPortID, status typec.PortStatus) {
	prev := s.cache[port]
	s.cache[port] = portCache{status: status, known: true}

	now := status.DebugAccessory()
	was := prev.known && prev.status.DebugAccessory()
	if now != was {
		println("[usbc] debug accessory, port", port, "connected", now)
		s.conn.Publish(s.conn.NewMessage(TopicDebugAccessory(), types.DebugAccessoryMessage{
			Port:      uint8(port),
			Connected: now,
			TS:        timex.NowMs(),
		}, true))
	}
}

// handleUnconstrained reacts to the power policy's broadcast by
// raising an external supply change on every connected port.
func (s *service) handleUnconstrained(m *bus.Message) {
	if _, ok := m.Payload.(types.UnconstrainedMessage); !ok {
		return
	}
	for i := 0; i < pd.MaxSupportedPorts; i++ {
		gp := pd.GlobalPortID(i)
		if s.cache[gp].known && s.cache[gp].status.ConnectionPresent {
			s.raiseStatusChange(gp, ucsi.StatusExternalSupplyChange)
		}
	}
}

// -----------------------------------------------------------------------------
// External requests
// -----------------------------------------------------------------------------

func (s *service) serveExternal(ctx context.Context, cmd typec.ExternalCommand) any {
	switch c := cmd.(type) {
	case typec.ExternalUcsiCommand:
		return s.processUcsiCommand(ctx, c.Cmd)

	case typec.ExternalControllerCommand:
		dev, ok := s.reg.ByController(c.Controller)
		if !ok {
			return typec.ControllerResponse{Err: pd.ErrInvalidController}
		}
		resp, err := dev.Execute(ctx, typec.ControllerCommand{Op: c.Op})
		if err != nil {
			return typec.ControllerResponse{Err: err}
		}
		cr, ok := resp.(typec.ControllerResponse)
		if !ok {
			return typec.ControllerResponse{Err: pd.ErrInvalidResponse}
		}
		return cr

	case typec.ExternalPortCommand:
		dev, ok := s.reg.ByPort(c.Cmd.Port)
		if !ok {
			return typec.PortErr(pd.ErrInvalidPort)
		}
		resp, err := dev.Execute(ctx, c.Cmd)
		if err != nil {
			return typec.PortErr(err)
		}
		pr, ok := resp.(typec.PortResponse)
		if !ok {
			return typec.PortErr(pd.ErrInvalidResponse)
		}
		if c.Cmd.Op == typec.OpPortStatus && pr.Err == nil {
			s.updateCache(c.Cmd.Port, pr.Status)
		}
		return pr

	default:
		return typec.PortErr(pd.ErrInvalidParams)
	}
}

func (s *service) publishState(state types.ServiceState, detail string) {
	info := types.StateInfo{Service: "usbc", State: state, Detail: detail, TS: timex.NowMs()}
	s.conn.Publish(s.conn.NewMessage(TopicState(), info, true))
}
