// services/battery/service.go
package battery

import (
	"context"
	"time"

	"typeccode-go/bus"
	"typeccode-go/drivers/ltc4015"
	"typeccode-go/pd"
	"typeccode-go/power/policy"
	"typeccode-go/services/usbc"
	"typeccode-go/typec"
	"typeccode-go/types"
	"typeccode-go/x/timex"
)

// Bus topics owned by the service.

func TopicState() bus.Topic { return bus.T("battery", "state") }

func TopicTelemetry() bus.Topic { return bus.T("battery", "telemetry") }

func topicConfig() bus.Topic { return bus.T("config", "battery") }

// Charger is the programming surface the service drives. The ltc4015
// device satisfies it.
type Charger interface {
	SetIinLimit_mA(mA int32) error
	SetIChargeTarget_mA(mA int32) error
	SuspendCharger(on bool) error
	Snapshot() ltc4015.Snapshot
}

var _ Charger = (*ltc4015.Device)(nil)

// Defaults until the config service has something retained for us.
const (
	defaultInputCapMa = 3000
	defaultChargeMa   = 2000
	defaultInterval   = 10 * time.Second

	// Without a contract only USB default current may be drawn.
	noContractInputMa = 500

	requestTimeout = 250 * time.Millisecond
)

// Run drives the battery collaborator until ctx ends. It follows the
// negotiated sink contract and the power policy broadcast, programs
// the charger input and charge paths and publishes retained telemetry.
func Run(ctx context.Context, conn *bus.Connection, reg *typec.Registry, chg Charger) error {
	s := &service{
		conn:       conn,
		reg:        reg,
		chg:        chg,
		inputCapMa: defaultInputCapMa,
		chargeMa:   defaultChargeMa,
		interval:   defaultInterval,
	}
	return s.loop(ctx)
}

type service struct {
	conn *bus.Connection
	reg  *typec.Registry
	chg  Charger

	inputCapMa int32
	chargeMa   int32
	interval   time.Duration

	unconstrained bool

	programmed  bool
	lastInput   int32
	lastTarget  int32
	lastSuspend bool
}

func (s *service) loop(ctx context.Context) error {
	cfgSub := s.conn.Subscribe(topicConfig())
	defer s.conn.Unsubscribe(cfgSub)
	unconSub := s.conn.Subscribe(policy.TopicUnconstrained())
	defer s.conn.Unsubscribe(unconSub)
	cciSub := s.conn.Subscribe(usbc.TopicCci())
	defer s.conn.Unsubscribe(cciSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	s.publishState(types.StateReady, "")
	println("[battery] service running")

	s.evaluate(ctx)
	s.publishTelemetry()

	for {
		select {
		case <-ctx.Done():
			println("[battery] stopping")
			return ctx.Err()

		case m := <-cfgSub.Channel():
			if s.applyConfig(m) {
				tick.Reset(s.interval)
				s.evaluate(ctx)
			}

		case m := <-unconSub.Channel():
			if u, ok := m.Payload.(types.UnconstrainedMessage); ok {
				s.unconstrained = u.Unconstrained
				s.evaluate(ctx)
			}

		case <-cciSub.Channel():
			// Connector change, the contract may have moved.
			s.evaluate(ctx)

		case <-tick.C:
			s.publishTelemetry()
		}
	}
}

// evaluate finds the active sink contract and reprograms the charger
// from it.
func (s *service) evaluate(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var contract *pd.PowerCapability
	for i := 0; i < s.reg.NumPorts(); i++ {
		st, err := typec.GetPortStatus(rctx, s.reg, pd.GlobalPortID(i), true)
		if err != nil {
			continue
		}
		if st.Contract.IsSink() {
			c := st.Contract.Capability
			contract = &c
			break
		}
	}

	inputMa := int32(noContractInputMa)
	suspend := true
	if contract != nil {
		inputMa = int32(contract.CurrentMa)
		if inputMa > s.inputCapMa {
			inputMa = s.inputCapMa
		}
		suspend = false
	}
	targetMa := s.chargeMa
	if !s.unconstrained {
		// Constrained source, charge gently.
		targetMa = s.chargeMa / 2
	}
	s.program(inputMa, targetMa, suspend)
}

func (s *service) program(inputMa, targetMa int32, suspend bool) {
	if s.programmed && inputMa == s.lastInput && targetMa == s.lastTarget && suspend == s.lastSuspend {
		return
	}
	if err := s.chg.SetIinLimit_mA(inputMa); err != nil {
		println("[battery] input limit failed:", err.Error())
		return
	}
	if err := s.chg.SetIChargeTarget_mA(targetMa); err != nil {
		println("[battery] charge target failed:", err.Error())
		return
	}
	if err := s.chg.SuspendCharger(suspend); err != nil {
		println("[battery] suspend failed:", err.Error())
		return
	}
	s.programmed = true
	s.lastInput, s.lastTarget, s.lastSuspend = inputMa, targetMa, suspend
	println("[battery] programmed input", inputMa, "mA charge", targetMa, "mA suspended", suspend)
}

// applyConfig digests the retained battery config section. Reports
// whether anything changed.
func (s *service) applyConfig(m *bus.Message) bool {
	cfg, ok := m.Payload.(map[string]any)
	if !ok {
		return false
	}
	changed := false
	if v, ok := cfg["input_limit_ma"].(float64); ok && v > 0 {
		s.inputCapMa = int32(v)
		changed = true
	}
	if v, ok := cfg["charge_ma"].(float64); ok && v > 0 {
		s.chargeMa = int32(v)
		changed = true
	}
	if v, ok := cfg["telemetry_interval"].(float64); ok && v > 0 {
		s.interval = time.Duration(v * float64(time.Second))
		changed = true
	}
	if changed {
		println("[battery] config applied")
	}
	return changed
}

func (s *service) publishTelemetry() {
	snap := s.chg.Snapshot()
	s.conn.Publish(s.conn.NewMessage(TopicTelemetry(), types.BatteryTelemetryMessage{
		VbatMilliV: snap.Pack_mV,
		IbatMilliA: snap.IBat_mA,
		VinMilliV:  snap.Vin_mV,
		DieMilliC:  snap.Die_mC,
		Charging:   snap.State.Charging(),
		TS:         timex.NowMs(),
	}, true))
}

func (s *service) publishState(state types.ServiceState, detail string) {
	info := types.StateInfo{Service: "battery", State: state, Detail: detail, TS: timex.NowMs()}
	s.conn.Publish(s.conn.NewMessage(TopicState(), info, true))
}
