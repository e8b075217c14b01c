// services/opmlink/opmlink.go
package opmlink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"typeccode-go/bus"
	"typeccode-go/errcode"
	"typeccode-go/pd"
	"typeccode-go/services/usbc"
	"typeccode-go/typec"
	"typeccode-go/types"
	"typeccode-go/ucsi"
	"typeccode-go/x/timex"
)

// Bus topics owned by the service.

func TopicState() bus.Topic { return bus.T("opmlink", "state") }

func topicConfig() bus.Topic { return bus.T("config", "opmlink") }

const (
	defaultPing    = 5 * time.Second
	commandTimeout = 500 * time.Millisecond
)

var errPingTimeout = errors.New("opmlink: ping timeout")

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is the JSON configuration expected on config/opmlink.
type Config struct {
	Transport TransportConfig `json:"transport"`
	// PingMS overrides the link keepalive interval.
	PingMS int `json:"ping_ms,omitempty"`
}

type TransportConfig struct {
	// "uart" (built in) or another name registered via
	// RegisterTransport.
	Type string      `json:"type"`
	UART *UARTConfig `json:"uart,omitempty"`
}

// UARTConfig carries enough for an injected platform dialler to open
// the port. Pin numbers are platform specific.
type UARTConfig struct {
	Baud  int `json:"baud"`
	RxPin int `json:"rx_pin"`
	TxPin int `json:"tx_pin"`
}

func (c Config) ping() time.Duration {
	if c.PingMS <= 0 {
		return defaultPing
	}
	return time.Duration(c.PingMS) * time.Millisecond
}

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run carries the UCSI connection to an external OS policy manager
// over a byte stream transport until ctx ends. CONTROL structures
// arrive as frames and are executed through the Type-C service, CCI
// indications and message-in payloads travel back the same way.
func Run(ctx context.Context, conn *bus.Connection, reg *typec.Registry) error {
	s := &service{conn: conn, reg: reg}
	return s.run(ctx)
}

type service struct {
	conn *bus.Connection
	reg  *typec.Registry

	mu     sync.Mutex
	curRun context.CancelFunc
}

// run waits for config and supervises a single link instance.
func (s *service) run(ctx context.Context) error {
	cfgSub := s.conn.Subscribe(topicConfig())
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState(types.StateBooting, "awaiting config")
	println("[opmlink] service running")

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return ctx.Err()
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState(types.StateError, "config subscription closed")
				return bus.ErrClosed
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				println("[opmlink] bad config:", err.Error())
				s.publishState(types.StateError, "bad config")
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

// reconfigure replaces the running link with one built from cfg.
func (s *service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision
// -----------------------------------------------------------------------------

func (s *service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		println("[opmlink] transport:", err.Error())
		s.publishState(types.StateError, err.Error())
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			println("[opmlink] dial failed:", err.Error(), "retry in", delay.String())
			s.publishState(types.StateDegraded, "dial failed")
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		err = s.handleLink(ctx, cfg, rwc)
		_ = rwc.Close()
		if err != nil {
			delay := backoff()
			println("[opmlink] link lost:", err.Error(), "retry in", delay.String())
			s.publishState(types.StateDegraded, "link lost")
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		return
	}
}

// handleLink owns the active link lifetime. All writes happen here so
// a CCI and its data frame are never interleaved with a keepalive.
func (s *service) handleLink(ctx context.Context, cfg Config, rwc io.ReadWriteCloser) error {
	rd := newFramedReader(rwc)
	wr := newFramedWriter(rwc)

	cciSub := s.conn.Subscribe(usbc.TopicCci())
	defer s.conn.Unsubscribe(cciSub)

	// Ready is published after the CCI subscription exists, nothing
	// indicated from here on can be missed.
	s.publishState(types.StateReady, "link up")
	println("[opmlink] link established,", cfg.Transport.Type)

	frames := make(chan Frame, 4)
	errCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case frames <- f:
			case <-done:
				return
			}
		}
	}()

	ping := time.NewTicker(cfg.ping())
	defer ping.Stop()
	awaitingPong := false

	for {
		select {
		case <-ctx.Done():
			_ = wr.WriteFrame(Frame{Type: frameClose})
			return nil

		case err := <-errCh:
			return err

		case f := <-frames:
			switch f.Type {
			case frameControl:
				if err := s.serveControl(ctx, wr, f.Payload); err != nil {
					return err
				}
			case framePing:
				if err := wr.WriteFrame(Frame{Type: framePong}); err != nil {
					return err
				}
			case framePong:
				awaitingPong = false
			case frameClose:
				return nil
			default:
				println("[opmlink] dropping frame type", f.Type)
			}

		case m := <-cciSub.Channel():
			cci, ok := asyncCci(m)
			if !ok {
				continue
			}
			if err := writeCci(wr, cci); err != nil {
				return err
			}

		case <-ping.C:
			if awaitingPong {
				return errPingTimeout
			}
			if err := wr.WriteFrame(Frame{Type: framePing}); err != nil {
				return err
			}
			awaitingPong = true
		}
	}
}

// serveControl parses and executes one CONTROL frame and writes the
// reply. The returned error is a link error, command failures go back
// to the OPM as frames.
func (s *service) serveControl(ctx context.Context, wr *framedWriter, payload []byte) error {
	cmd, err := ucsi.ParseControl(payload)
	if err != nil {
		return writeError(wr, err)
	}
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	resp, err := typec.ExecuteUcsiCommand(cctx, s.reg, cmd)
	cancel()
	if err != nil {
		println("[opmlink]", cmd.Code.String(), "failed:", err.Error())
		return writeError(wr, err)
	}
	if err := writeCci(wr, resp.Cci); err != nil {
		return err
	}
	if resp.Data == nil {
		return nil
	}
	body, err := json.Marshal(resp.Data)
	if err != nil {
		return writeError(wr, err)
	}
	return wr.WriteFrame(Frame{Type: frameData, Payload: body})
}

// asyncCci turns a connector change announcement into the CCI to
// forward, false when the OPM asked for silence.
func asyncCci(m *bus.Message) (ucsi.Cci, bool) {
	ev, ok := m.Payload.(types.UcsiCciMessage)
	if !ok || !ev.NotifyOpm {
		return ucsi.Cci{}, false
	}
	var cci ucsi.Cci
	cci.SetConnectorChange(pd.GlobalPortID(ev.Port))
	return cci, true
}

func writeCci(wr *framedWriter, cci ucsi.Cci) error {
	raw := cci.Encode()
	b := []byte{byte(raw), byte(raw >> 8), byte(raw >> 16), byte(raw >> 24)}
	return wr.WriteFrame(Frame{Type: frameCci, Payload: b})
}

func writeError(wr *framedWriter, err error) error {
	return wr.WriteFrame(Frame{Type: frameError, Payload: []byte(errcode.Of(err))})
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Transport is a pluggable link dialler.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type transportFactory func(TransportConfig) (Transport, error)

var (
	regMu     sync.RWMutex
	registry  = map[string]transportFactory{}
	errNoDial = errors.New("opmlink: UARTDial not wired")
)

// RegisterTransport adds a named transport, host harnesses use it for
// loopback links.
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Type {
	case "uart":
		return newUARTTransport(cfg)
	default:
		return nil, errors.New("opmlink: unknown transport " + cfg.Type)
	}
}

// UARTDial is injected by platform code. It must open and return a
// byte stream over the configured UART.
var UARTDial func(ctx context.Context, u UARTConfig) (io.ReadWriteCloser, error)

type uartTransport struct {
	cfg TransportConfig
}

func newUARTTransport(cfg TransportConfig) (Transport, error) {
	if cfg.UART == nil {
		return nil, errors.New("opmlink: uart transport requires uart config")
	}
	return &uartTransport{cfg: cfg}, nil
}

func (u *uartTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if UARTDial == nil {
		return nil, errNoDial
	}
	return UARTDial(ctx, *u.cfg.UART)
}

func (u *uartTransport) String() string { return "uart" }

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case []byte:
		if err := json.Unmarshal(v, &cfg); err != nil {
			return cfg, err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return cfg, err
		}
	case map[string]any:
		// The config service delivers decoded objects, re-marshal to
		// reuse the struct mapping.
		b, err := json.Marshal(v)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, errors.New("opmlink: unsupported config payload")
	}
	return cfg, nil
}

func (s *service) publishState(state types.ServiceState, detail string) {
	info := types.StateInfo{Service: "opmlink", State: state, Detail: detail, TS: timex.NowMs()}
	s.conn.Publish(s.conn.NewMessage(TopicState(), info, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
