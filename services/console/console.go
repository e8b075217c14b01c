// services/console/console.go
package console

import (
	"context"
	"errors"
	"time"

	"typeccode-go/bus"
	"typeccode-go/services/usbc"
	"typeccode-go/typec"
	"typeccode-go/types"
	"typeccode-go/x/fmtx"
)

// maxLine bounds one command line, longer input is truncated.
const maxLine = 128

// Transport is the byte stream the console reads commands from and
// writes responses to. Stdio serves host builds, Uart serves MCU
// builds.
type Transport interface {
	Write(b []byte) (int, error)
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
}

type Config struct {
	Transport Transport
	Prompt    string
	// CommandTimeout bounds each dispatched command.
	CommandTimeout time.Duration
}

func (c *Config) Validate() error {
	if c.Transport == nil {
		return errors.New("console: transport required")
	}
	if c.Prompt == "" {
		c.Prompt = "typec> "
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 2 * time.Second
	}
	return nil
}

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run drives the debug console until ctx ends or the transport
// closes. Commands execute against the Type-C service through reg,
// asynchronous service traffic is echoed between prompts.
func Run(ctx context.Context, conn *bus.Connection, reg *typec.Registry, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s := &Service{conn: conn, reg: reg, cfg: cfg, out: cfg.Transport}
	return s.loop(ctx)
}

type Service struct {
	conn *bus.Connection
	reg  *typec.Registry
	cfg  Config
	out  Transport
}

func (s *Service) loop(ctx context.Context) error {
	cciSub := s.conn.Subscribe(usbc.TopicCci())
	defer s.conn.Unsubscribe(cciSub)
	dbgSub := s.conn.Subscribe(usbc.TopicDebugAccessory())
	defer s.conn.Unsubscribe(dbgSub)
	notifySub := s.conn.Subscribe(usbc.TopicPortNotification())
	defer s.conn.Unsubscribe(notifySub)

	lines := make(chan string)
	go s.readLines(ctx, lines)

	s.print("typec console, 'help' lists commands\n")
	s.prompt()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				println("[console] transport closed")
				return nil
			}
			s.dispatch(ctx, line)
			s.prompt()

		case m := <-cciSub.Channel():
			if cci, ok := m.Payload.(types.UcsiCciMessage); ok {
				s.printf("\n[cci] connector change, port %d notify %t\n", int(cci.Port), cci.NotifyOpm)
				s.prompt()
			}

		case m := <-dbgSub.Channel():
			if dbg, ok := m.Payload.(types.DebugAccessoryMessage); ok {
				s.printf("\n[debug] port %d connected %t\n", int(dbg.Port), dbg.Connected)
				s.prompt()
			}

		case m := <-notifySub.Channel():
			if n, ok := m.Payload.(types.PortNotificationMessage); ok {
				s.printf("\n[notify] port %d", int(n.Port))
				for _, name := range n.Names {
					s.printf(" %s", name)
				}
				s.print("\n")
				s.prompt()
			}
		}
	}
}

// readLines assembles input bytes into lines. CR is dropped so both
// LF and CRLF terminals work.
func (s *Service) readLines(ctx context.Context, lines chan<- string) {
	defer close(lines)
	var buf [64]byte
	line := make([]byte, 0, maxLine)
	for {
		n, err := s.out.RecvSomeContext(ctx, buf[:])
		if err != nil {
			return
		}
		for _, c := range buf[:n] {
			switch c {
			case '\r':
			case '\n':
				select {
				case lines <- string(line):
				case <-ctx.Done():
					return
				}
				line = line[:0]
			default:
				if len(line) < maxLine {
					line = append(line, c)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Output helpers
// -----------------------------------------------------------------------------

func (s *Service) print(str string) {
	_, _ = s.out.Write([]byte(str))
}

func (s *Service) printf(format string, a ...any) {
	_, _ = fmtx.Fprintf(s.out, format, a...)
}

func (s *Service) prompt() {
	s.print(s.cfg.Prompt)
}
