// services/console/transport_rp2.go
//go:build rp2040 || rp2350

package console

import (
	"context"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// Uart runs the console over a hardware UART.
type Uart struct{ u *uartx.UART }

// NewUart configures the UART pins and baud rate and wraps the port.
func NewUart(u *uartx.UART, baud uint32, tx, rx machine.Pin) (*Uart, error) {
	if err := u.Configure(uartx.UARTConfig{BaudRate: baud, TX: tx, RX: rx}); err != nil {
		return nil, err
	}
	return &Uart{u: u}, nil
}

func (t *Uart) Write(b []byte) (int, error) { return t.u.Write(b) }

func (t *Uart) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	return t.u.RecvSomeContext(ctx, buf)
}
