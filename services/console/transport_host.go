// services/console/transport_host.go
//go:build !(rp2040 || rp2350)

package console

import (
	"context"
	"io"
	"os"
)

// Stdio runs the console on the process terminal. Reads block in
// their own goroutine so RecvSomeContext can honor its context.
type Stdio struct {
	data chan []byte
	buf  []byte
}

func NewStdio() *Stdio {
	t := &Stdio{data: make(chan []byte, 1)}
	go t.pump()
	return t
}

func (t *Stdio) pump() {
	defer close(t.data)
	for {
		buf := make([]byte, 64)
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			t.data <- buf[:n]
		}
		if err != nil {
			return
		}
	}
}

func (t *Stdio) Write(b []byte) (int, error) { return os.Stdout.Write(b) }

func (t *Stdio) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	if len(t.buf) == 0 {
		select {
		case b, ok := <-t.data:
			if !ok {
				return 0, io.EOF
			}
			t.buf = b
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	n := copy(buf, t.buf)
	t.buf = t.buf[n:]
	return n, nil
}
