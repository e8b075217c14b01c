// services/opmlink/frame.go
package opmlink

import (
	"errors"
	"io"
)

// Frame types on the OPM link. Commands travel in, CCI and message-in
// payloads travel out.
const (
	framePing byte = 0x01
	framePong byte = 0x02

	// frameControl carries a UCSI CONTROL structure, OPM to PPM.
	frameControl byte = 0x10
	// frameCci carries the 32-bit CCI register, little endian, PPM to
	// OPM. Sent as the reply to every executed command and on
	// asynchronous connector changes.
	frameCci byte = 0x11
	// frameData carries the JSON encoded message-in payload of the
	// preceding frameCci when its data length is non zero.
	frameData byte = 0x12
	// frameError carries an error code string when a command could not
	// be executed at all.
	frameError byte = 0x13

	frameClose byte = 0x7f
)

// maxFrameLen bounds inbound payloads. A desynced peer must not make
// us allocate the full 16-bit length space.
const maxFrameLen = 1024

var errFrameTooLarge = errors.New("opmlink: frame too large")

// Frame is a length-prefixed frame: type byte, 16-bit big endian
// payload length, payload.
type Frame struct {
	Type    byte
	Payload []byte
}

type framedReader struct{ r io.Reader }
type framedWriter struct{ w io.Writer }

func newFramedReader(r io.Reader) *framedReader { return &framedReader{r: r} }
func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{w: w} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	typ := hdr[0]
	n := int(hdr[1])<<8 | int(hdr[2])
	if n > maxFrameLen {
		return Frame{}, errFrameTooLarge
	}
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: typ, Payload: buf}, nil
}

func (fw *framedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > maxFrameLen {
		return errFrameTooLarge
	}
	hdr := []byte{f.Type, byte(len(f.Payload) >> 8), byte(len(f.Payload) & 0xFF)}
	if _, err := fw.w.Write(hdr); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		_, err := fw.w.Write(f.Payload)
		return err
	}
	return nil
}
