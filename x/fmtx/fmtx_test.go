package fmtx

import (
	"bytes"
	"errors"
	"testing"
)

// The cases stick to the verb subset the firmware formatter implements,
// so the same expectations hold on host and MCU builds.
func TestSprintfVerbs(t *testing.T) {
	for _, c := range []struct {
		format string
		args   []any
		want   string
	}{
		{"port %d events %x", []any{3, uint32(0x02000000)}, "port 3 events 2000000"},
		{"mode %s valid %t", []any{"app", true}, "mode app valid true"},
		{"offer %dmV %dmA", []any{uint16(5000), uint16(3000)}, "offer 5000mV 3000mA"},
		{"%s", []any{[]byte("raw")}, "raw"},
		{"err %s", []any{errors.New("busy")}, "err busy"},
		{"hex %x %x", []any{0, 26}, "hex 0 1a"},
		{"100%% duty", nil, "100% duty"},
		{"neg %d", []any{-42}, "neg -42"},
	} {
		if got := Sprintf(c.format, c.args...); got != c.want {
			t.Fatalf("Sprintf(%q) = %q, want %q", c.format, got, c.want)
		}
	}
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer
	n, err := Fprintf(&buf, "controller %d: mode %s", 1, "boot")
	if err != nil {
		t.Fatalf("Fprintf error: %v", err)
	}
	want := "controller 1: mode boot"
	if buf.String() != want {
		t.Fatalf("Fprintf wrote %q, want %q", buf.String(), want)
	}
	if n != len(want) {
		t.Fatalf("Fprintf reported %d bytes, want %d", n, len(want))
	}
}
