//go:build !(rp2040 || rp2350)

// Package fmtx is the console formatter. Host builds delegate to fmt;
// MCU builds link a small formatter with the verb subset the console
// emits, so firmware output matches host output for those verbs.
package fmtx

import (
	"fmt"
	"io"
)

func Sprintf(format string, a ...any) string {
	return fmt.Sprintf(format, a...)
}

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	return fmt.Fprintf(w, format, a...)
}
