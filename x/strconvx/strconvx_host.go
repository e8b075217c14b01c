//go:build !(rp2040 || rp2350)

// Package strconvx is the console's number parsing and formatting layer.
// Host builds delegate to strconv; MCU builds carry a small compatible
// implementation so firmware images stay free of the full strconv tables.
package strconvx

import "strconv"

func Atoi(s string) (int, error) {
	return strconv.Atoi(s)
}

func ParseInt(s string, base, bitSize int) (int64, error) {
	return strconv.ParseInt(s, base, bitSize)
}

func ParseUint(s string, base, bitSize int) (uint64, error) {
	return strconv.ParseUint(s, base, bitSize)
}

func FormatInt(i int64, base int) string {
	return strconv.FormatInt(i, base)
}
