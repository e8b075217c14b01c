//go:build rp2040 || rp2350

package strconvx

import "errors"

// Behavior tracks strconv for the cases the console exercises: base 0
// prefix detection (0x, 0b, 0o and the legacy bare 0 for octal), range
// errors instead of silent truncation, bases 2..36. No float support.

var (
	ErrSyntax = errors.New("invalid syntax")
	ErrRange  = errors.New("value out of range")
)

func Atoi(s string) (int, error) {
	v, err := ParseInt(s, 10, 32)
	return int(v), err
}

func ParseInt(s string, base, bitSize int) (int64, error) {
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	u, err := ParseUint(s, base, 64)
	if err != nil {
		return 0, err
	}
	if bitSize == 0 {
		bitSize = 32
	}
	lim := uint64(1) << uint(bitSize-1)
	if neg {
		if u > lim {
			return 0, ErrRange
		}
		return -int64(u), nil
	}
	if u >= lim {
		return 0, ErrRange
	}
	return int64(u), nil
}

func ParseUint(s string, base, bitSize int) (uint64, error) {
	if base == 0 {
		base = detectBase(&s)
	}
	if base < 2 || base > 36 || len(s) == 0 {
		return 0, ErrSyntax
	}
	if bitSize == 0 {
		bitSize = 32
	}
	max := ^uint64(0)
	if bitSize < 64 {
		max = 1<<uint(bitSize) - 1
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		d, ok := digit(s[i])
		if !ok || int(d) >= base {
			return 0, ErrSyntax
		}
		if v > (max-uint64(d))/uint64(base) {
			return 0, ErrRange
		}
		v = v*uint64(base) + uint64(d)
	}
	return v, nil
}

func FormatInt(i int64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	u := uint64(i)
	neg := i < 0
	if neg {
		u = uint64(-i)
	}
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	var buf [65]byte
	p := len(buf)
	b := uint64(base)
	for {
		p--
		buf[p] = digits[u%b]
		u /= b
		if u == 0 {
			break
		}
	}
	if neg {
		p--
		buf[p] = '-'
	}
	return string(buf[p:])
}

func digit(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'z':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'Z':
		return c - 'A' + 10, true
	}
	return 0, false
}

func detectBase(ps *string) int {
	s := *ps
	if len(s) < 2 || s[0] != '0' {
		return 10
	}
	switch s[1] {
	case 'x', 'X':
		*ps = s[2:]
		return 16
	case 'b', 'B':
		*ps = s[2:]
		return 2
	case 'o', 'O':
		*ps = s[2:]
		return 8
	}
	*ps = s[1:]
	return 8
}
