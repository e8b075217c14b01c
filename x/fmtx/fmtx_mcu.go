//go:build rp2040 || rp2350

package fmtx

import (
	"io"

	"typeccode-go/x/strconvx"
)

// The firmware formatter understands %s %d %x %t %v and %%, which is all
// the console emits. Unknown verbs and missing arguments pass through
// literally instead of panicking.

func Sprintf(format string, a ...any) string {
	return string(appendFormat(nil, format, a))
}

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	return w.Write(appendFormat(nil, format, a))
}

func appendFormat(dst []byte, format string, args []any) []byte {
	ai := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			dst = append(dst, c)
			continue
		}
		i++
		if i >= len(format) {
			return append(dst, '%')
		}
		verb := format[i]
		if verb == '%' {
			dst = append(dst, '%')
			continue
		}
		if ai >= len(args) {
			dst = append(dst, '%', verb)
			continue
		}
		arg := args[ai]
		ai++

		switch verb {
		case 's':
			dst = appendAny(dst, arg)
		case 'd':
			if n, ok := asInt(arg); ok {
				dst = append(dst, strconvx.FormatInt(n, 10)...)
			} else {
				dst = append(dst, '?')
			}
		case 'x':
			if u, ok := arg.(uint64); ok {
				dst = appendHex(dst, u)
			} else if n, ok := asInt(arg); ok {
				if n < 0 {
					dst = append(dst, '-')
					n = -n
				}
				dst = appendHex(dst, uint64(n))
			} else {
				dst = append(dst, '?')
			}
		case 't':
			if v, ok := arg.(bool); ok && v {
				dst = append(dst, "true"...)
			} else {
				dst = append(dst, "false"...)
			}
		case 'v':
			dst = appendAny(dst, arg)
		default:
			dst = append(dst, '%', verb)
		}
	}
	return dst
}

func appendAny(dst []byte, v any) []byte {
	switch x := v.(type) {
	case string:
		return append(dst, x...)
	case []byte:
		return append(dst, x...)
	case bool:
		if x {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case error:
		return append(dst, x.Error()...)
	}
	if n, ok := asInt(v); ok {
		return append(dst, strconvx.FormatInt(n, 10)...)
	}
	return append(dst, '?')
}

func appendHex(dst []byte, v uint64) []byte {
	const digits = "0123456789abcdef"
	if v == 0 {
		return append(dst, '0')
	}
	var tmp [16]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = digits[v&0xF]
		v >>= 4
	}
	return append(dst, tmp[i:]...)
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	}
	return 0, false
}
