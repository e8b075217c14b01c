// Package conv holds allocation-light formatting helpers for console and
// log output.
package conv

const hexUpper = "0123456789ABCDEF"

// U32Hex formats v as eight uppercase hex digits, zero padded, no 0x.
func U32Hex(v uint32) string {
	var b [8]byte
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = hexUpper[v&0xF]
		v >>= 4
	}
	return string(b[:])
}
