// Package mathx has small generic range helpers for firmware code that
// must not pull in math or fmt.
package mathx

import "golang.org/x/exp/constraints"

// Clamp returns v limited to the closed range [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports whether v lies in the closed range [lo, hi].
func Between[T constraints.Ordered](v, lo, hi T) bool {
	return lo <= v && v <= hi
}
