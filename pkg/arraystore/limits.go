package arraystore

import (
	"golang.org/x/exp/constraints"

	"objmodel/pkg/value"
)

// maxLength is one past the largest array index.
const maxLength = value.MaxArrayIndex + 1

// checkedAdd returns a+b, or false when the sum exceeds limit.
func checkedAdd[T constraints.Unsigned](a, b, limit T) (T, bool) {
	if a > limit || b > limit-a {
		return 0, false
	}
	return a + b, true
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
