package score

import "golang.org/x/exp/constraints"

// Abs works for any signed integer or float.
func Abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}
