package chunking

import (
	"math"
	"math/bits"
)

// mulSat returns a*b, or math.MaxUint64 if the product overflows.
func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// productSat returns item times the product of dims, saturating.
func productSat(item uint64, dims []uint64) uint64 {
	n := item
	for _, d := range dims {
		n = mulSat(n, d)
	}
	return n
}

// productExcept is productSat skipping axis skip.
func productExcept(item uint64, dims []uint64, skip int) uint64 {
	n := item
	for i, d := range dims {
		if i != skip {
			n = mulSat(n, d)
		}
	}
	return n
}

// largestFit returns the largest n in [0, limit] with n*unit <= budget.
func largestFit(budget, unit, limit uint64) uint64 {
	if unit == 0 {
		return limit
	}
	return min(budget/unit, limit)
}

// MB converts decimal megabytes to bytes, rounding to the nearest byte.
func MB(x float64) uint64 {
	return toBytes(x, 1e6)
}

// GB converts decimal gigabytes to bytes, rounding to the nearest byte.
func GB(x float64) uint64 {
	return toBytes(x, 1e9)
}

func toBytes(x, unit float64) uint64 {
	if x <= 0 || math.IsNaN(x) {
		return 0
	}
	v := math.Round(x * unit)
	if v >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(v)
}
