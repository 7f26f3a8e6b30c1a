package mertz

import "math"

// packIfg places branch into a zero-filled array of length m, with the
// ZPD sample (at fractional index zpd) rotated to index 0, per spec §4.6
// step 7.2. Only the integer part of zpd, rounded up, is used for the
// rotation; sub-sample phase is resolved later, in phase computation.
func packIfg(branch []float64, zpd float64, m int) []float64 {
	out := make([]float64, m)
	k := int(math.Ceil(zpd))
	n := len(branch)
	copy(out[:n-k], branch[k:])
	copy(out[m-k:], branch[:k])
	return out
}
