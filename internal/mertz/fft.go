package mertz

import "gonum.org/v1/gonum/dsp/fourier"

// inverseFFT computes the length-len(seq) inverse discrete Fourier
// transform of seq, normalized by 1/N to match the numpy.fft.ifft
// convention the original pipeline relies on. gonum's CmplxFFT.Sequence
// computes the un-normalized inverse (Coefficients and Sequence round-trip
// to N*x, not x), so the division here is required, not optional.
func inverseFFT(seq []complex128) []complex128 {
	n := len(seq)
	ft := fourier.NewCmplxFFT(n)
	out := ft.Sequence(nil, seq)
	scale := complex(1/float64(n), 0)
	for i := range out {
		out[i] *= scale
	}
	return out
}

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
