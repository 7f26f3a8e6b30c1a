package mertz

import "math"

// clipOPD truncates branch to ceil(zpd) + 2*laserWvn*maxOPD samples, per
// spec §4.6 step 4. maxOPD <= 0 means "no clip requested".
func clipOPD(branch []float64, zpd, laserWvn, maxOPD float64) []float64 {
	if maxOPD <= 0 {
		return branch
	}
	n := int(math.Ceil(zpd) + 2*laserWvn*maxOPD)
	if n >= len(branch) {
		return branch
	}
	if n < 0 {
		n = 0
	}
	return branch[:n]
}

// phaseWindowLength picks the half-width of the short ZPD-centered segment
// used for low-resolution phase estimation, per spec §4.6 step 5.
func phaseWindowLength(requested int, zpdFw, zpdBw float64) int {
	if requested > 0 {
		return requested
	}
	m := zpdFw
	if zpdBw < m {
		m = zpdBw
	}
	return int(m) - 1
}

// lowResPhase implements spec §4.6 step 7: build a short cosine-squared-
// bell-windowed segment around ZPD, pack it ZPD-first into a length-m
// array, inverse-FFT, and return the phase (angle + pi, not unwrapped) of
// the first m/2 bins together with the magnitude used for the
// below-threshold mask.
func lowResPhase(branch []float64, zpd float64, phaseLen, m int, threshold float64) (phase, mag []float64) {
	k := int(math.Ceil(zpd))
	phaseIfg := make([]float64, len(branch))
	lo := k - phaseLen
	hi := k + phaseLen
	if lo < 0 {
		lo = 0
	}
	if hi > len(branch) {
		hi = len(branch)
	}
	for i := lo; i < hi; i++ {
		w := math.Cos(0.5 * math.Pi * math.Abs(float64(i)-zpd) / float64(phaseLen))
		phaseIfg[i] = branch[i] * w * w
	}

	packed := packIfg(phaseIfg, zpd, m)
	seq := make([]complex128, m)
	for i, v := range packed {
		seq[i] = complex(v, 0)
	}
	spc := inverseFFT(seq)[:m/2]

	phase = make([]float64, m/2)
	mag = make([]float64, m/2)
	for i, c := range spc {
		mag[i] = math.Hypot(real(c), imag(c))
		phase[i] = math.Atan2(imag(c), real(c)) + math.Pi
	}
	interpolateBelowThreshold(phase, mag, threshold)
	return phase, mag
}

// interpolateBelowThreshold replaces phase[i] wherever mag[i] falls below
// threshold with a linear interpolation between the nearest
// above-threshold neighbours, per spec §4.6 step 7.5.
func interpolateBelowThreshold(phase, mag []float64, threshold float64) {
	n := len(phase)
	good := make([]bool, n)
	anyGood := false
	for i, m := range mag {
		if m >= threshold {
			good[i] = true
			anyGood = true
		}
	}
	if !anyGood {
		return
	}
	for i := 0; i < n; i++ {
		if good[i] {
			continue
		}
		lo := i
		for lo >= 0 && !good[lo] {
			lo--
		}
		hi := i
		for hi < n && !good[hi] {
			hi++
		}
		switch {
		case lo < 0 && hi >= n:
			// no good sample at all; leave as-is (unreachable given anyGood)
		case lo < 0:
			phase[i] = phase[hi]
		case hi >= n:
			phase[i] = phase[lo]
		default:
			t := float64(i-lo) / float64(hi-lo)
			phase[i] = phase[lo] + t*(phase[hi]-phase[lo])
		}
	}
}

// highResSpectrum implements spec §4.6 step 8: ramp-apodize branch, pack
// and inverse-FFT, returning the complex spectrum (first m/2 bins) whose
// angle is the high-resolution phase.
func highResSpectrum(branch []float64, zpd float64, m int) []complex128 {
	apod := make([]float64, len(branch))
	denom := 2 * zpd
	for i, v := range branch {
		r := 1.0
		if denom > 0 {
			r = float64(i) / denom
			if r > 1 {
				r = 1
			}
		}
		apod[i] = v * r
	}
	packed := packIfg(apod, zpd, m)
	seq := make([]complex128, m)
	for i, v := range packed {
		seq[i] = complex(v, 0)
	}
	return inverseFFT(seq)[:m/2]
}

// mertzCombine implements spec §4.6 step 9: real and complex Mertz
// combination of the high-resolution spectrum against the low-resolution
// phase estimate.
func mertzCombine(spcUncorr []complex128, phase []float64) (spcReal []float64, spcComplex []complex128) {
	spcReal = make([]float64, len(spcUncorr))
	spcComplex = make([]complex128, len(spcUncorr))
	for i, c := range spcUncorr {
		mag := math.Hypot(real(c), imag(c))
		angle := math.Atan2(imag(c), real(c))
		spcReal[i] = mag * math.Cos(angle-phase[i])
		spcComplex[i] = c * complex(math.Cos(-phase[i]), math.Sin(-phase[i]))
	}
	return spcReal, spcComplex
}
