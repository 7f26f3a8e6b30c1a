package mertz

import (
	"math"

	"golang.org/x/xerrors"
)

// Params configures a single Mertz phase-correction run (spec §4.6).
type Params struct {
	LaserWvn        float64 // LWN, cm^-1
	Mode            Mode
	GivenZPDFw      float64 // used only when Mode == Given
	GivenZPDBw      float64
	ZeroFilling     int     // >= 1
	PhaseIfgLength  int     // 0 means "derive from ZPDs"
	PhaseThreshold  float64
	MaxOPD          float64 // <= 0 means "no clip"
	LFQ, HFQ        float64 // both 0 means "no explicit band, use OrigWvn extent"
	OrigWvn         []float64
}

// Result holds the calibrated spectrum produced by Run.
type Result struct {
	Wvn        []float64
	Spc        []float64
	SpcComplex []complex128
	Phase      []float64
}

// Run executes the full Mertz phase-correction pipeline against a
// double-sided interferogram, per spec §4.6.
func Run(ifg []float64, p Params) (*Result, error) {
	if p.ZeroFilling < 1 {
		return nil, xerrors.New("mertz: zero_filling must be >= 1")
	}
	if p.LaserWvn <= 0 {
		return nil, xerrors.New("mertz: laser_wvn must be positive")
	}

	fw, bw := splitBranches(ifg)
	removeDC(fw)
	removeDC(bw)

	zpdFw := FindZPD(fw, p.Mode, p.GivenZPDFw)
	zpdBw := FindZPD(bw, p.Mode, p.GivenZPDBw)

	fw = clipOPD(fw, zpdFw, p.LaserWvn, p.MaxOPD)
	bw = clipOPD(bw, zpdBw, p.LaserWvn, p.MaxOPD)

	phaseLen := phaseWindowLength(p.PhaseIfgLength, zpdFw, zpdBw)
	if phaseLen < 1 {
		return nil, xerrors.New("mertz: degenerate phase window length")
	}

	m := nextPow2(len(fw))
	if mb := nextPow2(len(bw)); mb > m {
		m = mb
	}
	m *= p.ZeroFilling

	phaseFw, _ := lowResPhase(fw, zpdFw, phaseLen, m, p.PhaseThreshold)
	phaseBw, _ := lowResPhase(bw, zpdBw, phaseLen, m, p.PhaseThreshold)
	phase := make([]float64, m/2)
	for i := range phase {
		phase[i] = (phaseFw[i] + phaseBw[i]) / 2
	}

	specFw := highResSpectrum(fw, zpdFw, m)
	specBw := highResSpectrum(bw, zpdBw, m)

	realFw, cplxFw := mertzCombine(specFw, phase)
	realBw, cplxBw := mertzCombine(specBw, phase)

	spc := make([]float64, m/2)
	spcComplex := make([]complex128, m/2)
	for i := range spc {
		spc[i] = (realFw[i] + realBw[i]) / 2
		spcComplex[i] = (cplxFw[i] + cplxBw[i]) / 2
	}

	wvn := fftfreqHalf(m, p.LaserWvn)

	lo, hi := 0, len(wvn)
	switch {
	case p.LFQ != 0 || p.HFQ != 0:
		lo, hi = bandIndices(wvn, p.LFQ, p.HFQ)
	case len(p.OrigWvn) > 0:
		wmin, wmax := originalBandExtent(p.OrigWvn)
		lo, hi = bandIndices(wvn, wmin, wmax)
	}

	return &Result{
		Wvn:        append([]float64(nil), wvn[lo:hi]...),
		Spc:        append([]float64(nil), spc[lo:hi]...),
		SpcComplex: append([]complex128(nil), spcComplex[lo:hi]...),
		Phase:      append([]float64(nil), phase[lo:hi]...),
	}, nil
}

// fftfreqHalf returns the first M/2 bins of numpy.fft.fftfreq(m, 0.5/laserWvn),
// per spec §4.6 step 10. For non-negative frequencies (the only ones kept),
// fftfreq(n, d)[i] == i/(n*d).
func fftfreqHalf(m int, laserWvn float64) []float64 {
	d := 0.5 / laserWvn
	out := make([]float64, m/2)
	for i := range out {
		out[i] = float64(i) / (float64(m) * d)
	}
	return out
}

// bandIndices returns the half-open [lo, hi) slice bounds of wvn strictly
// between lo and hi frequency bounds, per spec §4.6 step 11.
func bandIndices(wvn []float64, lfq, hfq float64) (lo, hi int) {
	lo = len(wvn)
	hi = 0
	for i, v := range wvn {
		if v > lfq && v < hfq {
			if i < lo {
				lo = i
			}
			if i+1 > hi {
				hi = i + 1
			}
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// originalBandExtent derives (wvn_min, wvn_max) from an existing
// wavenumber axis, extended by half a bin width on either side, per spec
// §4.6 step 11.
func originalBandExtent(orig []float64) (min, max float64) {
	if len(orig) == 1 {
		return orig[0], orig[0]
	}
	binWidth := (orig[len(orig)-1] - orig[0]) / float64(len(orig)-1)
	return orig[0] - binWidth/2, orig[len(orig)-1] + binWidth/2
}

// SymmetricPhaseIsZero reports whether phase (mod pi) lies within
// threshold of zero or pi: the check behind the "symmetric interferogram
// centered exactly on a sample" property (spec §8).
func SymmetricPhaseIsZero(phase, threshold float64) bool {
	m := math.Mod(phase, math.Pi)
	if m < 0 {
		m += math.Pi
	}
	return m < threshold || math.Pi-m < threshold
}
