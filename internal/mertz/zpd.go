// Package mertz implements the Mertz phase-correction FFT pipeline that
// turns a double-sided interferogram into a calibrated, phase-corrected
// wavenumber spectrum (spec §4.6). It depends on gonum's complex FFT
// primitive (gonum.org/v1/gonum/dsp/fourier), the one numerical dependency
// the spec explicitly sanctions "any mature complex inverse-FFT primitive"
// for.
package mertz

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Mode selects how the zero-path-difference sample is located within a
// branch of the interferogram (spec §4.6 step 3).
type Mode int

const (
	// Given uses a caller-supplied ZPD index, skipping search entirely.
	Given Mode = iota
	AbsoluteMaximum
	Parabola
	Symmetry
)

// splitBranches splits a double-sided interferogram into its forward and
// backward branches. The backward branch is returned reversed, so that
// both branches run "outward from ZPD" in the same sense. Division by two
// is explicitly floored (spec §9 Open Questions: "fwdifg/bwdifg ... likely
// a bug ... floor-divide").
func splitBranches(ifg []float64) (fw, bw []float64) {
	n := len(ifg) / 2
	fw = append([]float64(nil), ifg[:n]...)
	bwSrc := ifg[n:]
	bw = make([]float64, len(bwSrc))
	for i, v := range bwSrc {
		bw[len(bwSrc)-1-i] = v
	}
	return fw, bw
}

// removeDC subtracts the mean of the second half of branch from the whole
// branch in place, per spec §4.6 step 2.
func removeDC(branch []float64) {
	half := branch[len(branch)/2:]
	mean := floats.Sum(half) / float64(len(half))
	for i := range branch {
		branch[i] -= mean
	}
}

// argmaxAbs returns the index of the largest-magnitude sample in branch.
func argmaxAbs(branch []float64) int {
	best := 0
	bestAbs := math.Abs(branch[0])
	for i, v := range branch {
		if a := math.Abs(v); a > bestAbs {
			bestAbs = a
			best = i
		}
	}
	return best
}

// calcParabola fits a parabola through three equally- or unequally-spaced
// points and returns the vertex abscissa -B/(2A), per spec §4.6 step 3 and
// the three-point formula used by the original implementation.
func calcParabola(x1, y1, x2, y2, x3, y3 float64) float64 {
	denom := (x1 - x2) * (x1 - x3) * (x2 - x3)
	a := (x3*(y2-y1) + x2*(y1-y3) + x1*(y3-y2)) / denom
	b := (x3*x3*(y1-y2) + x2*x2*(y3-y1) + x1*x1*(y2-y3)) / denom
	return -b / (2 * a)
}

func zpdParabola(branch []float64) float64 {
	k := argmaxAbs(branch)
	return calcParabola(
		float64(k-1), branch[k-1],
		float64(k), branch[k],
		float64(k+1), branch[k+1],
	)
}

// at implements Python's negative-index wraparound into ac: at(ac, -1) ==
// ac[len(ac)-1]. Preserving this semantic is explicitly called out as
// intentional in spec §9 ("preserve this wrap semantics").
func at(ac []float64, i int) float64 {
	if i < 0 {
		i += len(ac)
	}
	return ac[i]
}

// symmetryScores computes the two folded-difference symmetry scores
// (symmi, symmp) for the windowed segment ac over half-window lpco/2, per
// spec §4.6 step 3.
func symmetryScores(ac []float64, lpco int) (symmi, symmp float64) {
	var sasumi, sadeli, sasump, sadelp float64
	q := math.Pi / float64(lpco)
	for x := 0; x < lpco/2; x++ {
		xf := float64(x)
		w := (5*math.Cos(q*xf) + math.Cos(3*q*xf)) / 6
		sasumi += w * math.Abs(at(ac, -x)+at(ac, x))
		sadeli += w * math.Abs(at(ac, -x)-at(ac, x))
		sasump += w * math.Abs(at(ac, -x+1)+at(ac, x))
		sadelp += w * math.Abs(at(ac, -x+1)-at(ac, x))
	}
	symmi = (sasumi - sadeli) / (sasumi + sadeli)
	symmp = (sasump - sadelp) / (sasump + sadelp)
	return symmi, symmp
}

// bestZPDShift scans 2*nburst candidate shifts within acIgram and returns
// the sub-sample-interpolated best shift relative to the window center,
// per spec §4.6 step 3.
func bestZPDShift(acIgram []float64, nburst, lpco int) float64 {
	const eps = 1e-37
	smax := -999.0
	best := 0.0
	var symiw, sympw float64
	for i := 0; i < 2*nburst; i++ {
		end := len(acIgram) - 2*nburst + i
		window := acIgram[i:end]
		symmi, symmp := symmetryScores(window, lpco)

		if sympw > smax {
			smax = sympw
			denom := eps + 4*math.Abs(2*sympw-symiw-symmi)
			best = float64(i) - 0.5 + (-symiw+symmi)/denom
		}
		if symmi > smax {
			smax = symmi
			denom := eps + 4*math.Abs(2*symmi-sympw-symmp)
			best = float64(i) + (-sympw+symmp)/denom
		}
		symiw = symmi
		sympw = symmp
	}
	return best - float64(nburst)
}

func zpdSymmetry(branch []float64) float64 {
	const nburst = 15
	const lpco = 1024

	kmax := 0
	kmin := 0
	for i, v := range branch {
		if v > branch[kmax] {
			kmax = i
		}
		if v < branch[kmin] {
			kmin = i
		}
	}
	ybar := floats.Sum(branch) / float64(len(branch))
	ymax, ymin := branch[kmax], branch[kmin]

	pinl := kmax
	if math.Abs(ymin-ybar) > math.Abs(ymax-ybar) {
		pinl = kmin
	}

	lo := pinl - nburst - lpco/2
	hi := pinl + nburst + lpco/2
	acIgram := branch[clamp(lo, 0, len(branch)):clamp(hi, 0, len(branch))]

	best := bestZPDShift(acIgram, nburst, lpco)
	return float64(pinl) + best
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FindZPD locates the zero-path-difference sample for a single branch
// according to mode. given is used only when mode == Given.
func FindZPD(branch []float64, mode Mode, given float64) float64 {
	switch mode {
	case Given:
		return given
	case AbsoluteMaximum:
		return float64(argmaxAbs(branch))
	case Parabola:
		return zpdParabola(branch)
	case Symmetry:
		return zpdSymmetry(branch)
	default:
		return float64(argmaxAbs(branch))
	}
}
