// Package batch implements the averaging, ratioing, and ASCII export
// operations consumed by CLIs and viewers (spec §4.7). Files are opened in
// parallel with a bounded errgroup, the way the teacher's package build
// scheduler fanned out work across a worker pool.
package batch

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/mbuschmann/ftsreader"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// AxisMismatchError reports that two spectra could not be combined because
// their wavenumber axes differ (spec §7: AxisMismatch).
type AxisMismatchError struct {
	FileA, FileB string
}

func (e *AxisMismatchError) Error() string {
	return fmt.Sprintf("batch: wavenumber axis mismatch between %s and %s", e.FileA, e.FileB)
}

// Mode selects which data block Average operates on.
type Mode int

const (
	Spectra Mode = iota
	Interferograms
)

func blockNames(mode Mode) []string {
	if mode == Interferograms {
		return []string{"Data Block IgSm"}
	}
	return []string{"Data Block SpSm", "Data Block ScSm"}
}

// Ctx is a batch operation context: configuration shared across calls.
type Ctx struct {
	Log *log.Logger
}

// isTerminal reports whether stdout is an interactive terminal, gating the
// progress log lines emitted during Average.
var isTerminal = func() bool {
	_, err := unix.IoctlGetTermios(int(os.Stdout.Fd()), unix.TCGETS)
	return err == nil
}()

type loadedSpectrum struct {
	path   string
	wvn, y []float64
}

// Average opens every path in parallel, requires that they all expose an
// identical wavenumber axis (pointwise equality), and returns the
// elementwise mean (spec §4.7).
func (c *Ctx) Average(ctx context.Context, paths []string, mode Mode) (wvn, mean []float64, err error) {
	if len(paths) == 0 {
		return nil, nil, xerrors.New("batch: average requires at least one file")
	}

	names := blockNames(mode)
	results := make([]loadedSpectrum, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			loaded, err := c.loadOne(path, names)
			if err != nil {
				return err
			}
			results[i] = loaded
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	wvn = results[0].wvn
	sum := append([]float64(nil), results[0].y...)
	for _, r := range results[1:] {
		if !floats.Equal(wvn, r.wvn) {
			return nil, nil, &AxisMismatchError{FileA: results[0].path, FileB: r.path}
		}
		floats.Add(sum, r.y)
	}
	n := float64(len(results))
	for i := range sum {
		sum[i] /= n
	}
	return wvn, sum, nil
}

func (c *Ctx) loadOne(path string, names []string) (loadedSpectrum, error) {
	f, err := ftsreader.Open(path)
	if err != nil {
		return loadedSpectrum{}, xerrors.Errorf("batch: opening %s: %w", path, err)
	}

	var wvn, y []float64
	for _, name := range names {
		if !f.HasBlock(name) {
			continue
		}
		wvn, y, err = f.GetBlock(name)
		if err != nil {
			return loadedSpectrum{}, xerrors.Errorf("batch: reading %s from %s: %w", name, path, err)
		}
		break
	}
	if y == nil {
		return loadedSpectrum{}, xerrors.Errorf("batch: %s has none of %v", path, names)
	}

	if isTerminal && c.Log != nil {
		c.Log.Printf("loaded %s (%d points)", path, len(y))
	}
	return loadedSpectrum{path: path, wvn: wvn, y: y}, nil
}

// Divide computes spc1/spc2. If interpolate is set, spc2 is resampled onto
// wvn1 via linear interpolation before dividing; otherwise the two axes
// must already match exactly. If normalise is set, the result is divided
// by its own mean (spec §4.7).
func Divide(wvn1, spc1, wvn2, spc2 []float64, interpolate, normalise bool) (wvn, result []float64, err error) {
	if len(wvn1) != len(spc1) || len(wvn2) != len(spc2) {
		return nil, nil, xerrors.New("batch: wavenumber/spectrum length mismatch")
	}

	divisor := spc2
	if interpolate {
		var pl interp.Linear
		if err := pl.Fit(wvn2, spc2); err != nil {
			return nil, nil, xerrors.Errorf("batch: fitting interpolant: %w", err)
		}
		divisor = make([]float64, len(wvn1))
		for i, w := range wvn1 {
			divisor[i] = pl.Predict(w)
		}
	} else if !floats.Equal(wvn1, wvn2) {
		return nil, nil, &AxisMismatchError{FileA: "spc1", FileB: "spc2"}
	}

	result = make([]float64, len(spc1))
	for i := range result {
		result[i] = spc1[i] / divisor[i]
	}
	if normalise {
		mean := floats.Sum(result) / float64(len(result))
		for i := range result {
			result[i] /= mean
		}
	}
	return append([]float64(nil), wvn1...), result, nil
}

// Save writes wvn/y as whitespace-separated ASCII two-column text
// (spec §4.7).
func Save(path string, wvn, y []float64) error {
	if len(wvn) != len(y) {
		return xerrors.New("batch: wavenumber/spectrum length mismatch")
	}
	var b strings.Builder
	for i := range wvn {
		fmt.Fprintf(&b, "%g %g\n", wvn[i], y[i])
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return xerrors.Errorf("batch: writing %s: %w", path, err)
	}
	return nil
}
