package ftsreader

import (
	"github.com/mbuschmann/ftsreader/internal/mertz"
	"golang.org/x/xerrors"
)

// CalculateSpectrum runs the Mertz phase-correction FFT pipeline on the
// file's primary interferogram and populates Spectrum/SpectrumWvn/Phase
// from the result (spec §3 "FFT session ... owned by a file model with an
// interferogram"; mirrors the original's set_FT_params + init_FT +
// ifg_to_spc lifecycle, collapsed into one call since this model has no
// long-lived FFT session object of its own).
//
// The acquisition mode (AQM) is always read from the header, and only
// double-sided ("SD") interferograms are supported, per spec §4.6 step 1.
// p.LaserWvn is taken from the header's LWN when left zero.
func (f *File) CalculateSpectrum(p mertz.Params) error {
	if !f.status {
		return ErrNotInitialized
	}
	if !f.HasInterferogram {
		return xerrors.New("ftsreader: no interferogram available to transform")
	}

	aqm := f.headerString("Acquisition Parameters", "AQM")
	if aqm != "SD" {
		return xerrors.Errorf("ftsreader: unsupported acquisition mode %q (only double-sided interferograms can be transformed)", aqm)
	}

	if p.LaserWvn == 0 {
		p.LaserWvn = f.headerFloat("Acquisition Parameters", "LWN")
	}
	if len(p.OrigWvn) == 0 && f.HasSpectrum {
		p.OrigWvn = f.SpectrumWvn
	}

	res, err := mertz.Run(f.Interferogram, p)
	if err != nil {
		return xerrors.Errorf("ftsreader: %w", err)
	}

	f.HasSpectrum = true
	f.SpectrumWvn = res.Wvn
	f.Spectrum = res.Spc
	f.HasPhase = true
	f.PhaseWvn = res.Wvn
	f.Phase = res.Phase
	return nil
}

// headerString returns the string value of key in block, falling back to
// the first block anywhere in the header that carries key.
func (f *File) headerString(block, key string) string {
	if v, ok := f.Header(block, key); ok {
		return v.Str
	}
	if matches := f.SearchParam(key); len(matches) > 0 {
		return matches[0].Value.Str
	}
	return ""
}

// headerFloat returns the float64 value of key in block, falling back to
// the first block anywhere in the header that carries key.
func (f *File) headerFloat(block, key string) float64 {
	if v, ok := f.Header(block, key); ok {
		return v.Float
	}
	if matches := f.SearchParam(key); len(matches) > 0 {
		return matches[0].Value.Float
	}
	return 0
}
