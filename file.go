package ftsreader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mbuschmann/ftsreader/internal/rawfile"
	"golang.org/x/xerrors"
)

// File is a parsed FTS/OPUS file: its block directory, decoded parameter
// header, and whichever data blocks were requested at construction time
// (spec §3/§4.4).
type File struct {
	path string
	mem  []byte

	dir    *rawfile.Directory
	header *Header
	status bool
	events []string

	HasSpectrum bool
	SpectrumWvn []float64
	Spectrum    []float64

	HasTransmittance bool
	TransmittanceWvn []float64
	Transmittance    []float64

	HasPhase bool
	PhaseWvn []float64
	Phase    []float64

	HasInterferogram bool
	Interferogram    []float64

	HasSecondInterferogram bool
	SecondInterferogram    []float64

	// SliceOPD is the default optical-path-difference axis derived by
	// ConcatenateSlices. It is nil for files opened via Open/OpenMemory.
	SliceOPD []float64
}

// Open parses the file at path. The underlying file descriptor is closed
// before Open returns; File retains only the path, and reopens it scoped
// to each subsequent GetBlock call (spec §5 resource discipline).
func Open(path string, opts ...OpenOption) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("ftsreader: opening %s: %w", path, err)
	}
	defer fh.Close()

	f := &File{path: path}
	o := applyOptions(opts)
	if err := f.parse(fh, o); err != nil {
		return f, err
	}
	return f, nil
}

// OpenMemory parses an in-memory buffer. The buffer is retained for the
// lifetime of the File (spec §5: "for in-memory mode, the whole payload is
// owned by the model").
func OpenMemory(buf []byte, opts ...OpenOption) (*File, error) {
	f := &File{mem: buf}
	o := applyOptions(opts)
	if err := f.parse(bytes.NewReader(buf), o); err != nil {
		return f, err
	}
	return f, nil
}

func applyOptions(opts []OpenOption) fileOptions {
	var o fileOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (f *File) log(format string, args ...interface{}) {
	f.events = append(f.events, fmt.Sprintf(format, args...))
}

// Status reports whether the file parsed successfully and block lookups
// may be attempted.
func (f *File) Status() bool { return f.status }

// Log returns the append-only event log accumulated since construction
// (spec §7: "a status flag and an append-only log of events").
func (f *File) Log() []string {
	return append([]string(nil), f.events...)
}

func (f *File) parse(r io.ReaderAt, o fileOptions) error {
	dir, err := rawfile.ParseDirectory(r)
	if err != nil {
		f.log("parse failed: %v", err)
		return err
	}
	f.dir = dir
	f.status = true

	header, events := buildHeader(dir, r)
	f.header = header
	f.events = append(f.events, events...)

	f.materialize(r, o)
	return nil
}

func (f *File) materialize(r io.ReaderAt, o fileOptions) {
	try := func(enabled bool, names []string) (xaxis, yaxis []float64, ok bool) {
		if !enabled {
			return nil, nil, false
		}
		for _, name := range names {
			if !f.dir.Has(name) {
				continue
			}
			x, y, err := f.readBlock(r, name)
			if err != nil {
				f.log("materializing %q: %v", name, err)
				continue
			}
			if o.verbose {
				f.log("materialized %q (%d points)", name, len(y))
			}
			return x, y, true
		}
		return nil, nil, false
	}

	if x, y, ok := try(o.spectrum, []string{"Data Block SpSm", "Data Block ScSm"}); ok {
		f.HasSpectrum, f.SpectrumWvn, f.Spectrum = true, x, y
	}
	if x, y, ok := try(o.transmittance, []string{"Data Block TrSm"}); ok {
		f.HasTransmittance, f.TransmittanceWvn, f.Transmittance = true, x, y
	}
	if x, y, ok := try(o.phase, []string{"Data Block PhSm"}); ok {
		f.HasPhase, f.PhaseWvn, f.Phase = true, x, y
	}
	if _, y, ok := try(o.interferogram, []string{"Data Block IgSm"}); ok {
		f.HasInterferogram, f.Interferogram = true, y
	}
	if _, y, ok := try(o.secondInterferogram, []string{"Data Block IgSm/2.Chn."}); ok {
		f.HasSecondInterferogram, f.SecondInterferogram = true, y
	}
}

// HasBlock reports whether name is present in the file's directory.
func (f *File) HasBlock(name string) bool {
	if !f.status {
		return false
	}
	return f.dir.Has(name)
}

// GetBlock returns the (xaxis, yaxis) pair for a named data block, opening
// the underlying file scoped to this one read for file-backed models
// (spec §4.4/§5).
func (f *File) GetBlock(name string) (xaxis, yaxis []float64, err error) {
	if !f.status {
		return nil, nil, ErrNotInitialized
	}
	if !f.dir.Has(name) {
		return nil, nil, ErrBlockNotFound
	}
	if f.mem != nil {
		return f.readBlock(bytes.NewReader(f.mem), name)
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, nil, xerrors.Errorf("ftsreader: opening %s: %w", f.path, err)
	}
	defer fh.Close()
	return f.readBlock(fh, name)
}

// readBlock reads a data block's float32 payload, truncates it to its
// companion Data Parameters block's NPT if declared, and derives the
// wavenumber axis (nil for interferograms), per spec §4.3.
func (f *File) readBlock(r io.ReaderAt, name string) (xaxis, yaxis []float64, err error) {
	block, _ := f.dir.Get(name)
	raw, err := rawfile.ReadDataBlock(r, int64(block.Offset), block.Length)
	if err != nil {
		return nil, nil, err
	}

	suffix := blockSuffix(name)
	paramName := "Data Parameters " + suffix
	pb, hasParams := f.header.Blocks[paramName]

	npt := len(raw)
	var fxv, lxv float64
	haveAxis := false
	if hasParams {
		if v, ok := pb.Values["NPT"]; ok {
			npt = int(v.Int)
		}
		fv, fok := pb.Values["FXV"]
		lv, lok := pb.Values["LXV"]
		if fok && lok {
			fxv, lxv = fv.Float, lv.Float
			haveAxis = true
		}
	}
	if npt < len(raw) {
		raw = raw[:npt]
	}

	yaxis = make([]float64, len(raw))
	for i, v := range raw {
		yaxis[i] = float64(v)
	}

	if strings.Contains(suffix, "IgSm") || !haveAxis {
		return nil, yaxis, nil
	}
	xaxis = linspace(fxv, lxv, len(yaxis))
	return xaxis, yaxis, nil
}

// blockSuffix returns the last whitespace-separated token of a canonical
// block name, e.g. "Data Block IgSm/2.Chn." -> "IgSm/2.Chn.".
func blockSuffix(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// linspace returns n evenly spaced samples from start to stop inclusive,
// matching numpy.linspace's default endpoint=True behavior.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}
