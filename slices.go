package ftsreader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/xerrors"
)

// ConcatenateSlices implements slice mode (spec §4.4/§9): given a
// directory of sibling files each carrying a primary interferogram,
// concatenates them in sorted filename order into one long interferogram.
// The header of the first successfully opened slice becomes the returned
// model's header; a default OPD axis is derived as linspace(0, 1.8/RES, N).
//
// Expressed as a pure function rather than mutating an existing model's
// path/filename/folder fields, per the original's ad hoc field reuse
// during slice processing.
func ConcatenateSlices(dir string) (*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, xerrors.Errorf("ftsreader: reading slice directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var combined []float64
	var headerFile *File
	var events []string

	for _, name := range names {
		path := filepath.Join(dir, name)
		slice, err := Open(path, WithInterferogram())
		if err != nil || !slice.Status() || !slice.HasInterferogram {
			events = append(events, fmt.Sprintf("slice: skipping %s: %v", name, err))
			continue
		}
		combined = append(combined, slice.Interferogram...)
		if headerFile == nil {
			headerFile = slice
		}
	}

	if headerFile == nil {
		return nil, xerrors.Errorf("ftsreader: no valid interferogram slices found in %s", dir)
	}

	out := &File{
		header:           headerFile.header,
		status:           true,
		HasInterferogram: true,
		Interferogram:    combined,
		events:           append(events, fmt.Sprintf("slice: concatenated %d files, header from first valid slice", len(names)-len(events))),
	}

	if matches := headerFile.SearchParam("RES"); len(matches) > 0 {
		if res := matches[0].Value.Float; res > 0 {
			out.SliceOPD = linspace(0, 1.8/res, len(combined))
		}
	}

	return out, nil
}
