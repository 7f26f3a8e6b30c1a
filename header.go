package ftsreader

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mbuschmann/ftsreader/internal/rawfile"
)

// ParamBlock is one parameter block's decoded records, in file order.
type ParamBlock struct {
	Names  []string
	Values map[string]rawfile.Value
}

func newParamBlock(decoded *rawfile.DecodedBlock) *ParamBlock {
	pb := &ParamBlock{Values: make(map[string]rawfile.Value, len(decoded.Params))}
	for _, p := range decoded.Params {
		if _, exists := pb.Values[p.Key]; !exists {
			pb.Names = append(pb.Names, p.Key)
		}
		pb.Values[p.Key] = p.Value
	}
	return pb
}

// Header is the ordered mapping from block name to that block's decoded
// parameters (spec §3).
type Header struct {
	Names  []string
	Blocks map[string]*ParamBlock
}

// isParameterBlockName reports whether name denotes a parameter block (as
// opposed to a data block or an unrecognized/sentinel block), mirroring
// the original reader's "if 'unknown' in block or 'something' in block:
// pass" skip rule.
func isParameterBlockName(name string) bool {
	if strings.HasPrefix(name, "Data Block") {
		return false
	}
	if strings.Contains(name, "something") {
		return false
	}
	if strings.HasPrefix(name, "[unknown") {
		return false
	}
	return true
}

// buildHeader decodes every parameter block named in dir, skipping data
// blocks and unrecognized/sentinel blocks, per spec §4.4.
func buildHeader(dir *rawfile.Directory, r io.ReaderAt) (*Header, []string) {
	h := &Header{Blocks: make(map[string]*ParamBlock)}
	var events []string
	for _, name := range dir.Names {
		if !isParameterBlockName(name) {
			continue
		}
		block, _ := dir.Get(name)
		decoded, err := rawfile.DecodeParamBlock(r, int64(block.Offset))
		if err != nil {
			events = append(events, fmt.Sprintf("header: skipping block %q: %v", name, err))
			continue
		}
		for _, e := range decoded.Errors {
			events = append(events, fmt.Sprintf("header: %q: %v", name, e))
		}
		h.Names = append(h.Names, name)
		h.Blocks[name] = newParamBlock(decoded)
	}
	return h, events
}

// Header returns the value of key within block, and whether it was found.
func (f *File) Header(block, key string) (rawfile.Value, bool) {
	pb, ok := f.header.Blocks[block]
	if !ok {
		return rawfile.Value{}, false
	}
	v, ok := pb.Values[key]
	return v, ok
}

// SearchHeader returns the names of every block containing a parameter
// named key, in header order (spec §4.4: search_header).
func (f *File) SearchHeader(key string) []string {
	var out []string
	for _, name := range f.header.Names {
		if _, ok := f.header.Blocks[name].Values[key]; ok {
			out = append(out, name)
		}
	}
	return out
}

// SearchParam returns (block, value) pairs for every block containing a
// parameter named key, in header order. Unlike SearchHeader it also
// returns the matched values, for callers that want to inspect them
// without a second lookup.
func (f *File) SearchParam(key string) []struct {
	Block string
	Value rawfile.Value
} {
	var out []struct {
		Block string
		Value rawfile.Value
	}
	for _, name := range f.header.Names {
		if v, ok := f.header.Blocks[name].Values[key]; ok {
			out = append(out, struct {
				Block string
				Value rawfile.Value
			}{Block: name, Value: v})
		}
	}
	return out
}

// PrintHeader renders every block and parameter in header order, one
// "key = value" line per parameter, block names as section headers. It is
// the Go analogue of the original reader's textual header dump.
func (f *File) PrintHeader() string {
	var b strings.Builder
	for _, name := range f.header.Names {
		fmt.Fprintf(&b, "[%s]\n", name)
		pb := f.header.Blocks[name]
		for _, key := range pb.Names {
			fmt.Fprintf(&b, "  %s = %s\n", key, pb.Values[key].String())
		}
	}
	return b.String()
}

// CompareHeader returns the sorted set of "block/key" identifiers whose
// value differs (by string representation) between f and other, including
// keys present in only one of the two headers.
func (f *File) CompareHeader(other *File) []string {
	var diffs []string
	seen := make(map[string]bool)
	for _, name := range f.header.Names {
		pb := f.header.Blocks[name]
		otherPB, blockExists := other.header.Blocks[name]
		for _, key := range pb.Names {
			id := name + "/" + key
			seen[id] = true
			if !blockExists {
				diffs = append(diffs, id)
				continue
			}
			ov, ok := otherPB.Values[key]
			if !ok || ov.String() != pb.Values[key].String() {
				diffs = append(diffs, id)
			}
		}
	}
	for _, name := range other.header.Names {
		pb := other.header.Blocks[name]
		for _, key := range pb.Names {
			id := name + "/" + key
			if seen[id] {
				continue
			}
			diffs = append(diffs, id)
		}
	}
	sort.Strings(diffs)
	return diffs
}
