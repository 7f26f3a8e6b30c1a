// Package rawfile implements the binary block-directory format shared by
// Bruker-style FTS ("OPUS") files: a fixed file header, a flat directory of
// blocks, and the two kinds of blocks the directory points at (keyed
// parameter records and flat float32 data arrays).
//
// The package never interprets what a block means spectroscopically; that
// is the job of the root ftsreader package. rawfile only knows how to find
// bytes and decode the primitives the format defines.
package rawfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/xerrors"
)

// magicLE is the little-endian uint32 encoding of the four magic bytes
// 0x0A, 0x0A, 0xFE, 0xFE found at the start of every valid file.
const magicLE uint32 = 0x0A | 0x0A<<8 | 0xFE<<16 | 0xFE<<24

// ErrBadMagic is returned by ParseDirectory when the file does not start
// with the FTS magic number.
var ErrBadMagic = xerrors.New("rawfile: bad magic, not an FTS/OPUS file")

// fileHeader mirrors the first 24 bytes of the file: six little-endian
// int32 words. The layout follows the original Python reader exactly
// (struct.unpack('6i', ...)), which interleaves the unused words around
// Offset1 rather than grouping all three before it.
// Unused words are declared blank (`_`), not merely unexported: binary.Read
// calls reflect.Value.SetUint on every named field it decodes into, which
// panics on an unexported field obtained through reflection. Blank fields
// are the one case binary.Read skips outright.
type fileHeader struct {
	Magic          uint32
	_              uint32
	_              uint32
	Offset1        uint32
	_              uint32
	NumberOfBlocks uint32
}

// dirEntryRaw is the 12-byte on-disk directory entry.
type dirEntryRaw struct {
	Type1    uint8
	Type2    uint8
	Reserved uint16
	Length   int32
	Offset   int32
}

// Block describes one block found in a file's directory.
type Block struct {
	Type1  uint8
	Type2  uint8
	Length int32 // native units: records for parameter blocks, float32s for data blocks
	Offset int32 // byte offset from file start
}

// primaryBlockNames is table T1 from spec §4.1/§6, keyed by type1.
var primaryBlockNames = map[uint8]string{
	160: "Sample Parameters",
	23:  "Data Parameters",
	96:  "Optic Parameters",
	64:  "FT Parameters",
	48:  "Acquisition Parameters",
	31:  "Data Parameters",
	32:  "Instrument Parameters",
	15:  "Data Block",
	7:   "Data Block",
	0:   "something",
}

// secondaryBlockNames is table T2 from spec §4.1/§6, keyed by type2.
var secondaryBlockNames = map[uint8]string{
	132: " ScSm",
	4:   " SpSm",
	8:   " IgSm",
	136: " IgSm/2.Chn.",
	20:  " TrSm",
	12:  " PhSm",
	0x84: " SpSm/2.Chn.",
	0x88: " IgSm/2.Chn.",
}

// Directory is the ordered set of blocks found in a file, keyed by their
// canonical name. Names map iteration order is not guaranteed by Go, so
// Directory keeps an explicit Names slice to preserve first-seen order as
// required by spec §3 ("Insertion order must be preserved for stable
// iteration").
type Directory struct {
	Names  []string
	Blocks map[string]Block
}

// Get returns the block for name and whether it was found.
func (d *Directory) Get(name string) (Block, bool) {
	b, ok := d.Blocks[name]
	return b, ok
}

// Has reports whether name is present in the directory.
func (d *Directory) Has(name string) bool {
	_, ok := d.Blocks[name]
	return ok
}

// canonicalName builds the name for a directory entry per spec §4.1: a
// primary tag, an optional secondary tag, and (for unrecognized or
// type1==0 blocks) a disambiguating " len <N>" suffix.
func canonicalName(e dirEntryRaw) string {
	primary, known := primaryBlockNames[e.Type1]
	if !known {
		primary = fmt.Sprintf("[unknown block %d]", e.Type1)
	}
	name := primary
	if secondary, ok := secondaryBlockNames[e.Type2]; ok {
		name += secondary
	}
	if e.Type1 == 0 || !known {
		name += fmt.Sprintf(" len %3d", e.Length)
	}
	return name
}

// ParseDirectory reads the file header at offset 0, validates the magic
// number, seeks to the directory and reads NumberOfBlocks entries,
// returning them indexed by canonical name in file order.
func ParseDirectory(r io.ReaderAt) (*Directory, error) {
	var hdr fileHeader
	if err := binary.Read(io.NewSectionReader(r, 0, 24), binary.LittleEndian, &hdr); err != nil {
		return nil, xerrors.Errorf("rawfile: reading file header: %w", err)
	}
	if hdr.Magic != magicLE {
		return nil, ErrBadMagic
	}

	const entrySize = 12
	sr := io.NewSectionReader(r, int64(hdr.Offset1), int64(hdr.NumberOfBlocks)*entrySize)

	dir := &Directory{Blocks: make(map[string]Block, hdr.NumberOfBlocks)}
	for i := uint32(0); i < hdr.NumberOfBlocks; i++ {
		var e dirEntryRaw
		if err := binary.Read(sr, binary.LittleEndian, &e); err != nil {
			return nil, xerrors.Errorf("rawfile: reading directory entry %d: %w", i, err)
		}
		name := canonicalName(e)
		for dir.Has(name) {
			// Disambiguate a collision that the " len <N>" suffix didn't
			// already resolve (e.g. two identically-sized unknown blocks).
			name += "*"
		}
		dir.Names = append(dir.Names, name)
		dir.Blocks[name] = Block{
			Type1:  e.Type1,
			Type2:  e.Type2,
			Length: e.Length,
			Offset: e.Offset,
		}
	}
	return dir, nil
}
