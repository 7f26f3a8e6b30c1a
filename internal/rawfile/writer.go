package rawfile

import (
	"encoding/binary"
	"math"
	"os"

	"golang.org/x/xerrors"
)

// ErrSizeMismatch is returned by Patcher.ReplaceDataBlock when the
// replacement array's length does not match the original block's length.
var ErrSizeMismatch = xerrors.New("rawfile: replacement data block has a different length")

// ErrOverwriteRefused is returned by Patcher.Save when the destination
// path already exists.
var ErrOverwriteRefused = xerrors.New("rawfile: refusing to overwrite existing file")

// Patcher produces a modified copy of a file's bytes that differs from
// the original only at explicitly patched regions (spec §4.5). It never
// touches the caller-owned original slice; all mutation happens on an
// internal copy allocated lazily on first use, mirroring the original
// Python's self.newfilebuffer.
type Patcher struct {
	original []byte
	buf      []byte // lazily initialized verbatim copy of original, then patched in place
}

// NewPatcher wraps original, which must not be mutated by the caller for
// the lifetime of the Patcher.
func NewPatcher(original []byte) *Patcher {
	return &Patcher{original: original}
}

func (p *Patcher) ensureBuf() []byte {
	if p.buf == nil {
		p.buf = append([]byte(nil), p.original...)
	}
	return p.buf
}

// PatchParameter re-encodes newValue according to rec's original DType and
// splices the record's 8-byte header plus payload back in at rec.Offset.
// The record's length and offset never change; strings longer than the
// original payload are truncated, shorter ones are NUL-padded.
func (p *Patcher) PatchParameter(rec Param, newValue Value) error {
	buf := p.ensureBuf()
	payloadLen := int(rec.RecLen) * 2

	payload := make([]byte, payloadLen)
	switch rec.DType {
	case DTypeInt32:
		if payloadLen < 4 {
			return xerrors.Errorf("rawfile: record %q too short for int32 payload", rec.Key)
		}
		binary.LittleEndian.PutUint32(payload, uint32(newValue.Int))

	case DTypeFloat64:
		if payloadLen < 8 {
			return xerrors.Errorf("rawfile: record %q too short for float64 payload", rec.Key)
		}
		binary.LittleEndian.PutUint64(payload, math.Float64bits(newValue.Float))

	case DTypeString2, DTypeString3, DTypeString4:
		s := newValue.Str
		if len(s) > payloadLen {
			s = s[:payloadLen]
		}
		copy(payload, s) // remaining bytes stay zero (NUL-padded)

	default:
		return xerrors.Errorf("rawfile: record %q has unsupported dtype %d", rec.Key, rec.DType)
	}

	var header [8]byte
	copy(header[:4], rec.Key)
	binary.LittleEndian.PutUint16(header[4:6], uint16(rec.DType))
	binary.LittleEndian.PutUint16(header[6:8], rec.RecLen)

	off := int(rec.Offset)
	copy(buf[off:off+8], header[:])
	copy(buf[off+8:off+8+payloadLen], payload)
	return nil
}

// ReplaceDataBlock splices newData in place of the block's current
// contents. It is a no-op (returning ErrSizeMismatch) if the lengths
// differ, so the file length is always preserved exactly.
func (p *Patcher) ReplaceDataBlock(block Block, newData []float32) error {
	if int32(len(newData)) != block.Length {
		return ErrSizeMismatch
	}
	buf := p.ensureBuf()
	off := int(block.Offset)
	for i, f := range newData {
		binary.LittleEndian.PutUint32(buf[off+i*4:off+i*4+4], math.Float32bits(f))
	}
	return nil
}

// Bytes returns the current patched image. If no patch has been applied
// yet, it returns a copy of the original bytes.
func (p *Patcher) Bytes() []byte {
	return p.ensureBuf()
}

// Save writes the patched image to path, refusing to overwrite an
// existing file (spec §4.5/§7: OverwriteRefused).
func (p *Patcher) Save(path string) error {
	if _, err := os.Stat(path); err == nil {
		return ErrOverwriteRefused
	} else if !os.IsNotExist(err) {
		return xerrors.Errorf("rawfile: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, p.Bytes(), 0o644); err != nil {
		return xerrors.Errorf("rawfile: writing %s: %w", path, err)
	}
	return nil
}
