package rawfile

import (
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/xerrors"
)

// ReadDataBlock reads length consecutive little-endian IEEE-754 float32
// values starting at offset, per spec §4.3. Truncation to a declared NPT
// (when the data block's companion "Data Parameters" block reports a
// smaller point count than the directory length) is the caller's
// responsibility, since NPT lives in a different block than the one being
// read here.
func ReadDataBlock(r io.ReaderAt, offset int64, length int32) ([]float32, error) {
	if length < 0 {
		return nil, xerrors.Errorf("rawfile: negative data block length %d", length)
	}
	buf := make([]byte, int64(length)*4)
	if _, err := io.ReadFull(io.NewSectionReader(r, offset, int64(len(buf))), buf); err != nil {
		return nil, xerrors.Errorf("rawfile: reading data block at %d (%d floats): %w", offset, length, err)
	}
	out := make([]float32, length)
	for i := range out {
		bits := binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}
