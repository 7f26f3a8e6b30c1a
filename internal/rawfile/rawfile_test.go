package rawfile

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// encodeParamRecord builds one 8-byte-header-plus-payload parameter record.
func encodeParamRecord(key string, dtype DType, payload []byte) []byte {
	var hdr [8]byte
	copy(hdr[:4], key)
	binary.LittleEndian.PutUint16(hdr[4:6], uint16(dtype))
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(payload)/2))
	return append(hdr[:], payload...)
}

func encodeFloat64Record(key string, v float64) []byte {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, math.Float64bits(v))
	return encodeParamRecord(key, DTypeFloat64, payload)
}

func encodeInt32Record(key string, v int32) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(v))
	return encodeParamRecord(key, DTypeInt32, payload)
}

func endRecord() []byte {
	return encodeParamRecord("END", DTypeInt32, nil)
}

// minimalFile builds a synthetic file with exactly one "Data Block SpSm"
// of 4 floats and its companion "Data Parameters SpSm" block, per spec §8
// scenario 2.
func minimalFile(t *testing.T, values []float32, fxv, lxv float64, npt int32) []byte {
	t.Helper()

	var params bytes.Buffer
	params.Write(encodeFloat64Record("FXV", fxv))
	params.Write(encodeFloat64Record("LXV", lxv))
	params.Write(encodeInt32Record("NPT", npt))
	params.Write(endRecord())

	var data bytes.Buffer
	for _, v := range values {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		data.Write(b[:])
	}

	const headerSize = 24
	const dirEntrySize = 12
	numBlocks := 2
	dirOffset := int32(headerSize)
	paramsOffset := dirOffset + int32(numBlocks)*dirEntrySize
	dataOffset := paramsOffset + int32(params.Len())

	var buf bytes.Buffer
	hdr := fileHeader{
		Magic:          magicLE,
		Offset1:        uint32(dirOffset),
		NumberOfBlocks: uint32(numBlocks),
	}
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		t.Fatalf("writing header: %v", err)
	}

	entries := []dirEntryRaw{
		{Type1: 31, Type2: 4, Length: 4, Offset: paramsOffset},  // Data Parameters SpSm
		{Type1: 15, Type2: 4, Length: int32(len(values)), Offset: dataOffset}, // Data Block SpSm
	}
	for _, e := range entries {
		if err := binary.Write(&buf, binary.LittleEndian, e); err != nil {
			t.Fatalf("writing directory entry: %v", err)
		}
	}

	buf.Write(params.Bytes())
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func TestParseDirectoryMagic(t *testing.T) {
	t.Parallel()

	good := minimalFile(t, []float32{0, 1, 2, 3}, 1000, 1003, 4)
	if _, err := ParseDirectory(bytes.NewReader(good)); err != nil {
		t.Fatalf("valid magic rejected: %v", err)
	}

	bad := append([]byte{0xFF, 0x00, 0x00, 0x00}, make([]byte, 20)...)
	if _, err := ParseDirectory(bytes.NewReader(bad)); err != ErrBadMagic {
		t.Fatalf("bad magic: got %v, want ErrBadMagic", err)
	}
}

func TestParseDirectoryMinimalFile(t *testing.T) {
	t.Parallel()

	raw := minimalFile(t, []float32{0, 1, 2, 3}, 1000, 1003, 4)
	dir, err := ParseDirectory(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseDirectory: %v", err)
	}

	if !dir.Has("Data Block SpSm") {
		t.Fatalf("directory missing Data Block SpSm, got names %v", dir.Names)
	}
	if !dir.Has("Data Parameters SpSm") {
		t.Fatalf("directory missing Data Parameters SpSm, got names %v", dir.Names)
	}

	block, _ := dir.Get("Data Block SpSm")
	data, err := ReadDataBlock(bytes.NewReader(raw), int64(block.Offset), block.Length)
	if err != nil {
		t.Fatalf("ReadDataBlock: %v", err)
	}
	want := []float32{0, 1, 2, 3}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("data block mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeParamBlock(t *testing.T) {
	t.Parallel()

	raw := minimalFile(t, []float32{0, 1, 2, 3}, 1000, 1003, 4)
	dir, err := ParseDirectory(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseDirectory: %v", err)
	}
	block, _ := dir.Get("Data Parameters SpSm")
	decoded, err := DecodeParamBlock(bytes.NewReader(raw), int64(block.Offset))
	if err != nil {
		t.Fatalf("DecodeParamBlock: %v", err)
	}
	if len(decoded.Errors) != 0 {
		t.Fatalf("unexpected decode errors: %v", decoded.Errors)
	}

	fxv, ok := decoded.Lookup("FXV")
	if !ok || fxv.Float != 1000 {
		t.Fatalf("FXV = %+v, ok=%v", fxv, ok)
	}
	npt, ok := decoded.Lookup("NPT")
	if !ok || npt.Int != 4 {
		t.Fatalf("NPT = %+v, ok=%v", npt, ok)
	}
}

func TestPatchLocality(t *testing.T) {
	t.Parallel()

	raw := minimalFile(t, []float32{0, 1, 2, 3}, 1000, 1003, 4)
	dir, err := ParseDirectory(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseDirectory: %v", err)
	}
	block, _ := dir.Get("Data Parameters SpSm")
	decoded, err := DecodeParamBlock(bytes.NewReader(raw), int64(block.Offset))
	if err != nil {
		t.Fatalf("DecodeParamBlock: %v", err)
	}
	var fxvRec Param
	for _, p := range decoded.Params {
		if p.Key == "FXV" {
			fxvRec = p
		}
	}
	if fxvRec.Key == "" {
		t.Fatal("FXV record not found")
	}

	p := NewPatcher(raw)
	if err := p.PatchParameter(fxvRec, Value{Kind: DTypeFloat64, Float: 2000}); err != nil {
		t.Fatalf("PatchParameter: %v", err)
	}
	patched := p.Bytes()

	if len(patched) != len(raw) {
		t.Fatalf("patch changed file length: %d vs %d", len(patched), len(raw))
	}
	recStart := int(fxvRec.Offset)
	recEnd := recStart + 8 + int(fxvRec.RecLen)*2
	diffs := 0
	for i := range raw {
		if i >= recStart && i < recEnd {
			continue
		}
		if raw[i] != patched[i] {
			diffs++
		}
	}
	if diffs != 0 {
		t.Fatalf("patch touched %d bytes outside the record", diffs)
	}

	newDir, err := ParseDirectory(bytes.NewReader(patched))
	if err != nil {
		t.Fatalf("ParseDirectory(patched): %v", err)
	}
	newBlock, _ := newDir.Get("Data Parameters SpSm")
	newDecoded, err := DecodeParamBlock(bytes.NewReader(patched), int64(newBlock.Offset))
	if err != nil {
		t.Fatalf("DecodeParamBlock(patched): %v", err)
	}
	got, _ := newDecoded.Lookup("FXV")
	if got.Float != 2000 {
		t.Fatalf("FXV after patch = %v, want 2000", got.Float)
	}
}

func TestPatchStringValue(t *testing.T) {
	t.Parallel()

	var params bytes.Buffer
	params.Write(encodeParamRecord("AQM", DTypeString2, []byte("SD\x00\x00")))
	params.Write(endRecord())

	const headerSize = 24
	const dirEntrySize = 12
	dirOffset := int32(headerSize)
	paramsOffset := dirOffset + dirEntrySize

	var buf bytes.Buffer
	hdr := fileHeader{Magic: magicLE, Offset1: uint32(dirOffset), NumberOfBlocks: 1}
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, dirEntryRaw{Type1: 48, Type2: 0, Length: 1, Offset: paramsOffset}); err != nil {
		t.Fatalf("writing directory entry: %v", err)
	}
	buf.Write(params.Bytes())
	raw := buf.Bytes()

	dir, err := ParseDirectory(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseDirectory: %v", err)
	}
	block, ok := dir.Get("Acquisition Parameters")
	if !ok {
		t.Fatalf("missing Acquisition Parameters, got %v", dir.Names)
	}
	decoded, err := DecodeParamBlock(bytes.NewReader(raw), int64(block.Offset))
	if err != nil {
		t.Fatalf("DecodeParamBlock: %v", err)
	}
	var aqm Param
	for _, p := range decoded.Params {
		if p.Key == "AQM" {
			aqm = p
		}
	}
	if aqm.Value.Str != "SD" {
		t.Fatalf("AQM = %q, want SD", aqm.Value.Str)
	}

	p := NewPatcher(raw)
	if err := p.PatchParameter(aqm, Value{Kind: DTypeString2, Str: "DD"}); err != nil {
		t.Fatalf("PatchParameter: %v", err)
	}
	patched := p.Bytes()

	newDir, err := ParseDirectory(bytes.NewReader(patched))
	if err != nil {
		t.Fatalf("ParseDirectory(patched): %v", err)
	}
	newBlock, _ := newDir.Get("Acquisition Parameters")
	newDecoded, err := DecodeParamBlock(bytes.NewReader(patched), int64(newBlock.Offset))
	if err != nil {
		t.Fatalf("DecodeParamBlock(patched): %v", err)
	}
	var newAqm Param
	for _, p := range newDecoded.Params {
		if p.Key == "AQM" {
			newAqm = p
		}
	}
	if newAqm.Value.Str != "DD" {
		t.Fatalf("AQM after patch = %q, want DD", newAqm.Value.Str)
	}
}

func TestReplaceDataBlockSizeMismatch(t *testing.T) {
	t.Parallel()

	raw := minimalFile(t, []float32{0, 1, 2, 3}, 1000, 1003, 4)
	dir, _ := ParseDirectory(bytes.NewReader(raw))
	block, _ := dir.Get("Data Block SpSm")

	p := NewPatcher(raw)
	if err := p.ReplaceDataBlock(block, []float32{1, 2, 3}); err != ErrSizeMismatch {
		t.Fatalf("got %v, want ErrSizeMismatch", err)
	}
}

func TestReplaceDataBlockPreservesLength(t *testing.T) {
	t.Parallel()

	raw := minimalFile(t, []float32{0, 1, 2, 3}, 1000, 1003, 4)
	dir, _ := ParseDirectory(bytes.NewReader(raw))
	block, _ := dir.Get("Data Block SpSm")

	p := NewPatcher(raw)
	if err := p.ReplaceDataBlock(block, []float32{9, 8, 7, 6}); err != nil {
		t.Fatalf("ReplaceDataBlock: %v", err)
	}
	patched := p.Bytes()
	if len(patched) != len(raw) {
		t.Fatalf("length changed: %d vs %d", len(patched), len(raw))
	}

	data, err := ReadDataBlock(bytes.NewReader(patched), int64(block.Offset), block.Length)
	if err != nil {
		t.Fatalf("ReadDataBlock: %v", err)
	}
	want := []float32{9, 8, 7, 6}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRefusesOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := dir + "/exists.dat"
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("seeding existing file: %v", err)
	}

	raw := minimalFile(t, []float32{0, 1, 2, 3}, 1000, 1003, 4)
	p := NewPatcher(raw)
	if err := p.Save(path); err != ErrOverwriteRefused {
		t.Fatalf("got %v, want ErrOverwriteRefused", err)
	}
}
