package batch_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mbuschmann/ftsreader/internal/batch"
)

// writeRecord builds one 8-byte-header-plus-payload parameter record, the
// same on-disk shape internal/rawfile decodes.
func writeRecord(buf *bytes.Buffer, key string, dtype uint16, payload []byte) {
	var hdr [8]byte
	copy(hdr[:4], key)
	binary.LittleEndian.PutUint16(hdr[4:6], dtype)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(payload)/2))
	buf.Write(hdr[:])
	buf.Write(payload)
}

func float64Payload(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func int32Payload(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// writeSpectrumFile builds a minimal FTS file at path with a single
// "Data Block SpSm" of wvn/y, with FXV/LXV/NPT matching the given axis.
func writeSpectrumFile(t *testing.T, path string, wvn, y []float64) {
	t.Helper()

	var params bytes.Buffer
	writeRecord(&params, "FXV", 1, float64Payload(wvn[0]))
	writeRecord(&params, "LXV", 1, float64Payload(wvn[len(wvn)-1]))
	writeRecord(&params, "NPT", 0, int32Payload(int32(len(y))))
	writeRecord(&params, "END", 0, nil)

	var data bytes.Buffer
	for _, v := range y {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(v)))
		data.Write(b[:])
	}

	const headerSize = 24
	const dirEntrySize = 12
	numBlocks := int32(2)
	dirOffset := int32(headerSize)
	paramsOffset := dirOffset + numBlocks*dirEntrySize
	dataOffset := paramsOffset + int32(params.Len())

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(0xFEFE0A0A))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint32(dirOffset))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint32(numBlocks))

	type dirEntry struct {
		Type1, Type2 uint8
		Reserved     uint16
		Length       int32
		Offset       int32
	}
	binary.Write(&buf, binary.LittleEndian, dirEntry{Type1: 31, Type2: 4, Length: int32(len(y)), Offset: paramsOffset})
	binary.Write(&buf, binary.LittleEndian, dirEntry{Type1: 15, Type2: 4, Length: int32(len(y)), Offset: dataOffset})
	buf.Write(params.Bytes())
	buf.Write(data.Bytes())

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestAverageIdenticalAxes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.dat")
	p2 := filepath.Join(dir, "b.dat")
	writeSpectrumFile(t, p1, []float64{100, 200}, []float64{1, 3})
	writeSpectrumFile(t, p2, []float64{100, 200}, []float64{3, 5})

	c := &batch.Ctx{}
	wvn, mean, err := c.Average(context.Background(), []string{p1, p2}, batch.Spectra)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if wvn[0] != 100 || wvn[1] != 200 {
		t.Fatalf("wvn = %v", wvn)
	}
	if mean[0] != 2 || mean[1] != 4 {
		t.Fatalf("mean = %v, want [2 4]", mean)
	}
}

func TestAverageAxisMismatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.dat")
	p2 := filepath.Join(dir, "b.dat")
	writeSpectrumFile(t, p1, []float64{100, 200}, []float64{1, 3})
	writeSpectrumFile(t, p2, []float64{150, 250}, []float64{3, 5})

	c := &batch.Ctx{}
	_, _, err := c.Average(context.Background(), []string{p1, p2}, batch.Spectra)
	if err == nil {
		t.Fatal("expected AxisMismatchError")
	}
	if _, ok := err.(*batch.AxisMismatchError); !ok {
		t.Fatalf("got %T, want *batch.AxisMismatchError", err)
	}
}

func TestDivideExactAxes(t *testing.T) {
	t.Parallel()
	wvn1 := []float64{100, 200}
	spc1 := []float64{4, 9}
	spc2 := []float64{2, 3}

	gotWvn, gotSpc, err := batch.Divide(wvn1, spc1, wvn1, spc2, false, false)
	if err != nil {
		t.Fatalf("Divide: %v", err)
	}
	if gotWvn[0] != 100 || gotSpc[0] != 2 || gotSpc[1] != 3 {
		t.Fatalf("Divide result = %v / %v", gotWvn, gotSpc)
	}
}

func TestDivideMismatchedAxesWithoutInterpolation(t *testing.T) {
	t.Parallel()
	_, _, err := batch.Divide([]float64{100, 200}, []float64{1, 2}, []float64{150, 250}, []float64{1, 2}, false, false)
	if _, ok := err.(*batch.AxisMismatchError); !ok {
		t.Fatalf("got %v (%T), want *batch.AxisMismatchError", err, err)
	}
}

func TestSaveWritesTwoColumnASCII(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.dpt")
	if err := batch.Save(path, []float64{100, 200}, []float64{1, 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	want := "100 1\n200 2\n"
	if string(got) != want {
		t.Fatalf("contents = %q, want %q", got, want)
	}
}
