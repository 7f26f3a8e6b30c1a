package rawfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/xerrors"
)

// DType is the on-disk parameter record type tag (spec §3).
type DType uint16

const (
	DTypeInt32   DType = 0
	DTypeFloat64 DType = 1
	DTypeString2 DType = 2
	DTypeString3 DType = 3
	DTypeString4 DType = 4
)

// Value is the decoded payload of one parameter record. Exactly one of
// the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind  DType
	Int   int32
	Float float64
	Str   string
}

func (v Value) String() string {
	switch v.Kind {
	case DTypeInt32:
		return fmt.Sprintf("%d", v.Int)
	case DTypeFloat64:
		return fmt.Sprintf("%g", v.Float)
	default:
		return v.Str
	}
}

// recordHeader is the fixed 8-byte prefix of every parameter record.
type recordHeader struct {
	Key    [4]byte
	DType  uint16
	RecLen uint16
}

// Param is a fully decoded parameter record, including its raw metadata
// and absolute file offset — the form the writer needs in order to splice
// a replacement value back into the original bytes.
type Param struct {
	Key    string
	DType  DType
	RecLen uint16 // payload length in 16-bit words; payload is 2*RecLen bytes
	Offset int64  // absolute byte offset of the record header
	Value  Value
}

// DecodedBlock is the result of walking a parameter block: successfully
// decoded records in file order, plus any per-record errors encountered
// along the way (spec §7: record-level errors are recovered locally).
type DecodedBlock struct {
	Params []Param
	Errors []error
}

// Lookup returns the first parameter named key, if present.
func (d *DecodedBlock) Lookup(key string) (Value, bool) {
	for _, p := range d.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// DecodeParamBlock walks the keyed records starting at offset, stopping at
// the terminating "END" record or when reclen==0, per spec §4.2.
func DecodeParamBlock(r io.ReaderAt, offset int64) (*DecodedBlock, error) {
	out := &DecodedBlock{}
	pos := offset
	for {
		var rh recordHeader
		if err := binary.Read(io.NewSectionReader(r, pos, 8), binary.LittleEndian, &rh); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				// Truncated block: stop, as if END had been seen.
				break
			}
			return nil, xerrors.Errorf("rawfile: reading record header at %d: %w", pos, err)
		}
		pos += 8

		key := strings.TrimRight(string(rh.Key[:]), "\x00")
		if strings.HasPrefix(key, "END") || rh.RecLen == 0 {
			break
		}

		payloadLen := int64(rh.RecLen) * 2
		payload := make([]byte, payloadLen)
		if _, err := r.ReadAt(payload, pos); err != nil {
			out.Errors = append(out.Errors, xerrors.Errorf("rawfile: reading payload for %q at %d: %w", key, pos, err))
			break
		}

		val, err := decodeValue(DType(rh.DType), payload)
		if err != nil {
			out.Errors = append(out.Errors, xerrors.Errorf("rawfile: decoding %q: %w", key, err))
		} else {
			out.Params = append(out.Params, Param{
				Key:    key,
				DType:  DType(rh.DType),
				RecLen: rh.RecLen,
				Offset: pos - 8,
				Value:  val,
			})
		}
		pos += payloadLen
	}
	return out, nil
}

func decodeValue(dtype DType, payload []byte) (Value, error) {
	switch dtype {
	case DTypeInt32:
		if len(payload) < 4 {
			return Value{}, xerrors.Errorf("rawfile: int32 payload too short (%d bytes)", len(payload))
		}
		return Value{Kind: DTypeInt32, Int: int32(binary.LittleEndian.Uint32(payload))}, nil

	case DTypeFloat64:
		if len(payload) < 8 {
			return Value{}, xerrors.Errorf("rawfile: float64 payload too short (%d bytes)", len(payload))
		}
		bits := binary.LittleEndian.Uint64(payload)
		return Value{Kind: DTypeFloat64, Float: math.Float64frombits(bits)}, nil

	case DTypeString2, DTypeString3, DTypeString4:
		s := decodeISO8859String(payload)
		return Value{Kind: dtype, Str: s}, nil

	default:
		return Value{}, xerrors.Errorf("rawfile: unknown dtype %d", dtype)
	}
}

// decodeISO8859String decodes payload as ISO-8859-1 text terminated by
// the first NUL byte, per spec §3.
func decodeISO8859String(payload []byte) string {
	n := len(payload)
	for i, b := range payload {
		if b == 0 {
			n = i
			break
		}
	}
	runes := make([]rune, n)
	for i := 0; i < n; i++ {
		runes[i] = rune(payload[i])
	}
	return string(runes)
}
