package wire

import "fmt"

// FieldType occupies the low 3 bits of a delta marker byte and tells the
// reader how to determine the byte length of the value that follows, which
// is what makes an unrecognized field id skippable rather than fatal.
type FieldType uint8

const (
	FieldVarint    FieldType = 0
	FieldFixed32   FieldType = 1
	FieldFixed64   FieldType = 2
	FieldString    FieldType = 3
	FieldBytes     FieldType = 4
	FieldEndObject FieldType = 7
)

// marker packs a field id (up to 5 bits, 0-31) and a FieldType into one
// byte: (field_id<<3)|field_type.
func marker(fieldID uint8, typ FieldType) byte {
	return byte(fieldID<<3) | byte(typ)
}

func splitMarker(b byte) (fieldID uint8, typ FieldType) {
	return b >> 3, FieldType(b & 0x07)
}

// DeltaBuilder assembles a WORLD_DELTA payload: a sequence of
// (marker, value) pairs terminated by an end-of-object marker. Fields may
// be written in any order; the reader only cares about field ids.
type DeltaBuilder struct {
	buf []byte
}

func NewDeltaBuilder() *DeltaBuilder {
	return &DeltaBuilder{}
}

func (b *DeltaBuilder) PutVarint(fieldID uint8, v uint32) *DeltaBuilder {
	b.buf = append(b.buf, marker(fieldID, FieldVarint))
	b.buf = AppendVarint(b.buf, v)
	return b
}

func (b *DeltaBuilder) PutFixed32(fieldID uint8, v uint32) *DeltaBuilder {
	b.buf = append(b.buf, marker(fieldID, FieldFixed32))
	b.buf = append(b.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	return b
}

func (b *DeltaBuilder) PutFixed64(fieldID uint8, v uint64) *DeltaBuilder {
	b.buf = append(b.buf, marker(fieldID, FieldFixed64))
	for i := 0; i < 8; i++ {
		b.buf = append(b.buf, byte(v>>(8*i)))
	}
	return b
}

func (b *DeltaBuilder) PutString(fieldID uint8, s string) *DeltaBuilder {
	b.buf = append(b.buf, marker(fieldID, FieldString))
	b.buf = AppendVarint(b.buf, uint32(len(s)))
	b.buf = append(b.buf, s...)
	return b
}

func (b *DeltaBuilder) PutBytes(fieldID uint8, v []byte) *DeltaBuilder {
	b.buf = append(b.buf, marker(fieldID, FieldBytes))
	b.buf = AppendVarint(b.buf, uint32(len(v)))
	b.buf = append(b.buf, v...)
	return b
}

// Bytes returns the encoded payload, appending the end-of-object marker.
// The builder must not be reused after calling Bytes.
func (b *DeltaBuilder) Bytes() []byte {
	return append(b.buf, marker(0, FieldEndObject))
}

// DeltaField is one decoded (field id, raw value) pair. Raw holds the
// value's bytes verbatim (no varint decoding for FieldVarint, no UTF-8
// validation for FieldString) so callers interpret them per field id.
type DeltaField struct {
	FieldID uint8
	Type    FieldType
	Raw     []byte
}

// ReadDeltaFields decodes every field in a WORLD_DELTA payload, including
// fields whose id the caller doesn't recognize: their length is always
// determined by their type, so they are skipped rather than aborting the
// decode. This is what lets older clients ignore fields added later.
func ReadDeltaFields(payload []byte) ([]DeltaField, error) {
	var fields []DeltaField
	pos := 0
	for {
		if pos >= len(payload) {
			return nil, fmt.Errorf("wire: delta payload missing end-of-object marker")
		}
		fieldID, typ := splitMarker(payload[pos])
		pos++
		if typ == FieldEndObject {
			return fields, nil
		}

		var raw []byte
		switch typ {
		case FieldVarint:
			_, n, err := ReadVarint(payload[pos:])
			if err != nil {
				return nil, fmt.Errorf("wire: field %d: %w", fieldID, err)
			}
			raw = payload[pos : pos+n]
			pos += n
		case FieldFixed32:
			if pos+4 > len(payload) {
				return nil, fmt.Errorf("wire: field %d: truncated fixed32", fieldID)
			}
			raw = payload[pos : pos+4]
			pos += 4
		case FieldFixed64:
			if pos+8 > len(payload) {
				return nil, fmt.Errorf("wire: field %d: truncated fixed64", fieldID)
			}
			raw = payload[pos : pos+8]
			pos += 8
		case FieldString, FieldBytes:
			length, n, err := ReadVarint(payload[pos:])
			if err != nil {
				return nil, fmt.Errorf("wire: field %d: %w", fieldID, err)
			}
			pos += n
			if pos+int(length) > len(payload) {
				return nil, fmt.Errorf("wire: field %d: truncated length-delimited value", fieldID)
			}
			raw = payload[pos : pos+int(length)]
			pos += int(length)
		default:
			return nil, fmt.Errorf("wire: field %d: unknown field type %d", fieldID, typ)
		}

		fields = append(fields, DeltaField{FieldID: fieldID, Type: typ, Raw: raw})
	}
}

// Varint decodes a field previously read as FieldVarint.
func (f DeltaField) Varint() (uint32, error) {
	v, _, err := ReadVarint(f.Raw)
	return v, err
}

func (f DeltaField) Fixed32() uint32 {
	return uint32(f.Raw[0]) | uint32(f.Raw[1])<<8 | uint32(f.Raw[2])<<16 | uint32(f.Raw[3])<<24
}

func (f DeltaField) Fixed64() uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(f.Raw[i]) << (8 * i)
	}
	return v
}

func (f DeltaField) String() string {
	return string(f.Raw)
}
