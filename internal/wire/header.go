package wire

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed 4-byte prefix of every frame: a packet type, a flags
// bitmask, and a little-endian payload length. The header itself is never
// compressed even when FlagCompressed is set on the payload.
type Header struct {
	Type   PacketType
	Flags  Flags
	Length uint16
}

// Encode writes the header's 4-byte wire form into out, which must be at
// least HeaderSize bytes.
func (h Header) Encode(out []byte) {
	out[0] = byte(h.Type)
	out[1] = byte(h.Flags)
	binary.LittleEndian.PutUint16(out[2:4], h.Length)
}

// DecodeHeader reads a Header from the first HeaderSize bytes of buf. It
// never partially decodes: callers must ensure len(buf) >= HeaderSize
// before calling, which the frame Reader (frame.go) guarantees.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("wire: short header: have %d bytes, need %d", len(buf), HeaderSize)
	}
	return Header{
		Type:   PacketType(buf[0]),
		Flags:  Flags(buf[1]),
		Length: binary.LittleEndian.Uint16(buf[2:4]),
	}, nil
}

// EncodeFrame allocates and returns the full wire form (header + payload)
// for a packet. payload must not exceed MaxPayloadLength bytes.
func EncodeFrame(typ PacketType, flags Flags, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("wire: payload length %d exceeds max %d", len(payload), MaxPayloadLength)
	}
	buf := make([]byte, HeaderSize+len(payload))
	Header{Type: typ, Flags: flags, Length: uint16(len(payload))}.Encode(buf)
	copy(buf[HeaderSize:], payload)
	return buf, nil
}
