package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	handleLen    = 32
	authTokenLen = 512
	actionDataLen = 64
	chatSenderLen  = 32
	chatChannelLen = 32
	chatMessageLen = 256
	netErrorReasonLen = 32
)

// zeroPadded copies s into a fixed-size field, truncating if too long and
// zero-filling the remainder. It never writes past size bytes.
func zeroPadded(s string, size int) []byte {
	out := make([]byte, size)
	n := copy(out, s)
	_ = n
	return out
}

// fromZeroPadded recovers a string from a fixed-size field, stopping at the
// first zero byte (or the field's end, if unpadded).
func fromZeroPadded(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// HandshakePacket is the client's opening PACKET_HANDSHAKE payload.
type HandshakePacket struct {
	ProtocolVersion uint32
	ClientVersion   uint32
	Handle          string
	AuthToken       string
}

func (p HandshakePacket) Encode() []byte {
	out := make([]byte, 4+4+handleLen+authTokenLen)
	binary.LittleEndian.PutUint32(out[0:4], p.ProtocolVersion)
	binary.LittleEndian.PutUint32(out[4:8], p.ClientVersion)
	copy(out[8:8+handleLen], zeroPadded(p.Handle, handleLen))
	copy(out[8+handleLen:], zeroPadded(p.AuthToken, authTokenLen))
	return out
}

func DecodeHandshakePacket(payload []byte) (HandshakePacket, error) {
	const want = 4 + 4 + handleLen + authTokenLen
	if len(payload) != want {
		return HandshakePacket{}, fmt.Errorf("wire: handshake payload length %d, want %d", len(payload), want)
	}
	return HandshakePacket{
		ProtocolVersion: binary.LittleEndian.Uint32(payload[0:4]),
		ClientVersion:   binary.LittleEndian.Uint32(payload[4:8]),
		Handle:          fromZeroPadded(payload[8 : 8+handleLen]),
		AuthToken:       fromZeroPadded(payload[8+handleLen : want]),
	}, nil
}

// HandshakeAckPacket is the server's reply to a successful handshake,
// carrying the connection id the client should echo back in any
// diagnostic report.
type HandshakeAckPacket struct {
	SessionID uint32
}

func (p HandshakeAckPacket) Encode() []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, p.SessionID)
	return out
}

func DecodeHandshakeAckPacket(payload []byte) (HandshakeAckPacket, error) {
	if len(payload) != 4 {
		return HandshakeAckPacket{}, fmt.Errorf("wire: handshake ack payload length %d, want 4", len(payload))
	}
	return HandshakeAckPacket{SessionID: binary.LittleEndian.Uint32(payload)}, nil
}

// ActionPacket is the client's PLAYER_ACTION payload: an action type plus
// two generic parameters and a fixed opaque data block whose interpretation
// depends on ActionType (see the action dispatcher).
type ActionPacket struct {
	ActionType ActionType
	TargetID   uint32
	Param1     uint32
	Param2     uint32
	Data       [actionDataLen]byte
}

func (p ActionPacket) Encode() []byte {
	out := make([]byte, 1+4+4+4+actionDataLen)
	out[0] = byte(p.ActionType)
	binary.LittleEndian.PutUint32(out[1:5], p.TargetID)
	binary.LittleEndian.PutUint32(out[5:9], p.Param1)
	binary.LittleEndian.PutUint32(out[9:13], p.Param2)
	copy(out[13:], p.Data[:])
	return out
}

func DecodeActionPacket(payload []byte) (ActionPacket, error) {
	const want = 1 + 4 + 4 + 4 + actionDataLen
	if len(payload) != want {
		return ActionPacket{}, fmt.Errorf("wire: action payload length %d, want %d", len(payload), want)
	}
	var p ActionPacket
	p.ActionType = ActionType(payload[0])
	p.TargetID = binary.LittleEndian.Uint32(payload[1:5])
	p.Param1 = binary.LittleEndian.Uint32(payload[5:9])
	p.Param2 = binary.LittleEndian.Uint32(payload[9:13])
	copy(p.Data[:], payload[13:want])
	return p, nil
}

// TimeSync is the server's broadcast of the authoritative in-game clock.
type TimeSync struct {
	Second    uint8
	Minute    uint8
	Hour      uint8
	Day       uint8
	Month     uint8
	Year      uint16
	Paused    bool
	GameSpeed float32
}

func (t TimeSync) Encode() []byte {
	out := make([]byte, 5+2+1+4)
	out[0] = t.Second
	out[1] = t.Minute
	out[2] = t.Hour
	out[3] = t.Day
	out[4] = t.Month
	binary.LittleEndian.PutUint16(out[5:7], t.Year)
	if t.Paused {
		out[7] = 1
	}
	binary.LittleEndian.PutUint32(out[8:12], math.Float32bits(t.GameSpeed))
	return out
}

func DecodeTimeSync(payload []byte) (TimeSync, error) {
	const want = 5 + 2 + 1 + 4
	if len(payload) != want {
		return TimeSync{}, fmt.Errorf("wire: time sync payload length %d, want %d", len(payload), want)
	}
	return TimeSync{
		Second:    payload[0],
		Minute:    payload[1],
		Hour:      payload[2],
		Day:       payload[3],
		Month:     payload[4],
		Year:      binary.LittleEndian.Uint16(payload[5:7]),
		Paused:    payload[7] != 0,
		GameSpeed: math.Float32frombits(binary.LittleEndian.Uint32(payload[8:12])),
	}, nil
}

// PlayerListEntry is one row of a PLAYER_LIST broadcast.
type PlayerListEntry struct {
	PlayerID uint32
	Handle   string
	Rating   uint16
}

const playerListEntrySize = 4 + handleLen + 2

// PlayerList is the periodic roster broadcast, capped by the tick runtime
// at 32 entries per message (see tick runtime broadcast cadence).
type PlayerList struct {
	Entries []PlayerListEntry
}

func (p PlayerList) Encode() []byte {
	out := make([]byte, 1+len(p.Entries)*playerListEntrySize)
	out[0] = byte(len(p.Entries))
	off := 1
	for _, e := range p.Entries {
		binary.LittleEndian.PutUint32(out[off:off+4], e.PlayerID)
		copy(out[off+4:off+4+handleLen], zeroPadded(e.Handle, handleLen))
		binary.LittleEndian.PutUint16(out[off+4+handleLen:off+playerListEntrySize], e.Rating)
		off += playerListEntrySize
	}
	return out
}

func DecodePlayerList(payload []byte) (PlayerList, error) {
	if len(payload) < 1 {
		return PlayerList{}, fmt.Errorf("wire: player list payload empty")
	}
	count := int(payload[0])
	want := 1 + count*playerListEntrySize
	if len(payload) != want {
		return PlayerList{}, fmt.Errorf("wire: player list payload length %d, want %d", len(payload), want)
	}
	entries := make([]PlayerListEntry, count)
	off := 1
	for i := 0; i < count; i++ {
		entries[i] = PlayerListEntry{
			PlayerID: binary.LittleEndian.Uint32(payload[off : off+4]),
			Handle:   fromZeroPadded(payload[off+4 : off+4+handleLen]),
			Rating:   binary.LittleEndian.Uint16(payload[off+4+handleLen : off+playerListEntrySize]),
		}
		off += playerListEntrySize
	}
	return PlayerList{Entries: entries}, nil
}

// ChatPacket is a PLAYER_CHAT payload: fixed-size zero-padded sender,
// channel, and message fields.
type ChatPacket struct {
	Sender  string
	Channel string
	Message string
}

func (c ChatPacket) Encode() []byte {
	out := make([]byte, chatSenderLen+chatChannelLen+chatMessageLen)
	copy(out[0:chatSenderLen], zeroPadded(c.Sender, chatSenderLen))
	copy(out[chatSenderLen:chatSenderLen+chatChannelLen], zeroPadded(c.Channel, chatChannelLen))
	copy(out[chatSenderLen+chatChannelLen:], zeroPadded(c.Message, chatMessageLen))
	return out
}

func DecodeChatPacket(payload []byte) (ChatPacket, error) {
	const want = chatSenderLen + chatChannelLen + chatMessageLen
	if len(payload) != want {
		return ChatPacket{}, fmt.Errorf("wire: chat payload length %d, want %d", len(payload), want)
	}
	return ChatPacket{
		Sender:  fromZeroPadded(payload[0:chatSenderLen]),
		Channel: fromZeroPadded(payload[chatSenderLen : chatSenderLen+chatChannelLen]),
		Message: fromZeroPadded(payload[chatSenderLen+chatChannelLen : want]),
	}, nil
}

// NetErrorPacket is the server's rejection of a PLAYER_ACTION: the action
// that failed and one of the wire.Reason* codes explaining why.
type NetErrorPacket struct {
	ActionType ActionType
	Reason     string
}

func (p NetErrorPacket) Encode() []byte {
	out := make([]byte, 1+netErrorReasonLen)
	out[0] = byte(p.ActionType)
	copy(out[1:], zeroPadded(p.Reason, netErrorReasonLen))
	return out
}

func DecodeNetErrorPacket(payload []byte) (NetErrorPacket, error) {
	const want = 1 + netErrorReasonLen
	if len(payload) != want {
		return NetErrorPacket{}, fmt.Errorf("wire: net error payload length %d, want %d", len(payload), want)
	}
	return NetErrorPacket{
		ActionType: ActionType(payload[0]),
		Reason:     fromZeroPadded(payload[1:want]),
	}, nil
}
