package wire

import "testing"

func TestHandshakePacketRoundTrip(t *testing.T) {
	in := HandshakePacket{
		ProtocolVersion: ProtocolVersion,
		ClientVersion:   42,
		Handle:          "Scarab",
		AuthToken:       "token-abc",
	}
	out, err := DecodeHandshakePacket(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestHandshakePacketRejectsWrongLength(t *testing.T) {
	if _, err := DecodeHandshakePacket([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short payload")
	}
}

func TestHandshakeAckPacketRoundTrip(t *testing.T) {
	in := HandshakeAckPacket{SessionID: 7}
	out, err := DecodeHandshakeAckPacket(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestActionPacketRoundTrip(t *testing.T) {
	in := ActionPacket{ActionType: ActionBypassSecurity, TargetID: 9, Param1: 1, Param2: 2}
	copy(in.Data[:], []byte("payload"))
	out, err := DecodeActionPacket(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestChatPacketTruncatesOversizeFields(t *testing.T) {
	long := make([]byte, chatMessageLen*2)
	for i := range long {
		long[i] = 'x'
	}
	in := ChatPacket{Sender: "root", Channel: "global", Message: string(long)}
	out, err := DecodeChatPacket(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Message) != chatMessageLen {
		t.Fatalf("message length = %d, want %d", len(out.Message), chatMessageLen)
	}
	if out.Sender != "root" || out.Channel != "global" {
		t.Fatalf("unexpected sender/channel: %+v", out)
	}
}

func TestNetErrorPacketRoundTrip(t *testing.T) {
	in := NetErrorPacket{ActionType: ActionTransferMoney, Reason: ReasonInsufficientFunds}
	out, err := DecodeNetErrorPacket(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestPlayerListRoundTrip(t *testing.T) {
	in := PlayerList{Entries: []PlayerListEntry{
		{PlayerID: 1, Handle: "Scarab", Rating: 3},
		{PlayerID: 2, Handle: "Ghost", Rating: 5},
	}}
	out, err := DecodePlayerList(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Entries) != 2 || out.Entries[0] != in.Entries[0] || out.Entries[1] != in.Entries[1] {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestZeroPaddedTruncatesAtFieldSize(t *testing.T) {
	padded := zeroPadded("hello", 3)
	if len(padded) != 3 || string(padded) != "hel" {
		t.Fatalf("zeroPadded truncation wrong: %q", padded)
	}
}
