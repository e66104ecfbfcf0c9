package wire

import "testing"

func TestEncodeFrameRoundTrip(t *testing.T) {
	payload := []byte("hello world")
	framed, err := EncodeFrame(PacketPlayerChat, FlagReliable, payload)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	r := NewReader()
	frames, err := r.Feed(framed)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	f := frames[0]
	if f.Header.Type != PacketPlayerChat || f.Header.Flags != FlagReliable {
		t.Fatalf("unexpected header: %+v", f.Header)
	}
	if string(f.Payload) != string(payload) {
		t.Fatalf("payload = %q, want %q", f.Payload, payload)
	}
}

func TestEncodeFrameRejectsOversizePayload(t *testing.T) {
	big := make([]byte, MaxPayloadLength+1)
	if _, err := EncodeFrame(PacketWorldFull, FlagNone, big); err == nil {
		t.Fatal("expected error for oversize payload")
	}
}

// TestReaderToleratesFragmentation feeds one frame split across three
// separate Feed calls, mirroring TCP delivering a message in arbitrary
// chunks.
func TestReaderToleratesFragmentation(t *testing.T) {
	framed, err := EncodeFrame(PacketKeepalive, FlagNone, []byte("abcdef"))
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	r := NewReader()
	var got []Frame
	for _, chunk := range [][]byte{framed[:2], framed[2:5], framed[5:]} {
		frames, err := r.Feed(chunk)
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		got = append(got, frames...)
	}
	if len(got) != 1 {
		t.Fatalf("got %d frames across fragments, want 1", len(got))
	}
	if string(got[0].Payload) != "abcdef" {
		t.Fatalf("payload = %q", got[0].Payload)
	}
}

func TestReaderExtractsMultipleFramesFromOneFeed(t *testing.T) {
	a, _ := EncodeFrame(PacketKeepalive, FlagNone, nil)
	b, _ := EncodeFrame(PacketDisconnect, FlagNone, nil)

	r := NewReader()
	frames, err := r.Feed(append(append([]byte{}, a...), b...))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].Header.Type != PacketKeepalive || frames[1].Header.Type != PacketDisconnect {
		t.Fatalf("unexpected frame order: %+v", frames)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 1 << 20, 1<<32 - 1} {
		buf := AppendVarint(nil, v)
		got, n, err := ReadVarint(buf)
		if err != nil {
			t.Fatalf("ReadVarint(%d): %v", v, err)
		}
		if got != v || n != len(buf) {
			t.Fatalf("ReadVarint(%d) = (%d, %d), want (%d, %d)", v, got, n, v, len(buf))
		}
	}
}

func TestDeltaBuilderRoundTrip(t *testing.T) {
	b := NewDeltaBuilder()
	b.PutVarint(1, 42)
	b.PutFixed32(2, 0xdeadbeef)
	b.PutFixed64(3, 0x0102030405060708)
	b.PutString(4, "uplink")
	payload := b.Bytes()

	fields, err := ReadDeltaFields(payload)
	if err != nil {
		t.Fatalf("ReadDeltaFields: %v", err)
	}
	if len(fields) != 4 {
		t.Fatalf("got %d fields, want 4", len(fields))
	}

	v, err := fields[0].Varint()
	if err != nil || v != 42 {
		t.Fatalf("field 1: got (%d, %v), want 42", v, err)
	}
	if fields[1].Fixed32() != 0xdeadbeef {
		t.Fatalf("field 2: got %x", fields[1].Fixed32())
	}
	if fields[2].Fixed64() != 0x0102030405060708 {
		t.Fatalf("field 3: got %x", fields[2].Fixed64())
	}
	if fields[3].String() != "uplink" {
		t.Fatalf("field 4: got %q", fields[3].String())
	}
}

// TestDeltaReaderSkipsUnknownField simulates an older decoder encountering
// a field id it doesn't understand: the field must still be consumable by
// byte length (not by meaning) so later fields decode correctly.
func TestDeltaReaderSkipsUnknownField(t *testing.T) {
	b := NewDeltaBuilder()
	b.PutVarint(31, 999) // a field id no caller recognizes
	b.PutString(2, "after")
	fields, err := ReadDeltaFields(b.Bytes())
	if err != nil {
		t.Fatalf("ReadDeltaFields: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(fields))
	}
	if fields[1].String() != "after" {
		t.Fatalf("field after unknown field = %q, want %q", fields[1].String(), "after")
	}
}

func TestCompressPayloadRoundTrip(t *testing.T) {
	raw := make([]byte, 1024)
	for i := range raw {
		raw[i] = byte(i % 7)
	}
	compressed, err := CompressPayload(raw)
	if err != nil {
		t.Fatalf("CompressPayload: %v", err)
	}
	if len(compressed) >= len(raw) {
		t.Fatalf("compressed size %d did not shrink repetitive input of size %d", len(compressed), len(raw))
	}
	decompressed, err := DecompressPayload(compressed)
	if err != nil {
		t.Fatalf("DecompressPayload: %v", err)
	}
	if string(decompressed) != string(raw) {
		t.Fatal("decompressed payload does not match original")
	}
}
