package tick

import (
	"github.com/bizkut/cybrelink/internal/session"
	"github.com/bizkut/cybrelink/internal/wire"
)

// Delta field ids for a per-session WORLD_DELTA/WORLD_FULL payload. Unknown
// ids are skippable by construction (wire.ReadDeltaFields), so adding a
// field here is forward-compatible with older clients.
const (
	fieldTick              uint8 = 1
	fieldCredits           uint8 = 2
	fieldUplinkRating      uint8 = 3
	fieldNeuromancerRating uint8 = 4
	fieldConnectedIP       uint8 = 5
	fieldTraceActive       uint8 = 6
	fieldBounceCount       uint8 = 7
)

// buildSessionDelta encodes the fields of s a client needs to keep its own
// view current, tagged with the tick at which they were produced.
func buildSessionDelta(tick uint64, s *session.Session) []byte {
	b := wire.NewDeltaBuilder()
	b.PutVarint(fieldTick, uint32(tick))
	b.PutFixed64(fieldCredits, uint64(s.Credits))
	b.PutVarint(fieldUplinkRating, uint32(s.UplinkRating))
	b.PutVarint(fieldNeuromancerRating, uint32(s.NeuromancerRating))
	b.PutFixed32(fieldConnectedIP, s.ConnectedIP)
	traceActive := uint32(0)
	if s.TraceActive {
		traceActive = 1
	}
	b.PutVarint(fieldTraceActive, traceActive)
	b.PutVarint(fieldBounceCount, uint32(len(s.BouncePath)))
	return b.Bytes()
}

// encodeStateFrame wraps raw in a frame of typ, compressing the payload and
// setting FlagCompressed when it is large enough to be worth the DEFLATE
// framing overhead (§4.1 expansion).
func encodeStateFrame(typ wire.PacketType, raw []byte) ([]byte, error) {
	if len(raw) < wire.CompressionThreshold {
		return wire.EncodeFrame(typ, wire.FlagNone, raw)
	}
	compressed, err := wire.CompressPayload(raw)
	if err != nil {
		return wire.EncodeFrame(typ, wire.FlagNone, raw)
	}
	return wire.EncodeFrame(typ, wire.FlagCompressed, compressed)
}
