// Package session implements the per-client lifecycle state machine (C3):
// unauthenticated -> authenticated -> dead, keepalive bookkeeping, and the
// idle timeout sweep.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/bizkut/cybrelink/internal/socket"
	"github.com/bizkut/cybrelink/internal/wire"
)

// State is one of the three FSM states a session can occupy.
type State int

const (
	Unauth State = iota
	Auth
	Dead
)

func (s State) String() string {
	switch s {
	case Unauth:
		return "UNAUTH"
	case Auth:
		return "AUTH"
	case Dead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// Profile is the subset of a player's persisted record a session needs on
// authentication.
type Profile struct {
	Credits           int64
	UplinkRating      int16
	NeuromancerRating int16
}

// MaxBouncePath caps ADD_BOUNCE chain length (§4.5).
const MaxBouncePath = 16

// Session is one client connection's mutable state, owned exclusively by
// the task that services it (the tick runtime's network cadence). Nothing
// else may mutate a Session directly.
type Session struct {
	ID   uint32
	Conn *socket.Conn

	// CorrelationID identifies this session across log lines and audit
	// entries independent of ID, which is only unique within one process
	// lifetime.
	CorrelationID string

	State      State
	DeadReason string

	AuthID  string
	Handle  string
	Credits int64
	UplinkRating      int16
	NeuromancerRating int16

	LastActivity    time.Time
	LastNetworkTick time.Time

	ConnectedIP uint32
	BouncePath  []uint32
	TraceActive bool

	reader *wire.Reader
	out    [][]byte
}

// New constructs a session in the Unauth state for a freshly accepted
// connection.
func New(id uint32, conn *socket.Conn, now time.Time) *Session {
	return &Session{
		ID:              id,
		Conn:            conn,
		CorrelationID:   uuid.NewString(),
		State:           Unauth,
		LastActivity:    now,
		LastNetworkTick: now,
		reader:          wire.NewReader(),
	}
}

// Feed accumulates freshly read bytes and extracts every complete frame,
// touching LastActivity for the read regardless of what the bytes decode
// to (§8 invariant: every received byte updates last-activity).
func (s *Session) Feed(data []byte, now time.Time) ([]wire.Frame, error) {
	if len(data) > 0 {
		s.LastActivity = now
	}
	return s.reader.Feed(data)
}

// Kill transitions the session to Dead with reason, if it is not already
// dead. Idempotent: a session can only die once.
func (s *Session) Kill(reason string) {
	if s.State == Dead {
		return
	}
	s.State = Dead
	s.DeadReason = reason
}

// IdleFor reports how long it has been since the last byte arrived.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

// Queue stages an outbound frame for the next flush. Frames are not sent
// immediately so a burst of per-action replies coalesces into one Flush
// call per network tick.
func (s *Session) Queue(frame []byte) {
	s.out = append(s.out, frame)
}

// Flush writes every queued frame to the connection in order, stopping and
// returning the first error encountered (the caller disconnects on error).
func (s *Session) Flush() error {
	for _, frame := range s.out {
		if err := s.Conn.Send(frame); err != nil {
			s.out = nil
			return err
		}
	}
	s.out = nil
	return nil
}

// AddBounce appends ip to the bounce path, rejecting once MaxBouncePath is
// reached.
func (s *Session) AddBounce(ip uint32) bool {
	if len(s.BouncePath) >= MaxBouncePath {
		return false
	}
	s.BouncePath = append(s.BouncePath, ip)
	return true
}

// ClearBounces empties the bounce path.
func (s *Session) ClearBounces() {
	s.BouncePath = nil
}

// ProfileStore is the narrow persistence surface a handshake needs: token
// resolution and profile load/create. It is declared here rather than
// imported from internal/persistence so this package never depends on the
// REST adapter, only the other way around.
type ProfileStore interface {
	VerifyToken(token string) (authID string, ok bool)
	GetPlayerProfile(authID string) (Profile, bool)
	CreatePlayerProfile(authID, handle string, profile Profile) bool
}

// DefaultProfile is what a brand-new or guest player starts with, matching
// the original server's hardcoded guest defaults.
var DefaultProfile = Profile{Credits: 3000, UplinkRating: 1, NeuromancerRating: 0}

// HandleHandshake processes the client's opening PACKET_HANDSHAKE payload,
// resolving authentication and loading or defaulting the player's profile.
// On success it transitions the session to Auth and returns ("", true); on
// failure it returns a disconnect reason and false, leaving the session in
// Unauth for the caller to kill.
func (s *Session) HandleHandshake(pkt wire.HandshakePacket, store ProfileStore, supabaseEnabled bool) (reason string, ok bool) {
	if pkt.ProtocolVersion != wire.ProtocolVersion {
		return "protocol version mismatch", false
	}

	var authID string
	switch {
	case supabaseEnabled && pkt.AuthToken != "":
		id, verified := store.VerifyToken(pkt.AuthToken)
		if !verified {
			return "invalid or expired auth token", false
		}
		authID = id
	case pkt.AuthToken == "":
		// Guest: no token presented, no profile to persist.
		authID = ""
	default:
		// Supabase not configured: trust the client-presented handle.
		authID = ""
	}

	s.Handle = pkt.Handle
	s.AuthID = authID
	s.State = Auth

	profile := DefaultProfile
	if authID != "" {
		if loaded, found := store.GetPlayerProfile(authID); found {
			profile = loaded
		} else {
			store.CreatePlayerProfile(authID, s.Handle, profile)
		}
	}
	s.Credits = profile.Credits
	s.UplinkRating = profile.UplinkRating
	s.NeuromancerRating = profile.NeuromancerRating

	return "", true
}
