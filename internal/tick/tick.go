// Package tick implements the dual-rate server runtime (C7): a 60Hz game
// tick that advances the in-game clock and drives the NPC scheduler, and a
// 20Hz network tick that accepts connections, services every session's
// inbound/outbound traffic, and broadcasts periodic state. Both cadences
// run on one goroutine, matching the single authoritative loop the original
// implementation used; there is no per-connection goroutine.
package tick

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bizkut/cybrelink/internal/audit"
	"github.com/bizkut/cybrelink/internal/dispatch"
	"github.com/bizkut/cybrelink/internal/logging"
	"github.com/bizkut/cybrelink/internal/npc"
	"github.com/bizkut/cybrelink/internal/persistence"
	"github.com/bizkut/cybrelink/internal/session"
	"github.com/bizkut/cybrelink/internal/socket"
	"github.com/bizkut/cybrelink/internal/wire"
	"github.com/bizkut/cybrelink/internal/world"
)

// idleSleep is the brief pause between loop iterations that keeps the
// runtime from spinning the CPU while waiting for the next tick boundary.
const idleSleep = 500 * time.Microsecond

// persistenceFlushInterval is how often dirty world state is pushed to the
// backend, independent of the game tick rate.
const persistenceFlushInterval = 30 * time.Second

// playerListCap is the maximum number of entries a single PLAYER_LIST
// broadcast carries; excess authenticated sessions are silently truncated.
const playerListCap = 32

// recvBufferSize matches the original implementation's per-read buffer.
const recvBufferSize = 4096

// Config is the subset of server configuration the tick runtime needs.
type Config struct {
	MaxPlayers        int
	TickRateHz        int
	NetworkTickRateHz int
	ConnectionTimeout time.Duration
}

// PlayerInfo is a read-only snapshot of one authenticated session, safe to
// hand to the admin surface without exposing the live *session.Session.
type PlayerInfo struct {
	SessionID         uint32 `json:"sessionId"`
	Handle            string `json:"handle"`
	UplinkRating      int16  `json:"uplinkRating"`
	NeuromancerRating int16  `json:"neuromancerRating"`
	Credits           int64  `json:"credits"`
	ConnectedIP       string `json:"connectedIp,omitempty"`
}

// Snapshot is a point-in-time read of runtime-level counters, refreshed
// once per network tick for the admin surface to read without touching
// live state.
type Snapshot struct {
	Healthy           bool
	TickNumber        uint64
	PlayerCount       int
	NPCCount          int
	Clock             world.GameTime
	Dirty             world.DirtySet
	LastFlushDuration time.Duration
	AuditLen          int
}

// Runtime owns the session registry and drives both tick cadences. Nothing
// outside this package mutates a *session.Session directly.
type Runtime struct {
	cfg         Config
	world       *world.World
	sched       *npc.Scheduler
	dispatcher  *dispatch.Dispatcher
	listener    *socket.Listener
	persistence *persistence.Client
	log         *logging.Router
	metrics     *logging.Metrics
	ring        *audit.Ring

	sessions      map[uint32]*session.Session
	nextSessionID uint32

	tickNumber        uint64
	lastGameTick      time.Time
	lastNetworkTick   time.Time
	lastSaveTime      time.Time
	lastFlushDuration time.Duration

	gameInterval    time.Duration
	networkInterval time.Duration

	healthy atomic.Bool

	snapMu   sync.Mutex
	snapshot Snapshot
	players  []PlayerInfo
}

// New constructs a runtime. None of the supplied collaborators may be nil
// except persistence, which New replaces with a disabled client if nil.
func New(cfg Config, w *world.World, sched *npc.Scheduler, dispatcher *dispatch.Dispatcher, listener *socket.Listener, pc *persistence.Client, log *logging.Router, metrics *logging.Metrics, ring *audit.Ring) *Runtime {
	if pc == nil {
		pc = persistence.New(persistence.Config{}, log)
	}
	return &Runtime{
		cfg:             cfg,
		world:           w,
		sched:           sched,
		dispatcher:      dispatcher,
		listener:        listener,
		persistence:     pc,
		log:             log,
		metrics:         metrics,
		ring:            ring,
		sessions:        make(map[uint32]*session.Session),
		gameInterval:    time.Duration(float64(time.Second) / float64(cfg.TickRateHz)),
		networkInterval: time.Duration(float64(time.Second) / float64(cfg.NetworkTickRateHz)),
	}
}

// Run drives the loop until ctx is canceled, then disconnects every session
// and stops listening before returning.
func (rt *Runtime) Run(ctx context.Context) error {
	now := time.Now()
	rt.lastGameTick = now
	rt.lastNetworkTick = now
	rt.lastSaveTime = now

	for {
		select {
		case <-ctx.Done():
			rt.shutdown()
			return nil
		default:
		}

		now := time.Now()
		if now.Sub(rt.lastGameTick) >= rt.gameInterval {
			rt.GameTick(now)
			rt.lastGameTick = now
		}
		if now.Sub(rt.lastNetworkTick) >= rt.networkInterval {
			rt.NetworkTick(now)
			rt.lastNetworkTick = now
		}
		time.Sleep(idleSleep)
	}
}

// GameTick advances the in-game clock, runs one NPC scheduler pass, and
// checks the persistence flush cadence.
func (rt *Runtime) GameTick(now time.Time) {
	rt.world.Clock().Update(now)
	dt := 1.0 / float64(rt.cfg.TickRateHz)
	rt.sched.Tick(dt)
	rt.maybeFlush(now)
	rt.tickNumber++
	rt.metrics.Store("tick_number", rt.tickNumber)
}

// NetworkTick accepts new connections, services every session's traffic,
// pushes periodic broadcasts, and sweeps idle sessions.
func (rt *Runtime) NetworkTick(now time.Time) {
	rt.acceptConnections(now)
	for _, s := range rt.sessions {
		rt.processIncoming(s, now)
	}
	rt.sendStateUpdates()
	rt.broadcastPlayerList()
	rt.sweepTimeouts(now)
	rt.flushAndTeardown()
	rt.publishSnapshot()
	rt.healthy.Store(true)
	rt.metrics.Store("connected_players", uint64(len(rt.sessions)))
}

func (rt *Runtime) acceptConnections(now time.Time) {
	if len(rt.sessions) >= rt.cfg.MaxPlayers {
		return
	}
	conn, ok := rt.listener.Accept()
	if !ok {
		return
	}
	rt.nextSessionID++
	id := rt.nextSessionID
	s := session.New(id, conn, now)
	rt.sessions[id] = s
	rt.log.Publish(logging.Event{
		Severity:  logging.SeverityInfo,
		Category:  logging.CategorySession,
		Message:   fmt.Sprintf("connect from %s (%d/%d)", conn.PeerIP(), len(rt.sessions), rt.cfg.MaxPlayers),
		SessionID: id,
		Tick:      rt.tickNumber,
	})
}

func (rt *Runtime) processIncoming(s *session.Session, now time.Time) {
	var buf [recvBufferSize]byte
	n, result := s.Conn.Recv(buf[:], 0)
	switch result {
	case socket.RecvClosed:
		s.Kill("connection lost")
		return
	case socket.RecvNone:
		return
	}

	frames, err := s.Feed(buf[:n], now)
	if err != nil {
		s.Kill("protocol error")
		return
	}
	for _, frame := range frames {
		rt.routeFrame(s, frame)
		if s.State == session.Dead {
			return
		}
	}
}

func (rt *Runtime) routeFrame(s *session.Session, frame wire.Frame) {
	switch s.State {
	case session.Unauth:
		rt.routeUnauth(s, frame)
	case session.Auth:
		rt.routeAuth(s, frame)
	}
}

func (rt *Runtime) routeUnauth(s *session.Session, frame wire.Frame) {
	switch frame.Header.Type {
	case wire.PacketHandshake:
		rt.handleHandshake(s, frame)
	case wire.PacketKeepalive:
		// Activity already recorded by Session.Feed.
	case wire.PacketDisconnect:
		s.Kill("client disconnect")
	default:
		s.Kill("invalid handshake sequence")
	}
}

func (rt *Runtime) routeAuth(s *session.Session, frame wire.Frame) {
	switch frame.Header.Type {
	case wire.PacketPlayerAction:
		rt.handleAction(s, frame)
	case wire.PacketPlayerChat:
		rt.handleChat(s, frame)
	case wire.PacketKeepalive:
	case wire.PacketDisconnect:
		s.Kill("client disconnect")
	default:
		rt.log.Publish(logging.Event{
			Severity:  logging.SeverityWarn,
			Category:  logging.CategorySession,
			Message:   "unknown packet type " + frame.Header.Type.String(),
			SessionID: s.ID,
			Tick:      rt.tickNumber,
		})
	}
}

func (rt *Runtime) handleHandshake(s *session.Session, frame wire.Frame) {
	pkt, err := wire.DecodeHandshakePacket(frame.Payload)
	if err != nil {
		s.Kill("malformed handshake")
		return
	}
	reason, ok := s.HandleHandshake(pkt, rt.persistence, rt.persistence.Enabled())
	if !ok {
		s.Kill(reason)
		return
	}
	if ack, err := wire.EncodeFrame(wire.PacketHandshakeAck, wire.FlagNone, wire.HandshakeAckPacket{SessionID: s.ID}.Encode()); err == nil {
		s.Queue(ack)
	}
	rt.log.Publish(logging.Event{
		Severity:  logging.SeverityInfo,
		Category:  logging.CategorySession,
		Message:   "authenticated as " + s.Handle,
		SessionID: s.ID,
		Tick:      rt.tickNumber,
	})
}

func (rt *Runtime) handleAction(s *session.Session, frame wire.Frame) {
	pkt, err := wire.DecodeActionPacket(frame.Payload)
	if err != nil {
		return
	}
	res := rt.dispatcher.Dispatch(s, pkt, rt.tickNumber)
	if res.OK || res.Reason == wire.ReasonUnknownAction {
		return
	}
	if errFrame, err := wire.EncodeFrame(wire.PacketNetError, wire.FlagNone, wire.NetErrorPacket{ActionType: pkt.ActionType, Reason: res.Reason}.Encode()); err == nil {
		s.Queue(errFrame)
	}
}

func (rt *Runtime) handleChat(s *session.Session, frame wire.Frame) {
	incoming, err := wire.DecodeChatPacket(frame.Payload)
	if err != nil {
		return
	}
	outgoing := wire.ChatPacket{Sender: s.Handle, Channel: incoming.Channel, Message: incoming.Message}
	encoded, err := wire.EncodeFrame(wire.PacketPlayerChat, wire.FlagNone, outgoing.Encode())
	if err != nil {
		return
	}
	for _, other := range rt.sessions {
		if other.State == session.Auth {
			other.Queue(encoded)
		}
	}
}

func (rt *Runtime) sendStateUpdates() {
	now := rt.world.Clock().Now()
	ts := wire.TimeSync{
		Second: now.Second, Minute: now.Minute, Hour: now.Hour,
		Day: now.Day, Month: now.Month, Year: now.Year,
		Paused: !rt.world.Clock().Active(), GameSpeed: 1.0,
	}
	tsFrame, tsErr := wire.EncodeFrame(wire.PacketTimeSync, wire.FlagNone, ts.Encode())

	for _, s := range rt.sessions {
		if s.State != session.Auth {
			continue
		}
		if tsErr == nil {
			s.Queue(tsFrame)
		}
		raw := buildSessionDelta(rt.tickNumber, s)
		if deltaFrame, err := encodeStateFrame(wire.PacketWorldDelta, raw); err == nil {
			s.Queue(deltaFrame)
		}
	}
}

func (rt *Runtime) broadcastPlayerList() {
	entries := make([]wire.PlayerListEntry, 0, playerListCap)
	for _, s := range rt.sessions {
		if s.State != session.Auth {
			continue
		}
		if len(entries) >= playerListCap {
			break
		}
		entries = append(entries, wire.PlayerListEntry{PlayerID: s.ID, Handle: s.Handle, Rating: uint16(s.UplinkRating)})
	}
	frame, err := wire.EncodeFrame(wire.PacketPlayerList, wire.FlagNone, wire.PlayerList{Entries: entries}.Encode())
	if err != nil {
		return
	}
	for _, s := range rt.sessions {
		if s.State == session.Auth {
			s.Queue(frame)
		}
	}
}

func (rt *Runtime) sweepTimeouts(now time.Time) {
	for _, s := range rt.sessions {
		if s.State == session.Dead {
			continue
		}
		if s.IdleFor(now) > rt.cfg.ConnectionTimeout {
			s.Kill("connection timeout")
		}
	}
}

// flushAndTeardown writes every session's queued frames, then removes any
// session that died this tick (either from this flush or from routeFrame).
func (rt *Runtime) flushAndTeardown() {
	for id, s := range rt.sessions {
		if s.State != session.Dead {
			if err := s.Flush(); err != nil {
				s.Kill("send failed")
			}
		}
		if s.State == session.Dead {
			rt.teardown(id, s)
		}
	}
}

func (rt *Runtime) teardown(id uint32, s *session.Session) {
	if s.AuthID != "" {
		rt.persistence.UpdatePlayerProfile(s.AuthID, session.Profile{
			Credits: s.Credits, UplinkRating: s.UplinkRating, NeuromancerRating: s.NeuromancerRating,
		})
	}
	rt.world.DisconnectAllSessions(s.ID)
	s.Conn.Close()
	delete(rt.sessions, id)
	rt.log.Publish(logging.Event{
		Severity:  logging.SeverityInfo,
		Category:  logging.CategorySession,
		Message:   fmt.Sprintf("disconnect: %s (remaining %d)", s.DeadReason, len(rt.sessions)),
		SessionID: id,
		Tick:      rt.tickNumber,
	})
}

func (rt *Runtime) shutdown() {
	for id, s := range rt.sessions {
		s.Kill("server shutting down")
		rt.teardown(id, s)
	}
	rt.listener.Close()
}

func (rt *Runtime) maybeFlush(now time.Time) {
	if !rt.persistence.Enabled() {
		return
	}
	if now.Sub(rt.lastSaveTime) < persistenceFlushInterval {
		return
	}
	rt.lastSaveTime = now

	dirty := rt.world.Dirty()
	if !dirty.Any() {
		return
	}
	start := time.Now()
	if dirty.Computers {
		for _, c := range rt.world.Computers() {
			rt.persistence.UpdateComputer(c)
		}
	}
	if dirty.Missions {
		for _, m := range rt.world.Missions() {
			rt.persistence.UpdateMission(m)
		}
	}
	rt.world.ClearDirty()
	rt.lastFlushDuration = time.Since(start)
	rt.log.Publish(logging.Event{
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPersistence,
		Message:  "dirty world state flushed",
		Tick:     rt.tickNumber,
	})
}

func (rt *Runtime) publishSnapshot() {
	snap := Snapshot{
		Healthy:           rt.healthy.Load(),
		TickNumber:        rt.tickNumber,
		PlayerCount:       len(rt.sessions),
		NPCCount:          len(rt.world.Agents()),
		Clock:             rt.world.Clock().Now(),
		Dirty:             rt.world.Dirty(),
		LastFlushDuration: rt.lastFlushDuration,
		AuditLen:          rt.ring.Len(),
	}
	players := make([]PlayerInfo, 0, len(rt.sessions))
	for _, s := range rt.sessions {
		if s.State != session.Auth {
			continue
		}
		players = append(players, PlayerInfo{
			SessionID:         s.ID,
			Handle:            s.Handle,
			UplinkRating:      s.UplinkRating,
			NeuromancerRating: s.NeuromancerRating,
			Credits:           s.Credits,
			ConnectedIP:       connectedIPString(s.ConnectedIP),
		})
	}

	rt.snapMu.Lock()
	rt.snapshot = snap
	rt.players = players
	rt.snapMu.Unlock()
}

func connectedIPString(ip uint32) string {
	if ip == 0 {
		return ""
	}
	return world.FormatIPv4(ip)
}

// Snapshot returns the most recent runtime counters, safe to call from any
// goroutine (the admin surface).
func (rt *Runtime) Snapshot() Snapshot {
	rt.snapMu.Lock()
	defer rt.snapMu.Unlock()
	return rt.snapshot
}

// Players returns a copy of the most recent authenticated-session roster.
func (rt *Runtime) Players() []PlayerInfo {
	rt.snapMu.Lock()
	defer rt.snapMu.Unlock()
	out := make([]PlayerInfo, len(rt.players))
	copy(out, rt.players)
	return out
}

// Healthy reports whether the runtime has completed at least one network
// tick, the readiness signal the admin surface's /healthz exposes.
func (rt *Runtime) Healthy() bool {
	return rt.healthy.Load()
}
