// Package admin implements the observability surface (C9): a gin HTTP
// router exposing /healthz, /metrics, and /admin/players, plus a
// gorilla/websocket live feed at /admin/stream. Every handler reads a
// snapshot the tick runtime already refreshed; nothing here ever touches
// the world mutex or blocks a tick waiting on a slow client.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers the debug handlers on http.DefaultServeMux
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/bizkut/cybrelink/internal/audit"
	"github.com/bizkut/cybrelink/internal/logging"
	"github.com/bizkut/cybrelink/internal/observability"
	"github.com/bizkut/cybrelink/internal/tick"
	"github.com/bizkut/cybrelink/internal/world"
)

// StreamInterval is how often /admin/stream pushes a fresh snapshot to
// every connected subscriber.
const StreamInterval = 500 * time.Millisecond

// writeDeadline bounds how long pushSnapshot waits on one subscriber
// before giving up on it. A subscriber that can't keep up is dropped, not
// backpressured.
const writeDeadline = 200 * time.Millisecond

// Runtime is the narrow slice of the tick runtime the admin surface reads.
// Snapshot and Players return copies refreshed once per network tick and
// Healthy returns a flag, so this interface never gives the admin surface a
// way to mutate live state.
type Runtime interface {
	Healthy() bool
	Snapshot() tick.Snapshot
	Players() []tick.PlayerInfo
}

// Server is the admin HTTP+WebSocket surface.
type Server struct {
	runtime Runtime
	ring    *audit.Ring
	metrics *logging.Metrics
	log     *logging.Router

	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*websocket.Conn]struct{}
}

// New wires a Server against the given runtime view, audit ring, and
// metrics registry. log may be nil in tests; a nil Router silently drops
// events (see logging.Router.Publish). obs.EnablePprofTrace mounts the
// standard pprof handlers under /debug/pprof for live profiling; it is off
// by default.
func New(runtime Runtime, ring *audit.Ring, metrics *logging.Metrics, log *logging.Router, obs observability.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		runtime:     runtime,
		ring:        ring,
		metrics:     metrics,
		log:         log,
		engine:      gin.New(),
		subscribers: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.engine.Use(gin.Recovery())
	s.routes(obs)
	return s
}

func (s *Server) routes(obs observability.Config) {
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/metrics", s.handleMetrics)
	s.engine.GET("/admin/players", s.handlePlayers)
	s.engine.GET("/admin/audit", s.handleAudit)
	s.engine.GET("/admin/stream", s.handleStream)

	if obs.EnablePprofTrace {
		s.engine.Any("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}
}

// Run starts the HTTP listener and the broadcast loop, blocking until ctx
// is canceled, then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go s.broadcastLoop(ctx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	if s.runtime.Healthy() {
		c.String(http.StatusOK, "ok")
		return
	}
	c.String(http.StatusServiceUnavailable, "starting")
}

// handleMetrics renders every counter as plain text, one "name value" pair
// per line, sorted by name so scrapers get a stable diff.
func (s *Server) handleMetrics(c *gin.Context) {
	snap := s.runtime.Snapshot()
	values := s.metrics.Snapshot()
	if values == nil {
		values = make(map[string]uint64, 4)
	}
	values["tick_number"] = snap.TickNumber
	values["connected_players"] = uint64(snap.PlayerCount)
	values["npc_count"] = uint64(snap.NPCCount)
	values["audit_entries"] = uint64(snap.AuditLen)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	for _, k := range keys {
		fmt.Fprintf(c.Writer, "%s %d\n", k, values[k])
	}
}

func (s *Server) handlePlayers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tick":    s.runtime.Snapshot().TickNumber,
		"players": s.runtime.Players(),
	})
}

// handleAudit returns the full audit ring in chronological order. Reading
// it never touches the world lock or a live session; Ring.Snapshot already
// returns its own copy.
func (s *Server) handleAudit(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": s.ring.Snapshot()})
}

// handleStream upgrades the connection and registers it as a subscriber.
// The handler itself just blocks reading (and discarding) whatever the
// client sends, so it notices the peer hanging up; all outbound traffic
// comes from broadcastLoop on a separate goroutine.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Publish(logging.Event{
			Severity: logging.SeverityWarn,
			Category: logging.CategoryAdmin,
			Message:  "websocket upgrade failed: " + err.Error(),
		})
		return
	}
	s.addSubscriber(conn)
	defer s.removeSubscriber(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) addSubscriber(conn *websocket.Conn) {
	s.mu.Lock()
	s.subscribers[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeSubscriber(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.subscribers, conn)
	s.mu.Unlock()
	conn.Close()
}

// dashboardPayload is the JSON shape pushed to every /admin/stream
// subscriber once per StreamInterval.
type dashboardPayload struct {
	Tick        uint64            `json:"tick"`
	Healthy     bool              `json:"healthy"`
	Players     []tick.PlayerInfo `json:"players"`
	NPCCount    int               `json:"npcCount"`
	Clock       world.GameTime    `json:"clock"`
	AuditLen    int               `json:"auditLen"`
	LastFlushMS int64             `json:"lastFlushMs"`
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(StreamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pushSnapshot()
		}
	}
}

func (s *Server) pushSnapshot() {
	s.mu.Lock()
	if len(s.subscribers) == 0 {
		s.mu.Unlock()
		return
	}
	conns := make([]*websocket.Conn, 0, len(s.subscribers))
	for c := range s.subscribers {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	snap := s.runtime.Snapshot()
	payload := dashboardPayload{
		Tick:        snap.TickNumber,
		Healthy:     snap.Healthy,
		Players:     s.runtime.Players(),
		NPCCount:    snap.NPCCount,
		Clock:       snap.Clock,
		AuditLen:    snap.AuditLen,
		LastFlushMS: snap.LastFlushDuration.Milliseconds(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.removeSubscriber(conn)
		}
	}
}
