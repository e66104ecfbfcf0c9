// Package app wires every component into one running process: the logging
// router, the persistence adapter, the world store, the NPC scheduler, the
// dispatch table, the socket listener, the tick runtime, and the admin
// surface. cmd/server/main.go calls Run and nothing else.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/bizkut/cybrelink/internal/admin"
	"github.com/bizkut/cybrelink/internal/audit"
	"github.com/bizkut/cybrelink/internal/config"
	"github.com/bizkut/cybrelink/internal/dispatch"
	"github.com/bizkut/cybrelink/internal/logging"
	"github.com/bizkut/cybrelink/internal/logging/sinks"
	"github.com/bizkut/cybrelink/internal/npc"
	"github.com/bizkut/cybrelink/internal/observability"
	"github.com/bizkut/cybrelink/internal/persistence"
	"github.com/bizkut/cybrelink/internal/socket"
	"github.com/bizkut/cybrelink/internal/telemetry"
	"github.com/bizkut/cybrelink/internal/tick"
	"github.com/bizkut/cybrelink/internal/world"
)

// worldStartSecond, worldStartMinute, ... match the original Uplink-style
// default start date: 14:00 on the 14th of April, year 3010.
const (
	worldStartSecond = 0
	worldStartMinute = 0
	worldStartHour   = 14
	worldStartDay    = 14
	worldStartMonth  = 4
	worldStartYear   = 3010
)

// Run constructs every component from cfg and blocks until ctx is
// canceled, returning the first fatal error from either the tick runtime
// or the admin surface.
func Run(ctx context.Context, cfg config.Config) error {
	fallback := log.New(os.Stderr, "[cybrelink] ", log.LstdFlags)
	router, err := logging.NewRouter(logging.DefaultConfig(), logging.SystemClock{}, fallback, map[string]logging.Sink{
		"console": sinks.NewConsole(os.Stdout),
		"json":    sinks.NewJSON(io.Discard, 0),
	})
	if err != nil {
		return fmt.Errorf("app: logging router: %w", err)
	}
	defer router.Close(context.Background())

	metrics := logging.NewMetrics()
	ring := audit.NewRing(audit.DefaultCapacity)

	pclient := persistence.New(persistence.Config{
		BaseURL: cfg.SupabaseURL,
		AnonKey: cfg.SupabaseKey,
	}, router)

	w := world.New()
	w.Clock().SetDate(worldStartSecond, worldStartMinute, worldStartHour, worldStartDay, worldStartMonth, worldStartYear)
	w.Clock().Activate()

	if pclient.Enabled() {
		w.LoadComputers(pclient.GetAllComputers())
		w.LoadMissions(pclient.GetAllMissions())
		router.Publish(logging.Event{Severity: logging.SeverityInfo, Category: logging.CategoryWorld, Message: "world loaded from persistence backend"})
	} else {
		router.Publish(logging.Event{Severity: logging.SeverityWarn, Category: logging.CategoryWorld, Message: "persistence backend not configured, starting with an empty world"})
	}

	sched := npc.New(w, rand.New(rand.NewSource(1)))
	sched.SetLogger(telemetry.WrapLogger(fallback))
	spawned := sched.Spawn(cfg.NPCCount)
	router.Publish(logging.Event{Severity: logging.SeverityInfo, Category: logging.CategoryNPC, Message: fmt.Sprintf("spawned %d NPC agents", len(spawned))})

	dispatcher := dispatch.New(w, router, ring)
	dispatcher.SetMetrics(telemetry.WrapMetrics(metrics))

	listener, err := socket.Listen(cfg.Port)
	if err != nil {
		return fmt.Errorf("app: listen on port %d: %w", cfg.Port, err)
	}

	runtime := tick.New(tick.Config{
		MaxPlayers:        cfg.MaxPlayers,
		TickRateHz:        cfg.TickRateHz,
		NetworkTickRateHz: cfg.NetworkTickRateHz,
		ConnectionTimeout: cfg.ConnectionTimeout,
	}, w, sched, dispatcher, listener, pclient, router, metrics, ring)

	router.Publish(logging.Event{
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Message:  fmt.Sprintf("listening on port %d, max players %d", cfg.Port, cfg.MaxPlayers),
	})

	errCh := make(chan error, 2)
	go func() { errCh <- runtime.Run(ctx) }()

	if !cfg.NoAdmin {
		obsCfg := observability.Config{EnablePprofTrace: cfg.EnablePprofTrace}
		adminServer := admin.New(runtime, ring, metrics, router, obsCfg)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.AdminPort)
			if err := adminServer.Run(ctx, addr); err != nil {
				errCh <- fmt.Errorf("app: admin surface: %w", err)
			}
		}()
	} else {
		router.Publish(logging.Event{Severity: logging.SeverityInfo, Category: logging.CategoryAdmin, Message: "admin surface disabled (--no-admin)"})
	}

	select {
	case <-ctx.Done():
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
