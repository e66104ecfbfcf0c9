package npc

import (
	"math/rand"
	"testing"

	"github.com/bizkut/cybrelink/internal/telemetry"
	"github.com/bizkut/cybrelink/internal/world"
)

func TestSuccessProbabilityClamps(t *testing.T) {
	cases := []struct {
		rating, difficulty int16
		want               float64
	}{
		{rating: 0, difficulty: 10, want: 0.10},
		{rating: 10, difficulty: 0, want: 0.90},
		{rating: 3, difficulty: 3, want: 0.5},
		{rating: 4, difficulty: 3, want: 0.6},
	}
	for _, c := range cases {
		got := SuccessProbability(c.rating, c.difficulty)
		if got != c.want {
			t.Fatalf("SuccessProbability(%d, %d) = %v, want %v", c.rating, c.difficulty, got, c.want)
		}
	}
}

func TestSpawnProducesRequestedCountAndCyclesHandlePool(t *testing.T) {
	w := world.New()
	s := New(w, rand.New(rand.NewSource(1)))

	agents := s.Spawn(len(handlePool) + 2)
	if len(agents) != len(handlePool)+2 {
		t.Fatalf("got %d agents, want %d", len(agents), len(handlePool)+2)
	}
	if agents[0].Handle != handlePool[0] || agents[len(handlePool)].Handle != handlePool[0] {
		t.Fatalf("expected the handle pool to cycle after %d agents", len(handlePool))
	}
	for _, a := range agents {
		if a.UplinkRating < 1 || a.UplinkRating > 5 {
			t.Fatalf("agent %q rating = %d, want in [1,5]", a.Handle, a.UplinkRating)
		}
	}
}

func TestTickClaimsAndCompletesAnEasyMission(t *testing.T) {
	w := world.New()
	w.LoadMissions([]*world.Mission{
		{ID: 1, Difficulty: 0, Payment: 100},
	})
	s := New(w, rand.New(rand.NewSource(1)))
	agents := s.Spawn(1)
	agent := agents[0]
	agent.UplinkRating = 5 // success probability clamps to 0.90, near-certain over a few ticks
	agent.ThinkTimer = 0

	var completed bool
	for i := 0; i < 50 && !completed; i++ {
		s.Tick(0)
		w.WithAgentLock(func(a *world.NPCAgent) {
			if a.ID == agent.ID && a.CurrentMissionID == 0 && a.Credits > 1000 {
				completed = true
			}
		})
		if !completed {
			w.WithAgentLock(func(a *world.NPCAgent) {
				if a.ID == agent.ID {
					a.ThinkTimer = 0
				}
			})
		}
	}
	if !completed {
		t.Fatal("expected the agent to eventually claim and complete the mission")
	}
}

func TestSetLoggerReceivesMissionOutcomeTraces(t *testing.T) {
	w := world.New()
	w.LoadMissions([]*world.Mission{{ID: 1, Difficulty: 0, Payment: 50}})
	s := New(w, rand.New(rand.NewSource(2)))

	var messages []string
	s.SetLogger(telemetry.LoggerFunc(func(format string, args ...any) {
		messages = append(messages, format)
	}))

	agents := s.Spawn(1)
	agents[0].UplinkRating = 5
	agents[0].ThinkTimer = 0

	for i := 0; i < 50 && len(messages) == 0; i++ {
		s.Tick(0)
		w.WithAgentLock(func(a *world.NPCAgent) { a.ThinkTimer = 0 })
	}
	if len(messages) == 0 {
		t.Fatal("expected at least one mission-outcome trace to be logged")
	}
}

func TestSetLoggerNilRestoresSilentDefault(t *testing.T) {
	w := world.New()
	s := New(w, nil)
	s.SetLogger(nil)
	if s.logger == nil {
		t.Fatal("expected SetLogger(nil) to fall back to a no-op logger, not leave it nil")
	}
}
