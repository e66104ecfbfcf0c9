// Package npc implements the NPC scheduler (C6): spawning a fixed pool of
// AI agents at startup and driving their two-state think loop (idle →
// claim a mission, on-mission → attempt completion) once per game tick.
package npc

import (
	"math/rand"

	"github.com/bizkut/cybrelink/internal/telemetry"
	"github.com/bizkut/cybrelink/internal/world"
)

var handlePool = []string{
	"Scarab", "Serpent", "Phoenix", "Raven", "Falcon",
	"Shadow", "Ghost", "Phantom", "Specter", "Wraith",
}

// Scheduler drives every NPC agent's think timer once per game tick. It
// never holds the world lock for longer than one agent's update.
type Scheduler struct {
	world  *world.World
	rng    *rand.Rand
	logger telemetry.Logger
}

// New constructs a scheduler over w using rng for NPC dice rolls. rng is
// not safe for concurrent use and must only be driven from the game tick
// goroutine.
func New(w *world.World, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Scheduler{world: w, rng: rng, logger: telemetry.LoggerFunc(nil)}
}

// SetLogger attaches a narrow logging sink for per-agent mission outcomes.
// These are debug-grade traces, not audited actions, so they go through
// the telemetry.Logger seam rather than the structured event router. A nil
// logger restores the silent default.
func (s *Scheduler) SetLogger(logger telemetry.Logger) {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	s.logger = logger
}

// Spawn creates count NPC agents from the fixed handle pool, each with a
// rating in [1,5], staggered starting credits, and a staggered initial
// think timer so their ticks don't all land on the same game tick.
func (s *Scheduler) Spawn(count int) []*world.NPCAgent {
	out := make([]*world.NPCAgent, 0, count)
	for i := 0; i < count; i++ {
		handle := handlePool[i%len(handlePool)]
		rating := int16(1 + i%5)
		credits := int64(1000 + i*500)
		thinkTimer := 5.0 + float64(i)*2.0
		out = append(out, s.world.SpawnAgent(handle, rating, credits, thinkTimer))
	}
	return out
}

// Tick decrements every agent's think timer by dt seconds and runs the
// think step for any agent whose timer has expired. It takes the world
// lock once per agent (via World.WithAgentLock), not once for the whole
// call, so a long scheduler pass never starves a player action mid-tick.
func (s *Scheduler) Tick(dt float64) {
	s.world.WithAgentLock(func(agent *world.NPCAgent) {
		agent.ThinkTimer -= dt
		if agent.ThinkTimer > 0 {
			return
		}
		agent.ThinkTimer = 10.0 + s.rng.Float64()*20.0
		s.think(agent)
	})
}

// think runs one AI step for agent. The caller already holds the world
// lock for this agent.
func (s *Scheduler) think(agent *world.NPCAgent) {
	if agent.CurrentMissionID == 0 {
		s.claimMission(agent)
		return
	}
	s.attemptMission(agent)
}

func (s *Scheduler) claimMission(agent *world.NPCAgent) {
	for _, m := range s.world.MissionsUnlocked() {
		if m.ClaimedBy == 0 && !m.Completed && int16(m.Difficulty) <= agent.UplinkRating {
			m.ClaimedBy = uint32(agent.ID)
			agent.CurrentMissionID = m.ID
			s.world.MarkMissionsDirty()
			return
		}
	}
}

func (s *Scheduler) attemptMission(agent *world.NPCAgent) {
	mission, ok := s.world.FindMissionUnlocked(agent.CurrentMissionID)
	if !ok {
		agent.CurrentMissionID = 0
		return
	}

	p := SuccessProbability(agent.UplinkRating, mission.Difficulty)
	if s.rng.Float64() < p {
		mission.Completed = true
		agent.Credits += mission.Payment
		agent.CurrentMissionID = 0
		s.world.MarkMissionsDirty()
		if s.rng.Float64() < 1.0/3.0 {
			agent.UplinkRating++
		}
		s.logger.Printf("npc %q completed mission %d (rating=%d credits=%d)", agent.Handle, mission.ID, agent.UplinkRating, agent.Credits)
		return
	}

	if s.rng.Float64() < 0.10 {
		if agent.UplinkRating > 0 {
			agent.UplinkRating--
		}
	}
	s.logger.Printf("npc %q failed mission %d (rating=%d)", agent.Handle, mission.ID, agent.UplinkRating)
}

// SuccessProbability implements p = clamp(0.5 + 0.1*(rating-difficulty), 0.10, 0.90)
// from §4.6.
func SuccessProbability(rating, difficulty int16) float64 {
	p := 0.5 + 0.1*float64(rating-difficulty)
	if p < 0.10 {
		return 0.10
	}
	if p > 0.90 {
		return 0.90
	}
	return p
}
