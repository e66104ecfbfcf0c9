package world

// SpawnAgent adds a new NPC agent, assigning the next id in the
// NPC-reserved range (starting at 1000, disjoint from session ids).
func (w *World) SpawnAgent(handle string, uplinkRating int16, credits int64, thinkTimer float64) *NPCAgent {
	w.mu.Lock()
	defer w.mu.Unlock()
	agent := &NPCAgent{
		ID:           w.nextAgentID,
		Handle:       handle,
		UplinkRating: uplinkRating,
		Credits:      credits,
		ThinkTimer:   thinkTimer,
	}
	w.nextAgentID++
	w.agents = append(w.agents, agent)
	w.dirty.Agents = true
	return agent
}

// Agents returns a snapshot slice of every NPC agent.
func (w *World) Agents() []*NPCAgent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*NPCAgent, len(w.agents))
	copy(out, w.agents)
	return out
}

// FindAgent locates an NPC agent by id.
func (w *World) FindAgent(id int32) (*NPCAgent, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range w.agents {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// WithAgentLock runs fn once per agent under the world lock, taking the
// lock per agent rather than once for the whole call so a long-running NPC
// update never starves a concurrently dispatched player action (§4.6).
func (w *World) WithAgentLock(fn func(*NPCAgent)) {
	w.mu.Lock()
	agents := make([]*NPCAgent, len(w.agents))
	copy(agents, w.agents)
	w.mu.Unlock()

	for _, a := range agents {
		w.mu.Lock()
		fn(a)
		w.dirty.Agents = true
		w.mu.Unlock()
	}
}

// MarkAgentsDirty lets the NPC scheduler flag the agent category dirty
// without reaching into World's private dirty set directly.
func (w *World) MarkAgentsDirty() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty.Agents = true
}

// MarkMissionsDirty mirrors MarkAgentsDirty for the mission category, used
// by the NPC scheduler when it claims or completes a mission directly
// through the Mission pointer under WithAgentLock rather than through
// ClaimMission/CompleteMission (which would double-lock). Unlike
// MarkAgentsDirty, this must not take w.mu itself: every caller is already
// inside WithAgentLock's per-agent critical section.
func (w *World) MarkMissionsDirty() {
	w.dirty.Missions = true
}

// FindMissionUnlocked is used by callers (the NPC scheduler) that already
// hold the world lock via WithAgentLock.
func (w *World) FindMissionUnlocked(id int32) (*Mission, bool) {
	return w.findMissionLocked(id)
}

// MissionsUnlocked exposes the raw mission slice for callers that already
// hold the world lock via WithAgentLock.
func (w *World) MissionsUnlocked() []*Mission {
	return w.missions
}
