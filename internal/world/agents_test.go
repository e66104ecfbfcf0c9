package world

import "testing"

func TestSpawnAgentAssignsDisjointIDsFromSessions(t *testing.T) {
	w := New()
	a := w.SpawnAgent("Scarab", 3, 1000, 5.0)
	if a.ID < firstNPCAgentID {
		t.Fatalf("agent id = %d, want >= %d", a.ID, firstNPCAgentID)
	}
	b := w.SpawnAgent("Ghost", 2, 500, 10.0)
	if b.ID != a.ID+1 {
		t.Fatalf("second agent id = %d, want %d", b.ID, a.ID+1)
	}
}

func TestFindAgent(t *testing.T) {
	w := New()
	a := w.SpawnAgent("Scarab", 3, 1000, 5.0)
	found, ok := w.FindAgent(a.ID)
	if !ok || found.Handle != "Scarab" {
		t.Fatalf("FindAgent = (%+v, %v), want Scarab", found, ok)
	}
	if _, ok := w.FindAgent(999999); ok {
		t.Fatal("expected FindAgent to miss on an unknown id")
	}
}

func TestWithAgentLockVisitsEveryAgentAndMarksDirty(t *testing.T) {
	w := New()
	w.SpawnAgent("Scarab", 3, 1000, 5.0)
	w.SpawnAgent("Ghost", 2, 500, 10.0)
	w.ClearDirty()

	visited := 0
	w.WithAgentLock(func(a *NPCAgent) {
		visited++
		a.Credits++
	})
	if visited != 2 {
		t.Fatalf("visited %d agents, want 2", visited)
	}
	if !w.Dirty().Agents {
		t.Fatal("expected WithAgentLock to mark the agent category dirty")
	}
	for _, a := range w.Agents() {
		if a.Credits != 1001 && a.Credits != 501 {
			t.Fatalf("unexpected credits after mutation: %+v", a)
		}
	}
}

func TestMissionsUnlockedAndFindMissionUnlockedMatchLockedVariants(t *testing.T) {
	w := New()
	w.LoadMissions([]*Mission{{ID: 1}, {ID: 2}})

	if len(w.MissionsUnlocked()) != 2 {
		t.Fatalf("MissionsUnlocked() len = %d, want 2", len(w.MissionsUnlocked()))
	}
	m, ok := w.FindMissionUnlocked(2)
	if !ok || m.ID != 2 {
		t.Fatalf("FindMissionUnlocked(2) = (%+v, %v), want mission 2", m, ok)
	}
}
