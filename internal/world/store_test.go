package world

import "testing"

func TestLoadComputersBuildsIPIndex(t *testing.T) {
	w := New()
	w.LoadComputers([]*Computer{{ID: 1, IP: 10, Name: "a"}, {ID: 2, IP: 20, Name: "b"}})
	c, ok := w.FindComputer(20)
	if !ok || c.Name != "b" {
		t.Fatalf("FindComputer(20) = (%+v, %v), want b", c, ok)
	}
	if _, ok := w.FindComputer(30); ok {
		t.Fatal("expected FindComputer(30) to miss")
	}
}

func TestFindComputerByIPString(t *testing.T) {
	w := New()
	w.LoadComputers([]*Computer{{ID: 1, IP: 10, IPString: "10.0.0.1"}})
	c, ok := w.FindComputerByIPString("10.0.0.1")
	if !ok || c.ID != 1 {
		t.Fatalf("FindComputerByIPString = (%+v, %v), want computer 1", c, ok)
	}
	if _, ok := w.FindComputerByIPString("10.0.0.2"); ok {
		t.Fatal("expected a miss for an unknown IP string")
	}
}

func TestPlayerConnectResults(t *testing.T) {
	w := New()
	w.LoadComputers([]*Computer{
		{ID: 1, IP: 10, Running: true},
		{ID: 2, IP: 20, Running: false},
	})

	if got := w.PlayerConnect(1, 99); got != ConnectNotFound {
		t.Fatalf("PlayerConnect(unknown) = %v, want ConnectNotFound", got)
	}
	if got := w.PlayerConnect(1, 20); got != ConnectOffline {
		t.Fatalf("PlayerConnect(offline) = %v, want ConnectOffline", got)
	}
	if got := w.PlayerConnect(1, 10); got != ConnectOK {
		t.Fatalf("PlayerConnect(online) = %v, want ConnectOK", got)
	}
	// Reconnecting the same session must not duplicate the entry.
	if got := w.PlayerConnect(1, 10); got != ConnectOK {
		t.Fatalf("PlayerConnect(again) = %v, want ConnectOK", got)
	}
	c, _ := w.FindComputer(10)
	if len(c.Connected) != 1 {
		t.Fatalf("Connected = %v, want exactly one entry", c.Connected)
	}
}

func TestDisconnectAllSessionsRemovesFromEveryComputer(t *testing.T) {
	w := New()
	w.LoadComputers([]*Computer{
		{ID: 1, IP: 10, Running: true},
		{ID: 2, IP: 20, Running: true},
	})
	w.PlayerConnect(5, 10)
	w.PlayerConnect(5, 20)

	w.DisconnectAllSessions(5)

	c1, _ := w.FindComputer(10)
	c2, _ := w.FindComputer(20)
	if len(c1.Connected) != 0 || len(c2.Connected) != 0 {
		t.Fatalf("expected session 5 removed from both computers, got %v %v", c1.Connected, c2.Connected)
	}
}

func TestTryBypassGatesOnSecurityLevel(t *testing.T) {
	w := New()
	w.LoadComputers([]*Computer{{ID: 1, IP: 10, SecurityLevel: 3}})

	if w.TryBypassFirewall(10, 2) {
		t.Fatal("expected bypass to fail with rating below security level")
	}
	if !w.TryBypassFirewall(10, 3) {
		t.Fatal("expected bypass to succeed with rating equal to security level")
	}
	c, _ := w.FindComputer(10)
	if !c.FirewallBypassed {
		t.Fatal("expected FirewallBypassed to be set")
	}
}

func TestAllBypassedRequiresAllThreeSubsystems(t *testing.T) {
	w := New()
	w.LoadComputers([]*Computer{{ID: 1, IP: 10, SecurityLevel: 0}})

	if w.AllBypassed(10) {
		t.Fatal("expected AllBypassed to be false before any bypass")
	}
	w.TryBypassProxy(10, 0)
	w.TryBypassFirewall(10, 0)
	if w.AllBypassed(10) {
		t.Fatal("expected AllBypassed to still be false with only two of three done")
	}
	w.TryBypassMonitor(10, 0)
	if !w.AllBypassed(10) {
		t.Fatal("expected AllBypassed to be true once every subsystem is bypassed")
	}
}

func TestSetRunningOnUnknownComputerFails(t *testing.T) {
	w := New()
	if w.SetRunning(999, false) {
		t.Fatal("expected SetRunning on an unknown IP to fail")
	}
}

func TestTransferValidatesEveryPrecondition(t *testing.T) {
	w := New()
	w.LoadAccounts([]*BankAccount{
		{ID: 1, BankIP: 10, AccountNumber: "src", Balance: 100},
		{ID: 2, BankIP: 10, AccountNumber: "dst", Balance: 0},
	})

	if w.Transfer(10, "src", 10, "dst", 0) {
		t.Fatal("expected a non-positive amount to fail")
	}
	if w.Transfer(10, "missing", 10, "dst", 10) {
		t.Fatal("expected an unknown source account to fail")
	}
	if w.Transfer(10, "src", 10, "missing", 10) {
		t.Fatal("expected an unknown destination account to fail")
	}
	if w.Transfer(10, "src", 10, "dst", 1000) {
		t.Fatal("expected insufficient balance to fail")
	}
	if !w.Transfer(10, "src", 10, "dst", 50) {
		t.Fatal("expected a valid transfer to succeed")
	}
	src, _ := w.FindAccount(10, "src")
	dst, _ := w.FindAccount(10, "dst")
	if src.Balance != 50 || dst.Balance != 50 {
		t.Fatalf("unexpected balances after transfer: src=%d dst=%d", src.Balance, dst.Balance)
	}
}

func TestClaimAndCompleteMission(t *testing.T) {
	w := New()
	w.LoadMissions([]*Mission{{ID: 1}})

	if !w.ClaimMission(1, 7) {
		t.Fatal("expected the first claim to succeed")
	}
	if w.ClaimMission(1, 8) {
		t.Fatal("expected a second claim by a different claimant to fail")
	}
	if w.CompleteMission(1, 8) {
		t.Fatal("expected completion by a non-claimant to fail")
	}
	if !w.CompleteMission(1, 7) {
		t.Fatal("expected completion by the claimant to succeed")
	}
	if w.CompleteMission(1, 7) {
		t.Fatal("expected completion to be terminal")
	}
}

func TestUnclaimedMissionsExcludesClaimedAndCompleted(t *testing.T) {
	w := New()
	w.LoadMissions([]*Mission{
		{ID: 1},
		{ID: 2, ClaimedBy: 5},
		{ID: 3, Completed: true},
	})
	unclaimed := w.UnclaimedMissions()
	if len(unclaimed) != 1 || unclaimed[0].ID != 1 {
		t.Fatalf("UnclaimedMissions = %v, want only mission 1", unclaimed)
	}
}

func TestLogAccessDeleteAndModify(t *testing.T) {
	w := New()
	e := w.LogAccess(1, 10, "DOWNLOAD_FILE:secret.txt", GameTime{})
	if e.ID == 0 {
		t.Fatal("expected a non-zero log id")
	}
	logs := w.LogsForComputer(1)
	if len(logs) != 1 {
		t.Fatalf("LogsForComputer = %v, want 1 entry", logs)
	}

	if !w.ModifyLog(e.ID, "REDACTED") {
		t.Fatal("expected ModifyLog to succeed on a known id")
	}
	logs = w.LogsForComputer(1)
	if logs[0].Action != "REDACTED" {
		t.Fatalf("Action = %q, want REDACTED", logs[0].Action)
	}

	if !w.DeleteLog(e.ID) {
		t.Fatal("expected DeleteLog to succeed on a known id")
	}
	if w.DeleteLog(e.ID) {
		t.Fatal("expected a second DeleteLog on the same id to fail")
	}
	if len(w.LogsForComputer(1)) != 0 {
		t.Fatal("expected the log to be gone after deletion")
	}
}

func TestDirtyTrackingAndClear(t *testing.T) {
	w := New()
	w.LoadComputers([]*Computer{{ID: 1, IP: 10, Running: true}})
	w.SetRunning(10, false)
	if !w.Dirty().Computers {
		t.Fatal("expected Computers dirty flag to be set after SetRunning")
	}
	w.ClearDirty()
	if w.Dirty().Any() {
		t.Fatal("expected ClearDirty to reset every flag")
	}
}
