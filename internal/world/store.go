// Package world implements the authoritative, in-memory game state (C4):
// computers, bank accounts, missions, access logs, NPC agents, and the
// in-game clock. A single coarse mutex serializes every operation; the
// action dispatcher holds it for the duration of one action and the NPC
// scheduler holds it for one agent tick, never longer.
package world

import "sync"

// ConnectResult reports the outcome of PlayerConnect.
type ConnectResult int

const (
	ConnectOK ConnectResult = iota
	ConnectNotFound
	ConnectOffline
)

const firstNPCAgentID = 1000

// World is the sole authoritative container for game state. Every mutable
// entity is owned exclusively by World; sessions, NPCs, and the dispatcher
// hold only short-lived references obtained under the lock.
type World struct {
	mu sync.Mutex

	clock *Clock

	computers      []*Computer
	computerByIP   map[uint32]*Computer

	accounts []*BankAccount
	missions []*Mission
	logs     []*AccessLogEntry
	agents   []*NPCAgent

	nextLogID   int64
	nextAgentID int32

	dirty DirtySet
}

// New constructs an empty world with its clock uninitialized (inactive).
// CreateWorld-equivalent startup logic (persistence load, clock activation,
// NPC spawn) runs separately so it can be exercised without a live backend.
func New() *World {
	return &World{
		clock:       NewClock(),
		computerByIP: make(map[uint32]*Computer),
		nextAgentID: firstNPCAgentID,
	}
}

// Clock exposes the in-game calendar for the tick runtime and wire codec.
func (w *World) Clock() *Clock { return w.clock }

// Dirty returns a copy of the current dirty set.
func (w *World) Dirty() DirtySet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty
}

// ClearDirty clears every dirty flag; called by the tick runtime's
// persistence flush after it has written dirty computers and missions. It
// also clears the categories that flush does not write (accounts, logs,
// agents).
func (w *World) ClearDirty() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty = DirtySet{}
}

// ----------------------------------------------------------------------
// Loading (startup / bulk load from persistence)
// ----------------------------------------------------------------------

// LoadComputers replaces the computer set wholesale, rebuilding the IP
// index. Used once at startup by the persistence adapter's bulk load; it
// does not mark the world dirty since the loaded data is, by definition,
// already persisted.
func (w *World) LoadComputers(computers []*Computer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.computers = computers
	w.computerByIP = make(map[uint32]*Computer, len(computers))
	for _, c := range computers {
		w.computerByIP[c.IP] = c
	}
}

// LoadMissions replaces the mission set wholesale. See LoadComputers.
func (w *World) LoadMissions(missions []*Mission) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.missions = missions
}

// LoadAccounts replaces the bank account set wholesale. See LoadComputers.
func (w *World) LoadAccounts(accounts []*BankAccount) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts = accounts
}

// ----------------------------------------------------------------------
// Computers
// ----------------------------------------------------------------------

// FindComputer looks up a computer by its numeric IP in constant time.
func (w *World) FindComputer(ip uint32) (*Computer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.computerByIP[ip]
	return c, ok
}

// FindComputerByIPString performs the linear text-form lookup the spec
// calls out explicitly as non-constant-time.
func (w *World) FindComputerByIPString(s string) (*Computer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.computers {
		if c.IPString == s {
			return c, true
		}
	}
	return nil, false
}

// Computers returns a snapshot slice of every known computer, for
// persistence flush and world-full sends. The slice itself is a fresh copy
// of the pointer list; callers must still take the lock before touching
// any *Computer's fields.
func (w *World) Computers() []*Computer {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Computer, len(w.computers))
	copy(out, w.computers)
	return out
}

// PlayerConnect appends sessionID to the target computer's connected list
// if it is not already present, rejecting unknown or non-running targets.
func (w *World) PlayerConnect(sessionID uint32, targetIP uint32) ConnectResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.computerByIP[targetIP]
	if !ok {
		return ConnectNotFound
	}
	if !c.Running {
		return ConnectOffline
	}
	for _, id := range c.Connected {
		if id == sessionID {
			return ConnectOK
		}
	}
	c.Connected = append(c.Connected, sessionID)
	w.dirty.Computers = true
	return ConnectOK
}

// PlayerDisconnect removes sessionID from fromIP's connected list. Per the
// open question in DESIGN.md, bypass flags are computer-global and are not
// reset here; this hook is the reset point a future per-session bypass
// model would use.
func (w *World) PlayerDisconnect(sessionID uint32, fromIP uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.computerByIP[fromIP]
	if !ok {
		return
	}
	for i, id := range c.Connected {
		if id == sessionID {
			c.Connected = append(c.Connected[:i], c.Connected[i+1:]...)
			w.dirty.Computers = true
			return
		}
	}
}

// DisconnectAllSessions removes sessionID from every computer's connected
// list, used when a session dies without having told the world which
// target it was on (timeout, abrupt transport error).
func (w *World) DisconnectAllSessions(sessionID uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.computers {
		for i, id := range c.Connected {
			if id == sessionID {
				c.Connected = append(c.Connected[:i], c.Connected[i+1:]...)
				w.dirty.Computers = true
				break
			}
		}
	}
}

func (w *World) tryBypass(targetIP uint32, rating int16, set func(*Computer)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.computerByIP[targetIP]
	if !ok {
		return false
	}
	if rating < c.SecurityLevel {
		return false
	}
	set(c)
	w.dirty.Computers = true
	return true
}

// TryBypassProxy gates on rating >= security level, matching TryBypassFirewall
// and TryBypassMonitor.
func (w *World) TryBypassProxy(targetIP uint32, rating int16) bool {
	return w.tryBypass(targetIP, rating, func(c *Computer) { c.ProxyBypassed = true })
}

// TryBypassFirewall gates on rating >= security level.
func (w *World) TryBypassFirewall(targetIP uint32, rating int16) bool {
	return w.tryBypass(targetIP, rating, func(c *Computer) { c.FirewallBypassed = true })
}

// TryBypassMonitor gates on rating >= security level.
func (w *World) TryBypassMonitor(targetIP uint32, rating int16) bool {
	return w.tryBypass(targetIP, rating, func(c *Computer) { c.MonitorDisabled = true })
}

// SetRunning flips a computer's running flag, used by SHUTDOWN_SYSTEM.
// Returns false if the computer is unknown.
func (w *World) SetRunning(ip uint32, running bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.computerByIP[ip]
	if !ok {
		return false
	}
	c.Running = running
	w.dirty.Computers = true
	return true
}

// AllBypassed reports whether every security subsystem on a computer has
// already been bypassed, the "admin bypass" precondition the dispatcher
// requires for DELETE_FILE and SHUTDOWN_SYSTEM.
func (w *World) AllBypassed(ip uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.computerByIP[ip]
	if !ok {
		return false
	}
	return c.ProxyBypassed && c.FirewallBypassed && c.MonitorDisabled
}

// ----------------------------------------------------------------------
// Banking
// ----------------------------------------------------------------------

// FindAccount locates an account by bank IP and account number.
func (w *World) FindAccount(bankIP uint32, accountNumber string) (*BankAccount, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.findAccountLocked(bankIP, accountNumber)
}

func (w *World) findAccountLocked(bankIP uint32, accountNumber string) (*BankAccount, bool) {
	for _, a := range w.accounts {
		if a.BankIP == bankIP && a.AccountNumber == accountNumber {
			return a, true
		}
	}
	return nil, false
}

// Transfer atomically moves amount credits from src to dst. It fails
// without mutating anything if amount <= 0, either account is missing, or
// src has insufficient balance; invariant: balance never goes negative.
func (w *World) Transfer(srcBankIP uint32, srcAccount string, dstBankIP uint32, dstAccount string, amount int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount <= 0 {
		return false
	}
	src, ok := w.findAccountLocked(srcBankIP, srcAccount)
	if !ok {
		return false
	}
	dst, ok := w.findAccountLocked(dstBankIP, dstAccount)
	if !ok {
		return false
	}
	if src.Balance < amount {
		return false
	}
	src.Balance -= amount
	dst.Balance += amount
	w.dirty.Accounts = true
	return true
}

func (w *World) findAccountByIDLocked(id int32) (*BankAccount, bool) {
	for _, a := range w.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// TransferByID is Transfer addressed by account ID rather than bank
// IP/account-number pair, matching the wire protocol's TRANSFER_MONEY
// action, which carries src/dst as bare account IDs with no bank IP.
func (w *World) TransferByID(srcID, dstID int32, amount int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount <= 0 {
		return false
	}
	src, ok := w.findAccountByIDLocked(srcID)
	if !ok {
		return false
	}
	dst, ok := w.findAccountByIDLocked(dstID)
	if !ok {
		return false
	}
	if src.Balance < amount {
		return false
	}
	src.Balance -= amount
	dst.Balance += amount
	w.dirty.Accounts = true
	return true
}

// Accounts returns a snapshot slice of every known bank account.
func (w *World) Accounts() []*BankAccount {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*BankAccount, len(w.accounts))
	copy(out, w.accounts)
	return out
}

// ----------------------------------------------------------------------
// Missions
// ----------------------------------------------------------------------

// FindMission locates a mission by id.
func (w *World) FindMission(id int32) (*Mission, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.findMissionLocked(id)
}

func (w *World) findMissionLocked(id int32) (*Mission, bool) {
	for _, m := range w.missions {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// ClaimMission fails if the mission is unknown or already claimed.
func (w *World) ClaimMission(id int32, claimantID uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.findMissionLocked(id)
	if !ok || m.ClaimedBy != 0 {
		return false
	}
	m.ClaimedBy = claimantID
	w.dirty.Missions = true
	return true
}

// CompleteMission fails unless claimantID matches the mission's claimant.
// Completion is terminal: once true, Completed never reverts to false.
func (w *World) CompleteMission(id int32, claimantID uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.findMissionLocked(id)
	if !ok || m.ClaimedBy != claimantID || m.Completed {
		return false
	}
	m.Completed = true
	w.dirty.Missions = true
	return true
}

// Missions returns a snapshot slice of every known mission.
func (w *World) Missions() []*Mission {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Mission, len(w.missions))
	copy(out, w.missions)
	return out
}

// UnclaimedMissions returns missions with no claimant and not completed.
func (w *World) UnclaimedMissions() []*Mission {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*Mission
	for _, m := range w.missions {
		if m.ClaimedBy == 0 && !m.Completed {
			out = append(out, m)
		}
	}
	return out
}

// ----------------------------------------------------------------------
// Access logs
// ----------------------------------------------------------------------

// LogAccess appends an entry; access logs are append-only outside of
// explicit DELETE_LOG actions.
func (w *World) LogAccess(computerID int32, accessorIP uint32, action string, ts GameTime) *AccessLogEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextLogID++
	entry := &AccessLogEntry{
		ID:         w.nextLogID,
		ComputerID: computerID,
		AccessorIP: accessorIP,
		Action:     action,
		Timestamp:  ts,
	}
	w.logs = append(w.logs, entry)
	w.dirty.Logs = true
	return entry
}

// DeleteLog removes a single entry by id, authorized by DELETE_LOG against
// a computer the caller has monitor-disabled (checked by the dispatcher).
func (w *World) DeleteLog(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, e := range w.logs {
		if e.ID == id {
			w.logs = append(w.logs[:i], w.logs[i+1:]...)
			w.dirty.Logs = true
			return true
		}
	}
	return false
}

// ModifyLog rewrites one log entry's action string in place, preserving its
// timestamp, authorized by MODIFY_LOG against a monitor-disabled target.
func (w *World) ModifyLog(id int64, action string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.logs {
		if e.ID == id {
			e.Action = action
			w.dirty.Logs = true
			return true
		}
	}
	return false
}

// LogsForComputer returns every access log entry naming computerID.
func (w *World) LogsForComputer(computerID int32) []*AccessLogEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*AccessLogEntry
	for _, e := range w.logs {
		if e.ComputerID == computerID {
			out = append(out, e)
		}
	}
	return out
}
