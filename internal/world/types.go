package world

// Computer is the server-side record for one node on the network. Security
// bypass state lives on the computer itself, not per-session — a known
// behavior carried over from the original implementation (see DESIGN.md);
// one player's bypass is visible to every other player connected to the
// same machine.
type Computer struct {
	ID            int32
	IP            uint32
	IPString      string
	Name          string
	CompanyID     int32
	Type          int16
	SecurityLevel int16
	Running       bool

	ProxyBypassed    bool
	FirewallBypassed bool
	MonitorDisabled  bool

	Connected []uint32 // session ids currently connected
}

// BankAccount is one ledger entry at a bank computer. Owner is a session id,
// or 0 for an NPC/system-owned account.
type BankAccount struct {
	ID            int32
	BankIP        uint32
	AccountNumber string
	AccountName   string
	Balance       int64
	Owner         uint32
}

// Mission is a job postable by an employer and claimable by exactly one
// agent (a player session id or an NPC agent id). Completion is terminal.
type Mission struct {
	ID          int32
	Type        int16
	TargetIP    uint32
	EmployerID  int32
	Description string
	Payment     int64
	MaxPayment  int64
	Difficulty  int16
	MinRating   int16
	ClaimedBy   uint32 // 0 = unclaimed
	Completed   bool
}

// AccessLogEntry is one append-only record of activity against a computer.
type AccessLogEntry struct {
	ID           int64
	ComputerID   int32
	AccessorIP   uint32
	Action       string
	Timestamp    GameTime
}

// NPCAgent is an AI-controlled actor that shares the mission and banking
// systems with players but is driven by the NPC scheduler instead of a
// session. Its id range is disjoint from session ids (starting at 1000).
type NPCAgent struct {
	ID               int32
	Handle           string
	UplinkRating     int16
	NeuromancerRating int16
	Credits          int64
	ConnectedIP      uint32
	BouncePath       []uint32
	CurrentMissionID int32
	ThinkTimer       float64
}

// DirtySet tracks which entity categories have unsaved mutations since the
// last persistence flush. The flush reads and clears it (§4.8).
type DirtySet struct {
	Computers bool
	Accounts  bool
	Missions  bool
	Logs      bool
	Agents    bool
}

// Any reports whether any category needs saving.
func (d DirtySet) Any() bool {
	return d.Computers || d.Accounts || d.Missions || d.Logs || d.Agents
}
