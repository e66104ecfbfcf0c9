// Package wire implements the Cybrelink binary protocol: fixed 4-byte frame
// headers, typed fixed-layout payloads, and a varint/field-marker delta
// encoding used for WORLD_DELTA snapshots. Nothing in this package touches
// the network; it only turns bytes into typed values and back.
package wire

import "fmt"

// ProtocolVersion is the handshake version this server speaks. A client
// presenting any other value fails the handshake (session FSM, §4.3).
const ProtocolVersion uint32 = 1

// HeaderSize is the fixed size, in bytes, of every frame header.
const HeaderSize = 4

// MaxPayloadLength is the largest payload a single frame can carry; it is
// the full range of the header's 16-bit length field.
const MaxPayloadLength = 65535

// PacketType identifies the shape and purpose of a frame's payload. Ranges
// partition connection control, auth, client actions, server state pushes,
// agent/mission updates, and diagnostics.
type PacketType uint8

const (
	PacketHandshake    PacketType = 0x01
	PacketHandshakeAck PacketType = 0x02
	PacketDisconnect   PacketType = 0x03
	PacketKeepalive    PacketType = 0x04

	PacketAuthRequest  PacketType = 0x10
	PacketAuthResponse PacketType = 0x11

	PacketPlayerConnect    PacketType = 0x20
	PacketPlayerDisconnect PacketType = 0x21
	PacketPlayerAction     PacketType = 0x22
	PacketPlayerChat       PacketType = 0x23

	PacketWorldFull  PacketType = 0x30
	PacketWorldDelta PacketType = 0x31
	PacketTimeSync   PacketType = 0x32
	PacketPlayerList PacketType = 0x33

	PacketAgentUpdate   PacketType = 0x40
	PacketTraceUpdate   PacketType = 0x41
	PacketMissionUpdate PacketType = 0x42

	PacketLogEntry PacketType = 0xF0
	PacketNetError PacketType = 0xFE
)

// String renders a PacketType for logs without claiming a lookup table
// covers every byte value — unrecognized bytes still print as a hex number.
func (t PacketType) String() string {
	switch t {
	case PacketHandshake:
		return "HANDSHAKE"
	case PacketHandshakeAck:
		return "HANDSHAKE_ACK"
	case PacketDisconnect:
		return "DISCONNECT"
	case PacketKeepalive:
		return "KEEPALIVE"
	case PacketAuthRequest:
		return "AUTH_REQUEST"
	case PacketAuthResponse:
		return "AUTH_RESPONSE"
	case PacketPlayerConnect:
		return "PLAYER_CONNECT"
	case PacketPlayerDisconnect:
		return "PLAYER_DISCONNECT"
	case PacketPlayerAction:
		return "PLAYER_ACTION"
	case PacketPlayerChat:
		return "PLAYER_CHAT"
	case PacketWorldFull:
		return "WORLD_FULL"
	case PacketWorldDelta:
		return "WORLD_DELTA"
	case PacketTimeSync:
		return "TIME_SYNC"
	case PacketPlayerList:
		return "PLAYER_LIST"
	case PacketAgentUpdate:
		return "AGENT_UPDATE"
	case PacketTraceUpdate:
		return "TRACE_UPDATE"
	case PacketMissionUpdate:
		return "MISSION_UPDATE"
	case PacketLogEntry:
		return "LOG_ENTRY"
	case PacketNetError:
		return "NET_ERROR"
	default:
		return fmt.Sprintf("0x%02X", uint8(t))
	}
}

// Flags is a bitmask carried in every frame header.
type Flags uint8

const (
	FlagNone         Flags = 0x00
	FlagCompressed   Flags = 0x01
	FlagReliable     Flags = 0x02
	FlagFragmented   Flags = 0x04
	FlagLastFragment Flags = 0x08
)

// Has reports whether f has every bit in mask set. Unknown bits outside the
// four named flags are preserved on round-trip but never inspected.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// ActionType identifies a client -> server PLAYER_ACTION payload's intent.
type ActionType uint8

const (
	ActionNone ActionType = 0x00

	ActionAddBounce     ActionType = 0x10
	ActionClearBounces  ActionType = 0x11
	ActionConnectTarget ActionType = 0x12
	ActionDisconnectAll ActionType = 0x13

	ActionRunSoftware    ActionType = 0x20
	ActionBypassSecurity ActionType = 0x21

	ActionDownloadFile ActionType = 0x30
	ActionUploadFile   ActionType = 0x31
	ActionDeleteFile   ActionType = 0x32
	ActionCopyFile     ActionType = 0x33

	ActionDeleteLog ActionType = 0x40
	ActionModifyLog ActionType = 0x41

	ActionTransferMoney ActionType = 0x50

	ActionShutdownSystem ActionType = 0x60

	ActionFramePlayer ActionType = 0x70
	ActionPlaceBounty ActionType = 0x71
)

func (a ActionType) String() string {
	switch a {
	case ActionAddBounce:
		return "ADD_BOUNCE"
	case ActionClearBounces:
		return "CLEAR_BOUNCES"
	case ActionConnectTarget:
		return "CONNECT_TARGET"
	case ActionDisconnectAll:
		return "DISCONNECT_ALL"
	case ActionRunSoftware:
		return "RUN_SOFTWARE"
	case ActionBypassSecurity:
		return "BYPASS_SECURITY"
	case ActionDownloadFile:
		return "DOWNLOAD_FILE"
	case ActionUploadFile:
		return "UPLOAD_FILE"
	case ActionDeleteFile:
		return "DELETE_FILE"
	case ActionCopyFile:
		return "COPY_FILE"
	case ActionDeleteLog:
		return "DELETE_LOG"
	case ActionModifyLog:
		return "MODIFY_LOG"
	case ActionTransferMoney:
		return "TRANSFER_MONEY"
	case ActionShutdownSystem:
		return "SHUTDOWN_SYSTEM"
	case ActionFramePlayer:
		return "FRAME_PLAYER"
	case ActionPlaceBounty:
		return "PLACE_BOUNTY"
	default:
		return "NONE"
	}
}

// BypassSubsystem identifies which security layer a BYPASS_SECURITY action
// targets; it travels in ActionPacket.Param1.
type BypassSubsystem uint32

const (
	SubsystemProxy    BypassSubsystem = 0
	SubsystemFirewall BypassSubsystem = 1
	SubsystemMonitor  BypassSubsystem = 2
)

// Error reason codes carried in a NET_ERROR packet.
const (
	ReasonUnknownAction      = "unknown_action"
	ReasonUnknownTarget      = "unknown_target"
	ReasonTargetOffline      = "target_offline"
	ReasonNotConnected       = "not_connected"
	ReasonInsufficientBypass = "insufficient_bypass"
	ReasonInsufficientFunds  = "insufficient_funds"
	ReasonMissionClaimed     = "mission_claimed"
	ReasonMissionComplete    = "mission_complete"
	ReasonNotClaimant        = "not_claimant"
	ReasonBounceLimit        = "bounce_limit"
	ReasonBadParameters      = "bad_parameters"
)
