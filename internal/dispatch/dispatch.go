// Package dispatch implements the action dispatcher (C5): it takes one
// decoded PLAYER_ACTION from an authenticated session, checks its
// preconditions against the world store, applies its effect, and audits
// the outcome. Handlers touch the world only through World method calls,
// each of which takes and releases the world lock for itself; a handler
// that makes several such calls takes the lock once per call.
package dispatch

import (
	"fmt"
	"time"

	"github.com/bizkut/cybrelink/internal/audit"
	"github.com/bizkut/cybrelink/internal/logging"
	"github.com/bizkut/cybrelink/internal/session"
	"github.com/bizkut/cybrelink/internal/telemetry"
	"github.com/bizkut/cybrelink/internal/wire"
	"github.com/bizkut/cybrelink/internal/world"
)

// Dispatcher routes PLAYER_ACTION payloads to their handlers.
type Dispatcher struct {
	world   *world.World
	log     *logging.Router
	ring    *audit.Ring
	metrics telemetry.Metrics
}

// New constructs a dispatcher over w, auditing every action through log and
// ring. Either may be nil, in which case that half of auditing is a no-op.
func New(w *world.World, log *logging.Router, ring *audit.Ring) *Dispatcher {
	return &Dispatcher{world: w, log: log, ring: ring, metrics: telemetry.WrapMetrics(nil)}
}

// SetMetrics attaches a narrow counter sink for per-action-type totals,
// keeping this package's dependency on the metrics registry down to the
// two methods it actually calls.
func (d *Dispatcher) SetMetrics(metrics telemetry.Metrics) {
	if metrics == nil {
		metrics = telemetry.WrapMetrics(nil)
	}
	d.metrics = metrics
}

// Result is the outcome of one dispatched action: either it applied
// cleanly, or it failed with one of wire's Reason* codes.
type Result struct {
	OK     bool
	Reason string
}

func ok() Result            { return Result{OK: true} }
func fail(reason string) Result { return Result{OK: false, Reason: reason} }

// Dispatch applies one action on behalf of s, at game tick, and returns its
// result. The caller (the tick runtime) is responsible for turning a failed
// Result into a NET_ERROR frame and a successful one into whatever state
// push follows.
func (d *Dispatcher) Dispatch(s *session.Session, pkt wire.ActionPacket, tick uint64) Result {
	var res Result
	switch pkt.ActionType {
	case wire.ActionAddBounce:
		res = d.addBounce(s, pkt)
	case wire.ActionClearBounces:
		s.ClearBounces()
		res = ok()
	case wire.ActionConnectTarget:
		res = d.connectTarget(s, pkt)
	case wire.ActionDisconnectAll:
		res = d.disconnectAll(s)
	case wire.ActionRunSoftware:
		res = d.requireConnected(s)
	case wire.ActionBypassSecurity:
		res = d.bypassSecurity(s, pkt)
	case wire.ActionDownloadFile:
		res = d.downloadFile(s, pkt)
	case wire.ActionUploadFile:
		res = d.uploadFile(s, pkt)
	case wire.ActionCopyFile:
		res = d.copyFile(s, pkt)
	case wire.ActionDeleteFile:
		res = d.deleteFile(s, pkt)
	case wire.ActionDeleteLog:
		res = d.deleteLog(s, pkt)
	case wire.ActionModifyLog:
		res = d.modifyLog(s, pkt)
	case wire.ActionTransferMoney:
		res = d.transferMoney(s, pkt)
	case wire.ActionShutdownSystem:
		res = d.shutdownSystem(s, pkt)
	case wire.ActionFramePlayer:
		res = d.framePlayer(s, pkt)
	case wire.ActionPlaceBounty:
		res = d.placeBounty(s, pkt)
	default:
		res = fail(wire.ReasonUnknownAction)
	}

	d.audit(s, pkt, res, tick)
	return res
}

func (d *Dispatcher) audit(s *session.Session, pkt wire.ActionPacket, res Result, tick uint64) {
	d.metrics.Add("actions_total", 1)
	if !res.OK {
		d.metrics.Add("actions_failed_total", 1)
	}

	if d.ring != nil {
		d.ring.Add(audit.Entry{
			Time:          time.Now(),
			Tick:          tick,
			SessionID:     s.ID,
			CorrelationID: s.CorrelationID,
			ActionType:    pkt.ActionType.String(),
			Target:        pkt.TargetID,
			OK:            res.OK,
			Reason:        res.Reason,
		})
	}

	if d.log == nil {
		return
	}
	severity := logging.SeverityInfo
	msg := pkt.ActionType.String()
	if !res.OK {
		severity = logging.SeverityWarn
		msg = pkt.ActionType.String() + " rejected: " + res.Reason
	}
	d.log.Publish(logging.Event{
		Severity:  severity,
		Category:  logging.CategoryAction,
		Message:   msg,
		SessionID: s.ID,
		Tick:      tick,
	})
}

// addBounce resolves the dotted-quad IP carried in the action's opaque data
// block and appends it to the session's bounce path.
func (d *Dispatcher) addBounce(s *session.Session, pkt wire.ActionPacket) Result {
	ip, valid := world.ParseIPv4(fromActionData(pkt.Data))
	if !valid {
		return fail(wire.ReasonBadParameters)
	}
	if !s.AddBounce(ip) {
		return fail(wire.ReasonBounceLimit)
	}
	return ok()
}

func (d *Dispatcher) connectTarget(s *session.Session, pkt wire.ActionPacket) Result {
	ip, valid := world.ParseIPv4(fromActionData(pkt.Data))
	if !valid {
		return fail(wire.ReasonBadParameters)
	}
	switch d.world.PlayerConnect(s.ID, ip) {
	case world.ConnectNotFound:
		return fail(wire.ReasonUnknownTarget)
	case world.ConnectOffline:
		return fail(wire.ReasonTargetOffline)
	}
	s.ConnectedIP = ip
	return ok()
}

func (d *Dispatcher) disconnectAll(s *session.Session) Result {
	d.world.DisconnectAllSessions(s.ID)
	s.ConnectedIP = 0
	s.ClearBounces()
	return ok()
}

func (d *Dispatcher) requireConnected(s *session.Session) Result {
	if s.ConnectedIP == 0 {
		return fail(wire.ReasonNotConnected)
	}
	return ok()
}

func (d *Dispatcher) bypassSecurity(s *session.Session, pkt wire.ActionPacket) Result {
	if s.ConnectedIP == 0 {
		return fail(wire.ReasonNotConnected)
	}
	var bypassed bool
	switch wire.BypassSubsystem(pkt.Param1) {
	case wire.SubsystemProxy:
		bypassed = d.world.TryBypassProxy(s.ConnectedIP, s.UplinkRating)
	case wire.SubsystemFirewall:
		bypassed = d.world.TryBypassFirewall(s.ConnectedIP, s.UplinkRating)
	case wire.SubsystemMonitor:
		bypassed = d.world.TryBypassMonitor(s.ConnectedIP, s.UplinkRating)
	default:
		return fail(wire.ReasonBadParameters)
	}
	if !bypassed {
		return fail(wire.ReasonInsufficientBypass)
	}
	return ok()
}

// downloadFile requires the connected computer's firewall to already be
// bypassed; there is no file system in this implementation, so the effect
// is purely an access log entry recording the attempt.
func (d *Dispatcher) downloadFile(s *session.Session, pkt wire.ActionPacket) Result {
	c, res := d.requireFirewallBypassed(s)
	if !res.OK {
		return res
	}
	d.world.LogAccess(c.ID, s.ConnectedIP, "DOWNLOAD_FILE:"+fromActionData(pkt.Data), d.world.Clock().Now())
	return ok()
}

// uploadFile mirrors downloadFile for the opposite direction.
func (d *Dispatcher) uploadFile(s *session.Session, pkt wire.ActionPacket) Result {
	c, res := d.requireFirewallBypassed(s)
	if !res.OK {
		return res
	}
	d.world.LogAccess(c.ID, s.ConnectedIP, "UPLOAD_FILE:"+fromActionData(pkt.Data), d.world.Clock().Now())
	return ok()
}

// copyFile mirrors downloadFile but leaves the source file in place (no
// removal to model, since files aren't modeled at all here).
func (d *Dispatcher) copyFile(s *session.Session, pkt wire.ActionPacket) Result {
	c, res := d.requireFirewallBypassed(s)
	if !res.OK {
		return res
	}
	d.world.LogAccess(c.ID, s.ConnectedIP, "COPY_FILE:"+fromActionData(pkt.Data), d.world.Clock().Now())
	return ok()
}

// deleteFile requires every security subsystem on the connected computer to
// already be bypassed ("admin bypass").
func (d *Dispatcher) deleteFile(s *session.Session, pkt wire.ActionPacket) Result {
	if s.ConnectedIP == 0 {
		return fail(wire.ReasonNotConnected)
	}
	if !d.world.AllBypassed(s.ConnectedIP) {
		return fail(wire.ReasonInsufficientBypass)
	}
	c, found := d.world.FindComputer(s.ConnectedIP)
	if !found {
		return fail(wire.ReasonUnknownTarget)
	}
	d.world.LogAccess(c.ID, s.ConnectedIP, "DELETE_FILE", d.world.Clock().Now())
	return ok()
}

// deleteLog requires the connected computer's monitor to already be
// disabled: a player can only cover their own tracks once the trace system
// watching the machine has been taken down.
func (d *Dispatcher) deleteLog(s *session.Session, pkt wire.ActionPacket) Result {
	if _, res := d.requireMonitorDisabled(s); !res.OK {
		return res
	}
	if !d.world.DeleteLog(int64(pkt.TargetID)) {
		return fail(wire.ReasonBadParameters)
	}
	return ok()
}

// modifyLog requires the same monitor-disabled precondition as deleteLog,
// but rewrites the entry's action string instead of removing it.
func (d *Dispatcher) modifyLog(s *session.Session, pkt wire.ActionPacket) Result {
	if _, res := d.requireMonitorDisabled(s); !res.OK {
		return res
	}
	placeholder := fromActionData(pkt.Data)
	if placeholder == "" {
		placeholder = "REDACTED"
	}
	if !d.world.ModifyLog(int64(pkt.TargetID), placeholder) {
		return fail(wire.ReasonBadParameters)
	}
	return ok()
}

// shutdownSystem requires admin bypass on the target and takes it offline.
// Sessions already connected to it are not disconnected and stay on its
// connected list; only new connection attempts are refused.
func (d *Dispatcher) shutdownSystem(s *session.Session, pkt wire.ActionPacket) Result {
	if s.ConnectedIP == 0 {
		return fail(wire.ReasonNotConnected)
	}
	if !d.world.AllBypassed(s.ConnectedIP) {
		return fail(wire.ReasonInsufficientBypass)
	}
	if !d.world.SetRunning(s.ConnectedIP, false) {
		return fail(wire.ReasonUnknownTarget)
	}
	return ok()
}

// requireMonitorDisabled is the shared precondition for DELETE_LOG and
// MODIFY_LOG: the caller must be connected to a known computer whose
// monitor has already been disabled.
func (d *Dispatcher) requireMonitorDisabled(s *session.Session) (*world.Computer, Result) {
	if s.ConnectedIP == 0 {
		return nil, fail(wire.ReasonNotConnected)
	}
	c, found := d.world.FindComputer(s.ConnectedIP)
	if !found {
		return nil, fail(wire.ReasonUnknownTarget)
	}
	if !c.MonitorDisabled {
		return nil, fail(wire.ReasonInsufficientBypass)
	}
	return c, ok()
}

// requireFirewallBypassed is the shared precondition for the file transfer
// actions: the caller must be connected to a known computer whose firewall
// has already been bypassed.
func (d *Dispatcher) requireFirewallBypassed(s *session.Session) (*world.Computer, Result) {
	if s.ConnectedIP == 0 {
		return nil, fail(wire.ReasonNotConnected)
	}
	c, found := d.world.FindComputer(s.ConnectedIP)
	if !found {
		return nil, fail(wire.ReasonUnknownTarget)
	}
	if !c.FirewallBypassed {
		return nil, fail(wire.ReasonInsufficientBypass)
	}
	return c, ok()
}

// transferMoney: param1=amount, param2=src account id, targetId=dst account id.
func (d *Dispatcher) transferMoney(s *session.Session, pkt wire.ActionPacket) Result {
	amount := int64(pkt.Param1)
	if !d.world.TransferByID(int32(pkt.Param2), int32(pkt.TargetID), amount) {
		return fail(wire.ReasonInsufficientFunds)
	}
	return ok()
}

// framePlayer plants fabricated evidence against the victim named by
// targetId: a log entry, on the computer the caller is currently
// connected to, recording the victim's id as the accessor for the given
// crime. The client-side "you've been framed" notification the original
// also describes is not implemented; there is no channel here to push an
// unsolicited notice to a session that isn't the caller.
func (d *Dispatcher) framePlayer(s *session.Session, pkt wire.ActionPacket) Result {
	if s.ConnectedIP == 0 {
		return fail(wire.ReasonNotConnected)
	}
	c, found := d.world.FindComputer(s.ConnectedIP)
	if !found {
		return fail(wire.ReasonUnknownTarget)
	}
	d.world.LogAccess(c.ID, pkt.TargetID, fmt.Sprintf("FRAMED:crime=%d", pkt.Param1), d.world.Clock().Now())
	return ok()
}

func (d *Dispatcher) placeBounty(s *session.Session, pkt wire.ActionPacket) Result {
	amount := int64(pkt.Param1)
	if amount <= 0 || s.Credits < amount {
		return fail(wire.ReasonInsufficientFunds)
	}
	s.Credits -= amount
	return ok()
}

func fromActionData(data [64]byte) string {
	for i, c := range data {
		if c == 0 {
			return string(data[:i])
		}
	}
	return string(data[:])
}
