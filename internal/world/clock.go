package world

import (
	"fmt"
	"time"
)

// GameTime is a snapshot of the in-game calendar, used both as the
// authoritative clock state and as the timestamp recorded on access log
// entries. Months use 30-day game convention, not Gregorian arithmetic.
type GameTime struct {
	Second uint8
	Minute uint8
	Hour   uint8
	Day    uint8
	Month  uint8
	Year   uint16
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name for a 1-12 month value, or "Unknown"
// outside that range.
func MonthName(month uint8) string {
	if month >= 1 && month <= 12 {
		return monthNames[month-1]
	}
	return "Unknown"
}

// Clock is the authoritative in-game calendar. One real second advances the
// clock by one simulated second while Active; the server starts it inactive
// until CreateWorld sets and activates a start date.
type Clock struct {
	t              GameTime
	active         bool
	lastRealAdvance time.Time
}

// NewClock returns an inactive clock at second 1, minute 1, hour 1, day 1,
// month 1, year 1000 — the ServerDate default.
func NewClock() *Clock {
	return &Clock{t: GameTime{Second: 1, Minute: 1, Hour: 1, Day: 1, Month: 1, Year: 1000}}
}

// SetDate overwrites every field and normalizes any out-of-range value by
// applying a zero delta to each field from second up to month, so
// carries/borrows cascade up through minute, hour, day, month, and year.
func (c *Clock) SetDate(second, minute, hour, day, month int, year int) {
	c.t = GameTime{
		Second: uint8(second), Minute: uint8(minute), Hour: uint8(hour),
		Day: uint8(day), Month: uint8(month), Year: uint16(year),
	}
	c.AdvanceSecond(0)
	c.AdvanceMinute(0)
	c.AdvanceHour(0)
	c.AdvanceDay(0)
	c.AdvanceMonth(0)
}

// Activate starts real-time advancement; Update becomes a no-op until this
// is called.
func (c *Clock) Activate() { c.active = true; c.lastRealAdvance = time.Time{} }

// Deactivate pauses real-time advancement without resetting the date.
func (c *Clock) Deactivate() { c.active = false }

// Active reports whether the clock currently advances with real time.
func (c *Clock) Active() bool { return c.active }

// Now returns the current in-game date.
func (c *Clock) Now() GameTime { return c.t }

// Update advances the clock by one game second once at least one real
// second has elapsed since the last advance, and reports whether it did.
// This is the game-tick cadence's per-tick clock check (§4.7).
func (c *Clock) Update(realNow time.Time) bool {
	if !c.active {
		return false
	}
	if c.lastRealAdvance.IsZero() {
		c.lastRealAdvance = realNow
		return false
	}
	if realNow.Sub(c.lastRealAdvance) < time.Second {
		return false
	}
	c.AdvanceSecond(1)
	c.lastRealAdvance = realNow
	return true
}

// AdvanceSecond applies a (possibly negative) delta to the second field,
// cascading carries into AdvanceMinute on overflow and borrows on underflow.
func (c *Clock) AdvanceSecond(n int) {
	s := int(c.t.Second) + n
	if s > 59 {
		carry := 1 + (s-60)/60
		c.t.Second = uint8(s % 60)
		c.AdvanceMinute(carry)
		return
	}
	if s < 0 {
		borrow := 1 + (-s-1)/60
		c.t.Second = uint8(s + 60*borrow)
		c.AdvanceMinute(-borrow)
		return
	}
	c.t.Second = uint8(s)
}

// AdvanceMinute mirrors AdvanceSecond one field up the calendar.
func (c *Clock) AdvanceMinute(n int) {
	m := int(c.t.Minute) + n
	if m > 59 {
		carry := 1 + (m-60)/60
		c.t.Minute = uint8(m % 60)
		c.AdvanceHour(carry)
		return
	}
	if m < 0 {
		borrow := 1 + (-m-1)/60
		c.t.Minute = uint8(m + 60*borrow)
		c.AdvanceHour(-borrow)
		return
	}
	c.t.Minute = uint8(m)
}

// AdvanceHour mirrors AdvanceSecond one field up the calendar.
func (c *Clock) AdvanceHour(n int) {
	h := int(c.t.Hour) + n
	if h > 23 {
		carry := 1 + (h-24)/24
		c.t.Hour = uint8(h % 24)
		c.AdvanceDay(carry)
		return
	}
	if h < 0 {
		borrow := 1 + (-h-1)/24
		c.t.Hour = uint8(h + 24*borrow)
		c.AdvanceDay(-borrow)
		return
	}
	c.t.Hour = uint8(h)
}

// AdvanceDay uses 30-day months by deliberate game convention, not
// Gregorian arithmetic.
func (c *Clock) AdvanceDay(n int) {
	d := int(c.t.Day) + n
	if d > 30 {
		carry := (d - 1) / 30
		c.t.Day = uint8((d-1)%30 + 1)
		c.AdvanceMonth(carry)
		return
	}
	if d < 1 {
		borrow := 1 + (-d)/30
		c.t.Day = uint8(d + 30*borrow)
		c.AdvanceMonth(-borrow)
		return
	}
	c.t.Day = uint8(d)
}

// AdvanceMonth mirrors AdvanceSecond one field up the calendar, wrapping
// into AdvanceYear on overflow or underflow.
func (c *Clock) AdvanceMonth(n int) {
	m := int(c.t.Month) + n
	if m > 12 {
		carry := (m - 1) / 12
		c.t.Month = uint8(((m - 1) % 12) + 1)
		c.AdvanceYear(carry)
		return
	}
	if m < 1 {
		borrow := 1 + (-m)/12
		c.t.Month = uint8(m + 12*borrow)
		c.AdvanceYear(-borrow)
		return
	}
	c.t.Month = uint8(m)
}

// AdvanceYear is terminal: there is nothing above year to carry into.
func (c *Clock) AdvanceYear(n int) {
	c.t.Year = uint16(int(c.t.Year) + n)
}

// LongString renders the date the way the original ServerDate::GetLongString
// did, for startup/shutdown log lines.
func (c *Clock) LongString() string {
	t := c.t
	return fmt.Sprintf("%02d:%02d.%02d, %d %s %d", t.Hour, t.Minute, t.Second, t.Day, MonthName(t.Month), t.Year)
}
