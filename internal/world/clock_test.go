package world

import (
	"testing"
	"time"
)

func TestNewClockStartsInactiveAtDefaultDate(t *testing.T) {
	c := NewClock()
	if c.Active() {
		t.Fatal("expected a new clock to start inactive")
	}
	got := c.Now()
	want := GameTime{Second: 1, Minute: 1, Hour: 1, Day: 1, Month: 1, Year: 1000}
	if got != want {
		t.Fatalf("Now() = %+v, want %+v", got, want)
	}
}

func TestSetDateNormalizesOutOfRangeFields(t *testing.T) {
	c := NewClock()
	c.SetDate(61, 0, 0, 0, 0, 3000) // 61 seconds, day 0, month 0
	got := c.Now()
	if got.Second != 1 || got.Minute != 1 {
		t.Fatalf("expected the 61-second overflow to carry into minute, got %+v", got)
	}
}

func TestUpdateIsNoOpUntilActivated(t *testing.T) {
	c := NewClock()
	if c.Update(time.Now()) {
		t.Fatal("expected Update to be a no-op on an inactive clock")
	}
}

func TestUpdateAdvancesOncePerRealSecond(t *testing.T) {
	c := NewClock()
	c.Activate()
	base := time.Unix(1000, 0)

	if c.Update(base) {
		t.Fatal("expected the first Update after Activate to just seed the baseline")
	}
	if c.Update(base.Add(500 * time.Millisecond)) {
		t.Fatal("expected Update to report no advance before a full real second elapses")
	}
	before := c.Now()
	if !c.Update(base.Add(1100 * time.Millisecond)) {
		t.Fatal("expected Update to advance once a full real second has elapsed")
	}
	after := c.Now()
	if after.Second != before.Second+1 {
		t.Fatalf("Second = %d, want %d", after.Second, before.Second+1)
	}
}

func TestAdvanceSecondCarriesIntoMinute(t *testing.T) {
	c := NewClock()
	c.SetDate(59, 0, 0, 1, 1, 1000)
	c.AdvanceSecond(1)
	got := c.Now()
	if got.Second != 0 || got.Minute != 1 {
		t.Fatalf("got %+v, want second=0 minute=1", got)
	}
}

func TestAdvanceDayUsesThirtyDayMonths(t *testing.T) {
	c := NewClock()
	c.SetDate(0, 0, 0, 30, 1, 1000)
	c.AdvanceDay(1)
	got := c.Now()
	if got.Day != 1 || got.Month != 2 {
		t.Fatalf("got %+v, want day=1 month=2 after a 30-day month rolls over", got)
	}
}

func TestAdvanceMonthCarriesIntoYear(t *testing.T) {
	c := NewClock()
	c.SetDate(0, 0, 0, 1, 12, 1000)
	c.AdvanceMonth(1)
	got := c.Now()
	if got.Month != 1 || got.Year != 1001 {
		t.Fatalf("got %+v, want month=1 year=1001", got)
	}
}

func TestAdvanceSecondBorrowsAcrossMinute(t *testing.T) {
	c := NewClock()
	c.SetDate(0, 1, 0, 1, 1, 1000)
	c.AdvanceSecond(-1)
	got := c.Now()
	if got.Second != 59 || got.Minute != 0 {
		t.Fatalf("got %+v, want second=59 minute=0 after borrowing", got)
	}
}

func TestMonthNameBounds(t *testing.T) {
	if MonthName(1) != "January" {
		t.Fatalf("MonthName(1) = %q, want January", MonthName(1))
	}
	if MonthName(12) != "December" {
		t.Fatalf("MonthName(12) = %q, want December", MonthName(12))
	}
	if MonthName(0) != "Unknown" || MonthName(13) != "Unknown" {
		t.Fatal("expected out-of-range months to report Unknown")
	}
}
