package calendar

import (
	"testing"
	"time"

	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

func TestIsOpenWeeklyDefault(t *testing.T) {
	c := New()

	// 2026-02-03 is a Tuesday, 2026-02-01 a Sunday, 2026-02-02 a Monday.
	tuesday, _ := c.ParseDate("2026-02-03")
	sunday, _ := c.ParseDate("2026-02-01")
	monday, _ := c.ParseDate("2026-02-02")

	if !c.IsOpen(tuesday, nil) {
		t.Fatal("expected Tuesday open")
	}
	if c.IsOpen(sunday, nil) {
		t.Fatal("expected Sunday closed")
	}
	if c.IsOpen(monday, nil) {
		t.Fatal("expected Monday closed")
	}
}

func TestOverrideWinsBothDirections(t *testing.T) {
	c := New()
	sunday, _ := c.ParseDate("2026-02-01")
	tuesday, _ := c.ParseDate("2026-02-03")

	if !c.IsOpen(sunday, &model.ScheduleOverride{Date: "2026-02-01", IsOpen: true}) {
		t.Fatal("override should open a normally-closed Sunday")
	}
	if c.IsOpen(tuesday, &model.ScheduleOverride{Date: "2026-02-03", IsOpen: false, Reason: "feriado"}) {
		t.Fatal("override should close a normally-open Tuesday")
	}
}

func TestDayBoundsAndOpenAt(t *testing.T) {
	c := New()
	day, err := c.ParseDate("2026-02-03")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}

	from, to := c.DayBounds(day.Add(15 * time.Hour))
	if !from.Equal(day) {
		t.Fatalf("expected day start %s, got %s", day, from)
	}
	if !to.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("expected next midnight, got %s", to)
	}

	open := c.OpenAt(day)
	if open.Hour() != 7 || open.Minute() != 0 {
		t.Fatalf("expected 07:00 open, got %s", open)
	}
}

func TestLunchWindow(t *testing.T) {
	c := New()
	day, _ := c.ParseDate("2026-02-03")
	start, end := c.LunchWindow(day)
	if start.Hour() != 11 || end.Hour() != 12 {
		t.Fatalf("expected lunch 11:00-12:00, got %s-%s", start, end)
	}
}

func TestFixedOffset(t *testing.T) {
	c := New()
	// 14:00Z is 11:00 business-local under the fixed UTC-3 offset.
	instant := time.Date(2026, 2, 3, 14, 0, 0, 0, time.UTC)
	if got := instant.In(c.Location()).Hour(); got != 11 {
		t.Fatalf("expected business-local hour 11, got %d", got)
	}
	if c.DateKey(instant) != "2026-02-03" {
		t.Fatalf("unexpected date key %s", c.DateKey(instant))
	}
}
