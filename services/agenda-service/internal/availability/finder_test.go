package availability

import (
	"context"
	"testing"
	"time"

	"github.com/espacoca/agenda/services/agenda-service/internal/calendar"
	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

type fakeSource struct {
	appointments []Interval
	blocks       []Interval
	overrides    map[string]model.ScheduleOverride
}

func (f *fakeSource) ConfirmedIntervals(ctx context.Context, from, to time.Time) ([]Interval, error) {
	return f.appointments, nil
}

func (f *fakeSource) BlockIntervals(ctx context.Context, from, to time.Time) ([]Interval, error) {
	return f.blocks, nil
}

func (f *fakeSource) OverridesBetween(ctx context.Context, from, to time.Time) (map[string]model.ScheduleOverride, error) {
	if f.overrides == nil {
		return map[string]model.ScheduleOverride{}, nil
	}
	return f.overrides, nil
}

var testLoc = time.FixedZone("-03", -3*60*60)

// local builds a business-local instant on 2026-02-03, a Tuesday.
func tuesday(h, m int) time.Time {
	return time.Date(2026, 2, 3, h, m, 0, 0, testLoc)
}

func times(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Date+" "+s.Time)
	}
	return out
}

func assertTimes(t *testing.T, slots []Slot, want []string) {
	t.Helper()
	got := times(slots)
	if len(got) != len(want) {
		t.Fatalf("got %d slots %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: got %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestFindSlotsEmptyDaySixtyMinutes(t *testing.T) {
	f := NewFinder(calendar.New(), &fakeSource{})
	day := tuesday(0, 0)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, testLoc)

	slots, err := f.FindSlots(context.Background(), &day, 60*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	// 11:00 and 11:30 collide with lunch; 10:00 ends exactly at lunch start
	// and is allowed (half-open), 12:00 starts exactly at lunch end.
	assertTimes(t, slots, []string{
		"2026-02-03 07:00",
		"2026-02-03 08:00",
		"2026-02-03 09:00",
		"2026-02-03 10:00",
		"2026-02-03 12:00",
	})
}

func TestFindSlotsSkipsBusyAppointment(t *testing.T) {
	src := &fakeSource{
		appointments: []Interval{{Start: tuesday(9, 0), End: tuesday(10, 0)}},
	}
	f := NewFinder(calendar.New(), src)
	day := tuesday(0, 0)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, testLoc)

	slots, err := f.FindSlots(context.Background(), &day, 30*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	// No offered start may land inside [08:30, 10:00): 08:30 would end at
	// 09:00 and is fine, but 07:00+30m, 07:30... walk forward; the first
	// start at or after the busy block is exactly 10:00.
	assertTimes(t, slots, []string{
		"2026-02-03 07:00",
		"2026-02-03 07:30",
		"2026-02-03 08:00",
		"2026-02-03 08:30",
		"2026-02-03 10:00",
	})
}

func TestFindSlotsSkipsBlock(t *testing.T) {
	src := &fakeSource{
		blocks: []Interval{{Start: tuesday(7, 0), End: tuesday(12, 0)}},
	}
	f := NewFinder(calendar.New(), src)
	day := tuesday(0, 0)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, testLoc)

	slots, err := f.FindSlots(context.Background(), &day, 60*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	assertTimes(t, slots, []string{
		"2026-02-03 12:00",
		"2026-02-03 13:00",
		"2026-02-03 14:00",
		"2026-02-03 15:00",
		"2026-02-03 16:00",
	})
}

func TestFindSlotsClosedDayEmpty(t *testing.T) {
	f := NewFinder(calendar.New(), &fakeSource{})
	sunday := time.Date(2026, 2, 1, 0, 0, 0, 0, testLoc)
	now := time.Date(2026, 1, 30, 10, 0, 0, 0, testLoc)

	slots, err := f.FindSlots(context.Background(), &sunday, 30*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("closed day must yield no slots, got %v", times(slots))
	}
}

func TestFindSlotsOverrideOpensClosedDay(t *testing.T) {
	src := &fakeSource{
		overrides: map[string]model.ScheduleOverride{
			"2026-02-01": {Date: "2026-02-01", IsOpen: true, Reason: "plantão"},
		},
	}
	f := NewFinder(calendar.New(), src)
	sunday := time.Date(2026, 2, 1, 0, 0, 0, 0, testLoc)
	now := time.Date(2026, 1, 30, 10, 0, 0, 0, testLoc)

	slots, err := f.FindSlots(context.Background(), &sunday, 60*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) != MaxSlots {
		t.Fatalf("override-opened Sunday should fill, got %v", times(slots))
	}
	if slots[0].Time != "07:00" {
		t.Fatalf("first slot should be at open, got %s", slots[0].Time)
	}
}

func TestFindSlotsOverrideClosesOpenDay(t *testing.T) {
	src := &fakeSource{
		overrides: map[string]model.ScheduleOverride{
			"2026-02-03": {Date: "2026-02-03", IsOpen: false, Reason: "feriado"},
		},
	}
	f := NewFinder(calendar.New(), src)
	day := tuesday(0, 0)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, testLoc)

	slots, err := f.FindSlots(context.Background(), &day, 30*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("override-closed day must yield no slots, got %v", times(slots))
	}
}

func TestFindSlotsPastDateClampsToToday(t *testing.T) {
	f := NewFinder(calendar.New(), &fakeSource{})
	past := time.Date(2026, 1, 20, 0, 0, 0, 0, testLoc)
	now := tuesday(6, 0)

	slots, err := f.FindSlots(context.Background(), &past, 60*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("clamped scan should offer today's slots")
	}
	if slots[0].Date != "2026-02-03" {
		t.Fatalf("expected today's date, got %s", slots[0].Date)
	}
}

func TestFindSlotsSameDayBufferAlignment(t *testing.T) {
	f := NewFinder(calendar.New(), &fakeSource{})
	day := tuesday(0, 0)
	// 09:40 + 30m buffer = 10:10, aligned up to 10:30.
	now := tuesday(9, 40)

	slots, err := f.FindSlots(context.Background(), &day, 30*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	assertTimes(t, slots, []string{
		"2026-02-03 10:30",
		"2026-02-03 12:00",
		"2026-02-03 12:30",
		"2026-02-03 13:00",
		"2026-02-03 13:30",
	})
}

func TestFindSlotsSameDayBufferAlreadyAligned(t *testing.T) {
	f := NewFinder(calendar.New(), &fakeSource{})
	day := tuesday(0, 0)
	// 13:30 + 30m buffer = 14:00 exactly; no extra rounding.
	now := tuesday(13, 30)

	slots, err := f.FindSlots(context.Background(), &day, 60*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) == 0 || slots[0].Time != "14:00" {
		t.Fatalf("expected first slot 14:00, got %v", times(slots))
	}
}

func TestFindSlotsRollingWindowSkipsClosedDays(t *testing.T) {
	f := NewFinder(calendar.New(), &fakeSource{})
	// Saturday evening, after close: today yields nothing, Sunday and
	// Monday are closed, so offers start on Tuesday.
	now := time.Date(2026, 1, 31, 19, 0, 0, 0, testLoc)

	slots, err := f.FindSlots(context.Background(), nil, 120*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("rolling window should find open days")
	}
	if slots[0].Date != "2026-02-03" {
		t.Fatalf("first open day should be Tuesday 2026-02-03, got %s", slots[0].Date)
	}
}

func TestFindSlotsStopsAtMaxSlots(t *testing.T) {
	f := NewFinder(calendar.New(), &fakeSource{})
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, testLoc)

	slots, err := f.FindSlots(context.Background(), nil, 30*time.Minute, now)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) != MaxSlots {
		t.Fatalf("got %d slots, want %d", len(slots), MaxSlots)
	}
}

func TestFindSlotsRejectsNonPositiveDuration(t *testing.T) {
	f := NewFinder(calendar.New(), &fakeSource{})
	if _, err := f.FindSlots(context.Background(), nil, 0, tuesday(8, 0)); err == nil {
		t.Fatal("expected error for zero duration")
	}
}
