package availability

import (
	"context"
	"errors"
	"time"

	"github.com/espacoca/agenda/services/agenda-service/internal/calendar"
	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

const (
	// MaxSlots bounds how many candidate slots a single lookup returns.
	MaxSlots = 5

	// slotStep is the fixed scan granularity; offered start times are always
	// aligned to it.
	slotStep = 30 * time.Minute

	// bookingBuffer keeps same-day offers at least this far ahead of now.
	bookingBuffer = 30 * time.Minute

	// scanDays is the rolling window searched when no date is requested.
	scanDays = 7
)

// Slot is a candidate start instant plus implied duration. It is an offer,
// not a persisted entity; booking-time validation is the enforcement point.
type Slot struct {
	Start time.Time `json:"start"`
	Date  string    `json:"date"`
	Time  string    `json:"time"`
	Label string    `json:"label"`
}

// Source provides the busy intervals and schedule overrides the finder scans
// against. Implemented by the Postgres store; faked in tests.
type Source interface {
	ConfirmedIntervals(ctx context.Context, from, to time.Time) ([]Interval, error)
	BlockIntervals(ctx context.Context, from, to time.Time) ([]Interval, error)
	OverridesBetween(ctx context.Context, from, to time.Time) (map[string]model.ScheduleOverride, error)
}

type Finder struct {
	cal *calendar.Calendar
	src Source
}

func NewFinder(cal *calendar.Calendar, src Source) *Finder {
	return &Finder{cal: cal, src: src}
}

// FindSlots returns up to MaxSlots free slots of the given duration, oldest
// first. With a requested day it scans only that civil day (clamped to today
// when in the past); otherwise it scans a rolling window of scanDays starting
// today. A requested day that resolves closed yields an empty result; the
// finder never silently searches adjacent days.
func (f *Finder) FindSlots(ctx context.Context, requestedDay *time.Time, serviceDuration time.Duration, now time.Time) ([]Slot, error) {
	if serviceDuration <= 0 {
		return nil, errors.New("service duration must be positive")
	}

	now = now.In(f.cal.Location())
	today := f.cal.Midnight(now)

	start := today
	days := scanDays
	if requestedDay != nil {
		start = f.cal.Midnight(*requestedDay)
		days = 1
		if start.Before(today) {
			start = today
		}
	}
	scanEnd := start.AddDate(0, 0, days)

	busyAppointments, err := f.src.ConfirmedIntervals(ctx, start, scanEnd)
	if err != nil {
		return nil, err
	}
	busyBlocks, err := f.src.BlockIntervals(ctx, start, scanEnd)
	if err != nil {
		return nil, err
	}
	overrides, err := f.src.OverridesBetween(ctx, start, scanEnd)
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, MaxSlots)
	for i := 0; i < days && len(slots) < MaxSlots; i++ {
		day := start.AddDate(0, 0, i)

		var override *model.ScheduleOverride
		if ov, ok := overrides[f.cal.DateKey(day)]; ok {
			override = &ov
		}
		if !f.cal.IsOpen(day, override) {
			continue
		}

		cursor := f.cal.OpenAt(day)
		if f.cal.SameDay(day, now) {
			if next := alignUp(now.Add(bookingBuffer)); cursor.Before(next) {
				cursor = next
			}
		}

		lunchStart, lunchEnd := f.cal.LunchWindow(day)
		for cursor.Hour() < f.cal.CloseHour() && len(slots) < MaxSlots {
			slotEnd := cursor.Add(serviceDuration)
			switch {
			case Overlaps(cursor, slotEnd, lunchStart, lunchEnd):
				cursor = cursor.Add(slotStep)
			case overlapsAny(cursor, slotEnd, busyAppointments):
				cursor = cursor.Add(slotStep)
			case overlapsAny(cursor, slotEnd, busyBlocks):
				cursor = cursor.Add(slotStep)
			default:
				slots = append(slots, newSlot(cursor))
				// Jump by the full service duration so the next offer cannot
				// start inside the occupancy just proposed.
				cursor = cursor.Add(serviceDuration)
			}
		}
	}
	return slots, nil
}

// alignUp rounds t up to the next slotStep boundary (already-aligned times
// stay put), discarding seconds.
func alignUp(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	if rem := t.Minute() % 30; rem > 0 {
		t = t.Add(time.Duration(30-rem) * time.Minute)
	}
	return t
}

func newSlot(start time.Time) Slot {
	return Slot{
		Start: start,
		Date:  start.Format("2006-01-02"),
		Time:  start.Format("15:04"),
		Label: start.Format("02/01 (Mon) 15:04"),
	}
}
