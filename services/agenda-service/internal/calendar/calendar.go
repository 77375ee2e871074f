package calendar

import (
	"strconv"
	"strings"
	"time"

	"github.com/espacoca/agenda/libs/config"
	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

// Calendar resolves business-local time for a single-resource agenda: a fixed
// civil timezone, a weekly default of closed weekdays, the daily open/close
// window and the lunch window. Per-date overrides always win over the weekly
// default, in both directions.
type Calendar struct {
	loc            *time.Location
	closedWeekdays map[time.Weekday]bool
	openHour       int
	closeHour      int
	lunchStartMin  int
	lunchEndMin    int
}

// New returns the deployment default: UTC-3 (no DST in-region), closed on
// Sunday and Monday, open 07:00-18:00, lunch 11:00-12:00.
func New() *Calendar {
	return &Calendar{
		loc:            time.FixedZone("-03", -3*60*60),
		closedWeekdays: map[time.Weekday]bool{time.Sunday: true, time.Monday: true},
		openHour:       7,
		closeHour:      18,
		lunchStartMin:  11 * 60,
		lunchEndMin:    12 * 60,
	}
}

// FromEnv builds a Calendar from environment variables, falling back to the
// defaults of New for anything unset or malformed.
func FromEnv() *Calendar {
	c := New()

	if off := config.Int("BUSINESS_UTC_OFFSET_HOURS", -3); off >= -12 && off <= 14 {
		name := "UTC" + strconv.Itoa(off)
		if off < 0 {
			name = strconv.Itoa(off)
		} else if off > 0 {
			name = "+" + strconv.Itoa(off)
		}
		c.loc = time.FixedZone(name, off*60*60)
	}
	if raw := config.String("CLOSED_WEEKDAYS", "0,1"); raw != "" {
		closed := map[time.Weekday]bool{}
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 0 || n > 6 {
				continue
			}
			closed[time.Weekday(n)] = true
		}
		c.closedWeekdays = closed
	}
	if h := config.Int("OPEN_HOUR", 7); h >= 0 && h < 24 {
		c.openHour = h
	}
	if h := config.Int("CLOSE_HOUR", 18); h > c.openHour && h <= 24 {
		c.closeHour = h
	}
	if m, ok := parseClock(config.String("LUNCH_START", "11:00")); ok {
		c.lunchStartMin = m
	}
	if m, ok := parseClock(config.String("LUNCH_END", "12:00")); ok && m > c.lunchStartMin {
		c.lunchEndMin = m
	}
	return c
}

func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func (c *Calendar) Location() *time.Location { return c.loc }

func (c *Calendar) OpenHour() int  { return c.openHour }
func (c *Calendar) CloseHour() int { return c.closeHour }

// IsOpen reports whether the business operates on the civil day containing t.
// An override, when present, wins regardless of direction: it can open a
// normally-closed day or close a normally-open one.
func (c *Calendar) IsOpen(t time.Time, override *model.ScheduleOverride) bool {
	if override != nil {
		return override.IsOpen
	}
	return !c.closedWeekdays[t.In(c.loc).Weekday()]
}

// Midnight returns 00:00 business-local of the civil day containing t.
func (c *Calendar) Midnight(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
}

// DayBounds returns the half-open instant interval covering the civil day
// containing t.
func (c *Calendar) DayBounds(t time.Time) (time.Time, time.Time) {
	start := c.Midnight(t)
	return start, start.AddDate(0, 0, 1)
}

// OpenAt returns the opening instant of the civil day containing t.
func (c *Calendar) OpenAt(t time.Time) time.Time {
	return c.Midnight(t).Add(time.Duration(c.openHour) * time.Hour)
}

// LunchWindow returns the lunch interval of the civil day containing t.
func (c *Calendar) LunchWindow(t time.Time) (time.Time, time.Time) {
	mid := c.Midnight(t)
	return mid.Add(time.Duration(c.lunchStartMin) * time.Minute),
		mid.Add(time.Duration(c.lunchEndMin) * time.Minute)
}

// DateKey formats t's business-local civil date as YYYY-MM-DD.
func (c *Calendar) DateKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD civil date into its business-local midnight.
func (c *Calendar) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), c.loc)
}

// SameDay reports whether a and b fall on the same business-local civil day.
func (c *Calendar) SameDay(a, b time.Time) bool {
	return c.Midnight(a).Equal(c.Midnight(b))
}
