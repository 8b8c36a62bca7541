package temporal

import (
	"fmt"
	"time"

	"github.com/Talha654/overlayPix-backend/internal/models"
)

// MaxEventDuration bounds a single event window.
const MaxEventDuration = 24 * time.Hour

// Clock is a wall-clock time of day.
type Clock struct {
	Hour, Minute int
}

func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

// ParseClock parses a 24h "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, errH := twoDigits(s[0:2])
	m, errM := twoDigits(s[3:5])
	if errH != nil || errM != nil || h > 23 || m > 59 {
		return Clock{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func twoDigits(s string) (int, error) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, fmt.Errorf("not digits")
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), nil
}

// LoadZone resolves an IANA zone name; empty means UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", name, err)
	}
	return loc, nil
}

// Window is the absolute span of an event.
type Window struct {
	Start           time.Time
	End             time.Time
	NominalDuration time.Duration
	Overnight       bool
}

// ComposeWindow anchors start and end clock times to the calendar date of
// date (taken in UTC) in zone tz. An end at or before the start rolls to the
// next day.
func ComposeWindow(date time.Time, start, end, tz string) (Window, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return Window{}, err
	}
	sc, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	ec, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	y, mo, d := date.UTC().Date()

	w := Window{
		Start: time.Date(y, mo, d, sc.Hour, sc.Minute, 0, 0, loc),
		End:   time.Date(y, mo, d, ec.Hour, ec.Minute, 0, 0, loc),
	}
	nominal := ec.Minutes() - sc.Minutes()
	if ec.Minutes() <= sc.Minutes() {
		w.End = time.Date(y, mo, d+1, ec.Hour, ec.Minute, 0, 0, loc)
		w.Overnight = true
		nominal += 24 * 60
	}
	w.NominalDuration = time.Duration(nominal) * time.Minute
	if w.NominalDuration > MaxEventDuration {
		return Window{}, fmt.Errorf("event cannot last longer than 24 hours")
	}
	w.Start, w.End = w.Start.UTC(), w.End.UTC()
	return w, nil
}

// EventEnd returns the end instant of ev, preferring the stored EventEndDate.
func EventEnd(ev *models.Event) (time.Time, error) {
	if ev == nil {
		return time.Time{}, fmt.Errorf("nil event")
	}
	if ev.EventEndDate != nil && !ev.EventEndDate.IsZero() {
		return ev.EventEndDate.UTC(), nil
	}
	w, err := ComposeWindow(ev.EventDate, ev.EventStartTime, ev.EventEndTime, ev.TimeZone)
	if err != nil {
		return time.Time{}, err
	}
	return w.End, nil
}

// IsEventActive reports whether now is at or before the event end.
// Events whose end cannot be derived are treated as ended.
func IsEventActive(ev *models.Event, now time.Time) bool {
	if ev == nil || ev.Status == models.EventStatusExpired {
		return false
	}
	end, err := EventEnd(ev)
	if err != nil {
		return false
	}
	return !now.After(end)
}

// StorageExpiry is the event date in the event zone plus the retained days.
func StorageExpiry(ev *models.Event) (time.Time, error) {
	if ev == nil {
		return time.Time{}, fmt.Errorf("nil event")
	}
	loc, err := LoadZone(ev.TimeZone)
	if err != nil {
		return time.Time{}, err
	}
	return ev.EventDate.In(loc).AddDate(0, 0, ev.CustomPlan.StorageDays).UTC(), nil
}

// IsStorageExpired reports whether now is past the retention window.
func IsStorageExpired(ev *models.Event, now time.Time) bool {
	exp, err := StorageExpiry(ev)
	if err != nil {
		return true
	}
	return now.After(exp)
}
