// Package slot parses customer-facing delivery slot labels ("4PM-6PM",
// "04:00PM - 06:00PM") into time windows and resolves them to the next
// occurrence on the calendar.
package slot

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

var ErrInvalidSlotFormat = errors.New("invalid slot format")

// clockLayout accepts one- or two-digit hours.
const clockLayout = "3:04PM"

// DisplayLayout is how slot boundaries and ETAs are rendered to customers.
const DisplayLayout = "03:04 PM"

func Format(t time.Time) string {
	return t.Format(DisplayLayout)
}

// RollPolicy decides when a slot that is already (partly) in the past refers
// to tomorrow instead of today.
type RollPolicy int

const (
	// RollForwardPastEnd moves the window to tomorrow once now is after the
	// window's end on the reference day. Used by the deadline check.
	RollForwardPastEnd RollPolicy = iota
	// RollForwardPastStart moves the window to tomorrow once the time of day
	// is past the slot start. Used by the dispatch-buffer ETA.
	RollForwardPastStart
)

func (p RollPolicy) String() string {
	switch p {
	case RollForwardPastEnd:
		return "past_end"
	case RollForwardPastStart:
		return "past_start"
	default:
		return fmt.Sprintf("RollPolicy(%d)", int(p))
	}
}

type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) Offset() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Window is a parsed slot, not yet tied to a calendar day.
type Window struct {
	Label string
	Start TimeOfDay
	End   TimeOfDay
}

// Resolved is a Window placed on a concrete calendar day.
type Resolved struct {
	Start          time.Time
	End            time.Time
	RollsToNextDay bool
}

func (r Resolved) String() string {
	return r.Start.Format(DisplayLayout) + " - " + r.End.Format(DisplayLayout)
}

// Parse normalises and parses a slot label. Halves without minutes ("4PM")
// get ":00" inserted before the meridiem suffix.
func Parse(raw string) (Window, error) {
	cleaned := strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw))

	parts := strings.Split(cleaned, "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidSlotFormat, raw)
	}

	start, err := parseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidSlotFormat, raw)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidSlotFormat, raw)
	}
	if start.Offset() >= end.Offset() {
		return Window{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidSlotFormat, raw)
	}

	return Window{Label: strings.TrimSpace(raw), Start: start, End: end}, nil
}

func parseClock(s string) (TimeOfDay, error) {
	if len(s) < 3 {
		return TimeOfDay{}, ErrInvalidSlotFormat
	}
	if len(s) <= 4 {
		hour, suffix := s[:len(s)-2], s[len(s)-2:]
		if len(hour) < 2 {
			hour = "0" + hour
		}
		s = hour + ":00" + suffix
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Resolve places the window on reference's calendar day (in reference's
// location) and rolls both ends forward exactly one day when policy says the
// slot has already gone by at now.
func (w Window) Resolve(reference, now time.Time, policy RollPolicy) Resolved {
	loc := reference.Location()
	y, m, d := reference.Date()
	start := time.Date(y, m, d, w.Start.Hour, w.Start.Minute, 0, 0, loc)
	end := time.Date(y, m, d, w.End.Hour, w.End.Minute, 0, 0, loc)

	var roll bool
	switch policy {
	case RollForwardPastStart:
		roll = sinceMidnight(now.In(loc)) > w.Start.Offset()
	default:
		roll = now.After(end)
	}
	if roll {
		start = start.AddDate(0, 0, 1)
		end = end.AddDate(0, 0, 1)
	}
	return Resolved{Start: start, End: end, RollsToNextDay: roll}
}

func sinceMidnight(t time.Time) time.Duration {
	y, m, d := t.Date()
	return t.Sub(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}

// ParseResolve is Parse followed by Resolve.
func ParseResolve(raw string, reference, now time.Time, policy RollPolicy) (Window, Resolved, error) {
	w, err := Parse(raw)
	if err != nil {
		return Window{}, Resolved{}, err
	}
	return w, w.Resolve(reference, now, policy), nil
}
