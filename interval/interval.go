/*
Package interval expands booking date/time ranges into absolute intervals.

PURPOSE:
  A booking carries an inclusive date range and an optional daily time
  window. Overlap detection needs concrete absolute timestamps, so this
  package converts the compact (dates, times) form into a list of
  [start, end) intervals:

  - No time window:      one continuous block covering every day
  - start < end times:   one slot per day (recurring daily slot)
  - start >= end times:  overnight slots spanning into the next day

KEY CONCEPTS:
  - TimeOfDay: wall-clock time within a day ("HH:MM")
  - TimeWindow: a start/end TimeOfDay pair attached to a Span
  - Span: the stored form of a booking's schedule
  - Interval: an absolute [Start, End) timestamp pair

Everything here is pure: no I/O, no clocks. Identical inputs always
produce identical output, which keeps the expansion trivially testable.

SEE ALSO:
  - booking/overlap.go: consumes expanded intervals for conflict checks
*/
package interval

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEndBeforeStart is returned when a span's end date precedes its start date.
	ErrEndBeforeStart = errors.New("end date before start date")

	// ErrHalfOpenWindow is returned when only one of start/end time is set.
	ErrHalfOpenWindow = errors.New("time window requires both start and end times")

	// ErrBadTimeOfDay is returned when a wall-clock string cannot be parsed.
	ErrBadTimeOfDay = errors.New("invalid time of day")
)

// =============================================================================
// TIME OF DAY
// =============================================================================

// TimeOfDay is a wall-clock time within a day, minute granularity.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour clock). The whole string must be
// the time: leading whitespace or trailing characters are rejected.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// MustTimeOfDay parses "HH:MM" and panics on failure. For constants and tests.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// On anchors the wall-clock time to a calendar day.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// Before reports whether t is strictly earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TimeWindow is the daily slot attached to a span. Start >= End means the
// slot crosses midnight into the following day.
type TimeWindow struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overnight reports whether the window spills into the next calendar day.
func (w TimeWindow) Overnight() bool {
	return !w.Start.Before(w.End)
}

// =============================================================================
// SPAN - the stored schedule of a booking
// =============================================================================

// Span is an inclusive calendar date range with an optional daily time
// window. A nil Window means the whole of every day is claimed.
type Span struct {
	StartDate time.Time
	EndDate   time.Time
	Window    *TimeWindow
}

// NewDaySpan builds a whole-day span.
func NewDaySpan(start, end time.Time) Span {
	return Span{StartDate: DateOnly(start), EndDate: DateOnly(end)}
}

// NewTimedSpan builds a span with a daily time window.
func NewTimedSpan(start, end time.Time, window TimeWindow) Span {
	return Span{StartDate: DateOnly(start), EndDate: DateOnly(end), Window: &window}
}

// Validate checks structural invariants without expanding.
func (s Span) Validate() error {
	if s.EndDate.Before(s.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// DatesIntersect is the coarse date-range filter used before interval
// expansion: inclusive ranges [a.start,a.end] and [b.start,b.end] touch
// when a.start <= b.end AND a.end >= b.start.
func (s Span) DatesIntersect(other Span) bool {
	return !s.StartDate.After(other.EndDate) && !s.EndDate.Before(other.StartDate)
}

// DateOnly truncates a timestamp to midnight, preserving the location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// =============================================================================
// INTERVAL - absolute [Start, End) pair
// =============================================================================

// Interval is a concrete absolute time range. End is exclusive: intervals
// that merely touch at a boundary do not overlap.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports strict overlap: a.Start < b.End && b.Start < a.End.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func (a Interval) String() string {
	return a.Start.Format("2006-01-02 15:04") + " .. " + a.End.Format("2006-01-02 15:04")
}

// AnyOverlap reports whether any pair across the two lists overlaps.
// Short-circuits on the first hit.
func AnyOverlap(as, bs []Interval) bool {
	for _, a := range as {
		for _, b := range bs {
			if a.Overlaps(b) {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// EXPANSION
// =============================================================================

// Expand converts a span into its concrete interval list.
//
// Whole-day spans produce a single continuous block ending at 23:59:59 on
// the last day. Timed spans produce one interval per day; overnight
// windows (start >= end) attach each day's slot to the following morning,
// so a span of n calendar days yields n-1 nights, except the single-day
// case which yields exactly one night.
//
// The result is never empty for a valid span.
func Expand(s Span) ([]Interval, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	start := DateOnly(s.StartDate)
	end := DateOnly(s.EndDate)

	if s.Window == nil {
		return []Interval{{
			Start: start,
			End:   end.Add(24*time.Hour - time.Second),
		}}, nil
	}

	w := *s.Window
	var out []Interval

	if !w.Overnight() {
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			out = append(out, Interval{Start: w.Start.On(day), End: w.End.On(day)})
		}
		return out, nil
	}

	// Overnight: each night runs from day d into day d+1. A single-date
	// span still books one full night.
	lastNight := end.AddDate(0, 0, -1)
	if end.Equal(start) {
		lastNight = start
	}
	for day := start; !day.After(lastNight); day = day.AddDate(0, 0, 1) {
		out = append(out, Interval{
			Start: w.Start.On(day),
			End:   w.End.On(day.AddDate(0, 0, 1)),
		})
	}
	return out, nil
}
