package booking

import (
	"fmt"
	"time"
)

// Date is a civil calendar date. The site's calendar works in local wall
// time, so there is no timezone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses the dd/mm/yyyy form used by the config file.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want dd/mm/yyyy): %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// Clock is a time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses the hh:mm form used by the config file and the
// timetable's schedule column.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q (want hh:mm): %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c Clock) Before(o Clock) bool {
	if c.Hour != o.Hour {
		return c.Hour < o.Hour
	}
	return c.Minute < o.Minute
}

// Range is the span a class occupies on the timetable, e.g. 11:00 - 13:00.
type Range struct {
	Start Clock
	End   Clock
}

// Contains reports whether a class spanning the range covers t.
// The start is inclusive so a slot requested at exactly the class start
// time matches.
func (r Range) Contains(t Clock) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Slot is one desired (date, time, class) reservation target. The target
// set is fixed for the whole run; slots are unique per (Date, Time).
type Slot struct {
	Date  Date
	Time  Clock
	Class ClassName
}

// Key identifies the slot by its (date, time) pair.
func (s Slot) Key() string { return s.Date.String() + " " + s.Time.String() }

func (s Slot) String() string {
	return fmt.Sprintf("%s %s %s", s.Date, s.Time, s.Class)
}
