package site

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"wodbot/internal/booking"
)

// Activity is one parsed row of the day's timetable.
type Activity struct {
	Schedule booking.Range
	Label    string // activity name as rendered by the site
	Reserved int
	Capacity int

	// Bookable means the row carries an enabled plus-button.
	Bookable bool
	// Booked means the session user already holds a place in this class
	// (minus-button, or the widened row the site renders after booking).
	Booked bool

	// RowIndex is the 1-based tr position inside the activities table,
	// used to address the row's booking control when clicking.
	RowIndex int
}

// Free reports whether the class still has open places.
func (a Activity) Free() bool { return a.Reserved < a.Capacity }

// Timetable is the parsed activities table for one day.
type Timetable struct {
	Activities []Activity
}

// Find returns the activity covering the given time with the given class
// label, or nil.
func (t *Timetable) Find(at booking.Clock, class booking.ClassName) *Activity {
	for i := range t.Activities {
		a := &t.Activities[i]
		if a.Label == class.SiteLabel() && a.Schedule.Contains(at) {
			return a
		}
	}
	return nil
}

var (
	errNoActivitiesTable = errors.New("activities table not found")

	// Reservas column, e.g. "(13/15)".
	rePlaces = regexp.MustCompile(`\(\s*(\d+)\s*/\s*(\d+)\s*\)`)
)

// parseTimetable extracts the day's activities from the rendered page.
//
// The page shows two striped tables: the first is the month calendar,
// the second (present only after a day is selected) lists that day's
// classes. Each class row is (Horario | Actividad | Reservas | Reservar);
// rows the user is already registered in are rendered wider.
func parseTimetable(html string) (*Timetable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tables := doc.Find("table.table-striped")
	if tables.Length() < 2 {
		return nil, errNoActivitiesTable
	}
	table := tables.Eq(1)

	var tt Timetable
	var rowErr error
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		// Row 0 titles the day, row 1 holds the column names.
		if i < 2 || rowErr != nil {
			return
		}
		a, err := parseActivityRow(i+1, row)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i+1, err)
			return
		}
		if a != nil {
			tt.Activities = append(tt.Activities, *a)
		}
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return &tt, nil
}

func parseActivityRow(index int, row *goquery.Selection) (*Activity, error) {
	cells := row.Find("td")
	switch {
	case cells.Length() == 0:
		return nil, nil // th-only or decorative row
	case cells.Length() < 4:
		return nil, fmt.Errorf("expected 4 cells, got %d", cells.Length())
	}

	sched, err := parseScheduleRange(cellText(cells.Eq(0)))
	if err != nil {
		return nil, err
	}

	a := Activity{
		Schedule: sched,
		Label:    cellText(cells.Eq(1)),
		RowIndex: index,
	}

	if a.Reserved, a.Capacity, err = parsePlaces(cellText(cells.Eq(2))); err != nil {
		return nil, err
	}

	if cells.Length() > 4 {
		// The site widens the row once you hold a reservation in it.
		a.Booked = true
		return &a, nil
	}

	book := cells.Eq(3)
	if book.Find("a").Length() > 0 {
		icon, _ := book.Find("span").Attr("class")
		switch {
		case strings.Contains(icon, "minus"):
			a.Booked = true
		default:
			a.Bookable = true
		}
	}
	return &a, nil
}

// parseScheduleRange parses the Horario column, e.g. "11:00 - 13:00".
func parseScheduleRange(s string) (booking.Range, error) {
	parts := strings.Split(s, " - ")
	if len(parts) != 2 {
		return booking.Range{}, fmt.Errorf("invalid schedule %q", s)
	}
	start, err := booking.ParseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return booking.Range{}, err
	}
	end, err := booking.ParseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return booking.Range{}, err
	}
	return booking.Range{Start: start, End: end}, nil
}

// parsePlaces parses the Reservas column, e.g. "(13/15)".
func parsePlaces(s string) (reserved, capacity int, err error) {
	m := rePlaces.FindStringSubmatch(s)
	if len(m) != 3 {
		return 0, 0, fmt.Errorf("invalid places %q", s)
	}
	reserved, _ = strconv.Atoi(m[1])
	capacity, _ = strconv.Atoi(m[2])
	return reserved, capacity, nil
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
