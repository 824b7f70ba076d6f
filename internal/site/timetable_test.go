package site

import (
	"testing"

	"wodbot/internal/booking"
)

const dayHTML = `<html><body>
<table class="table-striped"><tr><td>calendar</td></tr></table>
<table class="table-striped">
<tr><td colspan="4">Actividades del día 22</td></tr>
<tr><td>Horario</td><td>Actividad</td><td>Reservas</td><td>Reservar</td></tr>
<tr><td>11:00 - 13:00</td><td>Open Box</td><td>(13/15)</td><td><a href="#"><span class="glyphicon glyphicon-plus"></span></a></td></tr>
<tr><td>18:00 - 19:00</td><td>Crossfit</td><td>(15/15)</td><td>Completo</td></tr>
<tr><td>19:00 - 20:00</td><td>Halterofília</td><td>(4/10)</td><td><a href="#"><span class="glyphicon glyphicon-minus"></span></a></td></tr>
<tr><td>20:00 - 21:00</td><td>Calisteni</td><td>(9/10)</td><td><a href="#"><span class="glyphicon glyphicon-plus"></span></a></td></tr>
</table>
</body></html>`

func TestParseTimetable(t *testing.T) {
	t.Parallel()
	tt, err := parseTimetable(dayHTML)
	if err != nil {
		t.Fatalf("parseTimetable: %v", err)
	}
	if len(tt.Activities) != 4 {
		t.Fatalf("expected 4 activities, got %d", len(tt.Activities))
	}

	open := tt.Activities[0]
	if open.Label != "Open Box" || open.Reserved != 13 || open.Capacity != 15 {
		t.Fatalf("unexpected first row: %+v", open)
	}
	if !open.Bookable || open.Booked || !open.Free() {
		t.Fatalf("first row should be free and bookable: %+v", open)
	}
	if open.RowIndex != 3 {
		t.Fatalf("first activity row index = %d, want 3", open.RowIndex)
	}

	full := tt.Activities[1]
	if full.Free() || full.Bookable || full.Booked {
		t.Fatalf("full class should be neither free nor bookable: %+v", full)
	}

	mine := tt.Activities[2]
	if !mine.Booked || mine.Bookable {
		t.Fatalf("minus-icon row should be booked: %+v", mine)
	}
}

func TestParseTimetableFind(t *testing.T) {
	t.Parallel()
	tt, err := parseTimetable(dayHTML)
	if err != nil {
		t.Fatalf("parseTimetable: %v", err)
	}

	tests := []struct {
		at    string
		class booking.ClassName
		found bool
	}{
		{at: "11:00", class: booking.OpenBox, found: true}, // class start matches
		{at: "12:30", class: booking.OpenBox, found: true},
		{at: "13:00", class: booking.OpenBox, found: false}, // end is exclusive
		{at: "18:00", class: booking.Crossfit, found: true},
		{at: "19:30", class: booking.Weightlifting, found: true},
		{at: "20:30", class: booking.Calisthenics, found: true},
		{at: "18:00", class: booking.OpenBox, found: false}, // wrong class at that hour
	}
	for _, tc := range tests {
		at, err := booking.ParseClock(tc.at)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", tc.at, err)
		}
		got := tt.Find(at, tc.class)
		if (got != nil) != tc.found {
			t.Fatalf("Find(%s, %s): found=%v, want %v", tc.at, tc.class, got != nil, tc.found)
		}
	}
}

func TestParseTimetableRegisteredRow(t *testing.T) {
	t.Parallel()
	// After booking, the site renders the row with extra cells.
	html := `<table class="table-striped"><tr><td>cal</td></tr></table>
<table class="table-striped">
<tr><td colspan="4">Actividades</td></tr>
<tr><td>Horario</td><td>Actividad</td><td>Reservas</td><td>Reservar</td></tr>
<tr><td>18:00 - 19:00</td><td>Crossfit</td><td>(10/15)</td><td>x</td><td>extra</td></tr>
</table>`
	tt, err := parseTimetable(html)
	if err != nil {
		t.Fatalf("parseTimetable: %v", err)
	}
	if len(tt.Activities) != 1 || !tt.Activities[0].Booked {
		t.Fatalf("wide row should parse as booked: %+v", tt.Activities)
	}
}

func TestParseTimetableMissingTable(t *testing.T) {
	t.Parallel()
	if _, err := parseTimetable(`<table class="table-striped"><tr><td>only calendar</td></tr></table>`); err == nil {
		t.Fatal("expected error when activities table is missing")
	}
	if _, err := parseTimetable(`<p>site relaunch</p>`); err == nil {
		t.Fatal("expected error for unrecognized layout")
	}
}

func TestParsePlaces(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in       string
		reserved int
		capacity int
		ok       bool
	}{
		{in: "(13/15)", reserved: 13, capacity: 15, ok: true},
		{in: "(15/15)", reserved: 15, capacity: 15, ok: true},
		{in: "( 4 / 10 )", reserved: 4, capacity: 10, ok: true},
		{in: "13/15", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		r, c, err := parsePlaces(tt.in)
		if tt.ok != (err == nil) {
			t.Fatalf("parsePlaces(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
		}
		if tt.ok && (r != tt.reserved || c != tt.capacity) {
			t.Fatalf("parsePlaces(%q) = %d/%d", tt.in, r, c)
		}
	}
}
