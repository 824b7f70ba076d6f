package site

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"wodbot/internal/booking"
	"wodbot/pkg/logx"
)

func noplog() logx.Logger { return logx.Nop() }

// fakeDriver scripts page behavior per selector and records every action.
type fakeDriver struct {
	// pages is consumed one entry per Content() call; the last entry
	// repeats once the script runs out.
	pages []string

	failWait     map[string]error
	failClick    map[string]error
	failNavigate error

	actions []string
	closed  int
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	f.actions = append(f.actions, "navigate "+url)
	return f.failNavigate
}

func (f *fakeDriver) Click(_ context.Context, sel string) error {
	f.actions = append(f.actions, "click "+sel)
	if err := f.failClick[sel]; err != nil {
		return err
	}
	return nil
}

func (f *fakeDriver) Fill(_ context.Context, sel, value string) error {
	f.actions = append(f.actions, fmt.Sprintf("fill %s=%s", sel, value))
	return nil
}

func (f *fakeDriver) WaitVisible(_ context.Context, sel string, _ time.Duration) error {
	f.actions = append(f.actions, "wait "+sel)
	if err := f.failWait[sel]; err != nil {
		return err
	}
	return nil
}

func (f *fakeDriver) Text(context.Context, string) (string, error) { return "", nil }

func (f *fakeDriver) Content(context.Context) (string, error) {
	if len(f.pages) == 0 {
		return "", errors.New("no scripted page")
	}
	page := f.pages[0]
	if len(f.pages) > 1 {
		f.pages = f.pages[1:]
	}
	return page, nil
}

func (f *fakeDriver) URL() string { return "" }

func (f *fakeDriver) Close() error {
	f.closed++
	return nil
}

func (f *fakeDriver) did(action string) bool {
	for _, a := range f.actions {
		if strings.HasPrefix(a, action) {
			return true
		}
	}
	return false
}

// fastCfg keeps the rate limiter out of the way in tests.
func fastCfg() Config { return Config{ActionsPerSec: 10000} }

func testSlot(t *testing.T, date, at string, class booking.ClassName) booking.Slot {
	t.Helper()
	d, err := booking.ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	c, err := booking.ParseClock(at)
	if err != nil {
		t.Fatal(err)
	}
	return booking.Slot{Date: d, Time: c, Class: class}
}

func TestOpenSubmitsCredentials(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{}
	_, err := Open(context.Background(), drv, fastCfg(), Credentials{Username: "u@example.com", Password: "pw"}, noplog())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	want := []string{
		"navigate " + DefaultLoginURL,
		"wait " + selUsername,
		"fill " + selUsername + "=u@example.com",
		"fill " + selPassword + "=pw",
		"click " + selLoginSubmit,
		"wait " + selCalendar,
	}
	if len(drv.actions) != len(want) {
		t.Fatalf("actions = %v", drv.actions)
	}
	for i := range want {
		if drv.actions[i] != want[i] {
			t.Fatalf("action[%d] = %q, want %q", i, drv.actions[i], want[i])
		}
	}
}

func TestOpenAuthError(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{failWait: map[string]error{selCalendar: errors.New("timeout")}}
	_, err := Open(context.Background(), drv, fastCfg(), Credentials{Username: "u", Password: "p"}, noplog())
	if err == nil {
		t.Fatal("expected error")
	}
	var aerr *AuthError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
}

func openTestClient(t *testing.T, drv *fakeDriver) *Client {
	t.Helper()
	c, err := Open(context.Background(), drv, fastCfg(), Credentials{Username: "u", Password: "p"}, noplog())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	drv.actions = nil
	return c
}

func TestIsAvailable(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{pages: []string{dayHTML}}
	c := openTestClient(t, drv)

	avail, err := c.IsAvailable(context.Background(), testSlot(t, "22/11/2025", "11:30", booking.OpenBox))
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if !avail {
		t.Fatal("open box 11:30 should be available")
	}
	if !drv.did(`click a:text-is("22")`) {
		t.Fatalf("day link never clicked: %v", drv.actions)
	}

	avail, err = c.IsAvailable(context.Background(), testSlot(t, "22/11/2025", "18:30", booking.Crossfit))
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if avail {
		t.Fatal("full crossfit class should not be available")
	}
}

func TestIsAvailableScanError(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{pages: []string{`<p>layout changed</p>`}}
	c := openTestClient(t, drv)

	_, err := c.IsAvailable(context.Background(), testSlot(t, "22/11/2025", "11:30", booking.OpenBox))
	var serr *ScanError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *ScanError, got %T: %v", err, err)
	}

	// A matching day with no row for the class is also a scan error.
	drv.pages = []string{dayHTML}
	_, err = c.IsAvailable(context.Background(), testSlot(t, "22/11/2025", "07:00", booking.Crossfit))
	if !errors.As(err, &serr) {
		t.Fatalf("expected *ScanError for missing row, got %T: %v", err, err)
	}
}

const dayHTMLBooked = `<table class="table-striped"><tr><td>cal</td></tr></table>
<table class="table-striped">
<tr><td colspan="4">Actividades</td></tr>
<tr><td>Horario</td><td>Actividad</td><td>Reservas</td><td>Reservar</td></tr>
<tr><td>11:00 - 13:00</td><td>Open Box</td><td>(14/15)</td><td><a href="#"><span class="glyphicon glyphicon-minus"></span></a></td></tr>
</table>`

const dayHTMLFull = `<table class="table-striped"><tr><td>cal</td></tr></table>
<table class="table-striped">
<tr><td colspan="4">Actividades</td></tr>
<tr><td>Horario</td><td>Actividad</td><td>Reservas</td><td>Reservar</td></tr>
<tr><td>11:00 - 13:00</td><td>Open Box</td><td>(15/15)</td><td>Completo</td></tr>
</table>`

func TestAlreadyBookedSlotSettlesWithoutClick(t *testing.T) {
	t.Parallel()
	// A class we already hold scans as available and reserves as an
	// immediate success, so the loop can settle it on the first pass.
	drv := &fakeDriver{pages: []string{dayHTMLBooked}}
	c := openTestClient(t, drv)
	s := testSlot(t, "22/11/2025", "11:30", booking.OpenBox)

	avail, err := c.IsAvailable(context.Background(), s)
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if !avail {
		t.Fatal("a held place should scan as available")
	}

	out, err := c.Reserve(context.Background(), s)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !out.Success {
		t.Fatal("expected success for a held place")
	}
	if drv.did("click " + bookSelector(3)) {
		t.Fatalf("must not click a class we already hold: %v", drv.actions)
	}
}

func TestReserveSuccess(t *testing.T) {
	t.Parallel()
	// First load shows a free place; the verification load shows us booked.
	drv := &fakeDriver{pages: []string{dayHTML, dayHTMLBooked}}
	c := openTestClient(t, drv)

	out, err := c.Reserve(context.Background(), testSlot(t, "22/11/2025", "11:30", booking.OpenBox))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !out.Success {
		t.Fatal("expected successful reservation")
	}
	if !drv.did("click " + bookSelector(3)) {
		t.Fatalf("book button never clicked: %v", drv.actions)
	}
}

func TestReserveLostRace(t *testing.T) {
	t.Parallel()
	// The place disappears between the scan and our click's effect.
	drv := &fakeDriver{pages: []string{dayHTML, dayHTMLFull}}
	c := openTestClient(t, drv)

	out, err := c.Reserve(context.Background(), testSlot(t, "22/11/2025", "11:30", booking.OpenBox))
	if err != nil {
		t.Fatalf("lost race must not be an error: %v", err)
	}
	if out.Success {
		t.Fatal("expected Success=false after losing the race")
	}
}

func TestReserveRaceBeforeClick(t *testing.T) {
	t.Parallel()
	// Already full when Reserve re-reads the page: no click at all.
	drv := &fakeDriver{pages: []string{dayHTMLFull}}
	c := openTestClient(t, drv)

	out, err := c.Reserve(context.Background(), testSlot(t, "22/11/2025", "11:30", booking.OpenBox))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if out.Success {
		t.Fatal("expected Success=false")
	}
	if drv.did("click " + bookSelector(3)) {
		t.Fatalf("must not click a full class: %v", drv.actions)
	}
}

func TestReserveStructuralError(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{
		pages:     []string{dayHTML},
		failClick: map[string]error{bookSelector(3): errors.New("detached element")},
	}
	c := openTestClient(t, drv)

	_, err := c.Reserve(context.Background(), testSlot(t, "22/11/2025", "11:30", booking.OpenBox))
	var rerr *ReservationError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *ReservationError, got %T: %v", err, err)
	}
}
