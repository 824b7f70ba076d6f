// Package site drives the box's client area: logging in, reading the
// day timetable, and claiming places in classes.
package site

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"wodbot/internal/booking"
	"wodbot/internal/browser"
	"wodbot/pkg/logx"
)

const (
	DefaultBaseURL  = "https://www.crossfitcostablanca.es/acceso-a-clientes/"
	DefaultLoginURL = "https://www.crossfitcostablanca.es/login.php"
)

// Selectors for the login form and the client-area calendar.
const (
	selUsername    = "input[name='Email']"
	selPassword    = "input[name='passwd']"
	selLoginSubmit = ".btn-primary"
	selCalendar    = "table.table-striped"
	// The activities table appears as a second striped table once a day
	// is selected on the calendar.
	selActivities = ":nth-match(table.table-striped, 2)"
)

type Config struct {
	BaseURL  string
	LoginURL string
	// NavTimeout bounds waits for page structure. Zero means 30s.
	NavTimeout time.Duration
	// ActionsPerSec throttles page interactions so the site is never
	// hammered. Zero means 1/s.
	ActionsPerSec float64
}

type Credentials struct {
	Username string
	Password string
}

// Client is the authenticated session against the booking site. It owns
// nothing but the page flow; the browser handle is owned by the caller,
// which must close it on every exit path.
type Client struct {
	drv     browser.Driver
	cfg     Config
	log     logx.Logger
	limiter *rate.Limiter
}

// Open establishes an authenticated session: navigate to the login page,
// submit the credentials, and wait for the client-area calendar to
// render. A missing post-login calendar within the bounded wait yields
// an AuthError.
func Open(ctx context.Context, drv browser.Driver, cfg Config, creds Credentials, log logx.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.ActionsPerSec <= 0 {
		cfg.ActionsPerSec = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	c := &Client{
		drv:     drv,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.ActionsPerSec), 1),
	}

	if err := drv.Navigate(ctx, cfg.LoginURL); err != nil {
		return nil, &AuthError{Reason: "open login page", Err: err}
	}
	if err := drv.WaitVisible(ctx, selUsername, cfg.NavTimeout); err != nil {
		return nil, &AuthError{Reason: "login form not found", Err: err}
	}
	if err := drv.Fill(ctx, selUsername, creds.Username); err != nil {
		return nil, &AuthError{Reason: "fill username", Err: err}
	}
	if err := drv.Fill(ctx, selPassword, creds.Password); err != nil {
		return nil, &AuthError{Reason: "fill password", Err: err}
	}
	if err := c.pace(ctx); err != nil {
		return nil, &AuthError{Reason: "canceled", Err: err}
	}
	if err := drv.Click(ctx, selLoginSubmit); err != nil {
		return nil, &AuthError{Reason: "submit login", Err: err}
	}

	// The post-login signal is the reservation calendar.
	if err := drv.WaitVisible(ctx, selCalendar, cfg.NavTimeout); err != nil {
		return nil, &AuthError{Reason: "no calendar after login (wrong credentials?)", Err: err}
	}

	c.log.Info("session opened", logx.String("user", creds.Username))
	return c, nil
}

// IsAvailable reports whether the slot's class currently has a place
// for us: either an open bookable one, or one we already hold (Reserve
// then settles the slot without clicking anything). Point-in-time read:
// the live page is the sole source of truth and may change between
// calls.
func (c *Client) IsAvailable(ctx context.Context, slot booking.Slot) (bool, error) {
	a, err := c.findActivity(ctx, slot)
	if err != nil {
		return false, &ScanError{Slot: slot, Err: err}
	}
	if a.Booked {
		c.log.Info("already registered in class", logx.String("slot", slot.String()))
		return true, nil
	}
	return a.Bookable && a.Free(), nil
}

// Reserve claims the slot and re-reads the timetable to verify the
// reservation stuck. Losing the race to another member is an expected
// outcome (Success=false, no error); structural failures surface as
// ReservationError.
func (c *Client) Reserve(ctx context.Context, slot booking.Slot) (booking.Outcome, error) {
	out := booking.Outcome{Slot: slot, At: time.Now()}

	a, err := c.findActivity(ctx, slot)
	if err != nil {
		return out, &ReservationError{Slot: slot, Err: err}
	}
	if a.Booked {
		out.Success = true
		return out, nil
	}
	if !a.Bookable || !a.Free() {
		// Claimed by someone else since the scan.
		return out, nil
	}

	if err := c.pace(ctx); err != nil {
		return out, &ReservationError{Slot: slot, Err: err}
	}
	if err := c.drv.Click(ctx, bookSelector(a.RowIndex)); err != nil {
		return out, &ReservationError{Slot: slot, Err: fmt.Errorf("click book button: %w", err)}
	}

	// Verify against the live page rather than trusting the click.
	a, err = c.findActivity(ctx, slot)
	if err != nil {
		return out, &ReservationError{Slot: slot, Err: fmt.Errorf("verify: %w", err)}
	}
	out.At = time.Now()
	out.Success = a.Booked
	return out, nil
}

// findActivity loads the slot's day and locates its timetable row.
func (c *Client) findActivity(ctx context.Context, slot booking.Slot) (*Activity, error) {
	tt, err := c.loadDay(ctx, slot.Date)
	if err != nil {
		return nil, err
	}
	a := tt.Find(slot.Time, slot.Class)
	if a == nil {
		return nil, fmt.Errorf("no %s class covering %s on %s", slot.Class, slot.Time, slot.Date)
	}
	return a, nil
}

// loadDay navigates to the calendar, selects the date's day link and
// parses the activities table it reveals.
func (c *Client) loadDay(ctx context.Context, date booking.Date) (*Timetable, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}
	if err := c.drv.Navigate(ctx, c.cfg.BaseURL); err != nil {
		return nil, err
	}
	if err := c.drv.WaitVisible(ctx, selCalendar, c.cfg.NavTimeout); err != nil {
		return nil, fmt.Errorf("calendar not found: %w", err)
	}
	if err := c.drv.Click(ctx, daySelector(date)); err != nil {
		return nil, fmt.Errorf("day %d not on calendar: %w", date.Day, err)
	}
	if err := c.drv.WaitVisible(ctx, selActivities, c.cfg.NavTimeout); err != nil {
		return nil, fmt.Errorf("activities for %s not shown: %w", date, err)
	}
	html, err := c.drv.Content(ctx)
	if err != nil {
		return nil, err
	}
	return parseTimetable(html)
}

func (c *Client) pace(ctx context.Context) error { return c.limiter.Wait(ctx) }

// daySelector addresses the calendar's day link. The calendar renders
// the bare day number as link text, so the match must be exact or "3"
// would also hit 13, 23 and 30.
func daySelector(d booking.Date) string {
	return fmt.Sprintf(`a:text-is("%d")`, d.Day)
}

// bookSelector addresses the booking anchor in a parsed timetable row.
func bookSelector(rowIndex int) string {
	return fmt.Sprintf("%s tr:nth-child(%d) a", selActivities, rowIndex)
}
