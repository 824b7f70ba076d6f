package poll

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SpecKind describes the normalized kind of a cadence string.
//
// We intentionally keep this small: either a cron expression (robfig/cron)
// or a fixed interval between passes.
type SpecKind int

const (
	SpecCron SpecKind = iota
	SpecInterval
)

// Cadence is a parsed cadence string controlling when the next pass over
// the pending slots runs.
//
// Supported forms:
//   - Cron (crontab.guru-style): "*/2 8-23 * * *", "0 0 * * *", "@hourly",
//     for sites that open reservations at a known wall-clock time
//   - Interval duration: "90s", "2m30s"
//   - Interval HH:MM: "00:02" (2 minutes), "01:30" (90 minutes)
//
// Optional prefixes:
//   - "cron:" forces cron parsing
//   - "interval:" or "every:" forces interval parsing
type Cadence struct {
	Kind   SpecKind
	Every  time.Duration
	Sched  cron.Schedule
	Source string // "cron" | "duration" | "hhmm"

	raw string
}

func (c Cadence) String() string { return c.raw }

// NextDelay returns how long to wait after now before the next pass.
func (c Cadence) NextDelay(now time.Time) time.Duration {
	if c.Kind == SpecCron {
		d := c.Sched.Next(now).Sub(now)
		if d < 0 {
			d = 0
		}
		return d
	}
	return c.Every
}

var (
	reHHMM     = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)
	cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// ParseCadence parses a cadence string into either a cron schedule or an
// interval duration.
func ParseCadence(raw string) (Cadence, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cadence{}, fmt.Errorf("cadence required")
	}

	// Prefixes (explicit)
	low := strings.ToLower(s)
	if strings.HasPrefix(low, "cron:") {
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return Cadence{}, fmt.Errorf("cron cadence required after 'cron:'")
		}
		return parseCron(raw, expr)
	}
	if strings.HasPrefix(low, "interval:") {
		return parseIntervalSpec(raw, s[len("interval:"):])
	}
	if strings.HasPrefix(low, "every:") {
		return parseIntervalSpec(raw, s[len("every:"):])
	}

	// Heuristics:
	// - any whitespace or leading '@' => cron
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return parseCron(raw, s)
	}

	// - HH:MM => interval duration
	if reHHMM.MatchString(s) {
		d, err := parseHHMMDuration(s)
		if err != nil {
			return Cadence{}, err
		}
		return Cadence{Kind: SpecInterval, Every: d, Source: "hhmm", raw: raw}, nil
	}

	// - Go duration => interval duration
	d, err := time.ParseDuration(s)
	if err == nil {
		if d <= 0 {
			return Cadence{}, fmt.Errorf("interval must be > 0")
		}
		return Cadence{Kind: SpecInterval, Every: d, Source: "duration", raw: raw}, nil
	}

	return Cadence{}, fmt.Errorf(
		"invalid cadence %q (use cron like '*/2 8-23 * * *', HH:MM like '00:02', or duration like '90s')",
		raw,
	)
}

func parseCron(raw, expr string) (Cadence, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return Cadence{}, fmt.Errorf("invalid cron cadence %q: %w", expr, err)
	}
	return Cadence{Kind: SpecCron, Sched: sched, Source: "cron", raw: raw}, nil
}

func parseIntervalSpec(raw, v string) (Cadence, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return Cadence{}, fmt.Errorf("interval required")
	}
	if reHHMM.MatchString(v) {
		d, err := parseHHMMDuration(v)
		if err != nil {
			return Cadence{}, err
		}
		return Cadence{Kind: SpecInterval, Every: d, Source: "hhmm", raw: raw}, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return Cadence{}, fmt.Errorf("invalid interval %q (use HH:MM or Go duration like '90s'/'2m30s')", v)
	}
	if d <= 0 {
		return Cadence{}, fmt.Errorf("interval must be > 0")
	}
	return Cadence{Kind: SpecInterval, Every: d, Source: "duration", raw: raw}, nil
}

func parseHHMMDuration(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	// safe parse: hours up to 999, minutes 0..59
	var hh int
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}
