package poll

import (
	"testing"
	"time"
)

func TestParseCadenceVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
	}{
		{name: "cron", raw: "*/5 * * * *", kind: SpecCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:0 0 * * *", kind: SpecCron, source: "cron"},
		{name: "descriptor", raw: "@hourly", kind: SpecCron, source: "cron"},
		{name: "duration", raw: "90s", kind: SpecInterval, source: "duration", duration: 90 * time.Second},
		{name: "prefixed interval", raw: "interval:45s", kind: SpecInterval, source: "duration", duration: 45 * time.Second},
		{name: "every prefix", raw: "every:2m", kind: SpecInterval, source: "duration", duration: 2 * time.Minute},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", duration: 90 * time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCadence(tt.raw)
			if err != nil {
				t.Fatalf("ParseCadence(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
			if got.String() != tt.raw {
				t.Fatalf("String() = %q, want %q", got.String(), tt.raw)
			}
		})
	}
}

func TestParseCadenceInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-cadence", "cron:", "* * *", "-5s", "00:00"} {
		if _, err := ParseCadence(raw); err == nil {
			t.Fatalf("ParseCadence(%q): expected error", raw)
		}
	}
}

func TestCadenceNextDelay(t *testing.T) {
	t.Parallel()
	c, err := ParseCadence("90s")
	if err != nil {
		t.Fatal(err)
	}
	if d := c.NextDelay(time.Now()); d != 90*time.Second {
		t.Fatalf("interval NextDelay = %v", d)
	}

	c, err = ParseCadence("0 0 * * *")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	if d := c.NextDelay(now); d != 30*time.Minute {
		t.Fatalf("cron NextDelay = %v, want 30m", d)
	}
}
