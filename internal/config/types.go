package config

import (
	"fmt"
	"time"

	"wodbot/internal/booking"
)

// Config is the full configuration file.
//
// The credential and "days" keys keep the spelling of the original
// config.json files (capitalized Username/Password) so existing configs
// keep working; everything else is lowercase.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Username string `json:"Username"`
	Password string `json:"Password"`

	// Days maps "dd/mm/yyyy" -> "hh:mm" -> class name.
	// One class per (date, time) pair.
	Days map[string]map[string]string `json:"days"`

	Browser BrowserConfig `json:"browser,omitempty"`
	Poll    PollConfig    `json:"poll,omitempty"`
	Logging LoggingConfig `json:"logging,omitempty"`
	History HistoryConfig `json:"history,omitempty"`
	Notify  NotifyConfig  `json:"notify,omitempty"`

	// materialized by Load
	slots      []booking.Slot
	navTimeout time.Duration
	timeBudget time.Duration
}

// BrowserConfig controls the automation session.
//
// Headless is a pointer so we can distinguish "omitted" (default true)
// from an explicit false (debugging with a visible window).
type BrowserConfig struct {
	Headless *bool  `json:"headless,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	LoginURL string `json:"login_url,omitempty"`
	// NavTimeout bounds every navigation/wait. Default "30s".
	NavTimeout string `json:"nav_timeout,omitempty"`
}

// PollConfig controls the scan/reserve loop.
//
// Schedule accepts a cron expression ("*/2 8-23 * * *"), a Go duration
// ("90s") or HH:MM ("00:02"); see poll.ParseSchedule. Defaults:
//   - schedule: "90s"
//   - max_attempts: 20 (per slot, counting errors and lost races)
//   - time_budget: "1h"
//   - actions_per_sec: 1
type PollConfig struct {
	Schedule      string  `json:"schedule,omitempty"`
	MaxAttempts   int     `json:"max_attempts,omitempty"`
	TimeBudget    string  `json:"time_budget,omitempty"`
	ActionsPerSec float64 `json:"actions_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console *bool       `json:"console,omitempty"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// HistoryConfig controls the optional SQLite attempt journal.
// The journal is append-only and never read back during a run.
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type NotifyConfig struct {
	Telegram *TelegramNotify `json:"telegram,omitempty"`
}

type TelegramNotify struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// Slots returns the desired reservation targets, ordered by date then
// time. The set is fixed for the duration of a run.
func (c *Config) Slots() []booking.Slot { return c.slots }

// NavTimeout returns the effective browser.nav_timeout (default 30s).
func (c *Config) NavTimeout() time.Duration { return c.navTimeout }

// TimeBudget returns the effective poll.time_budget (default 1h).
func (c *Config) TimeBudget() time.Duration { return c.timeBudget }

// Headless reports the effective headless setting.
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return true
	}
	return *b.Headless
}

// ConsoleEnabled reports the effective console-sink setting.
func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}

// Error marks a fatal configuration problem: the process must abort
// before any browser session is opened.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Msg, e.Err)
	}
	return "config: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func errf(msg string, err error) error { return &Error{Msg: msg, Err: err} }
