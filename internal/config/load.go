package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"wodbot/internal/booking"
)

const (
	defaultNavTimeout = 30 * time.Second
	defaultTimeBudget = time.Hour
)

// Load reads, strictly decodes and validates the config file. JSON is
// the native format; a .yaml/.yml file is rewritten as JSON first so
// both formats share the strict decoder (unknown keys rejected).
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errf("read file", err)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		if b, err = yamlToJSON(b); err != nil {
			return nil, errf("parse yaml", err)
		}
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errf("decode", err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errf("trailing data after config object", nil)
		}
		return nil, errf("decode", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return errf("Username is required", nil)
	}
	if c.Password == "" {
		return errf("Password is required", nil)
	}
	if len(c.Days) == 0 {
		return errf("days: at least one date is required", nil)
	}

	slots := make([]booking.Slot, 0, len(c.Days))
	for rawDate, times := range c.Days {
		date, err := booking.ParseDate(rawDate)
		if err != nil {
			return errf("days", err)
		}
		if len(times) == 0 {
			return errf(fmt.Sprintf("days[%s]: at least one time is required", rawDate), nil)
		}
		for rawTime, rawClass := range times {
			at, err := booking.ParseClock(rawTime)
			if err != nil {
				return errf(fmt.Sprintf("days[%s]", rawDate), err)
			}
			class, err := booking.ParseClassName(rawClass)
			if err != nil {
				return errf(fmt.Sprintf("days[%s][%s]", rawDate, rawTime), err)
			}
			slots = append(slots, booking.Slot{Date: date, Time: at, Class: class})
		}
	}

	// Map iteration order is random; keep the target order deterministic.
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.Time.Before(b.Time)
	})
	c.slots = slots

	var err error
	if c.navTimeout, err = durationKey("browser.nav_timeout", c.Browser.NavTimeout, defaultNavTimeout); err != nil {
		return err
	}
	if c.timeBudget, err = durationKey("poll.time_budget", c.Poll.TimeBudget, defaultTimeBudget); err != nil {
		return err
	}
	if c.Poll.MaxAttempts < 0 {
		return errf("poll.max_attempts must be >= 0", nil)
	}
	if c.Poll.ActionsPerSec < 0 {
		return errf("poll.actions_per_sec must be >= 0", nil)
	}
	if c.Notify.Telegram != nil {
		if strings.TrimSpace(c.Notify.Telegram.Token) == "" {
			return errf("notify.telegram.token is required when telegram notify is configured", nil)
		}
		if c.Notify.Telegram.ChatID == 0 {
			return errf("notify.telegram.chat_id is required when telegram notify is configured", nil)
		}
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return errf("history.path is required when history is enabled", nil)
	}
	return nil
}

// durationKey resolves one of the config's Go-duration strings. An
// omitted key falls back to its default; a present key must parse and
// be positive.
func durationKey(key, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errf(key, fmt.Errorf("invalid duration %q", raw))
	}
	if d <= 0 {
		return 0, errf(key+" must be > 0", nil)
	}
	return d, nil
}

// yamlToJSON rewrites a YAML document as JSON. YAML mappings may carry
// non-string keys, which json.Marshal rejects, so keys are stringified
// on the way through.
func yamlToJSON(b []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(stringKeys(doc))
}

func stringKeys(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			node[k] = stringKeys(child)
		}
		return node
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[fmt.Sprintf("%v", k)] = stringKeys(child)
		}
		return out
	case []any:
		for i, child := range node {
			node[i] = stringKeys(child)
		}
		return node
	}
	return v
}
