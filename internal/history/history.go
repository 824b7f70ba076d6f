// Package history keeps an append-only SQLite journal of scan and
// reservation attempts. It is an audit artifact: nothing in a run ever
// reads it back, so runs stay stateless across invocations.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"wodbot/internal/booking"
	"wodbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Journal writes attempt records. Failures are logged and swallowed:
// auditing must never stall or fail the booking loop.
type Journal struct {
	db  *sql.DB
	log logx.Logger
}

func Open(path string, log logx.Logger) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	j := &Journal{db: db, log: log}
	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, string(b))
	return err
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Scan records one availability check.
func (j *Journal) Scan(ctx context.Context, slot booking.Slot, available bool, scanErr error) {
	j.append(ctx, slot, "scan", boolPtr(available), nil, scanErr)
}

// Attempt records one reservation attempt (successful, lost race, or
// structural failure).
func (j *Journal) Attempt(ctx context.Context, out booking.Outcome, attemptErr error) {
	j.append(ctx, out.Slot, "reserve", nil, boolPtr(out.Success), attemptErr)
}

// Settled records a slot's final state for the run.
func (j *Journal) Settled(ctx context.Context, slot booking.Slot, state booking.SlotState) {
	if j == nil || j.db == nil {
		return
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO outcomes(date, time, class, state, at) VALUES(?,?,?,?,?)
		 ON CONFLICT(date, time) DO UPDATE SET state=excluded.state, at=excluded.at`,
		slot.Date.String(), slot.Time.String(), slot.Class.String(),
		state.String(), time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		j.log.Warn("history: settled write failed", logx.Err(err))
	}
}

func (j *Journal) append(ctx context.Context, slot booking.Slot, action string, available, success *bool, opErr error) {
	if j == nil || j.db == nil {
		return
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO attempts(at, date, time, class, action, available, success, err)
		 VALUES(?,?,?,?,?,?,?,?)`,
		time.Now().Format(time.RFC3339Nano),
		slot.Date.String(), slot.Time.String(), slot.Class.String(),
		action, nullBool(available), nullBool(success), nullErr(opErr),
	)
	if err != nil {
		j.log.Warn("history: attempt write failed", logx.Err(err))
	}
}

func boolPtr(b bool) *bool { return &b }

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func nullErr(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
