// Package poll repeats scan/reserve passes over the desired slots until
// every slot is settled or the time budget runs out.
package poll

import (
	"context"
	"time"

	"wodbot/internal/booking"
	"wodbot/pkg/logx"
)

// Booker is the slice of the site client the loop needs. Reserve must
// only ever be called for a slot whose immediately preceding IsAvailable
// returned true; the loop guarantees that ordering.
type Booker interface {
	IsAvailable(ctx context.Context, slot booking.Slot) (bool, error)
	Reserve(ctx context.Context, slot booking.Slot) (booking.Outcome, error)
}

// Journal records attempts for auditing. Implementations must never
// block the loop on failure; errors are their own problem.
type Journal interface {
	Scan(ctx context.Context, slot booking.Slot, available bool, scanErr error)
	Attempt(ctx context.Context, out booking.Outcome, attemptErr error)
	Settled(ctx context.Context, slot booking.Slot, state booking.SlotState)
}

// Notifier pushes user-facing notifications. Best effort.
type Notifier interface {
	Reserved(ctx context.Context, slot booking.Slot)
	Summary(ctx context.Context, sum Summary)
}

type Config struct {
	// Cadence controls the wait between passes. Zero value means a
	// fixed 90s interval.
	Cadence Cadence
	// MaxAttempts bounds failures per slot (scan/reserve errors and
	// lost races). Zero means 20.
	MaxAttempts int
	// TimeBudget bounds the whole run. Zero means 1h.
	TimeBudget time.Duration
	// DryRun performs a single scan-only pass: nothing is clicked.
	DryRun bool
}

const (
	defaultMaxAttempts = 20
	defaultTimeBudget  = time.Hour
	defaultInterval    = 90 * time.Second
)

// Summary is the final account of the run, always produced whatever the
// exit path.
type Summary struct {
	Reserved  []booking.Slot
	Abandoned []booking.Slot
	Pending   []booking.Slot // left unsettled when the budget expired
	Passes    int
	Elapsed   time.Duration
}

// Settled reports whether every slot reached a terminal state.
func (s Summary) Settled() bool { return len(s.Pending) == 0 }

type tracker struct {
	slot     booking.Slot
	state    booking.SlotState
	attempts int
}

// Runner walks the pending slots pass by pass. Single-threaded by
// design: the site and the browser session support one request at a
// time, and concurrent claims against one slot would race anyway.
type Runner struct {
	cfg      Config
	booker   Booker
	log      logx.Logger
	journal  Journal
	notifier Notifier

	// sleep is swappable so tests can run passes back to back.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, b Booker, log logx.Logger) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = defaultTimeBudget
	}
	if cfg.Cadence.Sched == nil && cfg.Cadence.Every <= 0 {
		cfg.Cadence = Cadence{Kind: SpecInterval, Every: defaultInterval, Source: "duration", raw: defaultInterval.String()}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{
		cfg:     cfg,
		booker:  b,
		log:     log,
		journal: nopJournal{},
		sleep:   sleepCtx,
	}
}

func (r *Runner) SetJournal(j Journal) {
	if j != nil {
		r.journal = j
	}
}

func (r *Runner) SetNotifier(n Notifier) { r.notifier = n }

// Run executes passes over the slots until all are settled, the time
// budget expires, or ctx is canceled. It always returns a Summary; none
// of the per-slot failures are process failures.
func (r *Runner) Run(ctx context.Context, slots []booking.Slot) Summary {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.TimeBudget)
	defer cancel()

	trackers := make([]tracker, len(slots))
	for i, s := range slots {
		trackers[i] = tracker{slot: s, state: booking.StatePending}
	}

	r.log.Info("poll loop started",
		logx.Int("slots", len(trackers)),
		logx.String("cadence", r.cfg.Cadence.String()),
		logx.Int("max_attempts", r.cfg.MaxAttempts),
		logx.Duration("time_budget", r.cfg.TimeBudget),
		logx.Bool("dry_run", r.cfg.DryRun),
	)

	passes := 0
	for {
		passes++
		r.pass(ctx, trackers)

		if r.cfg.DryRun || r.allSettled(trackers) || ctx.Err() != nil {
			break
		}

		delay := r.cfg.Cadence.NextDelay(time.Now())
		r.log.Debug("pass complete, sleeping", logx.Int("pass", passes), logx.Duration("delay", delay))
		if err := r.sleep(ctx, delay); err != nil {
			r.log.Info("time budget exhausted", logx.Duration("elapsed", time.Since(start)))
			break
		}
	}

	sum := r.summarize(ctx, trackers, passes, time.Since(start))
	if r.notifier != nil {
		r.notifier.Summary(ctx, sum)
	}
	return sum
}

// pass runs scan (and, when a place is open, reserve) over every slot
// still pending. Per-slot errors are isolated: one broken slot never
// blocks progress on the others.
func (r *Runner) pass(ctx context.Context, trackers []tracker) {
	for i := range trackers {
		if ctx.Err() != nil {
			return
		}
		t := &trackers[i]
		if t.state != booking.StatePending {
			continue
		}
		slog := r.log.With(logx.String("slot", t.slot.String()))

		avail, err := r.booker.IsAvailable(ctx, t.slot)
		r.journal.Scan(ctx, t.slot, avail, err)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("scan failed", logx.Err(err))
			r.fail(ctx, t, slog)
			continue
		}
		slog.Info("scanned", logx.Bool("available", avail))
		if !avail {
			continue
		}
		if r.cfg.DryRun {
			slog.Info("place open, skipping reservation (dry run)")
			continue
		}

		out, err := r.booker.Reserve(ctx, t.slot)
		r.journal.Attempt(ctx, out, err)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("reservation failed", logx.Err(err))
			r.fail(ctx, t, slog)
			continue
		}
		if out.Success {
			t.state = booking.StateReserved
			r.journal.Settled(ctx, t.slot, t.state)
			slog.Info("slot reserved")
			if r.notifier != nil {
				r.notifier.Reserved(ctx, t.slot)
			}
			continue
		}
		// Someone else got the place between scan and claim.
		slog.Info("lost reservation race, will retry")
		r.fail(ctx, t, slog)
	}
}

// fail consumes one attempt and abandons the slot once the bound is hit.
func (r *Runner) fail(ctx context.Context, t *tracker, slog logx.Logger) {
	t.attempts++
	if t.attempts >= r.cfg.MaxAttempts {
		t.state = booking.StateAbandoned
		r.journal.Settled(ctx, t.slot, t.state)
		slog.Warn("slot abandoned", logx.Int("attempts", t.attempts))
	}
}

func (r *Runner) allSettled(trackers []tracker) bool {
	for i := range trackers {
		if trackers[i].state == booking.StatePending {
			return false
		}
	}
	return true
}

func (r *Runner) summarize(ctx context.Context, trackers []tracker, passes int, elapsed time.Duration) Summary {
	sum := Summary{Passes: passes, Elapsed: elapsed}
	for i := range trackers {
		t := trackers[i]
		switch t.state {
		case booking.StateReserved:
			sum.Reserved = append(sum.Reserved, t.slot)
		case booking.StateAbandoned:
			sum.Abandoned = append(sum.Abandoned, t.slot)
		default:
			sum.Pending = append(sum.Pending, t.slot)
			r.journal.Settled(ctx, t.slot, booking.StatePending)
		}
	}
	r.log.Info("run finished",
		logx.Int("passes", sum.Passes),
		logx.Duration("elapsed", sum.Elapsed),
		logx.Int("reserved", len(sum.Reserved)),
		logx.Int("abandoned", len(sum.Abandoned)),
		logx.Int("unsettled", len(sum.Pending)),
	)
	return sum
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopJournal struct{}

func (nopJournal) Scan(context.Context, booking.Slot, bool, error)         {}
func (nopJournal) Attempt(context.Context, booking.Outcome, error)         {}
func (nopJournal) Settled(context.Context, booking.Slot, booking.SlotState) {}
