package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wodbot/internal/booking"
	"wodbot/internal/browser"
	"wodbot/internal/config"
	"wodbot/internal/history"
	"wodbot/internal/notify"
	"wodbot/internal/poll"
	"wodbot/internal/site"
	"wodbot/pkg/logx"
)

// Exit codes: 0 means the run completed, whatever the per-slot results
// were. Only broken config (1) and a failed browser/login setup (2) are
// process errors.
const (
	exitOK      = 0
	exitConfig  = 1
	exitSession = 2
)

type runOptions struct {
	visible bool
	dryRun  bool
	cadence poll.Cadence
}

type launchFunc func(browser.Options) (browser.Driver, error)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		cfgPath string
		visible bool
		dryRun  bool
	)
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json")
	flag.BoolVar(&visible, "visible", false, "run the browser with a visible window")
	flag.BoolVar(&dryRun, "dry-run", false, "single scan-only pass, never reserve")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return exitConfig
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()

	// An empty schedule is fine (the loop falls back to its default
	// interval); anything else must parse.
	var cadence poll.Cadence
	if cfg.Poll.Schedule != "" {
		cadence, err = poll.ParseCadence(cfg.Poll.Schedule)
		if err != nil {
			log.Error("invalid poll schedule", logx.Err(err))
			return exitConfig
		}
	}

	return bookRun(ctx, cfg, runOptions{visible: visible, dryRun: dryRun, cadence: cadence}, browser.Launch, log)
}

// bookRun owns the browser for exactly one run: launch, log in, poll,
// close. The driver is closed once on every exit path past launch.
func bookRun(ctx context.Context, cfg *config.Config, opts runOptions, launch launchFunc, log logx.Logger) int {
	slots := cfg.Slots()
	log.Info("starting",
		logx.Int("slots", len(slots)),
		logx.Bool("dry_run", opts.dryRun),
		logx.Bool("headless", cfg.Browser.IsHeadless() && !opts.visible),
	)

	drv, err := launch(browser.Options{
		Headless:   cfg.Browser.IsHeadless() && !opts.visible,
		NavTimeout: cfg.NavTimeout(),
	})
	if err != nil {
		log.Error("browser launch failed", logx.Err(err))
		return exitSession
	}
	defer func() {
		if cerr := drv.Close(); cerr != nil {
			log.Warn("browser close failed", logx.Err(cerr))
		}
	}()

	client, err := site.Open(ctx, drv, site.Config{
		BaseURL:       cfg.Browser.BaseURL,
		LoginURL:      cfg.Browser.LoginURL,
		NavTimeout:    cfg.NavTimeout(),
		ActionsPerSec: cfg.Poll.ActionsPerSec,
	}, site.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	}, log.With(logx.String("component", "site")))
	if err != nil {
		log.Error("login failed", logx.Err(err))
		return exitSession
	}

	runner := poll.New(poll.Config{
		Cadence:     opts.cadence,
		MaxAttempts: cfg.Poll.MaxAttempts,
		TimeBudget:  cfg.TimeBudget(),
		DryRun:      opts.dryRun,
	}, client, log.With(logx.String("component", "poll")))

	if cfg.History.Enabled {
		journal, jerr := history.Open(cfg.History.Path, log.With(logx.String("component", "history")))
		if jerr != nil {
			log.Warn("history disabled: journal open failed", logx.Err(jerr))
		} else {
			defer journal.Close()
			runner.SetJournal(journal)
		}
	}
	if tg := cfg.Notify.Telegram; tg != nil {
		notifier, nerr := notify.NewTelegram(notify.Config{Token: tg.Token, ChatID: tg.ChatID},
			log.With(logx.String("component", "notify")))
		if nerr != nil {
			log.Warn("notifications disabled", logx.Err(nerr))
		} else {
			runner.SetNotifier(notifier)
		}
	}

	sum := runner.Run(ctx, slots)
	printSummary(sum)
	return exitOK
}

func printSummary(sum poll.Summary) {
	fmt.Printf("finished after %d passes in %s\n", sum.Passes, sum.Elapsed.Round(time.Second))
	printSlots("reserved", sum.Reserved)
	printSlots("abandoned", sum.Abandoned)
	printSlots("pending", sum.Pending)
}

func printSlots(label string, slots []booking.Slot) {
	for _, s := range slots {
		fmt.Printf("  %-9s %s\n", label, s)
	}
}
