// Package notify pushes reservation results to Telegram. Everything
// here is best effort: a failed notification is logged and forgotten,
// it never affects the booking run.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"wodbot/internal/booking"
	"wodbot/internal/poll"
	"wodbot/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64
}

// Telegram sends one message per reserved slot and a final run summary.
type Telegram struct {
	bot  *tele.Bot
	chat tele.ChatID
	log  logx.Logger
}

func NewTelegram(cfg Config, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// Send-only: no poller, the bot never consumes updates.
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chat: tele.ChatID(cfg.ChatID), log: log}, nil
}

func (t *Telegram) Reserved(_ context.Context, slot booking.Slot) {
	t.send(fmt.Sprintf("✅ Reserved %s %s (%s)", slot.Class, slot.Date, slot.Time))
}

func (t *Telegram) Summary(_ context.Context, sum poll.Summary) {
	var b strings.Builder
	fmt.Fprintf(&b, "Run finished in %s after %d passes.\n", sum.Elapsed.Round(time.Second), sum.Passes)
	writeSlots(&b, "Reserved", sum.Reserved)
	writeSlots(&b, "Abandoned", sum.Abandoned)
	writeSlots(&b, "Still pending", sum.Pending)
	t.send(b.String())
}

func writeSlots(b *strings.Builder, label string, slots []booking.Slot) {
	if len(slots) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, s := range slots {
		fmt.Fprintf(b, "  • %s %s %s\n", s.Class, s.Date, s.Time)
	}
}

func (t *Telegram) send(text string) {
	if _, err := t.bot.Send(t.chat, text); err != nil {
		t.log.Warn("telegram send failed", logx.Err(err))
	}
}
