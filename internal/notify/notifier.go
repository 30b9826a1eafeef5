// Package notify sends session completion digests to Telegram.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/mvlachos/agora/internal/config"
	"github.com/mvlachos/agora/internal/session"
)

// telegramMessageLimit is the maximum message length Telegram accepts.
const telegramMessageLimit = 4096

type Notifier struct {
	bot    *telego.Bot
	chatID int64
}

// New builds a Notifier from config. Returns nil when no token is
// configured so callers can skip notification without a flag check.
func New(cfg config.NotifyConfig) (*Notifier, error) {
	if cfg.TelegramToken == "" {
		return nil, nil
	}
	if cfg.TelegramChat == 0 {
		return nil, fmt.Errorf("notify: telegram_chat is required when telegram_token is set")
	}

	bot, err := telego.NewBot(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Notifier{bot: bot, chatID: cfg.TelegramChat}, nil
}

// SessionCompleted sends a digest of a finished session.
func (n *Notifier) SessionCompleted(ctx context.Context, rec *session.SessionRecord) error {
	return n.send(ctx, Digest(rec))
}

// RunFailed reports a scheduled run that ended in error.
func (n *Notifier) RunFailed(ctx context.Context, name, errMsg string) error {
	return n.send(ctx, fmt.Sprintf("Scheduled run %q failed:\n%s", name, errMsg))
}

func (n *Notifier) send(ctx context.Context, text string) error {
	for _, chunk := range chunkMessage(text, telegramMessageLimit) {
		if _, err := n.bot.SendMessage(ctx, tu.Message(tu.ID(n.chatID), chunk)); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// Digest renders a short completion summary for a session record.
func Digest(rec *session.SessionRecord) string {
	var b strings.Builder

	title := rec.Name
	if title == "" {
		title = rec.Tool
	}
	fmt.Fprintf(&b, "Session complete: %s\n", title)
	fmt.Fprintf(&b, "ID: %s | Mode: %s | Agents: %d | Rounds: %d\n",
		rec.DisplayID(), rec.Mode, rec.AgentCount, len(rec.Rounds))

	var errors int
	for _, round := range rec.Rounds {
		for _, resp := range round.Responses {
			if resp.Error {
				errors++
			}
		}
	}
	fmt.Fprintf(&b, "Responses: %d", rec.TotalResponses())
	if errors > 0 {
		fmt.Fprintf(&b, " (%d failed)", errors)
	}
	b.WriteString("\n")

	if rec.FinalSynthesis != "" {
		b.WriteString("\n")
		b.WriteString(truncate(rec.FinalSynthesis, 1500))
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Prefer cutting at a line break so the digest ends cleanly.
	cut := s[:n]
	if idx := strings.LastIndex(cut, "\n"); idx > n/2 {
		cut = cut[:idx]
	}
	return cut + "\n[truncated]"
}
