package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ligastats/ligastats/internal/pkg/config"
	"github.com/ligastats/ligastats/internal/pkg/jobs"
)

// Notifier posts run summaries to a Telegram chat. A nil Notifier is valid
// and does nothing, so callers never branch on whether notifications are on.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier builds a Notifier from config. Returns nil when notifications
// are disabled.
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: cfg.ChatID}, nil
}

// RunCompleted reports a finished ingestion run.
func (n *Notifier) RunCompleted(url string, m jobs.Metrics) {
	if n == nil {
		return
	}
	n.send(fmt.Sprintf(
		"Scraping completed\n%s\nInserted: %d\nUpdated: %d\nSkipped: %d\nGoal events: %d\nErrors: %d",
		url, m.Inserted, m.Updated, m.Skipped, m.EventsInserted, m.Errors))
}

// RunFailed reports an aborted ingestion run.
func (n *Notifier) RunFailed(url string, err error) {
	if n == nil {
		return
	}
	n.send(fmt.Sprintf("Scraping failed\n%s\n%v", url, err))
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("Failed to send telegram message", "error", err)
	}
}
