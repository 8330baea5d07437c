package reporter

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reporter sends short plain-text notices about failed feeds to a Telegram
// admin chat. It is nil-safe: if adminID is 0 or the receiver is nil, Notify
// is a no-op.
type Reporter struct {
	bot     *tgbotapi.BotAPI
	adminID int64
}

func New(bot *tgbotapi.BotAPI, adminID int64) *Reporter {
	return &Reporter{bot: bot, adminID: adminID}
}

func (r *Reporter) Notify(format string, args ...any) {
	if r == nil || r.bot == nil || r.adminID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(r.adminID, fmt.Sprintf(format, args...))
	msg.DisableWebPagePreview = true
	if _, err := r.bot.Send(msg); err != nil {
		slog.Error("failed to send error notification", "err", err)
	}
}
