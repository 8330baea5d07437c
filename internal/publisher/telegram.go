// Package publisher posts composed captions to a Telegram channel.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram posts to one channel, addressed either by numeric chat ID or by
// @username.
type Telegram struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	username string
}

func NewTelegram(bot *tgbotapi.BotAPI, channel string) (*Telegram, error) {
	chatID, username, err := ParseChannel(channel)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot, chatID: chatID, username: username}, nil
}

// ParseChannel accepts "-1001234567890" or "@channel".
func ParseChannel(channel string) (int64, string, error) {
	channel = strings.TrimSpace(channel)
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil && id != 0 {
		return id, "", nil
	}
	if strings.HasPrefix(channel, "@") && len(channel) > 1 {
		return 0, channel, nil
	}
	return 0, "", fmt.Errorf("invalid channel %q: want a numeric chat id or @username", channel)
}

// SendPhoto uploads the local file at path with an HTML caption.
func (t *Telegram) SendPhoto(ctx context.Context, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FilePath(path))
	photo.ChannelUsername = t.username
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML

	if _, err := t.bot.Send(photo); err != nil {
		slog.Error("telegram sendPhoto failed", "err", err)
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// SendText posts an HTML message without an image.
func (t *Telegram) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ChannelUsername = t.username
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("telegram sendMessage failed", "err", err)
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
