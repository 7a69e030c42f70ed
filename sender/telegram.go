package sender

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MessageBot is the part of the Telegram bot API used to mirror posts.
type MessageBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender mirrors posts to a Telegram chat.
type TelegramSender struct {
	bot    MessageBot
	chatID int64
}

// NewTelegramSender creates a sender for the given chat.
func NewTelegramSender(bot MessageBot, chatID int64) *TelegramSender {
	return &TelegramSender{bot: bot, chatID: chatID}
}

// Send posts text to the chat and returns the message ID.
func (s *TelegramSender) Send(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	sent, err := s.bot.Send(msg)
	if err != nil {
		return "", fmt.Errorf("send telegram message: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}
