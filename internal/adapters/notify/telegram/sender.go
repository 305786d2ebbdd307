package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medicare-reminders/internal/ports/notify"
)

// Sender envía los mensajes de emergencia por Telegram a un chat fijo
// (el del contacto/familiar configurado).
type Sender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func New(token string, chatID int64) (*Sender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram: token required")
	}
	if chatID == 0 {
		return nil, errors.New("telegram: chat id required")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Sender{bot: bot, chatID: chatID}, nil
}

func (s *Sender) SendMessage(ctx context.Context, contact notify.Contact, text string) error {
	// La librería no acepta context; el timeout lo maneja su http.Client.
	msg := tgbotapi.NewMessage(s.chatID, text)
	_, err := s.bot.Send(msg)
	return err
}
