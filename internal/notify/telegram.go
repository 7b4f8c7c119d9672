package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// TelegramPushSender delivers push notifications through a Telegram bot.
// A patient's device tokens are the chat IDs their companion app registered.
type TelegramPushSender struct {
	api    *tgbotapi.BotAPI
	logger *logrus.Logger
}

// NewTelegramPushSender creates the push transport
func NewTelegramPushSender(token string, logger *logrus.Logger) (*TelegramPushSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Push transport authorized on account %s", api.Self.UserName)

	return &TelegramPushSender{api: api, logger: logger}, nil
}

// SendPush sends the message to every registered device token. All tokens are
// attempted; per-token failures are collected and returned together.
func (t *TelegramPushSender) SendPush(ctx context.Context, tokens []int64, msg Message) error {
	text := fmt.Sprintf("*%s*\n%s", msg.Title, msg.Body)
	if msg.Instructions != "" {
		text += "\n_" + msg.Instructions + "_"
	}

	var result *multierror.Error
	for _, chatID := range tokens {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		out := tgbotapi.NewMessage(chatID, text)
		out.ParseMode = tgbotapi.ModeMarkdown
		if _, err := t.api.Send(out); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to push to device %d: %w", chatID, err))
		}
	}

	return result.ErrorOrNil()
}
