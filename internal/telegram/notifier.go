package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Notifier sends out-of-band nudges and alerts over the Telegram Bot API.
// A Notifier constructed without a token is a no-op, so notification paths
// degrade silently in environments without a bot configured.
type Notifier struct {
	bot *tgbotapi.BotAPI
}

func NewNotifier(botToken string) (*Notifier, error) {
	if botToken == "" {
		return &Notifier{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, errors.Wrap(err, "init telegram bot")
	}
	return &Notifier{bot: bot}, nil
}

// Notify sends a Markdown message to a chat. chatID is stored as a string on
// users ("" means the account is not linked).
func (n *Notifier) Notify(chatID, text string) error {
	if n.bot == nil {
		log.Debug("telegram bot not configured, skipping notification")
		return nil
	}
	if chatID == "" {
		log.Debug("empty telegram chat id, skipping notification")
		return nil
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "bad telegram chat id %q", chatID)
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return errors.Wrapf(err, "send telegram message to %s", chatID)
	}
	return nil
}
