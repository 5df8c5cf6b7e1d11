package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier is the dispatch loop's delivery channel: a plain text message to
// the recipient's chat.
type Notifier struct {
	Bot *tgbotapi.BotAPI
}

func NewNotifier(bot *tgbotapi.BotAPI) *Notifier {
	return &Notifier{Bot: bot}
}

func (n *Notifier) Deliver(ctx context.Context, recipientID int64, text string) error {
	_, err := n.Bot.Send(tgbotapi.NewMessage(recipientID, text))
	return err
}
