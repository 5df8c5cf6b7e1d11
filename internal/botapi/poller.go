package botapi

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollTimeout = 30 * time.Second

// Poller drives the bot through long-polling, the default transport when no
// public webhook endpoint is available.
type Poller struct {
	Router *Router
	Bot    *tgbotapi.BotAPI
}

func NewPoller(router *Router, bot *tgbotapi.BotAPI) *Poller {
	return &Poller{Router: router, Bot: bot}
}

// Run consumes updates until the context is cancelled. Polling errors are
// retried by the update channel itself.
func (p *Poller) Run(ctx context.Context) {
	p.Router.Logger.Info("BOT", "update polling started")

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(pollTimeout.Seconds())
	updates := p.Bot.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			p.Bot.StopReceivingUpdates()
			p.Router.Logger.Info("BOT", "update polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			p.Router.HandleUpdate(ctx, update)
		}
	}
}
