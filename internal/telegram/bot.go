package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// NewBot authenticates against the Bot API. base overrides the endpoint for
// tests and self-hosted bot-api servers; pass the configured default
// otherwise. Authentication failure here means a bad token, caught before the
// service starts serving.
func NewBot(token, base string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPIWithAPIEndpoint(token, base+"/bot%s/%s")
}
