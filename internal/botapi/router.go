package botapi

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"remindbot/internal/dialog"
	"remindbot/internal/logger"
)

// Router turns inbound chat updates into dialog-engine calls and renders the
// resulting replies back through the Bot API.
type Router struct {
	Engine *dialog.Engine
	Bot    *tgbotapi.BotAPI
	Logger *logger.Logger
}

func NewRouter(engine *dialog.Engine, bot *tgbotapi.BotAPI, log *logger.Logger) *Router {
	return &Router{Engine: engine, Bot: bot, Logger: log}
}

// HandleUpdate processes one update. Errors are logged, never propagated to
// the transport: one bad update must not take the bot down.
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		r.handleMessage(ctx, update.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	var (
		reply dialog.Reply
		err   error
	)
	switch {
	case text == "/start":
		reply, err = r.Engine.Start(ctx, userID)
		if err == nil {
			greeting := "Hi! I'm a calendar bot. I'll help you manage your events and reminders."
			if message.From != nil && message.From.FirstName != "" {
				greeting = fmt.Sprintf("Hi, %s! I'm a calendar bot. I'll help you manage your events and reminders.", message.From.FirstName)
			}
			if _, sendErr := r.Bot.Send(tgbotapi.NewMessage(userID, greeting)); sendErr != nil {
				r.Logger.Error("BOT", fmt.Sprintf("failed to send greeting to user %d: %v", userID, sendErr))
			}
		}
	case text == "/cancel":
		reply, err = r.Engine.Cancel(ctx, userID)
	default:
		reply, err = r.Engine.HandleText(ctx, userID, message.Text)
	}
	if err != nil {
		r.Logger.Error("BOT", fmt.Sprintf("failed to handle message from user %d: %v", userID, err))
		return
	}
	if reply.Empty() {
		return
	}

	msg := tgbotapi.NewMessage(userID, reply.Text)
	if keyboard := Keyboard(reply.Buttons); keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.Logger.Error("BOT", fmt.Sprintf("failed to send reply to user %d: %v", userID, err))
	}
}

func (r *Router) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID

	if _, err := r.Bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		r.Logger.Warn("BOT", fmt.Sprintf("failed to answer callback query: %v", err))
	}

	action, err := dialog.ParseAction(callback.Data)
	if err != nil {
		// Only tokens this bot rendered can arrive here; anything else is a
		// bug, not user input.
		r.Logger.Error("BOT", fmt.Sprintf("unparseable callback payload from user %d: %v", userID, err))
		return
	}

	reply, err := r.Engine.HandleAction(ctx, userID, action)
	if err != nil {
		r.Logger.Error("BOT", fmt.Sprintf("failed to handle action from user %d: %v", userID, err))
		return
	}
	if reply.Empty() {
		return
	}

	// Menus advance in place by editing the message the button lives on.
	if callback.Message != nil {
		var edit tgbotapi.Chattable
		if keyboard := Keyboard(reply.Buttons); keyboard != nil {
			edit = tgbotapi.NewEditMessageTextAndMarkup(callback.Message.Chat.ID, callback.Message.MessageID, reply.Text, *keyboard)
		} else {
			edit = tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, reply.Text)
		}
		if _, err := r.Bot.Send(edit); err != nil {
			r.Logger.Error("BOT", fmt.Sprintf("failed to render reply for user %d: %v", userID, err))
		}
		return
	}

	msg := tgbotapi.NewMessage(userID, reply.Text)
	if keyboard := Keyboard(reply.Buttons); keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.Logger.Error("BOT", fmt.Sprintf("failed to render reply for user %d: %v", userID, err))
	}
}

// Keyboard renders dialog buttons as an inline keyboard, one button per row.
func Keyboard(buttons []dialog.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, button := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data)))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
