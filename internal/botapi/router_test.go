package botapi_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"remindbot/internal/botapi"
	"remindbot/internal/dialog"
	"remindbot/internal/logger"
	"remindbot/internal/models"
	"remindbot/internal/store"
	"remindbot/internal/telegram"
)

type apiCall struct {
	method string
	params url.Values
}

// newBot wires a real engine and store behind a router whose Bot API client
// talks to a fake server, so tests drive the bot exactly the way the
// transport does.
func newBot(t *testing.T) (*botapi.Router, *[]apiCall) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, table := range []interface{}{
		(*models.Event)(nil),
		(*models.Reminder)(nil),
		(*models.UserSettings)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, table))
	}
	db := &store.DB{Bun: bunDB}

	calls := &[]apiCall{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		method := path.Base(r.URL.Path)
		if method != "getMe" {
			*calls = append(*calls, apiCall{method: method, params: r.PostForm})
		}

		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "getMe":
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"remindbot","username":"remindbot"}}`))
		case "sendMessage", "editMessageText":
			w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.Write([]byte(`{"ok":true,"result":true}`))
		}
	}))
	t.Cleanup(server.Close)

	log := logger.NewLogger("")
	bot, err := telegram.NewBot("TOKEN", server.URL)
	require.NoError(t, err)
	engine := dialog.NewEngine(db, dialog.NewMemorySessionStore(), log, "Europe/Moscow", []string{"Europe/Moscow"})
	return botapi.NewRouter(engine, bot, log), calls
}

func TestStartCommandGreetsAndShowsMenu(t *testing.T) {
	router, calls := newBot(t)

	router.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 1,
			Text:      "/start",
			Chat:      &tgbotapi.Chat{ID: 42},
			From:      &tgbotapi.User{ID: 42, FirstName: "Ann"},
		},
	})

	require.Len(t, *calls, 2)
	assert.Equal(t, "sendMessage", (*calls)[0].method)
	assert.Contains(t, (*calls)[0].params.Get("text"), "Hi, Ann!")
	assert.Equal(t, "sendMessage", (*calls)[1].method)
	assert.Equal(t, "Choose an action:", (*calls)[1].params.Get("text"))
	assert.Contains(t, (*calls)[1].params.Get("reply_markup"), "add_event")
}

func TestCallbackEditsMenuInPlace(t *testing.T) {
	router, calls := newBot(t)
	ctx := context.Background()

	router.HandleUpdate(ctx, tgbotapi.Update{
		Message: &tgbotapi.Message{MessageID: 1, Text: "/start", Chat: &tgbotapi.Chat{ID: 42}},
	})
	*calls = nil

	router.HandleUpdate(ctx, tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb1",
			From:    &tgbotapi.User{ID: 42},
			Data:    "add_event",
			Message: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: 42}},
		},
	})

	require.Len(t, *calls, 2)
	assert.Equal(t, "answerCallbackQuery", (*calls)[0].method)
	assert.Equal(t, "cb1", (*calls)[0].params.Get("callback_query_id"))
	assert.Equal(t, "editMessageText", (*calls)[1].method)
	assert.Equal(t, "2", (*calls)[1].params.Get("message_id"))
	assert.Equal(t, "Enter the event name:", (*calls)[1].params.Get("text"))
}

func TestUnparseableCallbackIsDropped(t *testing.T) {
	router, calls := newBot(t)

	router.HandleUpdate(context.Background(), tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb1",
			From:    &tgbotapi.User{ID: 42},
			Data:    "launch_missiles",
			Message: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: 42}},
		},
	})

	// The spinner is acknowledged but no reply is rendered.
	require.Len(t, *calls, 1)
	assert.Equal(t, "answerCallbackQuery", (*calls)[0].method)
}

func TestFreeTextAtMenuIsIgnored(t *testing.T) {
	router, calls := newBot(t)
	ctx := context.Background()

	router.HandleUpdate(ctx, tgbotapi.Update{
		Message: &tgbotapi.Message{MessageID: 1, Text: "/start", Chat: &tgbotapi.Chat{ID: 42}},
	})
	*calls = nil

	router.HandleUpdate(ctx, tgbotapi.Update{
		Message: &tgbotapi.Message{MessageID: 2, Text: "hello?", Chat: &tgbotapi.Chat{ID: 42}},
	})
	assert.Empty(t, *calls)
}

func TestKeyboardOneButtonPerRow(t *testing.T) {
	keyboard := botapi.Keyboard([]dialog.Button{
		{Label: "Add event", Data: "add_event"},
		{Label: "My events", Data: "view_events"},
	})
	require.NotNil(t, keyboard)
	require.Len(t, keyboard.InlineKeyboard, 2)
	require.NotNil(t, keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "add_event", *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "My events", keyboard.InlineKeyboard[1][0].Text)

	assert.Nil(t, botapi.Keyboard(nil))
}

func TestWebhookEndpoint(t *testing.T) {
	router, calls := newBot(t)
	handler := botapi.NewHandler(router)

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	update := tgbotapi.Update{
		UpdateID: 1,
		Message:  &tgbotapi.Message{MessageID: 1, Text: "/start", Chat: &tgbotapi.Chat{ID: 42}},
	}
	body, err := json.Marshal(update)
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/telegram/webhook", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, *calls)

	resp, err = http.Post(server.URL+"/telegram/webhook", "application/json", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
