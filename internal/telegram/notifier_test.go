package telegram_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbot/internal/telegram"
)

type apiCall struct {
	method string
	params url.Values
}

// newFakeAPI serves the Bot API shape the client expects: form-encoded
// requests, JSON envelope responses. overrides swaps the response for a
// method; getMe always succeeds so the client can authenticate.
func newFakeAPI(t *testing.T, overrides map[string]string) (*httptest.Server, *[]apiCall) {
	t.Helper()

	calls := &[]apiCall{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		method := path.Base(r.URL.Path)
		if method != "getMe" {
			*calls = append(*calls, apiCall{method: method, params: r.PostForm})
		}

		w.Header().Set("Content-Type", "application/json")
		if body, ok := overrides[method]; ok {
			w.Write([]byte(body))
			return
		}
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
	return server, calls
}

func TestNewBotAuthenticates(t *testing.T) {
	server, _ := newFakeAPI(t, nil)

	bot, err := telegram.NewBot("TOKEN", server.URL)
	require.NoError(t, err)
	assert.Equal(t, "remindbot", bot.Self.UserName)
}

func TestNewBotRejectsBadToken(t *testing.T) {
	server, _ := newFakeAPI(t, map[string]string{
		"getMe": `{"ok":false,"error_code":401,"description":"Unauthorized"}`,
	})

	_, err := telegram.NewBot("WRONG", server.URL)
	assert.Error(t, err)
}

func TestDeliverSendsPlainMessage(t *testing.T) {
	server, calls := newFakeAPI(t, nil)

	bot, err := telegram.NewBot("TOKEN", server.URL)
	require.NoError(t, err)
	notifier := telegram.NewNotifier(bot)

	require.NoError(t, notifier.Deliver(context.Background(), 42, "🔔 REMINDER 🔔"))

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "sendMessage", call.method)
	assert.Equal(t, "42", call.params.Get("chat_id"))
	assert.Equal(t, "🔔 REMINDER 🔔", call.params.Get("text"))
	assert.Empty(t, call.params.Get("reply_markup"))
}

func TestDeliverSurfacesAPIError(t *testing.T) {
	server, _ := newFakeAPI(t, map[string]string{
		"sendMessage": `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
	})

	bot, err := telegram.NewBot("TOKEN", server.URL)
	require.NoError(t, err)
	notifier := telegram.NewNotifier(bot)

	err = notifier.Deliver(context.Background(), 42, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
