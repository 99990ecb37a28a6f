package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowerbot/internal/bot"
)

func TestToMessage(t *testing.T) {
	u := tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "100, Alice, 500",
		Chat: &tgbotapi.Chat{ID: 42},
		From: &tgbotapi.User{FirstName: "Asha"},
	}}
	m, ok := toMessage(u)
	require.True(t, ok)
	assert.Equal(t, bot.Message{ChatID: 42, Text: "100, Alice, 500", FirstName: "Asha"}, m)

	u.Message.From = nil
	m, ok = toMessage(u)
	require.True(t, ok)
	assert.Empty(t, m.FirstName)

	_, ok = toMessage(tgbotapi.Update{})
	assert.False(t, ok)

	_, ok = toMessage(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}})
	assert.False(t, ok, "non-text messages are skipped")
}

func TestWebhookHandler(t *testing.T) {
	c := newClient(&tgbotapi.BotAPI{}, nil)
	var got []bot.Message
	h := c.WebhookHandler(func(_ context.Context, m bot.Message) { got = append(got, m) })

	body := `{"update_id":1,"message":{"message_id":5,"date":0,"text":"/report daily",` +
		`"chat":{"id":7,"type":"private"},"from":{"id":9,"is_bot":false,"first_name":"Ravi"}}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/secret", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, []bot.Message{{ChatID: 7, Text: "/report daily", FirstName: "Ravi"}}, got)
}

func TestWebhookHandlerRejectsBadRequests(t *testing.T) {
	c := newClient(&tgbotapi.BotAPI{}, nil)
	called := false
	h := c.WebhookHandler(func(context.Context, bot.Message) { called = true })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/secret", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook/secret", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.False(t, called)
}

// fakeAPI answers getMe and sendMessage, rejecting Markdown while rejectMarkdown is set.
type fakeAPI struct {
	mu             sync.Mutex
	rejectMarkdown bool
	parseModes     []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Flower","username":"flowerbot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		mode := r.FormValue("parse_mode")
		f.mu.Lock()
		f.parseModes = append(f.parseModes, mode)
		reject := f.rejectMarkdown && mode != ""
		f.mu.Unlock()
		if reject {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Can't find end of the entity"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func newFakeClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c, err := NewWithEndpoint("123:abc", srv.URL+"/bot%s/%s", srv.Client(), nil)
	require.NoError(t, err)
	return c
}

func TestSendUsesMarkdown(t *testing.T) {
	api := &fakeAPI{}
	c := newFakeClient(t, api)
	assert.Equal(t, "flowerbot", c.Username())

	require.NoError(t, c.Send(context.Background(), 42, "*bold*"))
	assert.Equal(t, []string{tgbotapi.ModeMarkdown}, api.parseModes)
}

func TestSendFallsBackToPlainText(t *testing.T) {
	api := &fakeAPI{rejectMarkdown: true}
	c := newFakeClient(t, api)

	require.NoError(t, c.Send(context.Background(), 42, "Report for mary_jane"))
	assert.Equal(t, []string{tgbotapi.ModeMarkdown, ""}, api.parseModes)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	api := &fakeAPI{}
	c := newFakeClient(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Send(ctx, 42, "hi"), context.Canceled)
	assert.Empty(t, api.parseModes)
}
