package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"mac-card-bot/types"
)

type fakeConvoStore struct {
	data map[int64]*types.ConvoData
	err  error
}

func (f *fakeConvoStore) GetConvo(telegramID int64) (*types.ConvoData, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.data[telegramID]
	if !ok {
		return nil, fmt.Errorf("convo %d: %w", telegramID, types.ErrNotFound)
	}
	return d, nil
}

func (f *fakeConvoStore) SetConvo(telegramID int64, data *types.ConvoData) error {
	if f.data == nil {
		f.data = map[int64]*types.ConvoData{}
	}
	f.data[telegramID] = data
	return nil
}

func (f *fakeConvoStore) ClearConvo(telegramID int64) error {
	delete(f.data, telegramID)
	return nil
}

func (f *fakeConvoStore) ActiveProfileIDs() ([]int64, error) { return nil, nil }

// apiRecorder plays the Telegram API and remembers which methods were hit.
type apiRecorder struct {
	mu      sync.Mutex
	methods []string
}

func (r *apiRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	parts := strings.Split(req.URL.Path, "/")
	r.mu.Lock()
	r.methods = append(r.methods, parts[len(parts)-1])
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true,"result":{}}`))
}

func (r *apiRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.methods...)
}

func newTestBot(t *testing.T) (*bot.Bot, *apiRecorder) {
	t.Helper()
	rec := &apiRecorder{}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	b, err := bot.New("test-token", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	if err != nil {
		t.Fatal(err)
	}
	return b, rec
}

func textUpdate(text string) *models.Update {
	return &models.Update{Message: &models.Message{
		Text: text,
		From: &models.User{ID: 42},
		Chat: models.Chat{ID: 42},
	}}
}

func TestHandleTextIgnoresMissingConversation(t *testing.T) {
	b, rec := newTestBot(t)
	convos := &fakeConvoStore{}
	h := NewHandlers(nil, nil, nil, nil, nil, nil, convos, nil, nil, nil, Config{})

	h.HandleText(context.Background(), b, textUpdate("привет"), 42, 42)

	if calls := rec.calls(); len(calls) != 0 {
		t.Fatalf("text without a conversation must stay silent, api calls = %v", calls)
	}
}

func TestHandleTextReportsConversationStoreOutage(t *testing.T) {
	b, rec := newTestBot(t)
	convos := &fakeConvoStore{err: errors.New("dial tcp: connection refused")}
	h := NewHandlers(nil, nil, nil, nil, nil, nil, convos, nil, nil, nil, Config{})

	h.HandleText(context.Background(), b, textUpdate("привет"), 42, 42)

	calls := rec.calls()
	if len(calls) != 1 || calls[0] != "sendMessage" {
		t.Fatalf("store outage must surface as an error message, api calls = %v", calls)
	}
}

func TestHandleTextIgnoresIdleConversation(t *testing.T) {
	b, rec := newTestBot(t)
	convos := &fakeConvoStore{data: map[int64]*types.ConvoData{
		42: {Step: "idle", Answers: map[string]string{}},
	}}
	h := NewHandlers(nil, nil, nil, nil, nil, nil, convos, nil, nil, nil, Config{})

	h.HandleText(context.Background(), b, textUpdate("привет"), 42, 42)

	if calls := rec.calls(); len(calls) != 0 {
		t.Fatalf("idle conversation must stay silent, api calls = %v", calls)
	}
}
