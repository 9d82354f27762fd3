package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"mac-card-bot/internal/messages"
	"mac-card-bot/types"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []int64
	failFor map[int64]bool
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chatID := params.ChatID.(int64)
	if f.failFor[chatID] {
		return nil, errors.New("chat unavailable")
	}
	f.sent = append(f.sent, chatID)
	return &models.Message{}, nil
}

func (f *fakeSender) sentTo() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeConvos struct {
	ids []int64
}

func (f *fakeConvos) GetConvo(telegramID int64) (*types.ConvoData, error) {
	return nil, types.ErrNotFound
}
func (f *fakeConvos) SetConvo(telegramID int64, data *types.ConvoData) error { return nil }
func (f *fakeConvos) ClearConvo(telegramID int64) error                      { return nil }
func (f *fakeConvos) ActiveProfileIDs() ([]int64, error)                     { return f.ids, nil }

func TestScheduleReminderFires(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(sender, &fakeConvos{}, Config{ReminderDelay: 10 * time.Millisecond})
	s.Start()
	defer s.Stop()

	s.ScheduleReminder(100)

	deadline := time.After(2 * time.Second)
	for {
		if sent := sender.sentTo(); len(sent) == 1 {
			if sent[0] != 100 {
				t.Fatalf("reminder went to %d", sent[0])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("reminder never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStopCancelsPendingReminders(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(sender, &fakeConvos{}, Config{ReminderDelay: time.Hour})
	s.Start()

	s.ScheduleReminder(100)
	s.Stop()

	if sent := sender.sentTo(); len(sent) != 0 {
		t.Fatalf("reminder fired after stop: %v", sent)
	}
}

func TestScheduleReminderIgnoredWhenNotRunning(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(sender, &fakeConvos{}, Config{ReminderDelay: time.Millisecond})

	s.ScheduleReminder(100)
	time.Sleep(20 * time.Millisecond)
	if sent := sender.sentTo(); len(sent) != 0 {
		t.Fatalf("reminder fired before start: %v", sent)
	}
}

func TestBroadcastCountsFailures(t *testing.T) {
	sender := &fakeSender{failFor: map[int64]bool{2: true}}
	s := NewScheduler(sender, &fakeConvos{ids: []int64{1, 2, 3}}, Config{})
	s.Start()
	defer s.Stop()

	sent, failed := s.Broadcast(context.Background(), messages.Reminder())
	if sent != 2 || failed != 1 {
		t.Fatalf("sent=%d failed=%d, want 2/1", sent, failed)
	}
}
