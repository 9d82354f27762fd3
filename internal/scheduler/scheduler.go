// Package scheduler delivers deferred messages: the next-day reminder after
// a card is drawn and staff broadcasts to profiles with a live conversation.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"mac-card-bot/internal/messages"
	"mac-card-bot/types"
)

// Sender is the slice of the bot API the scheduler needs. *bot.Bot
// satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Scheduler struct {
	sender Sender
	convos types.ConvoStore

	delay   time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

type Config struct {
	// ReminderDelay is how long after a drawn card the reminder goes out.
	ReminderDelay time.Duration
}

func NewScheduler(sender Sender, convos types.ConvoStore, config Config) *Scheduler {
	if config.ReminderDelay <= 0 {
		config.ReminderDelay = 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sender: sender,
		convos: convos,
		delay:  config.ReminderDelay,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Info().Dur("reminder_delay", s.delay).Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	log.Info().Msg("stopping scheduler")
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("scheduler stopped")
}

// ScheduleReminder arms a one-shot reminder for the chat. The reminder fires
// even if the profile finishes or abandons the reading in the meantime. A
// failed delivery is logged and never retried.
func (s *Scheduler) ScheduleReminder(chatID int64) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        messages.Reminder(),
			ReplyMarkup: &models.ReplyKeyboardRemove{RemoveKeyboard: true},
		})
		if err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("reminder delivery failed")
			return
		}
		log.Info().Int64("chat_id", chatID).Msg("reminder sent")
	}()
}

// Broadcast sends the text to every profile with a live conversation
// context. Returns how many sends worked and how many failed.
func (s *Scheduler) Broadcast(ctx context.Context, text string) (sent, failed int) {
	ids, err := s.convos.ActiveProfileIDs()
	if err != nil {
		log.Error().Err(err).Msg("broadcast: active profiles lookup failed")
		return 0, 0
	}

	for _, id := range ids {
		_, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: id,
			Text:   text,
		})
		if err != nil {
			log.Error().Err(err).Int64("chat_id", id).Msg("broadcast delivery failed")
			failed++
			continue
		}
		sent++
	}

	log.Info().Int("sent", sent).Int("failed", failed).Msg("broadcast finished")
	return sent, failed
}
