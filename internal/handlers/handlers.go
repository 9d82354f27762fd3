package handlers

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"mac-card-bot/internal/contextkeys"
	"mac-card-bot/internal/entitlement"
	"mac-card-bot/internal/messages"
	"mac-card-bot/internal/prodamus"
	"mac-card-bot/internal/scheduler"
	"mac-card-bot/types"
)

// Config carries the handler-level settings.
type Config struct {
	// CardsRoot is the directory holding the card images, one folder per
	// style.
	CardsRoot string
	// ConsultURL is the link offered at the end of a reading.
	ConsultURL string
	// BaseURL serves the web app and the static legal pages.
	BaseURL string
}

type Handlers struct {
	profiles types.ProfileStore
	plans    types.PlanStore
	sessions types.SessionLedger
	orders   types.OrderStore
	states   types.StateLog
	stats    types.StatsStore
	convos   types.ConvoStore

	entitle  *entitlement.Service
	payments *prodamus.Service
	sched    *scheduler.Scheduler
	cfg      Config

	// one lock per profile so a profile's updates are handled in order
	locks sync.Map
}

func NewHandlers(
	profiles types.ProfileStore,
	plans types.PlanStore,
	sessions types.SessionLedger,
	orders types.OrderStore,
	states types.StateLog,
	stats types.StatsStore,
	convos types.ConvoStore,
	entitle *entitlement.Service,
	payments *prodamus.Service,
	sched *scheduler.Scheduler,
	cfg Config,
) *Handlers {
	return &Handlers{
		profiles: profiles,
		plans:    plans,
		sessions: sessions,
		orders:   orders,
		states:   states,
		stats:    stats,
		convos:   convos,
		entitle:  entitle,
		payments: payments,
		sched:    sched,
		cfg:      cfg,
	}
}

func (h *Handlers) lockProfile(telegramID int64) *sync.Mutex {
	v, _ := h.locks.LoadOrStore(telegramID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (h *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID, ok := contextkeys.GetProfileID(ctx)
	if !ok {
		return
	}
	chatID, ok := contextkeys.GetChatID(ctx)
	if !ok {
		return
	}

	mu := h.lockProfile(telegramID)
	mu.Lock()
	defer mu.Unlock()

	kind, _ := contextkeys.GetMessageKind(ctx)
	switch kind {
	case contextkeys.MessageKindCommand:
		h.HandleCommand(ctx, b, update, telegramID, chatID)
	case contextkeys.MessageKindWebApp:
		h.HandleWebAppData(ctx, b, telegramID, chatID)
	case contextkeys.MessageKindText:
		h.HandleText(ctx, b, update, telegramID, chatID)
	default:
		log.Debug().Int64("telegram_id", telegramID).Msg("unsupported update ignored")
	}
}

func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      messages.ErrorDefault(),
		ParseMode: messages.ParseModeHTML,
	})
}

// makeRowKeyboard builds a one-row reply keyboard.
func makeRowKeyboard(items []string) *models.ReplyKeyboardMarkup {
	row := make([]models.KeyboardButton, 0, len(items))
	for _, item := range items {
		row = append(row, models.KeyboardButton{Text: item})
	}
	return &models.ReplyKeyboardMarkup{
		Keyboard:       [][]models.KeyboardButton{row},
		ResizeKeyboard: true,
	}
}
