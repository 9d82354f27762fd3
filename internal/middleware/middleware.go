package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"mac-card-bot/internal/contextkeys"
	"mac-card-bot/internal/messages"
	"mac-card-bot/types"
)

type Middlewares struct {
	profiles types.ProfileStore
}

func NewMiddlewares(profiles types.ProfileStore) *Middlewares {
	return &Middlewares{
		profiles: profiles,
	}
}

// EnsureProfileMiddleware makes sure every update has a profile row behind it
// and drops updates from blocked profiles before any handler sees them.
func (m *Middlewares) EnsureProfileMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}

		from := update.Message.From
		chatID := update.Message.Chat.ID
		if from.ID == 0 || chatID == 0 {
			return
		}

		profile, err := m.profiles.GetProfile(from.ID)
		if err != nil {
			if upErr := m.profiles.UpsertProfile(types.Profile{
				TelegramID: from.ID,
				ChatID:     chatID,
				Username:   from.Username,
				FirstName:  from.FirstName,
				Locale:     from.LanguageCode,
			}); upErr != nil {
				log.Error().Err(upErr).Int64("telegram_id", from.ID).Msg("profile create failed")
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID:    chatID,
					Text:      messages.ErrorDefault(),
					ParseMode: messages.ParseModeHTML,
				})
				return
			}
			profile, err = m.profiles.GetProfile(from.ID)
			if err != nil {
				log.Error().Err(err).Int64("telegram_id", from.ID).Msg("profile reload failed")
				return
			}
		}

		// every profile holds at least the free plan before quota checks,
		// including ones imported without a plan
		if profile.PlanCode == nil {
			var expiry *time.Time
			if setErr := m.profiles.SetPlan(from.ID, types.FreePlanCode, expiry); setErr != nil {
				log.Error().Err(setErr).Int64("telegram_id", from.ID).Msg("default plan not assigned")
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID:    chatID,
					Text:      messages.ErrorDefault(),
					ParseMode: messages.ParseModeHTML,
				})
				return
			}
			free := types.FreePlanCode
			profile.PlanCode = &free
			profile.SubscriptionExpiresAt = nil
		}

		if profile.IsBlocked {
			log.Warn().Int64("telegram_id", from.ID).Msg("blocked profile ignored")
			return
		}

		if err := m.profiles.TouchLastRequest(from.ID); err != nil {
			log.Warn().Err(err).Int64("telegram_id", from.ID).Msg("last request not touched")
		}

		ctx = contextkeys.WithProfileID(ctx, from.ID)
		ctx = contextkeys.WithChatID(ctx, chatID)
		next(ctx, b, update)
	}
}

func (m *Middlewares) ClassifyMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}

		msg := update.Message
		switch {
		case msg.WebAppData != nil && msg.WebAppData.Data != "":
			ctx = contextkeys.WithMessageKind(ctx, contextkeys.MessageKindWebApp)
			ctx = contextkeys.WithWebAppData(ctx, msg.WebAppData.Data)
		case msg.Text != "" && strings.HasPrefix(msg.Text, "/"):
			ctx = contextkeys.WithMessageKind(ctx, contextkeys.MessageKindCommand)
		case msg.Text != "":
			ctx = contextkeys.WithMessageKind(ctx, contextkeys.MessageKindText)
		default:
			ctx = contextkeys.WithMessageKind(ctx, contextkeys.MessageKindUnknown)
		}

		next(ctx, b, update)
	}
}
