package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"mac-card-bot/internal/conversation"
	"mac-card-bot/internal/entitlement"
	"mac-card-bot/internal/messages"
	"mac-card-bot/types"
)

func (h *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, telegramID, chatID int64) {
	command := strings.ToLower(strings.TrimSpace(update.Message.Text))
	if i := strings.IndexAny(command, " @"); i > 0 {
		command = command[:i]
	}

	switch command {
	case "/start":
		h.handleStart(ctx, b, telegramID, chatID)
	case "/subscribe":
		h.handleSubscribe(ctx, b, telegramID, chatID)
	case "/stats":
		h.handleStats(ctx, b, telegramID, chatID)
	case "/send_all":
		h.handleSendAll(ctx, b, telegramID, chatID)
	case "/oferta":
		h.handleStaticPage(ctx, b, chatID, messages.OfertaTitle(), messages.OfertaButtonText(), h.cfg.BaseURL+"/static/oferta.html")
	case "/privacy":
		h.handleStaticPage(ctx, b, chatID, messages.PrivacyTitle(), messages.PrivacyButtonText(), h.cfg.BaseURL+"/static/privacy.html")
	default:
		log.Debug().Str("command", command).Msg("unknown command ignored")
	}
}

// handleStart opens a new reading if the daily quota allows it.
func (h *Handlers) handleStart(ctx context.Context, b *bot.Bot, telegramID, chatID int64) {
	profile, err := h.profiles.GetProfile(telegramID)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("profile lookup failed")
		h.sendError(ctx, b, chatID)
		return
	}

	log.Info().
		Int64("telegram_id", telegramID).
		Str("username", profile.Username).
		Msg("new start")

	decision, limit, err := h.entitle.EntryGate(profile)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("entry gate failed")
		h.sendError(ctx, b, chatID)
		return
	}

	switch decision {
	case entitlement.GateBlocked:
		return
	case entitlement.GateQuotaFreeExhausted:
		log.Info().Int64("telegram_id", telegramID).Msg("daily quota reached")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        messages.QuotaFreeExhausted(limit),
			ReplyMarkup: &models.ReplyKeyboardRemove{RemoveKeyboard: true},
		})
		return
	case entitlement.GateQuotaPaidExhausted:
		log.Info().Int64("telegram_id", telegramID).Msg("daily quota reached")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        messages.QuotaPaidExhausted(limit),
			ReplyMarkup: &models.ReplyKeyboardRemove{RemoveKeyboard: true},
		})
		return
	}

	data := &types.ConvoData{
		Step:    string(conversation.StepAwaitingTopic),
		Answers: map[string]string{},
	}
	if err := h.convos.SetConvo(telegramID, data); err != nil {
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("conversation context not saved")
		h.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.Greeting(),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &models.ReplyKeyboardRemove{RemoveKeyboard: true},
	})
}

func (h *Handlers) handleSubscribe(ctx context.Context, b *bot.Bot, telegramID, chatID int64) {
	profile, err := h.profiles.GetProfile(telegramID)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.ErrorTryLater(),
		})
		return
	}

	text := messages.SubscribeChoosePlan()
	if profile.PlanCode != nil && *profile.PlanCode != types.FreePlanCode && profile.SubscriptionExpiresAt != nil {
		if plan, err := h.plans.GetPlan(*profile.PlanCode); err == nil {
			text = messages.SubscribeCurrent(
				plan.Name,
				plan.Price,
				profile.SubscriptionExpiresAt.Format("02.01.2006"),
				plan.DailySessionsLimit,
				messages.CardsLimitText(plan.CardsLimit),
			)
		}
	}

	webAppURL := h.cfg.BaseURL + "/static/webapp/index.html"
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: messages.SubscribeButtonText(), WebApp: &models.WebAppInfo{URL: webAppURL}}},
			},
		},
	})
}

func (h *Handlers) handleStats(ctx context.Context, b *bot.Bot, telegramID, chatID int64) {
	profile, err := h.profiles.GetProfile(telegramID)
	if err != nil || !profile.IsStaff {
		return
	}

	stats, err := h.stats.GetStatistics()
	if err != nil {
		log.Error().Err(err).Msg("statistics query failed")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.StatsFailed(),
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      messages.StatsReport(stats.TotalUsers, stats.RecentUsers, stats.CompletedSessions),
		ParseMode: messages.ParseModeHTML,
	})
}

func (h *Handlers) handleSendAll(ctx context.Context, b *bot.Bot, telegramID, chatID int64) {
	profile, err := h.profiles.GetProfile(telegramID)
	if err != nil || !profile.IsStaff {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.ErrorNoPermission(),
		})
		return
	}

	sent, failed := h.sched.Broadcast(ctx, messages.Reminder())
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   messages.BroadcastReport(sent, failed),
	})
}

func (h *Handlers) handleStaticPage(ctx context.Context, b *bot.Bot, chatID int64, title, buttonText, url string) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      title,
		ParseMode: messages.ParseModeHTML,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: buttonText, WebApp: &models.WebAppInfo{URL: url}}},
			},
		},
	})
}
