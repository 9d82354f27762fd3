package handlers

import (
	"context"
	"encoding/json"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"mac-card-bot/internal/contextkeys"
	"mac-card-bot/internal/messages"
	"mac-card-bot/types"
)

type planChoice struct {
	Plan string `json:"plan"`
}

// HandleWebAppData turns a plan picked in the web app into a payment order
// and replies with the signed payment link.
func (h *Handlers) HandleWebAppData(ctx context.Context, b *bot.Bot, telegramID, chatID int64) {
	raw, ok := contextkeys.GetWebAppData(ctx)
	if !ok {
		return
	}

	var choice planChoice
	if err := json.Unmarshal([]byte(raw), &choice); err != nil || choice.Plan == "" {
		log.Error().Str("raw", raw).Int64("telegram_id", telegramID).Msg("webapp data without plan")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.ErrorNoPlanSelected(),
		})
		return
	}

	log.Info().
		Int64("telegram_id", telegramID).
		Str("plan", choice.Plan).
		Msg("plan selected in webapp")

	plan, err := h.plans.GetPlan(choice.Plan)
	if err != nil {
		log.Error().Err(err).Str("plan", choice.Plan).Msg("plan lookup failed")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.ErrorOrderFailed(),
		})
		return
	}

	profile, err := h.profiles.GetProfile(telegramID)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("profile lookup failed")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.ErrorOrderFailed(),
		})
		return
	}

	orderID := h.payments.GenerateOrderID(telegramID, plan.Code)
	planCode := plan.Code
	order := types.PaymentOrder{
		OrderID:    orderID,
		TelegramID: telegramID,
		PlanCode:   &planCode,
		Amount:     plan.Price,
		Status:     types.OrderPending,
	}
	if err := h.orders.CreateOrder(order); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("order create failed")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.ErrorOrderFailed(),
		})
		return
	}

	paymentURL, err := h.payments.CreatePaymentLink(orderID, plan, telegramID, profile.Username)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("payment link failed")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   messages.ErrorOrderFailed(),
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      messages.OrderCreated(plan.Name, orderID),
		ParseMode: messages.ParseModeHTML,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: messages.PayButtonText(), URL: paymentURL}},
			},
		},
	})
}
