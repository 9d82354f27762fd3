package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/rs/zerolog/log"

	"mac-card-bot/internal/messages"
	"mac-card-bot/internal/scheduler"
	"mac-card-bot/types"
)

// PaymentNotifier tells a profile their subscription went live. It is wired
// into the webhook server.
type PaymentNotifier struct {
	Sender   scheduler.Sender
	Profiles types.ProfileStore
	Plans    types.PlanStore
}

func (n *PaymentNotifier) NotifyActivated(telegramID int64, planCode string, expiresAt *time.Time) {
	profile, err := n.Profiles.GetProfile(telegramID)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("activation notice: profile lookup failed")
		return
	}

	planName := planCode
	if plan, err := n.Plans.GetPlan(planCode); err == nil {
		planName = plan.Name
	}

	expiresDate := ""
	if expiresAt != nil {
		expiresDate = expiresAt.Format("02.01.2006")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = n.Sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    profile.ChatID,
		Text:      messages.PaymentActivated(planName, expiresDate),
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("activation notice delivery failed")
	}
}
