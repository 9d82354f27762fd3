package handlers

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"mac-card-bot/internal/conversation"
	"mac-card-bot/internal/messages"
	"mac-card-bot/types"
)

// HandleText advances the card reading flow one step and performs the
// effects the flow asks for.
func (h *Handlers) HandleText(ctx context.Context, b *bot.Bot, update *models.Update, telegramID, chatID int64) {
	data, err := h.convos.GetConvo(telegramID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// no live conversation, text outside a reading is ignored
			return
		}
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("conversation context lookup failed")
		h.sendError(ctx, b, chatID)
		return
	}

	step := conversation.Step(data.Step)
	if step == "" || step == conversation.StepIdle || step == conversation.StepTerminal {
		return
	}

	profile, err := h.profiles.GetProfile(telegramID)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("profile lookup failed")
		h.sendError(ctx, b, chatID)
		return
	}

	cardLimit, err := h.entitle.AvailableCardLimit(profile)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("card limit lookup failed")
		h.sendError(ctx, b, chatID)
		return
	}

	env := conversation.Env{
		Drawer:     &conversation.FSDeck{Root: h.cfg.CardsRoot, Limit: cardLimit},
		ConsultURL: h.cfg.ConsultURL,
	}

	in := conversation.Input{Text: update.Message.Text, IsText: true}
	newStep, effects, err := conversation.Transition(step, in, data, env)
	if err != nil {
		log.Error().Err(err).
			Int64("telegram_id", telegramID).
			Str("step", string(step)).
			Msg("flow transition failed")
		h.sendError(ctx, b, chatID)
		return
	}

	if len(effects) > 0 {
		h.logState(telegramID, step)
	}

	for _, effect := range effects {
		h.applyEffect(ctx, b, telegramID, chatID, data, effect)
	}

	if newStep == conversation.StepTerminal {
		h.logState(telegramID, conversation.StepTerminal)
		if err := h.convos.ClearConvo(telegramID); err != nil {
			log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("conversation context not cleared")
		}
		return
	}

	if newStep != step || len(effects) > 0 {
		data.Step = string(newStep)
		if err := h.convos.SetConvo(telegramID, data); err != nil {
			log.Error().Err(err).Int64("telegram_id", telegramID).Msg("conversation context not saved")
			h.sendError(ctx, b, chatID)
		}
	}
}

func (h *Handlers) logState(telegramID int64, step conversation.Step) {
	if err := h.states.AppendState(telegramID, string(step), conversation.Descriptions[step], time.Now()); err != nil {
		log.Warn().Err(err).
			Int64("telegram_id", telegramID).
			Str("step", string(step)).
			Msg("state not recorded")
	}
}

func (h *Handlers) applyEffect(ctx context.Context, b *bot.Bot, telegramID, chatID int64, data *types.ConvoData, effect conversation.Effect) {
	switch e := effect.(type) {
	case conversation.SendText:
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      e.Text,
			ParseMode: messages.ParseModeHTML,
		}
		switch {
		case len(e.Buttons) > 0:
			params.ReplyMarkup = makeRowKeyboard(e.Buttons)
		case e.RemoveKeyboard:
			params.ReplyMarkup = &models.ReplyKeyboardRemove{RemoveKeyboard: true}
		case e.LinkURL != "":
			params.ReplyMarkup = &models.InlineKeyboardMarkup{
				InlineKeyboard: [][]models.InlineKeyboardButton{
					{{Text: e.LinkText, URL: e.LinkURL}},
				},
			}
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("message send failed")
		}

	case conversation.SendPhoto:
		file, err := os.Open(e.Path)
		if err != nil {
			log.Error().Err(err).Str("path", e.Path).Msg("card image open failed")
			h.sendError(ctx, b, chatID)
			return
		}
		defer file.Close()
		_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  chatID,
			Photo:   &models.InputFileUpload{Filename: "card.jpg", Data: file},
			Caption: e.Caption,
		})
		if err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("card photo send failed")
		}

	case conversation.SaveAnswer:
		data.Answers[e.Key] = e.Value

	case conversation.StartAttempt:
		err := h.sessions.StartAttempt(telegramID, e.Topic, e.Category, e.Style, e.CardNumber)
		if err != nil {
			log.Error().Err(err).Int64("telegram_id", telegramID).Msg("attempt not recorded")
		}

	case conversation.ScheduleReminder:
		h.sched.ScheduleReminder(chatID)

	case conversation.CompleteAttempt:
		completed, err := h.sessions.CompleteLatestOpenAttempt(telegramID)
		if err != nil {
			log.Error().Err(err).Int64("telegram_id", telegramID).Msg("attempt completion failed")
		} else if !completed {
			log.Warn().Int64("telegram_id", telegramID).Msg("no open attempt to complete")
		}
	}
}
