package conversation

import (
	"strings"

	"mac-card-bot/internal/messages"
	"mac-card-bot/types"
)

// Input is one incoming update reduced to what the flow cares about.
type Input struct {
	Text   string
	IsText bool
}

// Effect is a side effect the flow wants performed. Transition only decides,
// the caller interprets.
type Effect interface{ isEffect() }

type SendText struct {
	Text           string
	Buttons        []string
	RemoveKeyboard bool
	LinkText       string
	LinkURL        string
}

type SendPhoto struct {
	Path    string
	Caption string
}

type SaveAnswer struct {
	Key   string
	Value string
}

type StartAttempt struct {
	Topic      string
	Category   string
	Style      string
	CardNumber int
}

type ScheduleReminder struct{}

type CompleteAttempt struct{}

func (SendText) isEffect()         {}
func (SendPhoto) isEffect()        {}
func (SaveAnswer) isEffect()       {}
func (StartAttempt) isEffect()     {}
func (ScheduleReminder) isEffect() {}
func (CompleteAttempt) isEffect()  {}

// Drawer picks a card for the given style. The number is the card drawn,
// the path is the image to send.
type Drawer interface {
	Draw(style string) (number int, path string, err error)
}

// Env carries the environment-dependent pieces Transition needs.
type Env struct {
	Drawer     Drawer
	ConsultURL string
}

func oneOf(text string, options ...string) bool {
	for _, opt := range options {
		if text == opt {
			return true
		}
	}
	return false
}

// Transition advances the flow one step. It never mutates data: answer
// updates come back as SaveAnswer effects. An input the current step does
// not accept parks the flow: same step, no effects.
func Transition(step Step, in Input, data *types.ConvoData, env Env) (Step, []Effect, error) {
	if !in.IsText {
		return step, nil, nil
	}

	switch step {
	case StepAwaitingTopic:
		return StepAwaitingCategory, []Effect{
			SaveAnswer{Key: KeyTopic, Value: in.Text},
			SendText{
				Text:    messages.CategoryPrompt(),
				Buttons: []string{messages.CategoryTherapy, messages.CategoryCoaching},
			},
		}, nil

	case StepAwaitingCategory:
		if !oneOf(in.Text, messages.CategoryTherapy, messages.CategoryCoaching) {
			return step, nil, nil
		}
		intros := messages.CardIntros()
		return StepAwaitingCardStyle, []Effect{
			SaveAnswer{Key: KeyCategory, Value: strings.ToLower(in.Text)},
			SendText{Text: intros[0]},
			SendText{Text: intros[1]},
			SendText{
				Text:    intros[2],
				Buttons: []string{messages.StyleDay, messages.StyleNight},
			},
		}, nil

	case StepAwaitingCardStyle:
		if !oneOf(in.Text, messages.StyleDay, messages.StyleNight) {
			return step, nil, nil
		}
		intros := messages.WorkIntros()
		return StepReadyConfirm, []Effect{
			SaveAnswer{Key: KeyCardStyle, Value: strings.ToLower(in.Text)},
			SendText{Text: intros[0]},
			SendText{
				Text:    intros[1],
				Buttons: []string{messages.ReadyButton},
			},
		}, nil

	case StepReadyConfirm:
		style := data.Answers[KeyCardStyle]
		number, path, err := env.Drawer.Draw(style)
		if err != nil {
			return step, nil, err
		}
		return StepReflect1, []Effect{
			StartAttempt{
				Topic:      data.Answers[KeyTopic],
				Category:   data.Answers[KeyCategory],
				Style:      style,
				CardNumber: number,
			},
			SendPhoto{Path: path, Caption: messages.CardCaption()},
			SendText{Text: messages.ReflectFeelings(), RemoveKeyboard: true},
			ScheduleReminder{},
		}, nil

	case StepReflect1:
		return StepReflect2, []Effect{
			SaveAnswer{Key: KeyFeelings, Value: in.Text},
			SendText{Text: messages.ReflectSeen()},
		}, nil

	case StepReflect2:
		return StepReflect3, []Effect{
			SaveAnswer{Key: KeySeen, Value: in.Text},
			SendText{Text: messages.ReflectPleasantIntro()},
			SendText{Text: messages.ReflectPleasant()},
		}, nil

	case StepReflect3:
		return StepReflect4, []Effect{
			SaveAnswer{Key: KeyPleasantCharacter, Value: in.Text},
			SendText{Text: messages.ReflectUnpleasantIntro1()},
			SendText{Text: messages.ReflectUnpleasantIntro2()},
			SendText{Text: messages.ReflectUnpleasant()},
		}, nil

	case StepReflect4:
		return StepReflect5, []Effect{
			SaveAnswer{Key: KeyUnpleasantCharacter, Value: in.Text},
			SendText{Text: messages.ReflectCharactersIntro1()},
			SendText{Text: messages.ReflectCharactersIntro2()},
			SendText{Text: messages.ReflectCharacters()},
		}, nil

	case StepReflect5:
		return StepReflect6, []Effect{
			SaveAnswer{Key: KeyCharactersFeelings, Value: in.Text},
			SendText{Text: messages.ReflectHappeningIntro()},
			SendText{Text: messages.ReflectHappening()},
		}, nil

	case StepReflect6:
		return StepSimilarityCheck, []Effect{
			SaveAnswer{Key: KeyHappening, Value: in.Text},
			SendText{Text: messages.SimilarityIntro()},
			SendText{Text: messages.SimilarityPrompt()},
		}, nil

	case StepSimilarityCheck:
		leadIns := messages.RecapLeadIns()
		return StepRecap, []Effect{
			SaveAnswer{Key: KeySimilarity, Value: in.Text},
			SendText{Text: leadIns[0]},
			SendText{Text: leadIns[1]},
			SendText{
				Text:    leadIns[2],
				Buttons: []string{messages.OKButton},
			},
		}, nil

	case StepRecap:
		effects := []Effect{
			SendText{Text: messages.RecapHeader(), RemoveKeyboard: true},
		}
		for _, key := range RecapOrder {
			if answer := data.Answers[key]; answer != "" {
				effects = append(effects, SendText{Text: messages.Escape(answer)})
			}
		}
		effects = append(effects, SendText{Text: messages.RecapFooter()})
		return StepInsight1, effects, nil

	case StepInsight1:
		return StepInsight2, []Effect{
			SendText{Text: messages.InsightFeelings()},
		}, nil

	case StepInsight2:
		return StepFollowUpOffer, []Effect{
			SendText{Text: messages.InsightAction()},
		}, nil

	case StepFollowUpOffer:
		return StepClosing, []Effect{
			SendText{
				Text:    messages.FollowUpPrompt(),
				Buttons: []string{messages.AnswerYes, messages.AnswerNo},
			},
		}, nil

	case StepClosing:
		closing := messages.ClosingNo()
		if strings.Contains(strings.ToLower(in.Text), "да") {
			closing = messages.ClosingYes()
		}
		return StepTerminal, []Effect{
			SendText{Text: closing, RemoveKeyboard: true},
			SendText{Text: messages.RandomEncouragement()},
			SendText{
				Text:     messages.ConsultOffer(),
				LinkText: messages.ConsultButtonText(),
				LinkURL:  env.ConsultURL,
			},
			CompleteAttempt{},
		}, nil

	case StepIdle, StepTerminal:
		return step, nil, nil
	}

	return step, nil, nil
}
