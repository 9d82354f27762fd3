package conversation

// Step is one position in the card reading flow. Steps are stored as plain
// strings in the conversation context so the flow survives restarts.
type Step string

const (
	StepIdle              Step = "idle"
	StepAwaitingTopic     Step = "awaiting_topic"
	StepAwaitingCategory  Step = "awaiting_category"
	StepAwaitingCardStyle Step = "awaiting_card_style"
	StepReadyConfirm      Step = "ready_confirm"
	StepReflect1          Step = "reflect_1"
	StepReflect2          Step = "reflect_2"
	StepReflect3          Step = "reflect_3"
	StepReflect4          Step = "reflect_4"
	StepReflect5          Step = "reflect_5"
	StepReflect6          Step = "reflect_6"
	StepSimilarityCheck   Step = "similarity_check"
	StepRecap             Step = "recap"
	StepInsight1          Step = "insight_1"
	StepInsight2          Step = "insight_2"
	StepFollowUpOffer     Step = "follow_up_offer"
	StepClosing           Step = "closing"
	StepTerminal          Step = "terminal"
)

// Descriptions is the audit label written to the state log per step.
var Descriptions = map[Step]string{
	StepIdle:              "Нет активной сессии",
	StepAwaitingTopic:     "Ожидание запроса пользователя",
	StepAwaitingCategory:  "Выбор типа запроса (психотерапевтический/коучинговый)",
	StepAwaitingCardStyle: "Выбор типа карты (день/ночь)",
	StepReadyConfirm:      "Подтверждение готовности начать работу",
	StepReflect1:          "Описание чувств и эмоций от карты",
	StepReflect2:          "Описание того, что видит пользователь на карте",
	StepReflect3:          "Описание приятного персонажа",
	StepReflect4:          "Описание неприятного персонажа",
	StepReflect5:          "Описание чувств персонажей",
	StepReflect6:          "Описание происходящего на карте",
	StepSimilarityCheck:   "Ответ на вопрос о сходстве с реальной ситуацией",
	StepRecap:             "Показ всех ответов пользователя",
	StepInsight1:          "Чувства",
	StepInsight2:          "Что могла бы сделать",
	StepFollowUpOffer:     "Получила подсказку",
	StepClosing:           "Окончание работы и предложение консультации",
	StepTerminal:          "Завершение работы",
}

// Answer keys collected during the flow.
const (
	KeyTopic               = "topic"
	KeyCategory            = "category"
	KeyCardStyle           = "card_style"
	KeyFeelings            = "feelings"
	KeySeen                = "seen"
	KeyPleasantCharacter   = "pleasant_character"
	KeyUnpleasantCharacter = "unpleasant_character"
	KeyCharactersFeelings  = "characters_feelings"
	KeyHappening           = "happening"
	KeySimilarity          = "similarity"
)

// RecapOrder fixes the order answers are replayed in the recap.
var RecapOrder = []string{
	KeyTopic,
	KeyFeelings,
	KeySeen,
	KeyPleasantCharacter,
	KeyUnpleasantCharacter,
	KeyCharactersFeelings,
	KeyHappening,
	KeySimilarity,
}
