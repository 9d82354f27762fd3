package messages

import (
	"fmt"
	"math/rand"
	"strings"
)

const ParseModeHTML = "HTML"

const (
	CategoryTherapy  = "Психотерапевтический"
	CategoryCoaching = "Коучинговый"

	StyleDay   = "День"
	StyleNight = "Ночь"

	AnswerYes = "Да"
	AnswerNo  = "Нет"

	ReadyButton = "Хорошо, я готов/а"
	OKButton    = "OK"
)

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func ErrorDefault() string {
	return "🚫 <b>Ошибка</b>\nПопробуйте ещё раз."
}

func Greeting() string {
	return "👋 <b>Привет!</b>\nЯ помогу тебе поработать с метафорической картой.\n\n" +
		"Сформулируй свой запрос: что сейчас волнует, о чём хочется подумать?\n" +
		"Напиши его одним сообщением."
}

func CategoryPrompt() string {
	return "Спасибо! Теперь выбери тип запроса:"
}

// CardIntros returns the three lead-in messages before the card style choice.
// The last one is sent together with the style keyboard.
func CardIntros() [3]string {
	return [3]string{
		"Метафорическая карта — это образ, через который можно посмотреть на свою ситуацию со стороны.",
		"Здесь нет правильных и неправильных ответов: важно только то, что увидишь и почувствуешь ты.",
		"Какую карту вытянем — дневную или ночную?",
	}
}

// WorkIntros returns the two messages before the readiness confirmation.
// The second one is sent together with the ready keyboard.
func WorkIntros() [2]string {
	return [2]string{
		"Отлично. Сейчас я вытяну для тебя карту.",
		"Когда будешь готов/а начать работу с ней, нажми кнопку ниже.",
	}
}

func CardCaption() string {
	return "Вот твоя карта 🃏"
}

func ReflectFeelings() string {
	return "Посмотри на карту. Какие чувства и эмоции она у тебя вызывает?\nОпиши их одним сообщением."
}

func ReflectSeen() string {
	return "Что ты видишь на карте? Опиши всё, что замечаешь."
}

func ReflectPleasantIntro() string {
	return "Теперь присмотрись к персонажам или образам на карте."
}

func ReflectPleasant() string {
	return "Кто или что на карте тебе приятно? Опиши этого персонажа."
}

func ReflectUnpleasantIntro1() string {
	return "Хорошо."
}

func ReflectUnpleasantIntro2() string {
	return "А теперь наоборот."
}

func ReflectUnpleasant() string {
	return "Кто или что на карте тебе неприятно? Опиши этого персонажа."
}

func ReflectCharactersIntro1() string {
	return "Принято."
}

func ReflectCharactersIntro2() string {
	return "Пойдём глубже."
}

func ReflectCharacters() string {
	return "Как думаешь, что чувствуют персонажи на карте?"
}

func ReflectHappeningIntro() string {
	return "Почти закончили с картой."
}

func ReflectHappening() string {
	return "Что, по-твоему, происходит на карте? Расскажи эту историю."
}

func SimilarityIntro() string {
	return "Спасибо, что поделился/ась."
}

func SimilarityPrompt() string {
	return "Похоже ли то, что происходит на карте, на твою реальную ситуацию?\nЧем похоже, а чем отличается?"
}

// RecapLeadIns returns the two messages before the OK confirmation plus the
// prompt that carries the OK keyboard.
func RecapLeadIns() [3]string {
	return [3]string{
		"Мы проделали большую работу.",
		"Сейчас я покажу тебе всё, что ты написал/а, одним списком.",
		"Нажми OK, когда будешь готов/а посмотреть.",
	}
}

func RecapHeader() string {
	return "📝 <b>Твои ответы:</b>"
}

func RecapFooter() string {
	return "Перечитай свои ответы. Что ты замечаешь, глядя на них со стороны?"
}

func InsightFeelings() string {
	return "Какие чувства у тебя возникают сейчас, после этой работы?"
}

func InsightAction() string {
	return "Если бы карта могла дать тебе подсказку, что бы ты мог/ла сделать в своей ситуации?"
}

func FollowUpPrompt() string {
	return "Получил/а ли ты подсказку для себя?"
}

func ClosingYes() string {
	return "Я рад/а за тебя! Пусть подсказка поможет тебе в твоей ситуации."
}

func ClosingNo() string {
	return "Это тоже нормально. Иногда ответ приходит позже — дай себе время."
}

func EncouragementWords() []string {
	return []string{
		"Ты молодец, что уделил/а себе это время 💛",
		"Забота о себе — это важно. Горжусь тобой!",
		"Каждая такая работа — шаг к себе настоящему/ей.",
		"Спасибо за доверие и открытость 🌿",
	}
}

func RandomEncouragement() string {
	words := EncouragementWords()
	return words[rand.Intn(len(words))]
}

func ConsultOffer() string {
	return "Если хочешь разобрать свою ситуацию глубже, можно записаться на личную консультацию:"
}

func ConsultButtonText() string {
	return "Записаться на консультацию"
}

func Reminder() string {
	return "Готов/а вытянуть новую карту и получить подсказку на сегодня? Нажми /start"
}

// HourDeclension picks the Russian declension for a number of hours.
func HourDeclension(hours int) string {
	if 11 <= hours%100 && hours%100 <= 19 {
		return "часов"
	}
	switch hours % 10 {
	case 1:
		return "час"
	case 2, 3, 4:
		return "часа"
	default:
		return "часов"
	}
}

// SessionDeclension picks the Russian declension for a number of sessions.
func SessionDeclension(n int) string {
	if 11 <= n%100 && n%100 <= 19 {
		return "сессий"
	}
	switch n % 10 {
	case 1:
		return "сессия"
	case 2, 3, 4:
		return "сессии"
	default:
		return "сессий"
	}
}

func QuotaFreeExhausted(limit int) string {
	return fmt.Sprintf(
		"⏳ Вы использовали дневной лимит (%d %s).\n\n"+
			"✨ Хотите больше сессий в день?\n"+
			"Оформите премиум подписку:\n"+
			"• 3 сессии в день\n"+
			"• Все карты (полная колода)\n\n"+
			"Используйте команду /subscribe для оформления подписки.",
		limit, SessionDeclension(limit),
	)
}

func QuotaPaidExhausted(limit int) string {
	return fmt.Sprintf(
		"⏳ Вы использовали дневной лимит (%d %s).\nВозвращайтесь завтра!",
		limit, SessionDeclension(limit),
	)
}

func SubscribeChoosePlan() string {
	return "Выберите тариф для оформления подписки:"
}

func SubscribeCurrent(planName string, price int64, expiresDate string, dailyLimit int, cardsText string) string {
	return fmt.Sprintf(
		"✨ <b>Ваша подписка</b>\n\n"+
			"📋 Тариф: <b>%s</b>\n"+
			"💰 Стоимость: %d₽\n"+
			"📅 Действует до: <b>%s</b>\n\n"+
			"⚡️ Доступные возможности:\n"+
			"• %d %s в день\n"+
			"• %s (полная колода)\n\n"+
			"Для продления подписки выберите тариф ниже.",
		Escape(planName), price, expiresDate, dailyLimit, SessionDeclension(dailyLimit), cardsText,
	)
}

func SubscribeButtonText() string {
	return "💳 Выбрать тариф"
}

func CardsLimitText(cardsLimit *int) string {
	if cardsLimit == nil {
		return "Все 81 карта"
	}
	return fmt.Sprintf("%d карт", *cardsLimit)
}

func OrderCreated(planName, orderID string) string {
	return fmt.Sprintf(
		"✨ <b>Оформление подписки</b>\n\n"+
			"📋 Тариф: <b>%s</b>\n"+
			"🔢 Заказ: <code>%s</code>\n\n"+
			"Нажмите кнопку ниже для оплаты:",
		Escape(planName), Escape(orderID),
	)
}

func PayButtonText() string {
	return "💳 Перейти к оплате"
}

func ErrorNoPlanSelected() string {
	return "❌ Ошибка: тариф не выбран"
}

func ErrorOrderFailed() string {
	return "❌ Произошла ошибка при создании заказа. Попробуйте позже."
}

func ErrorTryLater() string {
	return "Произошла ошибка. Попробуйте позже."
}

func ErrorNoPermission() string {
	return "У вас нет прав для выполнения этой команды"
}

func PaymentActivated(planName, expiresDate string) string {
	msg := fmt.Sprintf("✅ <b>Подписка оформлена!</b>\n\n📋 Тариф: <b>%s</b>", Escape(planName))
	if expiresDate != "" {
		msg += fmt.Sprintf("\n📅 Действует до: <b>%s</b>", expiresDate)
	}
	return msg + "\n\nНажмите /start, чтобы вытянуть карту."
}

func BroadcastReport(sent, failed int) string {
	return fmt.Sprintf("Сообщения отправлены: %d\nОшибки отправки: %d", sent, failed)
}

func StatsReport(totalUsers, recentUsers, completedSessions int) string {
	return fmt.Sprintf(
		"📊 <b>Статистика бота</b>\n"+
			"👥 <b>Пользователи:</b>\n"+
			"• Всего: %d\n"+
			"• За последние 7 дней: %d\n"+
			"• Завершенных сессий: %d",
		totalUsers, recentUsers, completedSessions,
	)
}

func StatsFailed() string {
	return "Произошла ошибка при получении статистики"
}

func OfertaTitle() string {
	return "📋 <b>Публичная оферта</b>"
}

func OfertaButtonText() string {
	return "📄 Открыть оферту"
}

func PrivacyTitle() string {
	return "🔒 <b>Политика конфиденциальности</b>"
}

func PrivacyButtonText() string {
	return "🔒 Открыть политику"
}
