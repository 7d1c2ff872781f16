package session

import (
	"fmt"
	"strings"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/itembank"
)

const (
	greetingText = "Здравствуйте! Это оценка управленческого профиля: четыре коротких опросника " +
		"(PAEI, Soft Skills, HEXACO, DISC), примерно 15 минут.\n\nКак к вам обращаться? Напишите ваше имя."
	helpText = "Я провожу четыре опросника и готовлю по ним PDF-отчёт.\n" +
		"/start - начать заново\n" +
		"/cancel или /exit - прервать тестирование\n" +
		"/help - эта справка\n" +
		"Отвечайте кнопками или текстом: буквой варианта или числом."
	abortedText        = "Тестирование прервано. Чтобы начать заново, отправьте /start."
	finishedText       = "Тестирование завершено. Чтобы пройти его заново, отправьте /start."
	unknownCommandText = "Неизвестная команда. Список команд: /help."
	completedText      = "Спасибо! Все опросники пройдены. Готовлю отчёт, это займёт около минуты."
	pendingText        = "Отчёт ещё готовится. Как только он будет готов, я пришлю его сюда."
	scoringFailedText  = "Извините, при подсчёте результатов произошла ошибка, и сессия остановлена. " +
		"Отправьте /start, чтобы начать заново."
)

var handoffs = map[instrument.Instrument]string{
	instrument.PAEI:   "Первый опросник: PAEI (Адизес). В каждом вопросе выберите вариант, который лучше всего вас описывает.",
	instrument.SOFT:   "Следующий опросник: Soft Skills. Оцените, насколько каждый навык развит у вас.",
	instrument.HEXACO: "Следующий опросник: HEXACO. Оцените, насколько вы согласны с каждым утверждением.",
	instrument.DISC:   "Последний опросник: DISC. Оцените, насколько каждое утверждение про вас.",
}

func handoffText(inst instrument.Instrument) string {
	return handoffs[inst]
}

func questionText(it itembank.Item, p Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s · Вопрос %d/%d\n\n%s", p.Instrument.Title(), p.Item, p.Items, it.Text)

	opts := it.Options()
	labelled := false
	for _, c := range opts {
		if c.Label != "" {
			labelled = true
			break
		}
	}
	if labelled {
		b.WriteString("\n")
		for _, c := range opts {
			if c.Label == "" {
				continue
			}
			fmt.Fprintf(&b, "\n%s: %s", c.Token, c.Label)
		}
	}
	if it.Kind.IsLikert() {
		lo, hi := it.Kind.Range()
		fmt.Fprintf(&b, "\n\nОтветьте числом от %d до %d.", lo, hi)
	}
	return b.String()
}

func invalidAnswerText(it itembank.Item) string {
	if it.Kind.IsLikert() {
		lo, hi := it.Kind.Range()
		return fmt.Sprintf("Не удалось распознать ответ. Нужно число от %d до %d.", lo, hi)
	}
	tokens := make([]string, 0, len(it.Options()))
	for _, c := range it.Options() {
		tokens = append(tokens, c.Token)
	}
	return fmt.Sprintf("Не удалось распознать ответ. Выберите один из вариантов: %s.", strings.Join(tokens, ", "))
}

// keyboard lays out the answer buttons of an item plus the abort row.
// Ten-point scales use two rows of five.
func keyboard(it itembank.Item) [][]string {
	var tokens []string
	for _, c := range it.Options() {
		tokens = append(tokens, c.Token)
	}
	var rows [][]string
	if len(tokens) > 5 {
		half := (len(tokens) + 1) / 2
		rows = append(rows, tokens[:half], tokens[half:])
	} else if len(tokens) > 0 {
		rows = append(rows, tokens)
	}
	return append(rows, []string{AbortButton})
}
