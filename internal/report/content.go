package report

import "github.com/abhisek/profilebot/internal/instrument"

const (
	docTitle        = "Профиль компетенций и стиля работы"
	overallTitle    = "Общий вывод и рекомендации"
	appendixTitle   = "Приложение. Ответы респондента"
	methodHeading   = "Методика"
	legendHeading   = "Шкала интерпретации"
	resultsHeading  = "Результаты"
	narrativeHeader = "Интерпретация"
)

var methodology = map[instrument.Instrument]string{
	instrument.PAEI: "Модель Адизеса описывает четыре управленческие роли: Производитель (P) ориентирован на результат, " +
		"Администратор (A) на порядок и процессы, Предприниматель (E) на идеи и изменения, Интегратор (I) на людей и " +
		"согласие в команде. В каждом вопросе выбирается одно утверждение; балл роли равен доле выборов, приведённой к шкале 0-10.",
	instrument.SOFT: "Самооценка десяти гибких навыков. Каждый навык оценивается по шкале 1-5 или 1-10 и приводится " +
		"к шкале 0-10. Результат отражает то, как респондент сам видит свои сильные стороны и зоны роста.",
	instrument.HEXACO: "HEXACO описывает личность шестью факторами: Честность-Скромность, Эмоциональность, Экстраверсия, " +
		"Доброжелательность, Добросовестность и Открытость опыту. Ответы даются по шкале 1-5, обратные утверждения " +
		"перекодируются; балл фактора равен среднему, приведённому к шкале 0-10.",
	instrument.DISC: "DISC описывает поведенческий стиль через четыре шкалы: Доминирование (D), Влияние (I), " +
		"Стабильность (S) и Соответствие (C). Каждая шкала оценивается двумя утверждениями по шкале 1-5; " +
		"сумма приводится к шкале 0-10.",
}
