package config

// FeedbackBank возвращает встроенную анкету обратной связи.
// Обратная связь проходит через тот же движок, что и тест,
// но с собственным набором вопросов.
func FeedbackBank() *Bank {
	return &Bank{
		Title: "Обратная связь",
		Questions: []Question{
			{
				Ordinal: 1,
				Text:    "📝 Введите ваше имя:",
				Kind:    KindFreeText,
			},
			{
				Ordinal: 2,
				Text:    "Отлично! Теперь введите ваш возраст:",
				Kind:    KindFreeText,
			},
		},
	}
}
