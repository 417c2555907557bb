package config

// QuestionKind определяет тип вопроса
type QuestionKind string

const (
	// KindChoice — вопрос с вариантами ответа (inline-кнопки)
	KindChoice QuestionKind = "choice"
	// KindFreeText — вопрос со свободным текстовым ответом
	KindFreeText QuestionKind = "free_text"
)

// Question представляет один вопрос анкеты
type Question struct {
	Ordinal  int          `yaml:"ordinal"`
	Text     string       `yaml:"text"`
	Kind     QuestionKind `yaml:"kind"`
	Options  []string     `yaml:"options,omitempty"`
	ImageRef string       `yaml:"image,omitempty"`
}

// Bank представляет неизменяемый упорядоченный набор вопросов.
// Загружается один раз при старте и больше не изменяется.
type Bank struct {
	Title     string     `yaml:"title"`
	Questions []Question `yaml:"questions"`
}

// Get возвращает вопрос по порядковому номеру (нумерация с 1)
func (b *Bank) Get(ordinal int) (Question, bool) {
	if b == nil || ordinal < 1 || ordinal > len(b.Questions) {
		return Question{}, false
	}
	return b.Questions[ordinal-1], true
}

// Count возвращает количество вопросов в наборе
func (b *Bank) Count() int {
	if b == nil {
		return 0
	}
	return len(b.Questions)
}
