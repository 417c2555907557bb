package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load загружает набор вопросов из YAML файла
func Load(filename string) (*Bank, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", filename, err)
	}

	var bank Bank
	err = yaml.Unmarshal(data, &bank)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML: %w", err)
	}

	// Валидация набора вопросов
	err = validateBank(&bank)
	if err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return &bank, nil
}

// validateBank проверяет корректность набора вопросов.
// Пустой набор считается корректным: бот отвечает, что тест не настроен.
func validateBank(bank *Bank) error {
	for i, q := range bank.Questions {
		expected := i + 1
		if q.Ordinal != expected {
			return fmt.Errorf("вопрос %d имеет неверный ordinal: ожидался %d, получен %d",
				i+1, expected, q.Ordinal)
		}

		if q.Text == "" {
			return fmt.Errorf("вопрос %d должен иметь text", q.Ordinal)
		}

		switch q.Kind {
		case KindChoice:
			if len(q.Options) == 0 {
				return fmt.Errorf("вопрос %d типа choice должен иметь options", q.Ordinal)
			}
			for j, opt := range q.Options {
				if opt == "" {
					return fmt.Errorf("вопрос %d: вариант %d пустой", q.Ordinal, j+1)
				}
			}
		case KindFreeText:
			if len(q.Options) > 0 {
				return fmt.Errorf("вопрос %d типа free_text не может иметь options", q.Ordinal)
			}
		default:
			return fmt.Errorf("вопрос %d имеет неизвестный kind: %q", q.Ordinal, q.Kind)
		}
	}

	return nil
}
