package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// New создает новый Telegram бот
func New(token string) *Bot {
	return &Bot{
		token:   token,
		baseURL: fmt.Sprintf("https://api.telegram.org/bot%s", token),
	}
}

// GetUpdates получает обновления от Telegram
func (b *Bot) GetUpdates(offset int) ([]Update, error) {
	url := fmt.Sprintf("%s/getUpdates?offset=%d&timeout=30", b.baseURL, offset)

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса getUpdates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var response GetUpdatesResponse
	err = json.Unmarshal(body, &response)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON: %w", err)
	}

	if !response.OK {
		return nil, fmt.Errorf("Telegram API вернул ошибку")
	}

	return response.Result, nil
}

// call отправляет запрос к методу Telegram API
func (b *Bot) call(method string, request interface{}) error {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	url := fmt.Sprintf("%s/%s", b.baseURL, method)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("ошибка запроса %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var response APIResponse
	err = json.Unmarshal(body, &response)
	if err != nil {
		return fmt.Errorf("ошибка парсинга ответа: %w", err)
	}

	if !response.OK {
		return fmt.Errorf("Telegram API вернул ошибку при вызове %s: %s", method, response.Description)
	}

	return nil
}

// SendMessage отправляет сообщение пользователю
func (b *Bot) SendMessage(chatID int64, text string) error {
	return b.call("sendMessage", SendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
}

// SendMessageWithKeyboard отправляет сообщение с клавиатурой
// (inline или reply, в зависимости от markup)
func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, markup interface{}) error {
	return b.call("sendMessage", SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
}

// SendPhoto отправляет фото с подписью и клавиатурой
func (b *Bot) SendPhoto(chatID int64, photo, caption string, markup interface{}) error {
	return b.call("sendPhoto", SendPhotoRequest{
		ChatID:      chatID,
		Photo:       photo,
		Caption:     caption,
		ReplyMarkup: markup,
	})
}

// EditMessageText изменяет текст уже отправленного сообщения
func (b *Bot) EditMessageText(chatID int64, messageID int, text string, markup interface{}) error {
	return b.call("editMessageText", EditMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup,
	})
}

// AnswerCallbackQuery подтверждает получение callback-запроса
func (b *Bot) AnswerCallbackQuery(callbackQueryID, text string) error {
	return b.call("answerCallbackQuery", AnswerCallbackQueryRequest{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	})
}

// SendFormattedMessage отправляет форматированное сообщение
func (b *Bot) SendFormattedMessage(chatID int64, format string, args ...interface{}) error {
	text := fmt.Sprintf(format, args...)
	return b.SendMessage(chatID, text)
}

// StartPolling запускает polling для получения обновлений
func (b *Bot) StartPolling(handler func(Update)) error {
	offset := 0

	for {
		updates, err := b.GetUpdates(offset)
		if err != nil {
			fmt.Printf("Ошибка получения обновлений: %v\n", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			go handler(update)
		}

		if len(updates) == 0 {
			time.Sleep(1 * time.Second)
		}
	}
}
