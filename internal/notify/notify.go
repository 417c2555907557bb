package notify

import (
	"fmt"
	"log"
)

// Sender отправляет сообщения в чат. Реализуется telegram.Bot.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Notifier уведомляет оператора о новых прохождениях теста.
// Отправка best-effort: ошибка логируется и никогда не влияет
// ни на сохранение результатов, ни на ответ пользователю.
type Notifier struct {
	sender      Sender
	adminChatID int64
}

// New создает уведомитель для фиксированного чата оператора.
// adminChatID равный нулю отключает уведомления.
func New(sender Sender, adminChatID int64) *Notifier {
	return &Notifier{
		sender:      sender,
		adminChatID: adminChatID,
	}
}

// Notify сообщает оператору о завершенном прохождении. Ошибка
// возвращается только для учета, вызывающий код ее не пробрасывает.
func (n *Notifier) Notify(userID int64, username string) error {
	if n.adminChatID == 0 {
		return nil
	}

	text := fmt.Sprintf("📬 Новое прохождение теста!\n\n"+
		"Пользователь: @%s\n"+
		"ID: `%d`\n\n"+
		"Используйте /results для просмотра ответов.", username, userID)

	if err := n.sender.SendMessage(n.adminChatID, text); err != nil {
		log.Printf("Ошибка уведомления оператора: %v", err)
		return err
	}
	return nil
}
