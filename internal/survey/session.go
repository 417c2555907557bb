package survey

import "time"

// Flow определяет, какая анкета проходится в рамках сессии
type Flow string

const (
	// FlowTest — основное тестирование с сохранением результатов
	FlowTest Flow = "test"
	// FlowFeedback — форма обратной связи (без сохранения)
	FlowFeedback Flow = "feedback"
)

// Session представляет прохождение анкеты одним пользователем.
// Инвариант: Answers содержит ответ для каждого номера строго меньше
// CurrentOrdinal и ни одного ответа для номеров начиная с CurrentOrdinal.
type Session struct {
	UserID         int64
	Username       string
	Flow           Flow
	CurrentOrdinal int
	Answers        map[int]string
	LastActivity   time.Time
}

func newSession(userID int64, username string, flow Flow) *Session {
	return &Session{
		UserID:         userID,
		Username:       username,
		Flow:           flow,
		CurrentOrdinal: 1,
		Answers:        make(map[int]string),
		LastActivity:   time.Now(),
	}
}
