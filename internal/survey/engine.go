package survey

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"survey-bot/internal/config"
	"survey-bot/internal/storage"
)

var (
	// ErrBadSelection — индекс варианта не входит в options текущего вопроса
	ErrBadSelection = errors.New("выбран несуществующий вариант ответа")
	// ErrInconsistentQuestionSet — сессия ссылается на вопрос, которого нет в наборе
	ErrInconsistentQuestionSet = errors.New("набор вопросов не соответствует сессии")
)

// OutcomeKind определяет результат обработки события
type OutcomeKind int

const (
	// OutcomePresent — показать пользователю следующий вопрос
	OutcomePresent OutcomeKind = iota
	// OutcomeCompleted — анкета завершена, снимок результатов готов
	OutcomeCompleted
	// OutcomeCancelled — прохождение отменено пользователем
	OutcomeCancelled
	// OutcomeNotConfigured — набор вопросов пуст, тест недоступен
	OutcomeNotConfigured
	// OutcomeUnrecognized — событие не относится к активной сессии
	OutcomeUnrecognized
	// OutcomeNoop — событие не требует ответа
	OutcomeNoop
)

// Outcome представляет результат обработки одного события
type Outcome struct {
	Kind     OutcomeKind
	Flow     Flow
	Question config.Question
	Record   *storage.CompletedRecord
}

// Engine — конечный автомат прохождения анкеты. Состояния: Idle (нет
// сессии) и AwaitingAnswer(ordinal). Единственный источник истины о
// позиции пользователя — CurrentOrdinal сессии.
type Engine struct {
	store *Store
	banks map[Flow]*config.Bank
}

// NewEngine создает движок анкеты поверх хранилища сессий
func NewEngine(store *Store, banks map[Flow]*config.Bank) *Engine {
	return &Engine{
		store: store,
		banks: banks,
	}
}

// QuestionCount возвращает количество вопросов анкеты
func (e *Engine) QuestionCount(flow Flow) int {
	return e.banks[flow].Count()
}

// Start начинает новое прохождение. Активная сессия пользователя,
// если она есть, перезаписывается.
func (e *Engine) Start(flow Flow, userID int64, username string) Outcome {
	lock := e.store.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	bank := e.banks[flow]
	if bank.Count() == 0 {
		return Outcome{Kind: OutcomeNotConfigured, Flow: flow}
	}

	session := newSession(userID, username, flow)
	e.store.Put(session)

	question, _ := bank.Get(1)
	return Outcome{Kind: OutcomePresent, Flow: flow, Question: question}
}

// Answer обрабатывает ответ пользователя на текущий вопрос.
// optionIndex — индекс выбранного варианта, -1 для текстового ответа.
// Сессия изменяется только после полной валидации события: при любой
// ошибке ответы и позиция остаются нетронутыми.
func (e *Engine) Answer(userID int64, raw string, optionIndex int) (Outcome, error) {
	lock := e.store.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	session, ok := e.store.Get(userID)
	if !ok {
		// Нет активной сессии: повторная доставка или болтовня вне теста
		return Outcome{Kind: OutcomeUnrecognized}, nil
	}

	bank := e.banks[session.Flow]
	question, ok := bank.Get(session.CurrentOrdinal)
	if !ok {
		return Outcome{Kind: OutcomeNoop, Flow: session.Flow}, ErrInconsistentQuestionSet
	}

	var answer string
	switch question.Kind {
	case config.KindChoice:
		if optionIndex < 0 {
			// Текст вместо нажатия кнопки — вопрос остается на экране
			return Outcome{Kind: OutcomeUnrecognized, Flow: session.Flow}, nil
		}
		if optionIndex >= len(question.Options) {
			return Outcome{Kind: OutcomeNoop, Flow: session.Flow}, ErrBadSelection
		}
		answer = question.Options[optionIndex]
	case config.KindFreeText:
		if optionIndex >= 0 || raw == "" {
			return Outcome{Kind: OutcomeUnrecognized, Flow: session.Flow}, nil
		}
		answer = raw
	}

	session.Answers[session.CurrentOrdinal] = answer
	session.CurrentOrdinal++
	session.LastActivity = time.Now()

	if session.CurrentOrdinal > bank.Count() {
		// Терминальный переход: снимок делается до удаления сессии,
		// потребители работают со снимком, а не с хранилищем
		record := snapshot(session)
		e.store.Remove(userID)
		return Outcome{Kind: OutcomeCompleted, Flow: session.Flow, Record: record}, nil
	}

	// Проверка завершения гарантирует, что CurrentOrdinal <= Count
	next, _ := bank.Get(session.CurrentOrdinal)
	return Outcome{Kind: OutcomePresent, Flow: session.Flow, Question: next}, nil
}

// Cancel отменяет прохождение. Отмена идемпотентна: без активной
// сессии событие игнорируется.
func (e *Engine) Cancel(userID int64) Outcome {
	lock := e.store.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	session, ok := e.store.Get(userID)
	if !ok {
		return Outcome{Kind: OutcomeNoop}
	}

	e.store.Remove(userID)
	return Outcome{Kind: OutcomeCancelled, Flow: session.Flow}
}

func snapshot(session *Session) *storage.CompletedRecord {
	answers := make(map[int]string, len(session.Answers))
	for ordinal, text := range session.Answers {
		answers[ordinal] = text
	}
	return &storage.CompletedRecord{
		ID:        uuid.New().String(),
		UserID:    session.UserID,
		Username:  session.Username,
		Timestamp: time.Now(),
		Answers:   answers,
	}
}
