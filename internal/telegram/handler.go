package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"survey-bot/internal/config"
	"survey-bot/internal/metrics"
	"survey-bot/internal/notify"
	"survey-bot/internal/storage"
	"survey-bot/internal/survey"
)

// Кнопки главного меню
const (
	btnMenu       = "📋 Меню"
	btnAbout      = "ℹ️ О боте"
	btnFeedback   = "📝 Обратная связь"
	btnStartTest  = "🧪 Начать тестирование"
	btnCancelTest = "❌ Отмена теста"
)

// Префикс callback-данных для вариантов ответа
const answerCallbackPrefix = "test_"

type RateLimiter struct {
	requests map[int64][]time.Time
	mutex    sync.RWMutex
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *RateLimiter) IsAllowed(userID int64) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()

	if requests, exists := rl.requests[userID]; exists {
		var valid []time.Time
		for _, t := range requests {
			if now.Sub(t) < rl.window {
				valid = append(valid, t)
			}
		}
		rl.requests[userID] = valid
	}

	if len(rl.requests[userID]) >= rl.limit {
		return false
	}

	rl.requests[userID] = append(rl.requests[userID], now)
	return true
}

type Handler struct {
	bot         *Bot
	cfg         *config.AppConfig
	engine      *survey.Engine
	persister   *storage.Persister
	notifier    *notify.Notifier
	metrics     *metrics.Metrics
	rateLimiter *RateLimiter
}

func NewHandler(bot *Bot, cfg *config.AppConfig, engine *survey.Engine, persister *storage.Persister, notifier *notify.Notifier, metricsService *metrics.Metrics) *Handler {
	return &Handler{
		bot:         bot,
		cfg:         cfg,
		engine:      engine,
		persister:   persister,
		notifier:    notifier,
		metrics:     metricsService,
		rateLimiter: NewRateLimiter(10, time.Minute),
	}
}

// HandleUpdate обрабатывает одно обновление от Telegram
func (h *Handler) HandleUpdate(update Update) {
	if update.CallbackQuery != nil {
		if update.CallbackQuery.From != nil && !h.rateLimiter.IsAllowed(update.CallbackQuery.From.ID) {
			h.bot.AnswerCallbackQuery(update.CallbackQuery.ID, "⏳ Слишком много запросов")
			return
		}
		h.handleCallback(update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	if !h.rateLimiter.IsAllowed(userID) {
		h.bot.SendMessage(chatID, "⏳ Слишком много сообщений. Пожалуйста, подождите минуту.")
		return
	}

	username := displayName(update.Message.From)

	if strings.HasPrefix(text, "/") {
		h.handleCommand(chatID, userID, text)
		return
	}
	h.handleMessage(chatID, userID, username, text)
}

// handleCommand обрабатывает команды бота
func (h *Handler) handleCommand(chatID, userID int64, text string) {
	fields := strings.Fields(text)
	command := fields[0]

	switch command {
	case "/start":
		h.bot.SendMessageWithKeyboard(chatID,
			"Привет! Я бот-анкетер.\n\nВыберите действие из меню ниже:",
			mainMenuKeyboard())
	case "/help":
		h.handleHelpCommand(chatID)
	case "/menu":
		h.bot.SendMessageWithKeyboard(chatID, "📋 Главное меню:", inlineMenuKeyboard())
	case "/results":
		h.handleResultsCommand(chatID)
	case "/stats":
		h.handleStatsCommand(chatID)
	case "/reply":
		h.handleReplyCommand(chatID, fields)
	default:
		h.bot.SendMessage(chatID, "Неизвестная команда. Используйте /help для получения списка команд.")
	}
}

// handleMessage обрабатывает текстовые сообщения и кнопки меню
func (h *Handler) handleMessage(chatID, userID int64, username, text string) {
	switch text {
	case btnMenu:
		h.bot.SendMessageWithKeyboard(chatID, "📋 Выберите действие:", inlineMenuKeyboard())
	case btnAbout:
		h.bot.SendMessage(chatID,
			"🤖 Это бот-анкетер.\n\n"+
				"Функционал:\n"+
				"• Команды /start, /help, /menu\n"+
				"• Прохождение теста с кнопками\n"+
				"• Обратная связь\n"+
				"• Сохранение результатов")
	case btnStartTest:
		h.startTest(chatID, userID, username)
	case btnFeedback:
		h.startFeedback(chatID, userID, username)
	case btnCancelTest:
		h.cancelTest(chatID, userID)
	default:
		h.handleAnswerText(chatID, userID, text)
	}
}

// startTest начинает новое прохождение теста
func (h *Handler) startTest(chatID, userID int64, username string) {
	outcome := h.engine.Start(survey.FlowTest, userID, username)

	switch outcome.Kind {
	case survey.OutcomeNotConfigured:
		h.bot.SendMessage(chatID, "⚠️ Тест пока не настроен. Попробуйте позже.")
	case survey.OutcomePresent:
		h.metrics.IncrementTestsStarted()
		h.bot.SendMessageWithKeyboard(chatID,
			fmt.Sprintf("🧪 Тестирование началось!\n\n"+
				"Вам будет предложено %d вопросов. "+
				"Выберите один из вариантов ответа на каждый вопрос.",
				h.engine.QuestionCount(survey.FlowTest)),
			cancelKeyboard())
		h.presentQuestion(chatID, outcome.Flow, outcome.Question)
	}
}

// startFeedback начинает форму обратной связи
func (h *Handler) startFeedback(chatID, userID int64, username string) {
	outcome := h.engine.Start(survey.FlowFeedback, userID, username)
	if outcome.Kind == survey.OutcomePresent {
		h.presentQuestion(chatID, outcome.Flow, outcome.Question)
	}
}

// cancelTest отменяет активное прохождение
func (h *Handler) cancelTest(chatID, userID int64) {
	outcome := h.engine.Cancel(userID)
	if outcome.Kind == survey.OutcomeCancelled {
		h.metrics.IncrementTestsCancelled()
		h.bot.SendMessageWithKeyboard(chatID, "Тест отменен.", mainMenuKeyboard())
	}
	// Отмена без активной сессии игнорируется
}

// handleAnswerText обрабатывает свободный текст как ответ на текущий вопрос
func (h *Handler) handleAnswerText(chatID, userID int64, text string) {
	if err := h.validateUserInput(text); err != nil {
		h.bot.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	outcome, err := h.engine.Answer(userID, text, -1)
	if err != nil {
		h.handleEngineError(chatID, err)
		return
	}

	switch outcome.Kind {
	case survey.OutcomePresent:
		h.metrics.IncrementAnswersAccepted()
		h.presentQuestion(chatID, outcome.Flow, outcome.Question)
	case survey.OutcomeCompleted:
		h.metrics.IncrementAnswersAccepted()
		h.completeRun(chatID, 0, outcome)
	case survey.OutcomeUnrecognized:
		h.bot.SendMessageWithKeyboard(chatID,
			"Я не понял ваше сообщение.\nИспользуйте команды из меню или нажмите /menu",
			mainMenuKeyboard())
	}
}

// handleCallback обрабатывает нажатия inline-кнопок
func (h *Handler) handleCallback(callback *CallbackQuery) {
	if callback.From == nil {
		return
	}
	userID := callback.From.ID

	chatID := userID
	messageID := 0
	if callback.Message != nil && callback.Message.Chat != nil {
		chatID = callback.Message.Chat.ID
		messageID = callback.Message.MessageID
	}

	defer h.bot.AnswerCallbackQuery(callback.ID, "")

	if strings.HasPrefix(callback.Data, answerCallbackPrefix) {
		h.handleAnswerCallback(chatID, userID, messageID, callback.Data)
		return
	}

	switch callback.Data {
	case "cmd1":
		h.bot.EditMessageText(chatID, messageID, "📌 Вы выбрали Команду 1!", inlineMenuKeyboard())
	case "cmd2":
		h.bot.EditMessageText(chatID, messageID, "📌 Вы выбрали Команду 2!", inlineMenuKeyboard())
	case "back":
		h.bot.EditMessageText(chatID, messageID, "📋 Главное меню:", inlineMenuKeyboard())
	}
}

// handleAnswerCallback обрабатывает выбор варианта ответа
func (h *Handler) handleAnswerCallback(chatID, userID int64, messageID int, data string) {
	index, err := strconv.Atoi(strings.TrimPrefix(data, answerCallbackPrefix))
	if err != nil || index < 0 {
		return
	}

	outcome, err := h.engine.Answer(userID, "", index)
	if err != nil {
		h.handleEngineError(chatID, err)
		return
	}

	switch outcome.Kind {
	case survey.OutcomePresent:
		h.metrics.IncrementAnswersAccepted()
		h.presentQuestion(chatID, outcome.Flow, outcome.Question)
	case survey.OutcomeCompleted:
		h.metrics.IncrementAnswersAccepted()
		h.completeRun(chatID, messageID, outcome)
	case survey.OutcomeUnrecognized:
		// Нажатие устаревшей кнопки после завершения или отмены — молча игнорируем
	}
}

// handleEngineError обрабатывает протокольные ошибки движка
func (h *Handler) handleEngineError(chatID int64, err error) {
	switch {
	case errors.Is(err, survey.ErrBadSelection):
		// Вариант вне диапазона: событие отклонено, сессия не изменена
		h.metrics.IncrementBadSelections()
	case errors.Is(err, survey.ErrInconsistentQuestionSet):
		log.Printf("Набор вопросов не соответствует сессии: %v", err)
		h.bot.SendMessageWithKeyboard(chatID,
			"⚠️ Тест изменился. Начните прохождение заново.", mainMenuKeyboard())
	default:
		log.Printf("Ошибка обработки ответа: %v", err)
	}
}

// presentQuestion отправляет пользователю очередной вопрос
func (h *Handler) presentQuestion(chatID int64, flow survey.Flow, question config.Question) {
	text := question.Text
	if flow == survey.FlowTest {
		text = fmt.Sprintf("Вопрос %d из %d\n\n%s",
			question.Ordinal, h.engine.QuestionCount(flow), question.Text)
	}

	var markup interface{}
	if question.Kind == config.KindChoice {
		markup = questionKeyboard(question)
	}

	var err error
	if question.ImageRef != "" {
		err = h.bot.SendPhoto(chatID, question.ImageRef, text, markup)
	} else if markup != nil {
		err = h.bot.SendMessageWithKeyboard(chatID, text, markup)
	} else {
		err = h.bot.SendMessage(chatID, text)
	}
	if err != nil {
		log.Printf("Ошибка отправки вопроса %d: %v", question.Ordinal, err)
	}
}

// completeRun завершает прохождение: сохраняет результат и уведомляет
// оператора. messageID — сообщение с последним вопросом (0, если вопрос
// был текстовым и редактировать нечего).
func (h *Handler) completeRun(chatID int64, messageID int, outcome survey.Outcome) {
	record := outcome.Record

	if outcome.Flow == survey.FlowFeedback {
		h.bot.SendMessageWithKeyboard(chatID,
			fmt.Sprintf("✅ Спасибо!\n\nИмя: %s\nВозраст: %s\n\nМы свяжемся с вами позже.",
				record.Answers[1], record.Answers[2]),
			mainMenuKeyboard())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.persister.Persist(ctx, record); err != nil {
		// Потеря данных недопустима молча: пользователь видит ошибку,
		// оператор — запись в логе
		log.Printf("Ошибка сохранения результата пользователя %d: %v", record.UserID, err)
		h.bot.SendMessageWithKeyboard(chatID,
			"❌ Ошибка сохранения результата теста. Попробуйте пройти тест еще раз.",
			mainMenuKeyboard())
		return
	}
	log.Printf("Результат сохранен для user_id: %d", record.UserID)
	h.metrics.IncrementTestsCompleted()

	completionText := "✅ Тест завершен!\n\nВаши ответы сохранены. Спасибо за участие!"
	if messageID != 0 {
		h.bot.EditMessageText(chatID, messageID, completionText, nil)
	} else {
		h.bot.SendMessage(chatID, completionText)
	}
	h.bot.SendMessageWithKeyboard(chatID, "Вернуться в главное меню:", mainMenuKeyboard())

	if err := h.notifier.Notify(record.UserID, record.Username); err != nil {
		h.metrics.IncrementNotifyFailures()
	}
}

// handleHelpCommand обрабатывает команду /help
func (h *Handler) handleHelpCommand(chatID int64) {
	helpText := `📚 Список доступных команд:

/start - Запуск бота
/help - Помощь
/menu - Открыть меню

Также вы можете использовать кнопки меню:
• 🧪 Начать тестирование — пройти тест
• 📝 Обратная связь — оставить контакты
• ❌ Отмена теста — прервать прохождение`

	h.bot.SendMessage(chatID, helpText)
}

// handleResultsCommand показывает оператору сводку по пользователям
func (h *Handler) handleResultsCommand(chatID int64) {
	if !h.isAdmin(chatID) {
		h.bot.SendMessage(chatID, "Неизвестная команда. Используйте /help для получения списка команд.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	archive := h.persister.Archive()
	users, err := archive.Users(ctx)
	if err != nil {
		h.bot.SendMessage(chatID, "❌ Ошибка чтения архива: "+err.Error())
		return
	}
	if len(users) == 0 {
		h.bot.SendMessage(chatID, "Пока нет ни одного завершенного прохождения.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Прохождения: %d пользователей\n", len(users)))
	for _, userID := range users {
		history, err := archive.History(ctx, userID)
		if err != nil || len(history) == 0 {
			continue
		}
		latest := history[len(history)-1]
		status := "⏳ ожидает ответа"
		if latest.Answered {
			status = "✅ отвечено"
		}
		sb.WriteString(fmt.Sprintf("\n👤 @%s (`%d`)\n• Прохождений: %d\n• Последнее: %s\n• %s\n",
			latest.Username, userID, len(history),
			latest.Timestamp.Format("2006-01-02 15:04"), status))
	}
	h.bot.SendMessage(chatID, sb.String())
}

// handleStatsCommand показывает оператору агрегированную статистику
func (h *Handler) handleStatsCommand(chatID int64) {
	if !h.isAdmin(chatID) {
		h.bot.SendMessage(chatID, "Неизвестная команда. Используйте /help для получения списка команд.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := h.persister.Archive().GetStats(ctx)
	if err != nil {
		h.bot.SendMessage(chatID, "❌ Ошибка чтения статистики: "+err.Error())
		return
	}
	snapshot := h.metrics.GetSnapshot()

	h.bot.SendFormattedMessage(chatID, `📈 Статистика

Архив:
• Всего пользователей: %d
• Всего прохождений: %d
• Отвечено оператором: %d
• Ожидают ответа: %d

С момента запуска:
• Тестов начато: %d
• Тестов завершено: %d
• Тестов отменено: %d
• Ответов принято: %d`,
		stats.TotalUsers, stats.TotalRecords, stats.Answered, stats.Pending,
		snapshot.TestsStarted, snapshot.TestsCompleted,
		snapshot.TestsCancelled, snapshot.AnswersAccepted)
}

// handleReplyCommand записывает ответ оператора в последнее прохождение пользователя
func (h *Handler) handleReplyCommand(chatID int64, fields []string) {
	if !h.isAdmin(chatID) {
		h.bot.SendMessage(chatID, "Неизвестная команда. Используйте /help для получения списка команд.")
		return
	}

	if len(fields) < 3 {
		h.bot.SendMessage(chatID, "Использование: /reply <user_id> <текст ответа>")
		return
	}

	userID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		h.bot.SendMessage(chatID, "❌ Некорректный user_id: "+fields[1])
		return
	}
	text := strings.Join(fields[2:], " ")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.persister.Archive().SetAdminResponse(ctx, userID, text); err != nil {
		h.bot.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	h.bot.SendFormattedMessage(chatID, "✅ Ответ записан для пользователя `%d`.", userID)
}

// Валидация пользовательского ввода
func (h *Handler) validateUserInput(text string) error {
	if len(text) > 4000 {
		return fmt.Errorf("сообщение слишком длинное (максимум 4000 символов)")
	}

	// Проверка на спам из повторяющихся символов
	if len(text) > 10 && strings.Count(text, text[:1]) > len(text)*8/10 {
		return fmt.Errorf("сообщение содержит слишком много повторяющихся символов")
	}

	return nil
}

func (h *Handler) isAdmin(chatID int64) bool {
	return h.cfg.Telegram.AdminChatID != 0 && chatID == h.cfg.Telegram.AdminChatID
}

func displayName(user *User) string {
	if user.Username != "" {
		return user.Username
	}
	return fmt.Sprintf("user_%d", user.ID)
}

// mainMenuKeyboard — главное меню (reply-клавиатура)
func mainMenuKeyboard() ReplyKeyboardMarkup {
	return ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: btnMenu}, {Text: btnAbout}},
			{{Text: btnFeedback}, {Text: btnStartTest}},
		},
		ResizeKeyboard: true,
	}
}

// cancelKeyboard — клавиатура с кнопкой отмены на время теста
func cancelKeyboard() ReplyKeyboardMarkup {
	return ReplyKeyboardMarkup{
		Keyboard:       [][]KeyboardButton{{{Text: btnCancelTest}}},
		ResizeKeyboard: true,
	}
}

// inlineMenuKeyboard — inline-клавиатура меню
func inlineMenuKeyboard() InlineKeyboardMarkup {
	return InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{
				{Text: "📌 Команда 1", CallbackData: "cmd1"},
				{Text: "📌 Команда 2", CallbackData: "cmd2"},
			},
			{{Text: "🔗 Ссылка", URL: "https://telegram.org"}},
			{{Text: "⬅️ Назад", CallbackData: "back"}},
		},
	}
}

// questionKeyboard строит inline-клавиатуру из вариантов ответа
func questionKeyboard(question config.Question) InlineKeyboardMarkup {
	keyboard := make([][]InlineKeyboardButton, 0, len(question.Options))
	for i, option := range question.Options {
		keyboard = append(keyboard, []InlineKeyboardButton{{
			Text:         option,
			CallbackData: fmt.Sprintf("%s%d", answerCallbackPrefix, i),
		}})
	}
	return InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
