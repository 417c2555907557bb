package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"survey-bot/internal/config"
	"survey-bot/internal/metrics"
	"survey-bot/internal/notify"
	"survey-bot/internal/storage"
	"survey-bot/internal/survey"
	"survey-bot/internal/telegram"
)

func main() {
	fmt.Println("🚀 Запуск Survey Bot...")

	// Загружаем переменные окружения
	err := godotenv.Load()
	if err != nil {
		log.Println("Файл .env не найден, используются переменные окружения")
	}

	cfg := config.LoadAppConfig()
	if cfg.Telegram.Token == "" {
		log.Fatal("BOT_TOKEN не установлен в .env файле")
	}
	if cfg.Telegram.AdminChatID == 0 {
		log.Println("⚠️ ADMIN_CHAT_ID не установлен, уведомления оператора отключены")
	}

	// Загружаем набор вопросов. Ошибка загрузки не фатальна для процесса:
	// бот работает и отвечает, что тест не настроен.
	bank, err := config.Load(cfg.Storage.QuestionsFile)
	if err != nil {
		log.Printf("⚠️ Ошибка загрузки вопросов: %v", err)
		log.Println("Бот будет работать без теста")
		bank = &config.Bank{}
	}

	// Инициализируем сервисы
	fmt.Println("🔧 Инициализация сервисов...")

	csvLog, err := storage.NewCSVLog(cfg.Storage.ResultsCSV)
	if err != nil {
		log.Fatalf("Ошибка открытия журнала результатов: %v", err)
	}
	archive, err := storage.OpenArchive(cfg.Storage.ArchiveDB)
	if err != nil {
		log.Fatalf("Ошибка открытия архива: %v", err)
	}
	defer archive.Close()
	persister := storage.NewPersister(csvLog, archive, bank.Count())
	fmt.Println("✅ Хранилище инициализировано")

	store := survey.NewStore()
	store.StartCleanup(cfg.Session.CleanupInterval, cfg.Session.MaxIdle)
	engine := survey.NewEngine(store, map[survey.Flow]*config.Bank{
		survey.FlowTest:     bank,
		survey.FlowFeedback: config.FeedbackBank(),
	})
	fmt.Println("✅ Движок анкеты инициализирован")

	// Telegram бот
	bot := telegram.New(cfg.Telegram.Token)
	notifier := notify.New(bot, cfg.Telegram.AdminChatID)
	metricsService := metrics.NewMetrics()
	handler := telegram.NewHandler(bot, cfg, engine, persister, notifier, metricsService)
	fmt.Println("✅ Telegram бот инициализирован")

	// Выводим информацию о конфигурации
	fmt.Println("\n📋 Конфигурация:")
	fmt.Printf("• Вопросов в тесте: %d\n", bank.Count())
	fmt.Printf("• Журнал результатов: %s\n", cfg.Storage.ResultsCSV)
	fmt.Printf("• Архив: %s\n", cfg.Storage.ArchiveDB)

	fmt.Println("\n🤖 Telegram бот запущен!")
	fmt.Println("⏳ Ожидание сообщений...")
	fmt.Println("📱 Найдите бота в Telegram и отправьте /start")

	// Запускаем polling
	err = bot.StartPolling(handler.HandleUpdate)
	if err != nil {
		log.Fatalf("Ошибка запуска бота: %v", err)
	}
}
