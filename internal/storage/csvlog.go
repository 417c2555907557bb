package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// CSVLog ведет табличный журнал завершенных прохождений:
// user_id, username, timestamp, Q1..Qn — одна строка на прохождение.
// Заголовок пишется при первой записи; количество колонок фиксируется
// заголовком и не меняется, даже если набор вопросов изменился
// (известное ограничение, записи не приводятся к новой схеме).
type CSVLog struct {
	path          string
	mu            sync.Mutex
	headerWritten bool
	columns       int // количество колонок с ответами, фиксируется заголовком
}

// NewCSVLog открывает журнал. Если файл уже существует, количество
// колонок читается из его заголовка.
func NewCSVLog(path string) (*CSVLog, error) {
	l := &CSVLog{path: path}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", path, err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		// Пустой или нечитаемый файл: заголовок будет записан заново
		return l, nil
	}
	if len(header) >= 3 {
		l.headerWritten = true
		l.columns = len(header) - 3
	}
	return l, nil
}

// Append дописывает одну строку в журнал. questionCount определяет
// количество колонок заголовка при самой первой записи.
func (l *CSVLog) Append(record *CompletedRecord, questionCount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("ошибка открытия файла %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if !l.headerWritten {
		header := []string{"user_id", "username", "timestamp"}
		for i := 1; i <= questionCount; i++ {
			header = append(header, fmt.Sprintf("Q%d", i))
		}
		if err := w.Write(header); err != nil {
			return fmt.Errorf("ошибка записи заголовка: %w", err)
		}
		l.headerWritten = true
		l.columns = questionCount
	}

	row := []string{
		fmt.Sprintf("%d", record.UserID),
		record.Username,
		record.Timestamp.Format("2006-01-02 15:04:05"),
	}
	for i := 1; i <= l.columns; i++ {
		row = append(row, record.Answers[i])
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("ошибка записи строки: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", l.path, err)
	}
	return nil
}
