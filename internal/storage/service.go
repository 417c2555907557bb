package storage

import (
	"context"
	"fmt"
	"time"
)

// Persister сохраняет завершенное прохождение в оба хранилища:
// табличный CSV журнал и архив по пользователям. Оба эффекта обязательны;
// транзакционность между ними не требуется, каждая запись append-safe.
type Persister struct {
	log           *CSVLog
	archive       *Archive
	questionCount int
}

// NewPersister создает сервис сохранения результатов
func NewPersister(log *CSVLog, archive *Archive, questionCount int) *Persister {
	return &Persister{
		log:           log,
		archive:       archive,
		questionCount: questionCount,
	}
}

// Persist записывает снимок завершенного прохождения ровно один раз
func (p *Persister) Persist(ctx context.Context, record *CompletedRecord) error {
	if err := p.log.Append(record, p.questionCount); err != nil {
		return fmt.Errorf("ошибка сохранения в журнал: %w", err)
	}
	if err := p.archive.Append(ctx, record); err != nil {
		return fmt.Errorf("ошибка сохранения в архив: %w", err)
	}
	return nil
}

// Archive возвращает архив для административных операций
func (p *Persister) Archive() *Archive {
	return p.archive
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("ошибка разбора времени %q: %w", value, err)
	}
	return ts, nil
}
