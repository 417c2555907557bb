package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    username TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    answers TEXT NOT NULL,
    admin_response TEXT
);

CREATE INDEX IF NOT EXISTS idx_results_user_id ON results(user_id);
`

// Archive хранит историю прохождений для каждого пользователя.
// Записи только добавляются: повторное прохождение не перезаписывает
// предыдущие результаты пользователя.
type Archive struct {
	db *sql.DB
}

// OpenArchive открывает (при необходимости создает) базу архива
func OpenArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания схемы: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close закрывает базу архива
func (a *Archive) Close() error {
	return a.db.Close()
}

// Append добавляет запись о завершенном прохождении
func (a *Archive) Append(ctx context.Context, record *CompletedRecord) error {
	answers, err := json.Marshal(encodeAnswers(record.Answers))
	if err != nil {
		return fmt.Errorf("ошибка сериализации ответов: %w", err)
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO results (id, user_id, username, timestamp, answers) VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.Username,
		record.Timestamp.UTC().Format(time.RFC3339), string(answers))
	if err != nil {
		return fmt.Errorf("ошибка записи в архив: %w", err)
	}
	return nil
}

// History возвращает все прохождения пользователя в порядке добавления
func (a *Archive) History(ctx context.Context, userID int64) ([]ArchiveEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, user_id, username, timestamp, answers, admin_response
		 FROM results WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения архива: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Users возвращает идентификаторы всех пользователей с хотя бы одним прохождением
func (a *Archive) Users(ctx context.Context) ([]int64, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM results ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения архива: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// Latest возвращает последнее прохождение пользователя
func (a *Archive) Latest(ctx context.Context, userID int64) (*ArchiveEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, user_id, username, timestamp, answers, admin_response
		 FROM results WHERE user_id = ? ORDER BY rowid DESC LIMIT 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения архива: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// SetAdminResponse записывает ответ оператора в последнее прохождение пользователя
func (a *Archive) SetAdminResponse(ctx context.Context, userID int64, text string) error {
	res, err := a.db.ExecContext(ctx,
		`UPDATE results SET admin_response = ?
		 WHERE rowid = (SELECT MAX(rowid) FROM results WHERE user_id = ?)`,
		text, userID)
	if err != nil {
		return fmt.Errorf("ошибка записи ответа оператора: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка записи ответа оператора: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("у пользователя %d нет завершенных прохождений", userID)
	}
	return nil
}

// GetStats возвращает агрегированную статистику: всего пользователей,
// скольким из них оператор ответил (по последнему прохождению), сколько ожидают.
func (a *Archive) GetStats(ctx context.Context) (Stats, error) {
	var s Stats

	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id), COUNT(*) FROM results`).
		Scan(&s.TotalUsers, &s.TotalRecords)
	if err != nil {
		return Stats{}, fmt.Errorf("ошибка чтения статистики: %w", err)
	}

	err = a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results r
		 WHERE r.rowid = (SELECT MAX(rowid) FROM results WHERE user_id = r.user_id)
		   AND r.admin_response IS NOT NULL AND r.admin_response != ''`).
		Scan(&s.Answered)
	if err != nil {
		return Stats{}, fmt.Errorf("ошибка чтения статистики: %w", err)
	}

	s.Pending = s.TotalUsers - s.Answered
	return s, nil
}

func scanEntries(rows *sql.Rows) ([]ArchiveEntry, error) {
	var entries []ArchiveEntry
	for rows.Next() {
		var (
			e         ArchiveEntry
			timestamp string
			answers   string
			admin     sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &timestamp, &answers, &admin); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки: %w", err)
		}

		ts, err := parseTimestamp(timestamp)
		if err != nil {
			return nil, err
		}
		e.Timestamp = ts

		var encoded map[string]string
		if err := json.Unmarshal([]byte(answers), &encoded); err != nil {
			return nil, fmt.Errorf("ошибка десериализации ответов: %w", err)
		}
		e.Answers = decodeAnswers(encoded)

		if admin.Valid && admin.String != "" {
			e.AdminResponse = admin.String
			e.Answered = true
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// JSON не допускает числовые ключи, поэтому номера вопросов хранятся строками
func encodeAnswers(answers map[int]string) map[string]string {
	encoded := make(map[string]string, len(answers))
	for ordinal, text := range answers {
		encoded[strconv.Itoa(ordinal)] = text
	}
	return encoded
}

func decodeAnswers(encoded map[string]string) map[int]string {
	answers := make(map[int]string, len(encoded))
	for key, text := range encoded {
		if ordinal, err := strconv.Atoi(key); err == nil {
			answers[ordinal] = text
		}
	}
	return answers
}
