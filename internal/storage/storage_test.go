package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordSeq atomic.Int64

func testRecord(userID int64, username string) *CompletedRecord {
	return &CompletedRecord{
		ID:        fmt.Sprintf("rec-%d-%d", userID, recordSeq.Add(1)),
		UserID:    userID,
		Username:  username,
		Timestamp: time.Now(),
		Answers:   map[int]string{1: "B", 2: "hello"},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVLogWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	log, err := NewCSVLog(path)
	require.NoError(t, err)

	require.NoError(t, log.Append(testRecord(1, "u1"), 2))
	require.NoError(t, log.Append(testRecord(2, "u2"), 2))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"user_id", "username", "timestamp", "Q1", "Q2"}, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "u1", rows[1][1])
	assert.Equal(t, "B", rows[1][3])
	assert.Equal(t, "hello", rows[1][4])
	assert.Equal(t, "2", rows[2][0])
}

func TestCSVLogHeaderOnceWithZeroQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	log, err := NewCSVLog(path)
	require.NoError(t, err)

	record := testRecord(1, "u1")
	record.Answers = nil
	require.NoError(t, log.Append(record, 0))
	require.NoError(t, log.Append(record, 0))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"user_id", "username", "timestamp"}, rows[0])
	assert.Len(t, rows[1], 3)
	assert.Len(t, rows[2], 3)
}

func TestCSVLogColumnsFixedByExistingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	log, err := NewCSVLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Append(testRecord(1, "u1"), 2))

	// Повторное открытие: количество колонок берется из заголовка файла,
	// даже если набор вопросов с тех пор вырос
	reopened, err := NewCSVLog(path)
	require.NoError(t, err)

	record := testRecord(2, "u2")
	record.Answers[3] = "extra"
	require.NoError(t, reopened.Append(record, 3))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 5)
	assert.Len(t, rows[2], 5)
}

func TestArchiveAppendPreservesHistory(t *testing.T) {
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	defer archive.Close()

	ctx := context.Background()
	first := testRecord(1, "u1")
	second := testRecord(1, "u1")
	second.Answers = map[int]string{1: "A", 2: "other"}

	require.NoError(t, archive.Append(ctx, first))
	require.NoError(t, archive.Append(ctx, second))

	history, err := archive.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
	assert.Equal(t, map[int]string{1: "B", 2: "hello"}, history[0].Answers)
	assert.Equal(t, map[int]string{1: "A", 2: "other"}, history[1].Answers)
	assert.False(t, history[0].Answered)
}

func TestArchiveSetAdminResponse(t *testing.T) {
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	defer archive.Close()

	ctx := context.Background()

	// Без прохождений ответ записать нельзя
	require.Error(t, archive.SetAdminResponse(ctx, 1, "привет"))

	first := testRecord(1, "u1")
	second := testRecord(1, "u1")
	require.NoError(t, archive.Append(ctx, first))
	require.NoError(t, archive.Append(ctx, second))

	require.NoError(t, archive.SetAdminResponse(ctx, 1, "спасибо за ответы"))

	// Ответ прикрепляется только к последнему прохождению
	history, err := archive.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Answered)
	assert.True(t, history[1].Answered)
	assert.Equal(t, "спасибо за ответы", history[1].AdminResponse)

	latest, err := archive.Latest(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
}

func TestArchiveStats(t *testing.T) {
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	defer archive.Close()

	ctx := context.Background()
	require.NoError(t, archive.Append(ctx, testRecord(1, "u1")))
	require.NoError(t, archive.Append(ctx, testRecord(1, "u1")))
	require.NoError(t, archive.Append(ctx, testRecord(2, "u2")))
	require.NoError(t, archive.Append(ctx, testRecord(3, "u3")))
	require.NoError(t, archive.SetAdminResponse(ctx, 2, "ok"))

	stats, err := archive.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 4, stats.TotalRecords)
	assert.Equal(t, 1, stats.Answered)
	assert.Equal(t, 2, stats.Pending)

	users, err := archive.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, users)
}

// Одновременные завершения разных пользователей не портят журнал
// и не теряют записи
func TestPersisterConcurrentCompletions(t *testing.T) {
	dir := t.TempDir()
	log, err := NewCSVLog(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	archive, err := OpenArchive(filepath.Join(dir, "archive.db"))
	require.NoError(t, err)
	defer archive.Close()

	persister := NewPersister(log, archive, 2)
	ctx := context.Background()

	const users = 10
	var wg sync.WaitGroup
	for u := int64(1); u <= users; u++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			assert.NoError(t, persister.Persist(ctx, testRecord(userID, fmt.Sprintf("u%d", userID))))
		}(u)
	}
	wg.Wait()

	rows := readCSV(t, filepath.Join(dir, "results.csv"))
	require.Len(t, rows, users+1)
	assert.Equal(t, []string{"user_id", "username", "timestamp", "Q1", "Q2"}, rows[0])
	for _, row := range rows[1:] {
		assert.Len(t, row, 5)
	}

	archived, err := archive.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, archived, users)
}
