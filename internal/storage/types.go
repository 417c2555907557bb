package storage

import "time"

// CompletedRecord представляет неизменяемый снимок одного завершенного прохождения теста
type CompletedRecord struct {
	ID        string         `json:"id"`
	UserID    int64          `json:"user_id"`
	Username  string         `json:"username"`
	Timestamp time.Time      `json:"timestamp"`
	Answers   map[int]string `json:"answers"`
}

// ArchiveEntry представляет одну запись архива при чтении
type ArchiveEntry struct {
	ID            string         `json:"id"`
	UserID        int64          `json:"user_id"`
	Username      string         `json:"username"`
	Timestamp     time.Time      `json:"timestamp"`
	Answers       map[int]string `json:"answers"`
	AdminResponse string         `json:"admin_response,omitempty"`
	Answered      bool           `json:"answered"`
}

// Stats представляет агрегированную статистику по архиву
type Stats struct {
	TotalUsers   int
	TotalRecords int
	Answered     int
	Pending      int
}
