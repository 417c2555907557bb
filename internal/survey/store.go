package survey

import (
	"sync"
	"time"
)

// Store хранит текущие сессии пользователей. Для каждого пользователя
// выдается отдельный мьютекс: события одного пользователя применяются
// строго по очереди, события разных пользователей — параллельно.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get возвращает текущую сессию пользователя
func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// Put создает или перезаписывает сессию пользователя
func (s *Store) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session
}

// Remove удаляет сессию пользователя
func (s *Store) Remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// userLock возвращает мьютекс пользователя, создавая его при первом обращении.
// Мьютекс удерживается движком на все время read-modify-write сессии.
// Созданный мьютекс никогда не удаляется: он может удерживаться
// обработчиком в момент очистки.
func (s *Store) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// StartCleanup запускает периодическую очистку неактивных сессий.
// Срок жизни сессии наблюдаемым поведением не задан, очистка — мера
// защиты от накопления брошенных сессий.
func (s *Store) StartCleanup(interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			s.cleanupInactive(maxIdle)
		}
	}()
}

func (s *Store) cleanupInactive(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	userIDs := make([]int64, 0, len(s.sessions))
	for userID := range s.sessions {
		userIDs = append(userIDs, userID)
	}
	s.mu.Unlock()

	// LastActivity пишется движком под мьютексом пользователя, поэтому
	// проверка и удаление идут под тем же мьютексом. s.mu при этом не
	// удерживается: порядок захвата такой же, как у движка.
	for _, userID := range userIDs {
		lock := s.userLock(userID)
		lock.Lock()
		s.mu.Lock()
		if session, ok := s.sessions[userID]; ok && session.LastActivity.Before(cutoff) {
			delete(s.sessions, userID)
		}
		s.mu.Unlock()
		lock.Unlock()
	}
}
