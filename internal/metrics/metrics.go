package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu              sync.RWMutex
	TestsStarted    int64
	TestsCompleted  int64
	TestsCancelled  int64
	AnswersAccepted int64
	BadSelections   int64
	NotifyFailures  int64
	LastUpdateTime  time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		LastUpdateTime: time.Now(),
	}
}

func (m *Metrics) IncrementTestsStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TestsStarted++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementTestsCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TestsCompleted++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementTestsCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TestsCancelled++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementAnswersAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnswersAccepted++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementBadSelections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BadSelections++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementNotifyFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyFailures++
	m.LastUpdateTime = time.Now()
}

func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		TestsStarted:    m.TestsStarted,
		TestsCompleted:  m.TestsCompleted,
		TestsCancelled:  m.TestsCancelled,
		AnswersAccepted: m.AnswersAccepted,
		BadSelections:   m.BadSelections,
		NotifyFailures:  m.NotifyFailures,
		LastUpdateTime:  m.LastUpdateTime,
	}
}
