package notify

import (
	"log"
	"sync"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Toast struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier is the user-facing message surface. Calls never block and are
// not acknowledged.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Queue collects toasts until the next Drain.
type Queue struct {
	mu     sync.Mutex
	toasts []Toast
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Success(message string) { q.push(LevelSuccess, message) }

func (q *Queue) Error(message string) { q.push(LevelError, message) }

func (q *Queue) push(level Level, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toasts = append(q.toasts, Toast{Level: level, Message: message})
}

// Drain returns the pending toasts and empties the queue.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	toasts := q.toasts
	q.toasts = nil
	if toasts == nil {
		return []Toast{}
	}
	return toasts
}

// Logger writes toasts to the standard logger with a prefix.
type Logger struct {
	Prefix string
}

func (l Logger) Success(message string) { log.Printf("%s✅ %s", l.Prefix, message) }

func (l Logger) Error(message string) { log.Printf("%s❌ %s", l.Prefix, message) }

// Multi forwards each toast to every notifier.
type Multi []Notifier

func (m Multi) Success(message string) {
	for _, n := range m {
		n.Success(message)
	}
}

func (m Multi) Error(message string) {
	for _, n := range m {
		n.Error(message)
	}
}
