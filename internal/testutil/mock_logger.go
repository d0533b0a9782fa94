// Package testutil provides shared test doubles.
package testutil

import (
	"sync"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
)

// MockLogger implements logging.Logger and records every entry so tests can
// assert on logging behavior.
type MockLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// LogMessage is a single captured log entry.
type LogMessage struct {
	Level   string
	Message string
	Fields  []logging.Field
}

// NewMockLogger creates an empty recording logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, LogMessage{Level: level, Message: msg, Fields: fields})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

// With returns the same recorder; fields are not accumulated.
func (m *MockLogger) With(...logging.Field) logging.Logger { return m }

// Named returns the same recorder; child entries land in the parent.
func (m *MockLogger) Named(string) logging.Logger { return m }

// Messages returns a copy of everything logged so far.
func (m *MockLogger) Messages() []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// MessagesAt returns the captured messages at one level.
func (m *MockLogger) MessagesAt(level string) []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LogMessage
	for _, msg := range m.messages {
		if msg.Level == level {
			out = append(out, msg)
		}
	}
	return out
}

// Reset discards all captured messages.
func (m *MockLogger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
