package mocks

import (
	"fmt"
	"sync"

	"github.com/user/framefetch/pkg/ports"
)

// Logger is a mock implementation of ports.Logger that records messages.
type Logger struct {
	mu        *sync.Mutex
	messages  *[]string
	component string
	prefix    string
}

// NewLogger creates a new recording logger.
func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, messages: &[]string{}}
}

func (l *Logger) record(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.messages = append(*l.messages, level+" "+l.prefix+fmt.Sprintf(msg, args...))
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.record("debug", msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.record("info", msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.record("warn", msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.record("error", msg, args...) }

// WithComponent nests component under the current one, as ConsoleLogger does.
func (l *Logger) WithComponent(component string) ports.Logger {
	if l.component != "" {
		component = l.component + "/" + component
	}
	return &Logger{mu: l.mu, messages: l.messages, component: component, prefix: "[" + component + "] "}
}

// Messages returns every recorded line, including component loggers'.
func (l *Logger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), *l.messages...)
}

var _ ports.Logger = (*Logger)(nil)
