package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated principal
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() Role
}

// PasswordHasher derives and checks one-way password digests
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) error
}

// TokenService issues and verifies session tokens
type TokenService interface {
	Issue(userID string) (string, error)
	Verify(token string) (*SessionClaims, error)
}

// Clock is the time source for every expiry and timestamp decision
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reports wall clock time in UTC.
var SystemClock Clock = ClockFunc(func() time.Time {
	return time.Now().UTC()
})

// Message is an outbound notification handed to a Dispatcher
type Message struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher delivers outbound messages, usually email
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, msg Message) error

// Send implements Dispatcher.
func (f DispatcherFunc) Send(ctx context.Context, msg Message) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

// WriterDispatcher renders messages to a writer. It is meant for local
// development where no mail relay is configured.
type WriterDispatcher struct {
	w io.Writer
}

// NewWriterDispatcher returns a dispatcher that prints each message to w.
func NewWriterDispatcher(w io.Writer) *WriterDispatcher {
	return &WriterDispatcher{w: w}
}

// Send implements Dispatcher.
func (d *WriterDispatcher) Send(_ context.Context, msg Message) error {
	_, err := fmt.Fprintf(d.w, "==== email ====\nTo: %s\nSubject: %s\n\n%s\n===============\n", msg.To, msg.Subject, msg.Body)
	return err
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger adapts a slog.Logger to the package Logger interface.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(format string, args ...any) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Info(format string, args ...any) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Warn(format string, args ...any) {
	s.l.Warn(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Error(format string, args ...any) {
	s.l.Error(fmt.Sprintf(format, args...))
}

// NewLogger builds the process logger. Format is either "json" or "text".
func NewLogger(format string, w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("component", "auth")
}

func defaultLogger() Logger {
	return NewSlogLogger(slog.Default().With("component", "auth"))
}
