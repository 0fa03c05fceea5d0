package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives the user-facing outcome of store mutations.
type Notifier interface {
	Success(c context.Context, message string)
	Error(c context.Context, message string)
}

// LogNotifier writes notifications to the context logger and, when the
// context carries a Recorder, records them there too.
type LogNotifier struct{}

func (LogNotifier) Success(c context.Context, message string) {
	zerolog.Ctx(c).Info().Str(log.KeyTag, "LogNotifier Success").Msg(message)
	if r := RecorderFromContext(c); r != nil {
		r.add(Notification{Level: LevelSuccess, Message: message})
	}
}

func (LogNotifier) Error(c context.Context, message string) {
	zerolog.Ctx(c).Warn().Str(log.KeyTag, "LogNotifier Error").Msg(message)
	if r := RecorderFromContext(c); r != nil {
		r.add(Notification{Level: LevelError, Message: message})
	}
}

// Recorder collects the notifications raised while serving one request.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

type recorderKey struct{}

func WithRecorder(c context.Context) (context.Context, *Recorder) {
	r := &Recorder{}
	return context.WithValue(c, recorderKey{}, r), r
}

func RecorderFromContext(c context.Context) *Recorder {
	if c == nil {
		return nil
	}
	r, _ := c.Value(recorderKey{}).(*Recorder)
	return r
}

func (r *Recorder) add(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}
