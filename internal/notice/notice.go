// Package notice carries transient user-visible messages, the terminal
// equivalent of toast pop-ups. Components report failures here instead of
// propagating them to a global handler.
package notice

import (
	"fmt"
	"sync"
)

type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

type Notice struct {
	Level   Level
	Message string
}

type Sink interface {
	Notify(Notice)
}

type SinkFunc func(Notice)

func (f SinkFunc) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Sink = SinkFunc(func(Notice) {})

func Errorf(s Sink, format string, args ...any) {
	s.Notify(Notice{Level: Error, Message: fmt.Sprintf(format, args...)})
}

func Successf(s Sink, format string, args ...any) {
	s.Notify(Notice{Level: Success, Message: fmt.Sprintf(format, args...)})
}

func Infof(s Sink, format string, args ...any) {
	s.Notify(Notice{Level: Info, Message: fmt.Sprintf(format, args...)})
}

// Recorder keeps every notice it receives. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Level returns the messages recorded at level l.
func (r *Recorder) Level(l Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.Level == l {
			out = append(out, n.Message)
		}
	}
	return out
}
