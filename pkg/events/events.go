// Package events carries progress reports from a pipeline run to whoever
// is presenting them.
package events

type Level uint8

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "D"
	case Info:
		return "I"
	case Warn:
		return "W"
	case Error:
		return "E"
	default:
		return "X"
	}
}

type Event struct {
	Level Level
	// Stage is the pipeline stage that emitted the event.
	Stage   string
	Message string
	// Path is the file the event is about, if any.
	Path  string
	Error error
}

type Handler interface {
	Handle(event Event)
}

// Noop discards every event.
var Noop Handler = HandlerFunc(func(Event) {})
