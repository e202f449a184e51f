package events

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(event Event)

func (h HandlerFunc) Handle(event Event) {
	h(event)
}
