package watcher

// lazySend drops value when ch is full. A pending Event already means
// "regenerate", so a second one carries no extra information.
func lazySend[T any](ch chan<- T, value T) {
	select {
	case ch <- value:
	default:
	}
}
