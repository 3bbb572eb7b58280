package core

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Emitter is a typed fan-out point for session lifecycle events.
//
// Delivery runs under the read lock and unsubscribing takes the write lock,
// so once an unsubscribe call returns the handler is guaranteed not to run
// again. Handlers must not subscribe or unsubscribe on the same emitter from
// inside a delivery.
type Emitter[T any] struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(T)
}

// Subscribe registers fn and returns its unsubscribe handle.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[int]func(T))
	}
	id := e.nextID
	e.nextID++
	e.handlers[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.handlers, id)
		e.mu.Unlock()
	}
}

// Emit delivers v to every subscribed handler exactly once.
// A panicking handler is contained to its own delivery; the remaining
// handlers still receive the event.
func (e *Emitter[T]) Emit(v T) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.handlers {
		deliver(fn, v)
	}
}

func deliver[T any](fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "core.emitter").Any("panic", r).Msg("event handler panicked")
		}
	}()
	fn(v)
}
