package event

import (
	"reflect"
	"sync"
)

type entry struct {
	typ reflect.Type
	ev  any
}

// Bus is a double-buffered event bus. Events emitted during tick N are
// delivered during tick N+1, after SwapBuffers, in emission order across
// all event types.
type Bus struct {
	mu       sync.Mutex // only guards subscription
	front    []entry
	back     []entry
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]any),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues event for the next dispatch. Game loop only.
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, entry{typ: typeOf[T](), ev: event})
}

// Subscribe registers fn for every event of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers makes the events emitted since the last swap deliverable
// and starts a fresh back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

// Pending returns the number of events waiting for the next swap.
func (b *Bus) Pending() int {
	return len(b.back)
}

// DispatchAll delivers the front buffer to subscribers in emission order.
// Subscribers of one type run in subscription order.
func (b *Bus) DispatchAll() {
	for _, e := range b.front {
		for _, h := range b.handlers[e.typ] {
			reflect.ValueOf(h).Call([]reflect.Value{reflect.ValueOf(e.ev)})
		}
	}
}
