package event

import (
	"encoding/json"
	"sync"
)

// Listener receives one flushed batch, in emission order. The slice is only
// valid for the duration of the call.
type Listener func(batch []Event)

type subscription struct {
	id int
	fn Listener
}

// Bus is a double-buffered event queue. Producers Emit during a tick; nothing
// is delivered until Flush, which hands the whole batch to every listener.
// Events emitted by a listener during Flush land in the next batch.
type Bus struct {
	mu       sync.Mutex // only protects listener registration
	front    []Event
	back     []Event
	handlers []subscription
	nextID   int
}

func NewBus() *Bus {
	return &Bus{
		front: make([]Event, 0, 64),
		back:  make([]Event, 0, 64),
	}
}

// Emit queues an event for the next flush.
func (b *Bus) Emit(ev Event) {
	b.back = append(b.back, ev)
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Listener) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.handlers {
			if s.id == id {
				b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Pending is the number of queued, undelivered events.
func (b *Bus) Pending() int { return len(b.back) }

// Flush swaps buffers and delivers the batch. Returns the batch size.
func (b *Bus) Flush() int {
	if len(b.back) == 0 {
		return 0
	}
	b.front, b.back = b.back, b.front[:0]

	b.mu.Lock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h.fn(b.front)
	}
	n := len(b.front)
	clear(b.front)
	b.front = b.front[:0]
	return n
}

// Reset drops every queued event without delivering it.
func (b *Bus) Reset() {
	clear(b.back)
	b.back = b.back[:0]
}

// Encode renders ev as a JSON object carrying its kind under "type".
func Encode(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(ev.Kind())
	// body is always a JSON object; splice the tag in front
	out := make([]byte, 0, len(body)+len(kind)+9)
	out = append(out, `{"type":`...)
	out = append(out, kind...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}
