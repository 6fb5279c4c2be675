package eventbus

import (
	"sync"
	"time"
)

// Event types published by the pipeline.
const (
	TypeSourceChanged       = "source.changed"
	TypeSnapshotComputed    = "snapshot.computed"
	TypeBroadcastSent       = "broadcast.sent"
	TypeSessionConnected    = "session.connected"
	TypeSessionDisconnected = "session.disconnected"
)

// Event is an in-process notification. Data carries small scalar fields
// for logging; it is never mutated after Publish.
type Event struct {
	Type string
	Time time.Time
	Data map[string]any
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

const defaultBuffer = 8

// New returns an in-memory bus. It starts no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

// Nop returns a bus that drops everything.
func Nop() Bus { return nopBus{} }

type nopBus struct{}

func (nopBus) Publish(Event) {}
func (nopBus) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}
}

type memBus struct {
	// mu is held for reading during delivery so unsubscribe cannot close a
	// channel mid-send.
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}
