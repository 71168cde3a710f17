package pubsub

import (
	"sync"

	"github.com/patternforge/graphrag-go/internal/apptype"
)

// Event types published by the store.
const (
	EventPatternStored = "pattern_stored"
	EventPatternsSwept = "patterns_swept"
)

// Event is a store notification. Node is set for pattern_stored; Count for
// patterns_swept.
type Event struct {
	Type  string
	Node  *apptype.GraphNode
	Count int
}

// Broker is a small in-process publish/subscribe hub for store
// notifications. Publishing never blocks: subscribers with a full buffer
// miss the event. It is a notification collaborator, decoupled from
// persistence and from any transport.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given buffer size and returns
// its channel plus a cancel function. The channel is closed on cancel or
// broker close.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber that has buffer room.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes every subscriber channel and rejects further publishes.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
