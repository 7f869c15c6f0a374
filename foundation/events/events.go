// Package events allows for the registering and receiving of events that
// occur while the chain processes blocks and stablecoin operations.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Set of event kinds published by the node.
const (
	KindBlockAdded          = "block-added"
	KindMintCompleted       = "mint-completed"
	KindBurnCompleted       = "burn-completed"
	KindSettlementCompleted = "settlement-completed"
)

// Event represents a single notification published by the chain. Data carries
// the JSON encoding of the originating request and its result so downstream
// indexing and audit consumers can process it without another lookup.
type Event struct {
	Kind      string    `json:"kind"`
	TimeStamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

// New constructs an event for the specified kind of notification.
func New(kind string, data []byte) Event {
	return Event{
		Kind:      kind,
		TimeStamp: time.Now().UTC(),
		Data:      data,
	}
}

// =============================================================================

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	m  map[string]chan Event
	mu sync.RWMutex
}

// NewBus constructs an events bus for registering and receiving events.
func NewBus() *Events {
	return &Events{
		m: make(map[string]chan Event),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	// A consumer that is slow to receive (like a websocket send) will drop
	// messages once this buffer is full rather than block the publisher.
	const messageBuffer = 100

	evt.m[id] = make(chan Event, messageBuffer)
	return evt.m[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Send delivers the event to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(ev Event) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- ev:
		default:
		}
	}
}
