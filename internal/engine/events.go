package engine

import (
	"sync"
	"time"
)

// EventType names a change observers can react to.
type EventType string

const (
	EventArmed     EventType = "armed"
	EventDisarmed  EventType = "disarmed"
	EventAnalyzing EventType = "analyzing"
	EventTrade     EventType = "trade"
	EventRisk      EventType = "risk"
	EventFollow    EventType = "follow"
	EventTrader    EventType = "trader"
)

// Event is pushed to subscribers. Data depends on Type: the market id for
// analyzing (empty when cleared), the log entry for trade, the new risk for
// risk, the follow set for follow and the new profile for trader.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

const subscriberBuffer = 64

// broker fans events out to subscribers. Slow subscribers lose events
// rather than stall a decision cycle.
type broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan Event)}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
}

func (b *broker) publish(t EventType, data any) {
	ev := Event{Type: t, Time: time.Now(), Data: data}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
