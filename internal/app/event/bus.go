package event

import (
	"sync"

	"codearena/internal/domain/model"

	"go.uber.org/zap"
)

// Publisher is the outbound side of the bus; the state machine and the
// freeze controller write to it after each committed transition.
type Publisher interface {
	Publish(ev model.Event)
}

// Bus fans events out to subscriber channels. Publish never blocks: a
// subscriber whose buffer is full misses the event and must re-read
// state on reconnect.
type Bus struct {
	mu     sync.RWMutex
	subs   map[chan model.Event]struct{}
	buffer int
	logger *zap.Logger
}

func NewBus(buffer int, logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[chan model.Event]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (b *Bus) Subscribe() chan model.Event {
	ch := make(chan model.Event, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan model.Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(ev model.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("event dropped for slow subscriber",
				zap.String("type", string(ev.Type)),
				zap.String("entity_id", ev.EntityID))
		}
	}
}
