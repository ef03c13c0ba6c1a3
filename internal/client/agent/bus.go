package agent

import (
	"log/slog"
	"sync"

	"github.com/iudanet/probtrack/internal/protocol"
)

// subscriberBuffer емкость канала подписчика. Медленный подписчик
// теряет события, а не блокирует агента.
const subscriberBuffer = 64

// Bus рассылает события агента подписчикам
type Bus struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[int]chan *protocol.Event
	next int
}

// NewBus создает шину событий
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[int]chan *protocol.Event),
	}
}

// Subscribe возвращает канал событий и функцию отписки
func (b *Bus) Subscribe() (<-chan *protocol.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan *protocol.Event, subscriberBuffer)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
}

// Publish неблокирующе рассылает событие всем подписчикам.
// Переполненный канал подписчика пропускается с записью в лог.
func (b *Bus) Publish(event *protocol.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Dropping event for slow subscriber",
				"subscriber", id,
				"event", event.Type,
			)
		}
	}
}
