package app

import (
	"sync"
	"sync/atomic"
	"time"

	"pallet-vision/internal/domain/entity"
)

// EventKind вид события конвейера
type EventKind string

const (
	EventFrameProduced EventKind = "frame_produced" // источник выдал кадр
	EventFrameDropped  EventKind = "frame_dropped"  // кадр вытеснен из почтового ящика
	EventVerdict       EventKind = "verdict"        // воркер вынес вердикт
	EventFaultRecorded EventKind = "fault_recorded" // запись о браке сохранена
	EventSourceState   EventKind = "source_state"   // источник сменил состояние
	EventRelayState    EventKind = "relay_state"    // реле сменило состояние
	EventStoreFailure  EventKind = "store_failure"  // журнал брака не принял запись
)

// Event событие конвейера для внешних подписчиков (живой экран, алармы).
// Подписчики могут быть медленными или отсутствовать: публикация
// никогда не блокирует конвейер, лишнее отбрасывается.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	SourceID  string
	Task      entity.TaskKind
	Seq       uint64
	State     string              // для событий смены состояния
	Verdict   *entity.Verdict     // для EventVerdict
	Fault     *entity.FaultRecord // для EventFaultRecorded
	Repeat    bool                // повторный брак внутри окна дедупликации
	Err       string              // для EventStoreFailure и аварий реле
}

type subscriberStats struct {
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// SubscriberStats счётчики доставки по одному подписчику
type SubscriberStats struct {
	Sent    uint64 // доставлено событий
	Dropped uint64 // отброшено из-за заполненного канала
}

// BusStats срез счётчиков шины событий
type BusStats struct {
	Published   uint64
	Subscribers map[string]SubscriberStats
}

// EventBus неблокирующая рассылка событий подписчикам.
// Полный канал подписчика означает потерю события у этого подписчика,
// корректность конвейера от подписчиков не зависит.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan<- Event
	stats       map[string]*subscriberStats
	closed      bool

	published atomic.Uint64
}

// NewEventBus создаёт шину событий
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]chan<- Event),
		stats:       make(map[string]*subscriberStats),
	}
}

// Subscribe регистрирует канал подписчика под уникальным id
func (b *EventBus) Subscribe(id string, ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.subscribers[id] = ch
	b.stats[id] = &subscriberStats{}
}

// Unsubscribe убирает подписчика. Безопасно для неизвестного id.
func (b *EventBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, id)
	delete(b.stats, id)
}

// Publish раздаёт событие всем подписчикам без блокировки.
// После Close публикация превращается в no-op.
func (b *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
			b.stats[id].sent.Add(1)
		default:
			// Канал подписчика полон — событие для него теряется.
			b.stats[id].dropped.Add(1)
		}
	}
}

// Stats возвращает срез счётчиков шины
func (b *EventBus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := BusStats{
		Published:   b.published.Load(),
		Subscribers: make(map[string]SubscriberStats, len(b.stats)),
	}
	for id, s := range b.stats {
		result.Subscribers[id] = SubscriberStats{
			Sent:    s.sent.Load(),
			Dropped: s.dropped.Load(),
		}
	}
	return result
}

// Close останавливает шину; дальнейшие публикации отбрасываются
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subscribers = make(map[string]chan<- Event)
	b.stats = make(map[string]*subscriberStats)
}
