// Package eventhub реализует публикацию событий между компонентами
// движка исполнения сделок. Перенос и обобщение
// internal/websocket/hub.go (teacher): тот же паттерн "скопировать список
// подписчиков под RLock -> разослать без блокировки", применённый к
// типизированным доменным событиям вместо websocket-клиентов. Подписчики
// не снимаются (отписки нет); при переполненной очереди NotifyAsync
// событие отбрасывается.
package eventhub

import (
	"sync"

	"go.uber.org/zap"

	"optionx/internal/metrics"
)

// Event - маркерный интерфейс для всех событий, публикуемых через Hub.
// Конкретные типы определены в events.go и соответствуют наблюдателям
// original_source (PriceUpdateEvent, TradeTransactionEvent, и т.д.).
type Event interface {
	EventName() string
}

// Handler обрабатывает одно событие. Паника внутри Handler изолируется -
// она не должна уронить Hub или остальных подписчиков.
type Handler func(Event)

// Hub маршрутизирует события подписчикам по имени события.
//
// ОПТИМИЗАЦИЯ: рассылка синхронных уведомлений (Notify) не держит mu на
// время вызова обработчиков - список подписчиков копируется под RLock,
// вызовы происходят без удержания блокировки, как в teacher's hub.Run().
type Hub struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	queue     chan Event
	queueOnce sync.Once
	log       *zap.Logger

	// envelopePool recycles the []Handler snapshot Notify copies the
	// subscriber list into, so a hub dispatching many events under load
	// doesn't allocate a fresh backing array per Notify call.
	envelopePool sync.Pool
}

// handlerEnvelope carries one Notify call's snapshot of subscribers -
// borrowed from envelopePool and returned once dispatch finishes.
type handlerEnvelope struct {
	handlers []Handler
}

// New создает пустой Hub. queueSize задает ёмкость очереди NotifyAsync.
func New(queueSize int, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Hub{
		handlers: make(map[string][]Handler),
		queue:    make(chan Event, queueSize),
		log:      log,
	}
}

// Subscribe регистрирует обработчик для событий с данным именем.
func (h *Hub) Subscribe(eventName string, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[eventName] = append(h.handlers[eventName], handler)
}

// Notify рассылает событие всем подписчикам синхронно, на горутине
// вызывающего. Паника в одном обработчике перехватывается и логируется,
// остальные обработчики всё равно получают событие.
func (h *Hub) Notify(event Event) {
	env := h.borrowEnvelope()
	defer h.releaseEnvelope(env)

	h.mu.RLock()
	subs := h.handlers[event.EventName()]
	if cap(env.handlers) < len(subs) {
		env.handlers = make([]Handler, len(subs))
	} else {
		env.handlers = env.handlers[:len(subs)]
	}
	copy(env.handlers, subs)
	h.mu.RUnlock()

	for _, handler := range env.handlers {
		h.dispatchSafely(handler, event)
	}
}

func (h *Hub) borrowEnvelope() *handlerEnvelope {
	if v := h.envelopePool.Get(); v != nil {
		return v.(*handlerEnvelope)
	}
	return &handlerEnvelope{}
}

func (h *Hub) releaseEnvelope(env *handlerEnvelope) {
	for i := range env.handlers {
		env.handlers[i] = nil
	}
	env.handlers = env.handlers[:0]
	h.envelopePool.Put(env)
}

// NotifyAsync помещает событие в очередь для последующей доставки через
// Process. Не блокирует вызывающего: если очередь переполнена, событие
// отбрасывается и фиксируется предупреждением (как teacher's Broadcast
// не ждёт медленных клиентов, а снимает их с регистрации).
func (h *Hub) NotifyAsync(event Event) {
	select {
	case h.queue <- event:
	default:
		metrics.EventsDropped.WithLabelValues(event.EventName()).Inc()
		h.log.Warn("eventhub queue full, dropping event", zap.String("event", event.EventName()))
	}
}

// Process доставляет все события, накопленные в очереди NotifyAsync, на
// горутине вызывающего. Предназначен для вызова из единственного цикла
// обработки (см. internal/queue), чтобы сохранить порядок доставки.
func (h *Hub) Process() {
	for {
		select {
		case event := <-h.queue:
			h.Notify(event)
		default:
			return
		}
	}
}

func (h *Hub) dispatchSafely(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.WithLabelValues(event.EventName()).Inc()
			h.log.Error("eventhub handler panicked",
				zap.String("event", event.EventName()),
				zap.Any("recover", r),
			)
		}
	}()
	handler(event)
}

// SubscriberCount возвращает число подписчиков на событие - используется
// диагностикой и тестами.
func (h *Hub) SubscriberCount(eventName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[eventName])
}
