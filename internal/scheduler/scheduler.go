// Package scheduler реализует периодические и отложенные задачи движка
// (обновление баланса, опрос символов, housekeeping сессий). Базовая идея
// "elapsed >= period -> выполнить и сбросить отсчёт" взята из
// original_source/.../parts/utils/PeriodicTask.hpp, но расширена до
// шести режимов планирования, reschedule_at/reschedule_in и обобщена на
// множество именованных задач через goroutine-per-task цикл в духе
// teacher's internal/bot/engine.go periodicTasks.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"optionx/internal/metrics"
)

// Mode определяет, как часто и когда задача должна выполняться.
type Mode int

const (
	// Single - выполняется один раз немедленно при Register.
	Single Mode = iota
	// DelayedSingle - выполняется один раз после Delay.
	DelayedSingle
	// Periodic - выполняется каждые Period, начиная немедленно.
	Periodic
	// DelayedPeriodic - первое выполнение после Delay, затем каждые Period.
	DelayedPeriodic
	// OnDate - выполняется один раз в момент At.
	OnDate
	// PeriodicOnDate - первое выполнение в момент At, затем каждые Period.
	PeriodicOnDate
)

// TaskFunc - тело задачи. Получает момент времени, для которого сработал
// тик (позволяет телу учесть, что "пропущенные" тики уже схлопнуты в один
// вызов).
type TaskFunc func(ctx context.Context, firedAt time.Time)

// Spec описывает, когда и как должна запускаться задача.
type Spec struct {
	Mode   Mode
	Delay  time.Duration
	Period time.Duration
	At     time.Time
}

// task - внутреннее состояние зарегистрированной задачи. spec защищен
// собственным мьютексом, а не мьютексом Scheduler, так как читается из
// работающей goroutine задачи одновременно с записью из Reschedule.
type task struct {
	name string
	fn   TaskFunc

	specMu sync.Mutex
	spec   Spec

	cancel   context.CancelFunc
	done     chan struct{}
	notify   chan struct{} // сигнал "spec изменен, перечитай и перезапусти ожидание"
	shutdown chan struct{} // закрывается Shutdown() перед cancel - сигнал "дать финальный fire"
}

func (t *task) getSpec() Spec {
	t.specMu.Lock()
	defer t.specMu.Unlock()
	return t.spec
}

func (t *task) setSpec(spec Spec) {
	t.specMu.Lock()
	t.spec = spec
	t.specMu.Unlock()
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Scheduler хранит и запускает именованные задачи. Безопасен для
// конкурентного доступа.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
	log   *zap.Logger
	base  context.Context
}

// New создает Scheduler, чьи задачи наследуют отмену от ctx - отмена ctx
// каскадно останавливает все задачи (аналог shutdown cascading
// original_source).
func New(ctx context.Context, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		tasks: make(map[string]*task),
		log:   log,
		base:  ctx,
	}
}

// Register добавляет задачу с именем name. Имя должно быть уникальным;
// повторная регистрация с тем же именем останавливает предыдущую задачу.
func (s *Scheduler) Register(name string, spec Spec, fn TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tasks[name]; ok {
		existing.cancel()
		<-existing.done
	}
	ctx, cancel := context.WithCancel(s.base)
	t := &task{
		name:     name,
		spec:     spec,
		fn:       fn,
		cancel:   cancel,
		done:     make(chan struct{}),
		notify:   make(chan struct{}, 1),
		shutdown: make(chan struct{}),
	}
	s.tasks[name] = t
	go s.run(ctx, t)
}

// Reschedule заменяет Spec уже запущенной задачи на лету, не теряя ее
// goroutine/identity - задача просыпается (если ждет) или перезапускает
// тикер (если уже в периодическом режиме) и продолжает уже по новому
// Spec. Может вызываться как из самого TaskFunc, так и снаружи. Возвращает
// false, если задача с таким именем не зарегистрирована.
func (s *Scheduler) Reschedule(name string, spec Spec) bool {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.setSpec(spec)
	return true
}

// RescheduleIn - относительная форма reschedule: задача сработает один
// раз через delay от текущего момента, заменяя любой предыдущий режим
// (периодический в том числе).
func (s *Scheduler) RescheduleIn(name string, delay time.Duration) bool {
	return s.Reschedule(name, Spec{Mode: DelayedSingle, Delay: delay})
}

// RescheduleAt - абсолютная форма reschedule: задача сработает один раз
// в момент at.
func (s *Scheduler) RescheduleAt(name string, at time.Time) bool {
	return s.Reschedule(name, Spec{Mode: OnDate, At: at})
}

// Cancel останавливает и удаляет задачу по имени. Не паникует, если
// задача не существует. В отличие от Shutdown, финальный fire не
// выполняется - Cancel это явное немедленное удаление, а не штатное
// завершение работы движка.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok {
		delete(s.tasks, name)
	}
	s.mu.Unlock()
	if ok {
		t.cancel()
		<-t.done
	}
}

// Shutdown останавливает все зарегистрированные задачи. Перед остановкой
// каждая задача помечается как "завершающаяся" и получает ровно один
// финальный fire - чтобы тело задачи могло выполнить cleanup - и только
// затем удаляется.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	for _, t := range tasks {
		close(t.shutdown)
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
}

// TaskNames возвращает имена всех зарегистрированных задач - используется
// диагностическим API.
func (s *Scheduler) TaskNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}

// waitResult - исход ожидания начального триггера (Delay/At) или
// периодического тика.
type waitResult int

const (
	waitFired waitResult = iota
	waitCanceled
	waitRescheduled
)

func (s *Scheduler) run(ctx context.Context, t *task) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduler task panicked", zap.String("task", t.name), zap.Any("recover", r))
		}
	}()
	defer s.fireFinalOnShutdown(t)

	for {
		spec := t.getSpec()

		var res waitResult
		switch spec.Mode {
		case Single, Periodic:
			res = waitFired
		case DelayedSingle, DelayedPeriodic:
			res = s.waitFor(ctx, t, spec.Delay)
		case OnDate, PeriodicOnDate:
			res = s.waitUntil(ctx, t, spec.At)
		}

		switch res {
		case waitCanceled:
			return
		case waitRescheduled:
			continue
		}

		s.fire(ctx, t)

		switch spec.Mode {
		case Single, DelayedSingle, OnDate:
			// A reschedule made from inside the body re-arms the task.
			select {
			case <-t.notify:
				continue
			default:
				return
			}
		}

		if !s.periodicLoop(ctx, t, spec.Period) {
			return
		}
		// periodicLoop returned true: spec was replaced mid-flight -
		// restart the outer loop against the new spec.
	}
}

// periodicLoop тикает каждые period, пока ctx не отменен (возвращает
// false - вызывающий должен завершиться) или пока задачу не
// перепланировали (возвращает true - вызывающий должен перечитать spec
// заново и начать сначала).
func (s *Scheduler) periodicLoop(ctx context.Context, t *task, period time.Duration) bool {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-t.notify:
			return true
		case firedAt := <-ticker.C:
			s.fireAt(ctx, t, firedAt)
			drainTicker(ticker)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, t *task) {
	s.fireAt(ctx, t, time.Now())
}

func (s *Scheduler) fireAt(ctx context.Context, t *task, at time.Time) {
	start := time.Now()
	defer func() {
		metrics.SchedulerTaskLatency.WithLabelValues(t.name).Observe(float64(time.Since(start).Microseconds()) / 1000)
		if r := recover(); r != nil {
			metrics.SchedulerTaskPanics.WithLabelValues(t.name).Inc()
			s.log.Error("scheduler task body panicked", zap.String("task", t.name), zap.Any("recover", r))
		}
	}()
	t.fn(ctx, at)
}

// fireFinalOnShutdown даёт задаче ровно один финальный fire, если она
// остановлена через Shutdown (а не Cancel) - контракт shutdown():
// "each task fires once more (so cleanup logic can run) and is then
// removed". ctx к этому моменту уже отменен, поэтому используется
// отдельный, не отмененный контекст - иначе тело задачи не смогло бы
// сделать ничего, зависящего от ctx.Err() == nil.
func (s *Scheduler) fireFinalOnShutdown(t *task) {
	select {
	case <-t.shutdown:
	default:
		return
	}
	s.fireAt(context.Background(), t, time.Now())
}

// drainTicker схлопывает тики, накопившиеся, пока тело задачи выполнялось
// дольше периода - не даёт задаче "нагонять" пропущенные срабатывания.
func drainTicker(ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
		default:
			return
		}
	}
}

func (s *Scheduler) waitFor(ctx context.Context, t *task, d time.Duration) waitResult {
	if d <= 0 {
		if ctx.Err() != nil {
			return waitCanceled
		}
		return waitFired
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return waitCanceled
	case <-t.notify:
		return waitRescheduled
	case <-timer.C:
		return waitFired
	}
}

func (s *Scheduler) waitUntil(ctx context.Context, t *task, at time.Time) waitResult {
	return s.waitFor(ctx, t, time.Until(at))
}
