// Package scheduler реализует батчер UI обновлений: накапливает
// колбеки в пределах кадра и выполняет их одним flush, чтения раньше
// записей. Устраняет layout thrashing при серии мелких мутаций.
package scheduler

import (
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// defaultFrameInterval период автоматического flush, один кадр при 60fps
const defaultFrameInterval = 16 * time.Millisecond

// task отложенный колбек
type task struct {
	fn     func()
	id     string
	seq    uint64
	isRead bool
}

// Scheduler накапливает и пакетно выполняет колбеки
type Scheduler struct {
	logger *slog.Logger

	mu    sync.Mutex
	tasks map[string]*task
	seq   uint64

	frameInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// New создает планировщик и запускает горутину автоматического flush.
// frameInterval <= 0 означает кадровый период по умолчанию.
func New(logger *slog.Logger, frameInterval time.Duration) *Scheduler {
	if frameInterval <= 0 {
		frameInterval = defaultFrameInterval
	}
	s := &Scheduler{
		logger:        logger,
		tasks:         make(map[string]*task),
		frameInterval: frameInterval,
		stop:          make(chan struct{}),
	}

	s.wg.Add(1)
	go s.frameLoop()
	return s
}

// Schedule регистрирует колбек. Повторная регистрация того же id
// заменяет колбек последним вариантом - выполняется ровно один раз
// за flush. isRead=true ставит колбек в класс чтений, которые
// выполняются раньше всех записей.
func (s *Scheduler) Schedule(id string, fn func(), isRead bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.tasks[id] = &task{
		id:     id,
		fn:     fn,
		isRead: isRead,
		seq:    s.seq,
	}
}

// Cancel снимает колбек до его выполнения. Неизвестный id игнорируется.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

// Pending возвращает количество зарегистрированных колбеков
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// FlushNow синхронно выполняет все накопленные колбеки: сначала все
// чтения, затем все записи, внутри класса в порядке регистрации.
// Паника одного колбека не мешает остальным.
func (s *Scheduler) FlushNow() {
	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return
	}
	batch := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		batch = append(batch, t)
	}
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool {
		if batch[i].isRead != batch[j].isRead {
			return batch[i].isRead
		}
		return batch[i].seq < batch[j].seq
	})

	for _, t := range batch {
		s.runTask(t)
	}
}

// runTask выполняет один колбек с изоляцией паники
func (s *Scheduler) runTask(t *task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled callback panicked",
				"task_id", t.id,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	t.fn()
}

// frameLoop периодически сбрасывает накопленные колбеки
func (s *Scheduler) frameLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.FlushNow()
		}
	}
}

// Close останавливает автоматический flush, выполнив остаток батча.
// Schedule после Close регистрирует колбеки, но выполняются они
// только через явный FlushNow.
func (s *Scheduler) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	s.FlushNow()
}
