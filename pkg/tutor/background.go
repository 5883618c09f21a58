package tutor

import (
	"context"
	"log/slog"
	"sync"
)

// Background runs deferred work: validation, persistence, archive uploads.
// Tasks run detached from any request context; a panic is contained and
// logged. Wait blocks until everything submitted so far has finished.
type Background struct {
	tasks chan bgTask
	wg    sync.WaitGroup
	once  sync.Once
}

type bgTask struct {
	name string
	fn   func(context.Context) error
}

// NewBackground starts workers goroutines over a queue of depth entries.
func NewBackground(workers, depth int) *Background {
	if workers <= 0 {
		workers = 2
	}
	if depth <= 0 {
		depth = 32
	}
	b := &Background{tasks: make(chan bgTask, depth)}
	for i := 0; i < workers; i++ {
		go b.worker()
	}
	return b
}

// Submit queues fn. It blocks while the queue is full.
func (b *Background) Submit(name string, fn func(context.Context) error) {
	b.wg.Add(1)
	b.tasks <- bgTask{name: name, fn: fn}
}

func (b *Background) worker() {
	for t := range b.tasks {
		b.run(t)
	}
}

func (b *Background) run(t bgTask) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tutor: background task panicked", "task", t.name, "panic", r)
		}
	}()
	if err := t.fn(context.Background()); err != nil {
		slog.Warn("tutor: background task failed", "task", t.name, "err", err)
	}
}

// Wait blocks until every submitted task has completed.
func (b *Background) Wait() {
	b.wg.Wait()
}

// Close stops the workers once the queue drains. Submit after Close panics.
func (b *Background) Close() {
	b.once.Do(func() { close(b.tasks) })
}
